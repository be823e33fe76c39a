package api

import (
	"errors"
	"net/http"

	"github.com/spf13/cast"

	"github.com/anikkhan0099/moviehubbd/internal/httputil"
	"github.com/anikkhan0099/moviehubbd/internal/jobs"
	"github.com/anikkhan0099/moviehubbd/internal/metadata"
	"github.com/anikkhan0099/moviehubbd/internal/models"
	"github.com/anikkhan0099/moviehubbd/internal/query"
	"github.com/anikkhan0099/moviehubbd/internal/upload"
)

// ──────────────────── Admin ────────────────────

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.catalog.Stats(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, "", map[string]interface{}{
		"content":   stats,
		"wsClients": s.wsHub.ClientCount(),
	})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page := query.ParsePage(r.URL.Query())
	list, total, err := s.users.List(r.Context(), page)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if list == nil {
		list = []*models.User{}
	}
	s.respondJSON(w, http.StatusOK, "", map[string]interface{}{
		"items":      list,
		"pagination": query.Paginate(page.Number, page.Limit, total),
	})
}

func (s *Server) handleSetUserRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	var in struct {
		Role models.UserRole `json:"role"`
	}
	if err := httputil.ReadJSON(w, r, &in); err != nil {
		s.respondErr(w, r, err)
		return
	}
	u, err := s.users.SetRole(r.Context(), id, in.Role)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.log.WithField("user_id", u.ID).WithField("role", u.Role).Info("user role changed")
	s.respondJSON(w, http.StatusOK, "Role updated", u)
}

// ──────────────────── Import ────────────────────

type importFlags struct {
	Update  bool `json:"update"`
	Publish bool `json:"publish"`
	Async   bool `json:"async"`
}

// readImportFlags takes the flags from the query string, or from an optional
// JSON body when one is sent.
func readImportFlags(w http.ResponseWriter, r *http.Request) (importFlags, error) {
	v := r.URL.Query()
	f := importFlags{
		Update:  cast.ToBool(v.Get("update")),
		Publish: cast.ToBool(v.Get("publish")),
		Async:   cast.ToBool(v.Get("async")),
	}
	if r.ContentLength > 0 {
		if err := httputil.ReadJSON(w, r, &f); err != nil {
			return f, err
		}
	}
	return f, nil
}

func (s *Server) handleImport(taskType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tmdbID, err := pathInt(r, "tmdbId", 1)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		flags, err := readImportFlags(w, r)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		payload := jobs.ImportPayload{
			TMDbID:  tmdbID,
			Update:  flags.Update,
			Publish: flags.Publish,
			Author:  principal(r).UserID,
		}

		if flags.Async && s.jobQueue != nil {
			taskID, err := s.jobQueue.EnqueueImport(taskType, payload)
			if err != nil {
				s.respondErr(w, r, err)
				return
			}
			s.respondJSON(w, http.StatusAccepted, "Import queued", map[string]string{"taskId": taskID})
			return
		}
		if s.importer == nil {
			s.respondErr(w, r, metadata.ErrNoAPIKey)
			return
		}

		opts := metadata.Options{
			Update:  payload.Update,
			Publish: payload.Publish,
			Author:  payload.Author,
			TaskID:  jobs.ImportTaskID(taskType, tmdbID),
		}
		switch taskType {
		case jobs.TaskImportMovie:
			res, err := s.importer.ImportMovie(r.Context(), tmdbID, opts)
			if err != nil {
				s.respondErr(w, r, err)
				return
			}
			s.respondImported(w, res.Created, "Movie", res.Movie)
		case jobs.TaskImportSeries:
			res, err := s.importer.ImportSeries(r.Context(), tmdbID, opts)
			if err != nil {
				s.respondErr(w, r, err)
				return
			}
			body := map[string]interface{}{"series": res.Series, "skippedSeasons": res.SkippedSeasons}
			if res.SkippedSeasons == nil {
				body["skippedSeasons"] = []int{}
			}
			s.respondImported(w, res.Created, "Series", body)
		default:
			s.respondErr(w, r, errors.New("unknown import type "+taskType))
		}
	}
}

func (s *Server) respondImported(w http.ResponseWriter, created bool, what string, data interface{}) {
	if created {
		s.respondJSON(w, http.StatusCreated, what+" imported successfully", data)
		return
	}
	s.respondJSON(w, http.StatusOK, what+" updated from TMDB", data)
}

// ──────────────────── Uploads ────────────────────

// multipartSlack covers the form boundaries and the folder field.
const multipartSlack = 64 << 10

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	limit := s.uploads.MaxBytes() + multipartSlack
	if r.ContentLength > limit {
		s.respondErr(w, r, upload.ErrTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondErr(w, r, upload.ErrTooLarge)
			return
		}
		s.respondErr(w, r, upload.ErrEmpty)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("image")
	if err != nil {
		s.respondErr(w, r, upload.ErrEmpty)
		return
	}
	defer file.Close()

	res, err := s.uploads.Image(r.Context(), file, r.FormValue("folder"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.log.WithField("url", res.URL).WithField("size", res.Size).Info("image uploaded")
	s.respondJSON(w, http.StatusCreated, "Image uploaded successfully", res)
}
