package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/anikkhan0099/moviehubbd/internal/counters"
	"github.com/anikkhan0099/moviehubbd/internal/httputil"
	"github.com/anikkhan0099/moviehubbd/internal/models"
	"github.com/anikkhan0099/moviehubbd/internal/repository"
)

// ──────────────────── Series ────────────────────

func (s *Server) findSeries(ctx context.Context, idOrSlug string) (*models.Series, error) {
	if id, err := uuid.Parse(idOrSlug); err == nil {
		return s.stores.Series.Get(ctx, id)
	}
	return s.stores.Series.GetBySlug(ctx, idOrSlug)
}

func (s *Server) handleListSeries(w http.ResponseWriter, r *http.Request) {
	feed, err := s.catalog.List(r.Context(), feedRequest(r, models.KindSeries))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, "", feed)
}

func (s *Server) handleGetSeries(w http.ResponseWriter, r *http.Request) {
	sr, err := s.findSeries(r.Context(), r.PathValue("idOrSlug"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if !visible(r, &sr.Content) {
		s.respondErr(w, r, repository.ErrNotFound)
		return
	}
	sr.ResolveAssets(s.config.ImageBaseURL)
	s.respondJSON(w, http.StatusOK, "", sr)
}

func (s *Server) handleCreateSeries(w http.ResponseWriter, r *http.Request) {
	var sr models.Series
	if err := httputil.ReadJSON(w, r, &sr); err != nil {
		s.respondErr(w, r, err)
		return
	}
	author := principal(r).UserID
	sr.ID = uuid.Nil
	sr.Views, sr.Likes, sr.Downloads = 0, 0, 0
	sr.AddedBy, sr.LastModifiedBy = &author, &author
	sr.ApplyDefaults()
	sr.ApplySlug(nil, s.config.SlugFollowsYear)
	sr.Normalize()
	if err := sr.Validate(time.Now()); err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := s.stores.Series.Create(r.Context(), &sr); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.log.WithField("series_id", sr.ID).WithField("slug", sr.Slug).Info("series created")
	sr.ResolveAssets(s.config.ImageBaseURL)
	s.respondJSON(w, http.StatusCreated, "Series created successfully", &sr)
}

func (s *Server) handleUpdateSeries(w http.ResponseWriter, r *http.Request) {
	prev, err := s.findSeries(r.Context(), r.PathValue("idOrSlug"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := mustOwn(r, prev.AddedBy); err != nil {
		s.respondErr(w, r, err)
		return
	}
	next := *prev
	if err := httputil.ReadJSONPatch(w, r, &next); err != nil {
		s.respondErr(w, r, err)
		return
	}
	editor := principal(r).UserID
	next.PreserveSystemFields(&prev.Content)
	next.MatchStored(prev)
	next.ApplySlug(&prev.Content, s.config.SlugFollowsYear)
	next.LastModifiedBy = &editor
	next.Normalize()
	if err := next.Validate(time.Now()); err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := s.stores.Series.Update(r.Context(), &next); err != nil {
		s.respondErr(w, r, err)
		return
	}
	next.ResolveAssets(s.config.ImageBaseURL)
	s.respondJSON(w, http.StatusOK, "Series updated successfully", &next)
}

func (s *Server) handleDeleteSeries(w http.ResponseWriter, r *http.Request) {
	sr, err := s.findSeries(r.Context(), r.PathValue("idOrSlug"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := mustOwn(r, sr.AddedBy); err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := s.stores.Series.Delete(r.Context(), sr.ID); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.log.WithField("series_id", sr.ID).Info("series deleted")
	s.respondJSON(w, http.StatusOK, "Series deleted successfully", nil)
}

func (s *Server) handleSeriesCounter(field repository.Counter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sr, err := s.findSeries(r.Context(), r.PathValue("idOrSlug"))
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		if err := s.counters.Record(r.Context(), counters.Series(sr.ID, field)); err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, string(field)+" recorded", nil)
	}
}

// ──────────────────── Seasons & Episodes ────────────────────

// mutateSeries loads the series named in the path, checks ownership, applies
// fn and saves. The store recounts seasons and episodes on save.
func (s *Server) mutateSeries(w http.ResponseWriter, r *http.Request, status int, message string, fn func(*models.Series) (interface{}, error)) {
	sr, err := s.findSeries(r.Context(), r.PathValue("idOrSlug"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := mustOwn(r, sr.AddedBy); err != nil {
		s.respondErr(w, r, err)
		return
	}
	out, err := fn(sr)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	editor := principal(r).UserID
	sr.LastModifiedBy = &editor
	if err := sr.Validate(time.Now()); err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := s.stores.Series.Update(r.Context(), sr); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, status, message, map[string]interface{}{
		"result":           out,
		"numberOfSeasons":  sr.NumberOfSeasons,
		"numberOfEpisodes": sr.NumberOfEpisodes,
	})
}

func (s *Server) handleAddSeason(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SeasonNumber *int `json:"seasonNumber"`
		models.SeasonMeta
	}
	if err := httputil.ReadJSON(w, r, &in); err != nil {
		s.respondErr(w, r, err)
		return
	}
	if in.SeasonNumber == nil {
		s.respondErr(w, r, &models.ValidationError{Fields: []models.FieldError{{Field: "seasonNumber", Message: "is required"}}})
		return
	}
	s.mutateSeries(w, r, http.StatusCreated, "Season added successfully", func(sr *models.Series) (interface{}, error) {
		season, err := sr.AddSeason(*in.SeasonNumber, in.SeasonMeta)
		if err != nil {
			return nil, err
		}
		return *season, nil
	})
}

func (s *Server) handleUpdateSeason(w http.ResponseWriter, r *http.Request) {
	n, err := pathInt(r, "n", 0)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	var meta models.SeasonMeta
	if err := httputil.ReadJSON(w, r, &meta); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.mutateSeries(w, r, http.StatusOK, "Season updated successfully", func(sr *models.Series) (interface{}, error) {
		season, err := sr.UpdateSeason(n, meta)
		if err != nil {
			return nil, err
		}
		return *season, nil
	})
}

func (s *Server) handleRemoveSeason(w http.ResponseWriter, r *http.Request) {
	n, err := pathInt(r, "n", 0)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.mutateSeries(w, r, http.StatusOK, "Season deleted successfully", func(sr *models.Series) (interface{}, error) {
		return nil, sr.RemoveSeason(n)
	})
}

func (s *Server) handleAddEpisode(w http.ResponseWriter, r *http.Request) {
	n, err := pathInt(r, "n", 0)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	var ep models.Episode
	if err := httputil.ReadJSON(w, r, &ep); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.mutateSeries(w, r, http.StatusCreated, "Episode added successfully", func(sr *models.Series) (interface{}, error) {
		added, err := sr.AddEpisode(n, ep)
		if err != nil {
			return nil, err
		}
		return *added, nil
	})
}

func (s *Server) handleGetEpisode(w http.ResponseWriter, r *http.Request) {
	n, err := pathInt(r, "n", 0)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	m, err := pathInt(r, "m", 1)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	sr, err := s.findSeries(r.Context(), r.PathValue("idOrSlug"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if !visible(r, &sr.Content) {
		s.respondErr(w, r, repository.ErrNotFound)
		return
	}
	ep, err := sr.Episode(n, m)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, "", map[string]interface{}{
		"seriesId":     sr.ID,
		"seriesTitle":  sr.Title,
		"seasonNumber": n,
		"episode":      ep,
	})
}

func (s *Server) handleUpdateEpisode(w http.ResponseWriter, r *http.Request) {
	n, err := pathInt(r, "n", 0)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	m, err := pathInt(r, "m", 1)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	sr, err := s.findSeries(r.Context(), r.PathValue("idOrSlug"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	current, err := sr.Episode(n, m)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	next := *current
	if err := httputil.ReadJSONPatch(w, r, &next); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.mutateSeries(w, r, http.StatusOK, "Episode updated successfully", func(sr *models.Series) (interface{}, error) {
		updated, err := sr.UpdateEpisode(n, m, next)
		if err != nil {
			return nil, err
		}
		return *updated, nil
	})
}

func (s *Server) handleRemoveEpisode(w http.ResponseWriter, r *http.Request) {
	n, err := pathInt(r, "n", 0)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	m, err := pathInt(r, "m", 1)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.mutateSeries(w, r, http.StatusOK, "Episode deleted successfully", func(sr *models.Series) (interface{}, error) {
		return nil, sr.RemoveEpisode(n, m)
	})
}

func (s *Server) handleEpisodeView(w http.ResponseWriter, r *http.Request) {
	n, err := pathInt(r, "n", 0)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	m, err := pathInt(r, "m", 1)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	sr, err := s.findSeries(r.Context(), r.PathValue("idOrSlug"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	ep, err := sr.Episode(n, m)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := s.counters.Record(r.Context(), counters.Episode(sr.ID, ep.ID)); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, "views recorded", nil)
}
