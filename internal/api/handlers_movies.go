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

// ──────────────────── Movies ────────────────────

// findMovie resolves an id or a slug.
func (s *Server) findMovie(ctx context.Context, idOrSlug string) (*models.Movie, error) {
	if id, err := uuid.Parse(idOrSlug); err == nil {
		return s.stores.Movies.Get(ctx, id)
	}
	return s.stores.Movies.GetBySlug(ctx, idOrSlug)
}

// visible hides unpublished items from everyone but admins and their owner.
func visible(r *http.Request, c *models.Content) bool {
	if c.AdminStatus == models.AdminPublished || c.AdminStatus == "" {
		return true
	}
	p := principal(r)
	return p.Role == models.RoleAdmin || c.OwnedBy(p.UserID)
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	feed, err := s.catalog.List(r.Context(), feedRequest(r, models.KindMovie))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, "", feed)
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	m, err := s.findMovie(r.Context(), r.PathValue("idOrSlug"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if !visible(r, &m.Content) {
		s.respondErr(w, r, repository.ErrNotFound)
		return
	}
	m.ResolveAssets(s.config.ImageBaseURL)
	s.respondJSON(w, http.StatusOK, "", m)
}

func (s *Server) handleCreateMovie(w http.ResponseWriter, r *http.Request) {
	var m models.Movie
	if err := httputil.ReadJSON(w, r, &m); err != nil {
		s.respondErr(w, r, err)
		return
	}
	author := principal(r).UserID
	m.ID = uuid.Nil
	m.Views, m.Likes, m.Downloads = 0, 0, 0
	m.AddedBy, m.LastModifiedBy = &author, &author
	m.ApplyDefaults()
	m.ApplySlug(nil, s.config.SlugFollowsYear)
	if err := m.Validate(time.Now()); err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := s.stores.Movies.Create(r.Context(), &m); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.log.WithField("movie_id", m.ID).WithField("slug", m.Slug).Info("movie created")
	m.ResolveAssets(s.config.ImageBaseURL)
	s.respondJSON(w, http.StatusCreated, "Movie created successfully", &m)
}

func (s *Server) handleUpdateMovie(w http.ResponseWriter, r *http.Request) {
	prev, err := s.findMovie(r.Context(), r.PathValue("idOrSlug"))
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
	next.ApplySlug(&prev.Content, s.config.SlugFollowsYear)
	next.LastModifiedBy = &editor
	if err := next.Validate(time.Now()); err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := s.stores.Movies.Update(r.Context(), &next); err != nil {
		s.respondErr(w, r, err)
		return
	}
	next.ResolveAssets(s.config.ImageBaseURL)
	s.respondJSON(w, http.StatusOK, "Movie updated successfully", &next)
}

func (s *Server) handleDeleteMovie(w http.ResponseWriter, r *http.Request) {
	m, err := s.findMovie(r.Context(), r.PathValue("idOrSlug"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := mustOwn(r, m.AddedBy); err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := s.stores.Movies.Delete(r.Context(), m.ID); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.log.WithField("movie_id", m.ID).Info("movie deleted")
	s.respondJSON(w, http.StatusOK, "Movie deleted successfully", nil)
}

// handleMovieCounter adds exactly one to field. Repeated calls are not
// deduplicated.
func (s *Server) handleMovieCounter(field repository.Counter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := s.findMovie(r.Context(), r.PathValue("idOrSlug"))
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		if err := s.counters.Record(r.Context(), counters.Movie(m.ID, field)); err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, string(field)+" recorded", nil)
	}
}
