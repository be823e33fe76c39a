package api

import (
	"net/http"
	"strings"

	"github.com/anikkhan0099/moviehubbd/internal/httputil"
	"github.com/anikkhan0099/moviehubbd/internal/models"
	"github.com/anikkhan0099/moviehubbd/internal/users"
)

// ──────────────────── Auth ────────────────────

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	AdminKey string `json:"adminKey,omitempty"`
}

func (c credentials) validate() error {
	ve := &models.ValidationError{}
	if strings.TrimSpace(c.Email) == "" {
		ve.Add("email", "is required")
	}
	if c.Password == "" {
		ve.Add("password", "is required")
	}
	return ve.Err()
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in users.Registration
	if err := httputil.ReadJSON(w, r, &in); err != nil {
		s.respondErr(w, r, err)
		return
	}
	sess, err := s.users.Register(r.Context(), in)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, "User registered successfully", sess)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := httputil.ReadJSON(w, r, &in); err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := in.validate(); err != nil {
		s.respondErr(w, r, err)
		return
	}
	sess, err := s.users.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, "Login successful", sess)
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := httputil.ReadJSON(w, r, &in); err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := in.validate(); err != nil {
		s.respondErr(w, r, err)
		return
	}
	sess, err := s.users.AdminLogin(r.Context(), in.Email, in.Password, in.AdminKey)
	if err != nil {
		s.log.WithError(err).WithField("ip", s.proxies.clientIP(r)).Warn("admin login rejected")
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, "Admin login successful", sess)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := httputil.ReadJSON(w, r, &in); err != nil {
		s.respondErr(w, r, err)
		return
	}
	if in.RefreshToken == "" {
		s.respondErr(w, r, &models.ValidationError{Fields: []models.FieldError{{Field: "refreshToken", Message: "is required"}}})
		return
	}
	sess, err := s.users.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, "Token refreshed", sess)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Logout(r.Context(), principal(r).UserID); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, "Logged out", nil)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Get(r.Context(), principal(r).UserID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, "", u)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := httputil.ReadJSON(w, r, &in); err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := s.users.ChangePassword(r.Context(), principal(r).UserID, in.CurrentPassword, in.NewPassword); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, "Password changed, please log in again", nil)
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Get(r.Context(), principal(r).UserID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	prefs := u.Preferences
	if err := httputil.ReadJSONPatch(w, r, &prefs); err != nil {
		s.respondErr(w, r, err)
		return
	}
	u, err = s.users.UpdatePreferences(r.Context(), u.ID, prefs)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, "Preferences updated", u.Preferences)
}

// ──────────────────── Watchlist ────────────────────

func (s *Server) handleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	list, err := s.users.Watchlist(r.Context(), principal(r).UserID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if list == nil {
		list = []models.WatchlistEntry{}
	}
	s.respondJSON(w, http.StatusOK, "", list)
}

func (s *Server) handleAddToWatchlist(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ContentType string `json:"contentType"`
		ContentID   string `json:"contentId"`
	}
	if err := httputil.ReadJSON(w, r, &in); err != nil {
		s.respondErr(w, r, err)
		return
	}
	ref, err := models.ParseContentRef(in.ContentType, in.ContentID)
	if err != nil {
		s.respondErr(w, r, &models.ValidationError{Fields: []models.FieldError{{Field: "contentId", Message: err.Error()}}})
		return
	}
	entry, err := s.users.AddToWatchlist(r.Context(), principal(r).UserID, ref)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, "Added to watchlist", entry)
}

func (s *Server) handleRemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	ref, err := models.ParseContentRef(r.PathValue("type"), r.PathValue("id"))
	if err != nil {
		s.respondErr(w, r, badParam("id"))
		return
	}
	if err := s.users.RemoveFromWatchlist(r.Context(), principal(r).UserID, ref); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, "Removed from watchlist", nil)
}
