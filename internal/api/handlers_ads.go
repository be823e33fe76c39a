package api

import (
	"net/http"

	"github.com/spf13/cast"

	"github.com/anikkhan0099/moviehubbd/internal/ads"
	"github.com/anikkhan0099/moviehubbd/internal/httputil"
	"github.com/anikkhan0099/moviehubbd/internal/models"
	"github.com/anikkhan0099/moviehubbd/internal/query"
	"github.com/anikkhan0099/moviehubbd/internal/repository"
)

// ──────────────────── Ads ────────────────────

type adView struct {
	*models.Ad
	CTR float64 `json:"ctr"`
}

func viewOf(a *models.Ad) adView { return adView{Ad: a, CTR: a.CTR()} }

func (s *Server) handleAdsForPlacement(w http.ResponseWriter, r *http.Request) {
	placement := models.Placement(r.PathValue("placement"))
	if !placement.Valid() {
		s.respondErr(w, r, badParam("placement"))
		return
	}
	v := r.URL.Query()
	list, err := s.ads.ForPlacement(r.Context(), ads.Request{
		Placement: placement,
		Page:      v.Get("page"),
		Device:    v.Get("device"),
		Country:   v.Get("country"),
		Limit:     cast.ToInt(v.Get("limit")),
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, "", list)
}

func (s *Server) handleAdImpression(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := s.ads.RecordImpression(r.Context(), id); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, "impression recorded", nil)
}

func (s *Server) handleAdClick(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := s.ads.RecordClick(r.Context(), id); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, "click recorded", nil)
}

func (s *Server) handleListAds(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	opts := repository.AdListOptions{Page: query.ParsePage(v)}
	if p := v.Get("placement"); p != "" {
		opts.Placement = models.Placement(p)
		if !opts.Placement.Valid() {
			s.respondErr(w, r, badParam("placement"))
			return
		}
	}
	if a := v.Get("active"); a != "" {
		active, err := cast.ToBoolE(a)
		if err != nil {
			s.respondErr(w, r, badParam("active"))
			return
		}
		opts.Active = &active
	}
	list, total, err := s.ads.List(r.Context(), opts)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	out := make([]adView, 0, len(list))
	for _, a := range list {
		out = append(out, viewOf(a))
	}
	s.respondJSON(w, http.StatusOK, "", map[string]interface{}{
		"items":      out,
		"pagination": query.Paginate(opts.Page.Number, opts.Page.Limit, total),
	})
}

func (s *Server) handleCreateAd(w http.ResponseWriter, r *http.Request) {
	// An omitted isActive means active.
	a := models.Ad{IsActive: true}
	if err := httputil.ReadJSON(w, r, &a); err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := s.ads.Create(r.Context(), &a, principal(r).UserID); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.log.WithField("ad_id", a.ID).WithField("placement", a.Placement).Info("ad created")
	s.respondJSON(w, http.StatusCreated, "Ad created successfully", viewOf(&a))
}

func (s *Server) handleGetAd(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	a, err := s.ads.Get(r.Context(), id)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, "", viewOf(a))
}

func (s *Server) handleUpdateAd(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	prev, err := s.ads.Get(r.Context(), id)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	next := *prev
	if err := httputil.ReadJSONPatch(w, r, &next); err != nil {
		s.respondErr(w, r, err)
		return
	}
	next.ID = prev.ID
	next.Impressions, next.Clicks = prev.Impressions, prev.Clicks
	next.CreatedBy, next.CreatedAt = prev.CreatedBy, prev.CreatedAt
	if err := s.ads.Update(r.Context(), &next, principal(r).UserID); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, "Ad updated successfully", viewOf(&next))
}

func (s *Server) handleDeleteAd(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := s.ads.Delete(r.Context(), id); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.log.WithField("ad_id", id).Info("ad deleted")
	s.respondJSON(w, http.StatusOK, "Ad deleted successfully", nil)
}
