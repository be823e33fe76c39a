package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/spf13/cast"

	"github.com/anikkhan0099/moviehubbd/internal/catalog"
	"github.com/anikkhan0099/moviehubbd/internal/models"
	"github.com/anikkhan0099/moviehubbd/internal/query"
)

// ──────────────────── Merged content feeds ────────────────────

// feedRequest reads the filter, search, sort and page parameters shared by
// every list endpoint.
func feedRequest(r *http.Request, kind models.ContentKind) catalog.Request {
	v := r.URL.Query()
	req := catalog.Request{
		Kind:    kind,
		Filter:  query.BuildFilter(v),
		SortKey: firstOf(v, "sortBy", "sort"),
		Order:   firstOf(v, "sortOrder", "order"),
		Page:    query.ParsePage(v),
		Admin:   isAdmin(r),
	}
	if term := v.Get("search"); term != "" {
		fields := query.ContentSearchFields
		if kind == models.KindSeries {
			fields = query.SeriesSearchFields
		}
		req.Search = query.BuildSearch(term, fields)
	}
	return req
}

func firstOf(v url.Values, keys ...string) string {
	for _, k := range keys {
		if s := v.Get(k); s != "" {
			return s
		}
	}
	return ""
}

// mergedRequest adds the contentType selector of the merged endpoints.
func mergedRequest(r *http.Request) (catalog.Request, error) {
	kind, err := catalog.NormalizeKind(r.URL.Query().Get("contentType"))
	if err != nil {
		return catalog.Request{}, badParam("contentType")
	}
	return feedRequest(r, kind), nil
}

func (s *Server) serveFeed(w http.ResponseWriter, r *http.Request, run func(context.Context, catalog.Request) (*catalog.Feed, error)) {
	req, err := mergedRequest(r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	feed, err := run(r.Context(), req)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, "", feed)
}

func (s *Server) handleListContent(w http.ResponseWriter, r *http.Request) {
	s.serveFeed(w, r, s.catalog.List)
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	s.serveFeed(w, r, s.catalog.Trending)
}

func (s *Server) handleFeatured(w http.ResponseWriter, r *http.Request) {
	s.serveFeed(w, r, s.catalog.Featured)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	var ref models.ContentRef
	if t := r.URL.Query().Get("contentType"); t != "" {
		ref, err = models.ParseContentRef(t, id.String())
		if err != nil {
			s.respondErr(w, r, badParam("contentType"))
			return
		}
	} else if ref, err = s.catalog.FindSource(r.Context(), id); err != nil {
		s.respondErr(w, r, err)
		return
	}
	items, err := s.catalog.Recommendations(r.Context(), ref, cast.ToInt(r.URL.Query().Get("limit")))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, "", map[string]interface{}{"items": items, "source": ref})
}

// ──────────────────── Search ────────────────────

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	s.serveFeed(w, r, func(ctx context.Context, req catalog.Request) (*catalog.Feed, error) {
		return s.catalog.Search(ctx, term, req)
	})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	list, err := s.catalog.Suggestions(r.Context(), v.Get("q"), cast.ToInt(v.Get("limit")))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, "", list)
}
