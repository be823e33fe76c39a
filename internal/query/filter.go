// Package query turns request parameters into typed filter, search and sort
// values that both the SQL repositories and the in-memory store understand.
package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/anikkhan0099/moviehubbd/internal/models"
)

// Filter is the closed set of catalog filters. Zero values mean "not set".
type Filter struct {
	Genres      []string
	Language    string
	ReleaseYear int
	MinRating   *float64
	Type        models.ContentType
	Quality     models.Quality
	AdminStatus models.AdminStatus
	Status      models.ContentStatus
}

// BuildFilter reads the recognized keys out of v. Unknown keys are ignored and
// blank values are dropped.
func BuildFilter(v url.Values) Filter {
	var f Filter
	if g := strings.TrimSpace(v.Get("genres")); g != "" {
		f.Genres = SplitList(g)
	}
	f.Language = strings.TrimSpace(v.Get("language"))
	if y, err := strconv.Atoi(strings.TrimSpace(v.Get("releaseYear"))); err == nil && y > 0 {
		f.ReleaseYear = y
	}
	if r := strings.TrimSpace(v.Get("rating")); r != "" {
		if n, err := cast.ToFloat64E(r); err == nil {
			f.MinRating = &n
		}
	}
	f.Type = models.ContentType(strings.TrimSpace(v.Get("type")))
	f.Quality = models.Quality(strings.TrimSpace(v.Get("quality")))
	f.AdminStatus = models.AdminStatus(strings.TrimSpace(v.Get("adminStatus")))
	f.Status = models.ContentStatus(strings.TrimSpace(v.Get("status")))
	return f
}

// SplitList splits a comma separated parameter, trimming each entry and
// dropping empty ones.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// IsZero reports whether no filter key is set.
func (f Filter) IsZero() bool {
	return len(f.Genres) == 0 && f.Language == "" && f.ReleaseYear == 0 &&
		f.MinRating == nil && f.Type == "" && f.Quality == "" &&
		f.AdminStatus == "" && f.Status == ""
}

// Matches evaluates the filter against a single item.
func (f Filter) Matches(c *models.Content) bool {
	if len(f.Genres) > 0 && !anyOf(c.Genres, f.Genres) {
		return false
	}
	if f.Language != "" && !contains(c.Language, f.Language) {
		return false
	}
	if f.ReleaseYear != 0 && c.ReleaseYear != f.ReleaseYear {
		return false
	}
	if f.MinRating != nil && c.Rating < *f.MinRating {
		return false
	}
	if f.Type != "" && c.Type != f.Type {
		return false
	}
	if f.Quality != "" && c.Quality != f.Quality {
		return false
	}
	if f.AdminStatus != "" && c.AdminStatus != f.AdminStatus {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	return true
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func anyOf(set, wanted []string) bool {
	for _, w := range wanted {
		if contains(set, w) {
			return true
		}
	}
	return false
}
