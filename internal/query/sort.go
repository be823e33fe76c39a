package query

import (
	"strings"

	"github.com/anikkhan0099/moviehubbd/internal/models"
)

// SortField orders by one field.
type SortField struct {
	Field string
	Desc  bool
}

// Sort is an ordered list of sort fields; earlier fields take precedence.
type Sort []SortField

// Shorthand sort keys.
const (
	SortNewest       = "newest"
	SortOldest       = "oldest"
	SortRating       = "rating"
	SortViews        = "views"
	SortAlphabetical = "alphabetical"
	SortYear         = "year"
	SortTrending     = "trending"
)

var shorthands = map[string]Sort{
	SortNewest:       {{Field: "createdAt", Desc: true}},
	SortOldest:       {{Field: "createdAt"}},
	SortRating:       {{Field: "rating", Desc: true}, {Field: "createdAt", Desc: true}},
	SortViews:        {{Field: "views", Desc: true}, {Field: "createdAt", Desc: true}},
	SortAlphabetical: {{Field: "title"}},
	SortYear:         {{Field: "releaseYear", Desc: true}, {Field: "createdAt", Desc: true}},
	SortTrending:     {{Field: "views", Desc: true}, {Field: "rating", Desc: true}, {Field: "createdAt", Desc: true}},
}

// sortable are the literal field names a caller may sort on.
var sortable = map[string]bool{
	"createdAt": true, "updatedAt": true, "title": true, "releaseYear": true,
	"rating": true, "imdbRating": true, "views": true, "likes": true, "downloads": true,
}

// Sortable reports whether field may be used as a literal sort key.
func Sortable(field string) bool { return sortable[field] }

// BuildSort maps a shorthand key to its fixed ordering, or a whitelisted
// literal field to a single-field ordering in the given direction ("asc" or
// anything else for descending). Unknown keys fall back to newest first.
func BuildSort(key, order string) Sort {
	key = strings.TrimSpace(key)
	if s, ok := shorthands[key]; ok {
		return s
	}
	if sortable[key] {
		return Sort{{Field: key, Desc: !strings.EqualFold(strings.TrimSpace(order), "asc")}}
	}
	return shorthands[SortNewest]
}

// Less compares two items under s. Titles compare as strings, everything else
// numerically; ties fall through to the next field.
func (s Sort) Less(a, b *models.Content) bool {
	for _, f := range s {
		c := compareField(f.Field, a, b)
		if c == 0 {
			continue
		}
		if f.Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

func compareField(field string, a, b *models.Content) int {
	switch field {
	case "title":
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case "createdAt":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updatedAt":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "releaseYear":
		return cmpNum(float64(a.ReleaseYear), float64(b.ReleaseYear))
	case "rating":
		return cmpNum(a.Rating, b.Rating)
	case "imdbRating":
		return cmpNum(a.IMDbRating, b.IMDbRating)
	case "views":
		return cmpNum(float64(a.Views), float64(b.Views))
	case "likes":
		return cmpNum(float64(a.Likes), float64(b.Likes))
	case "downloads":
		return cmpNum(float64(a.Downloads), float64(b.Downloads))
	}
	return 0
}

func cmpNum(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
