package query

import "strings"

// MinSearchLen is the shortest trimmed term that produces a predicate.
const MinSearchLen = 2

// Document exposes searchable text by field name.
type Document interface {
	FieldValues(field string) []string
}

// Search is a case-insensitive "any field contains term" predicate. The zero
// value matches everything.
type Search struct {
	Term   string
	Fields []string
}

// Default field sets used by the content and search endpoints.
var (
	ContentSearchFields = []string{"title", "originalTitle", "overview", "director", "cast.name"}
	SeriesSearchFields  = []string{"title", "originalTitle", "overview", "cast.name", "creators.name", "networks.name"}
)

// searchable lists every field name the stores know how to search.
var searchable = map[string]bool{
	"title": true, "originalTitle": true, "overview": true, "director": true,
	"genres": true, "language": true, "seo.keywords": true,
	"cast.name": true, "cast.character": true,
	"creators.name": true, "networks.name": true, "seasons.episodes.title": true,
}

// Searchable reports whether field may appear in a Search.
func Searchable(field string) bool { return searchable[field] }

// BuildSearch returns the predicate for term over fields. Terms shorter than
// MinSearchLen after trimming yield the match-all predicate. Unsupported field
// names are dropped.
func BuildSearch(term string, fields []string) Search {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < MinSearchLen {
		return Search{}
	}
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		if searchable[f] {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		return Search{}
	}
	return Search{Term: term, Fields: kept}
}

// Active is false for the match-all predicate.
func (s Search) Active() bool { return s.Term != "" && len(s.Fields) > 0 }

func (s Search) Matches(doc Document) bool {
	if !s.Active() {
		return true
	}
	needle := strings.ToLower(s.Term)
	for _, f := range s.Fields {
		for _, v := range doc.FieldValues(f) {
			if strings.Contains(strings.ToLower(v), needle) {
				return true
			}
		}
	}
	return false
}
