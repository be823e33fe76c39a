// Package catalog merges the movie and series collections into single ranked,
// paginated feeds.
package catalog

import (
	"encoding/json"

	"github.com/anikkhan0099/moviehubbd/internal/models"
)

// Item is one entry of a merged feed: exactly one of Movie or Series is set.
type Item struct {
	Kind   models.ContentKind
	Movie  *models.Movie
	Series *models.Series
	Score  *float64
}

func MovieItem(m *models.Movie) Item   { return Item{Kind: models.KindMovie, Movie: m} }
func SeriesItem(s *models.Series) Item { return Item{Kind: models.KindSeries, Series: s} }

// Content returns the shared fields of the wrapped document.
func (it Item) Content() *models.Content {
	if it.Movie != nil {
		return &it.Movie.Content
	}
	return &it.Series.Content
}

// MarshalJSON flattens the document and adds its contentType tag.
func (it Item) MarshalJSON() ([]byte, error) {
	if it.Movie != nil {
		return json.Marshal(struct {
			*models.Movie
			ContentType models.ContentKind `json:"contentType"`
			Score       *float64           `json:"score,omitempty"`
		}{it.Movie, it.Kind, it.Score})
	}
	return json.Marshal(struct {
		*models.Series
		ContentType models.ContentKind `json:"contentType"`
		Score       *float64           `json:"score,omitempty"`
	}{it.Series, it.Kind, it.Score})
}
