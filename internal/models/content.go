package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/anikkhan0099/moviehubbd/internal/slug"
	"github.com/google/uuid"
)

// ──────────────────── Content (shared by Movie and Series) ────────────────────

// Content holds the fields movies and series have in common.
type Content struct {
	ID             uuid.UUID       `json:"id"`
	Slug           string          `json:"slug"`
	Title          string          `json:"title" validate:"required,max=200"`
	OriginalTitle  string          `json:"originalTitle,omitempty" validate:"max=200"`
	Overview       string          `json:"overview" validate:"required,max=2000"`
	PosterPath     string          `json:"posterPath" validate:"required"`
	BackdropPath   string          `json:"backdropPath,omitempty"`
	TrailerURL     string          `json:"trailerUrl,omitempty" validate:"omitempty,url"`
	ReleaseYear    int             `json:"releaseYear" validate:"required"`
	Rating         float64         `json:"rating" validate:"gte=0,lte=10"`
	IMDbRating     float64         `json:"imdbRating" validate:"gte=0,lte=10"`
	Genres         []string        `json:"genres" validate:"required,min=1,dive,required"`
	Language       []string        `json:"language" validate:"required,min=1,dive,required"`
	Type           ContentType     `json:"type,omitempty" validate:"omitempty,oneof=Movie Anime"`
	Quality        Quality         `json:"quality,omitempty"`
	Status         ContentStatus   `json:"status,omitempty" validate:"omitempty,oneof=New Updated Featured"`
	AdminStatus    AdminStatus     `json:"adminStatus,omitempty" validate:"omitempty,oneof=Draft Published Pending Archived"`
	Director       string          `json:"director,omitempty"`
	Cast           []Credit        `json:"cast,omitempty" validate:"dive"`
	TMDbID         *int            `json:"tmdbId,omitempty"`
	IMDbID         *string         `json:"imdbId,omitempty"`
	Screenshots    []string        `json:"screenshots,omitempty"`
	Servers        []StreamServer  `json:"servers,omitempty" validate:"dive"`
	DownloadGroups []DownloadGroup `json:"downloadGroups,omitempty" validate:"dive"`
	SEO            SEO             `json:"seo"`
	Views          int64           `json:"views"`
	Likes          int64           `json:"likes"`
	Downloads      int64           `json:"downloads"`
	AddedBy        *uuid.UUID      `json:"addedBy,omitempty"`
	LastModifiedBy *uuid.UUID      `json:"lastModifiedBy,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`

	// Derived at response time, never stored.
	PosterURL   string `json:"posterUrl,omitempty"`
	BackdropURL string `json:"backdropUrl,omitempty"`
}

// validateContent checks the tag rules plus the clock-dependent year range
// and the quality enum.
func (c *Content) validateContent(s any, now time.Time, ve *ValidationError) {
	validateStruct(s, ve)
	if c.ReleaseYear != 0 && (c.ReleaseYear < 1900 || c.ReleaseYear > now.Year()+5) {
		ve.Add("releaseYear", "must be between 1900 and "+strconv.Itoa(now.Year()+5))
	}
	if c.Quality != "" && !validQuality(c.Quality) {
		ve.Add("quality", "must be one of: "+joinQualities())
	}
}

// ApplySlug sets c.Slug. prev is the stored version for updates and nil on
// create. The slug is regenerated on create and on title change; a release
// year change only regenerates it when followYear is set.
func (c *Content) ApplySlug(prev *Content, followYear bool) {
	switch {
	case prev == nil || prev.Slug == "":
		c.Slug = slug.Make(c.Title, c.ReleaseYear)
	case prev.Title != c.Title:
		c.Slug = slug.Make(c.Title, c.ReleaseYear)
	case followYear && prev.ReleaseYear != c.ReleaseYear:
		c.Slug = slug.Make(c.Title, c.ReleaseYear)
	default:
		c.Slug = prev.Slug
	}
}

// ApplyDefaults fills enum defaults used when a field is omitted.
func (c *Content) ApplyDefaults() {
	if c.AdminStatus == "" {
		c.AdminStatus = AdminDraft
	}
	if c.Status == "" {
		c.Status = StatusNew
	}
}

// ResolveAssets fills the derived absolute asset URLs.
func (c *Content) ResolveAssets(imageBase string) {
	c.PosterURL = AssetURL(imageBase, c.PosterPath)
	c.BackdropURL = AssetURL(imageBase, c.BackdropPath)
}

// PreserveSystemFields copies the fields a client update may never change.
func (c *Content) PreserveSystemFields(prev *Content) {
	c.ID = prev.ID
	c.Views = prev.Views
	c.Likes = prev.Likes
	c.Downloads = prev.Downloads
	c.AddedBy = prev.AddedBy
	c.CreatedAt = prev.CreatedAt
}

// OwnedBy reports whether userID created the item.
func (c *Content) OwnedBy(userID uuid.UUID) bool {
	return c.AddedBy != nil && *c.AddedBy == userID
}

// AssetURL turns a stored asset path into an absolute URL. Absolute URLs and
// empty paths pass through untouched.
func AssetURL(base, path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if strings.HasPrefix(path, "/uploads/") || base == "" {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func validQuality(q Quality) bool {
	for _, v := range Qualities {
		if v == q {
			return true
		}
	}
	return false
}

func joinQualities() string {
	parts := make([]string, len(Qualities))
	for i, q := range Qualities {
		parts[i] = string(q)
	}
	return strings.Join(parts, ", ")
}

// ──────────────────── Movie ────────────────────

type Movie struct {
	Content
	Runtime int `json:"runtime,omitempty" validate:"gte=0"`
}

func (m *Movie) Validate(now time.Time) error {
	ve := &ValidationError{}
	m.validateContent(m, now, ve)
	return ve.Err()
}

// FieldValues returns the text held by a searchable field. Dotted names
// address lists of sub-documents, e.g. "cast.name".
func (c *Content) FieldValues(field string) []string {
	switch field {
	case "title":
		return []string{c.Title}
	case "originalTitle":
		return []string{c.OriginalTitle}
	case "overview":
		return []string{c.Overview}
	case "director":
		return []string{c.Director}
	case "genres":
		return c.Genres
	case "language":
		return c.Language
	case "seo.keywords":
		return c.SEO.Keywords
	case "cast.name":
		return creditNames(c.Cast)
	case "cast.character":
		out := make([]string, 0, len(c.Cast))
		for _, cr := range c.Cast {
			out = append(out, cr.Character)
		}
		return out
	}
	return nil
}

func creditNames(credits []Credit) []string {
	out := make([]string, 0, len(credits))
	for _, cr := range credits {
		out = append(out, cr.Name)
	}
	return out
}
