package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ──────────────────── Enums ────────────────────

type UserRole string

const (
	RoleUser      UserRole = "user"
	RoleModerator UserRole = "moderator"
	RoleAdmin     UserRole = "admin"
)

// Level orders roles so permission checks can compare them.
func (r UserRole) Level() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleModerator:
		return 2
	case RoleUser:
		return 1
	}
	return 0
}

// AtLeast reports whether r grants everything min grants.
func (r UserRole) AtLeast(min UserRole) bool {
	return r.Level() >= min.Level() && r.Level() > 0
}

func (r UserRole) Valid() bool { return r.Level() > 0 }

// ContentKind discriminates the two catalog collections.
type ContentKind string

const (
	KindMovie  ContentKind = "movie"
	KindSeries ContentKind = "series"
)

func ParseContentKind(s string) (ContentKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies":
		return KindMovie, nil
	case "series", "tv", "show":
		return KindSeries, nil
	}
	return "", fmt.Errorf("unknown content type %q", s)
}

// ContentType is the catalog "type" label shown on cards.
type ContentType string

const (
	TypeMovie ContentType = "Movie"
	TypeAnime ContentType = "Anime"
)

type Quality string

var Qualities = []Quality{
	"CAM", "HDCAM", "TS", "HDTS", "DVDRip", "WEBRip", "WEB-DL", "HDRip", "BluRay",
	"480p", "720p", "1080p", "4K",
}

// ContentStatus is the badge shown on a card, distinct from AdminStatus.
type ContentStatus string

const (
	StatusNew      ContentStatus = "New"
	StatusUpdated  ContentStatus = "Updated"
	StatusFeatured ContentStatus = "Featured"
)

// AdminStatus is the publication workflow state.
type AdminStatus string

const (
	AdminDraft     AdminStatus = "Draft"
	AdminPublished AdminStatus = "Published"
	AdminPending   AdminStatus = "Pending"
	AdminArchived  AdminStatus = "Archived"
)

func (s AdminStatus) Valid() bool {
	switch s {
	case AdminDraft, AdminPublished, AdminPending, AdminArchived:
		return true
	}
	return false
}

// ──────────────────── Shared value types ────────────────────

// Credit is a person or company attached to a title: cast members, series
// creators and networks share this shape.
type Credit struct {
	Name        string `json:"name" validate:"required"`
	Character   string `json:"character,omitempty"`
	ProfilePath string `json:"profilePath,omitempty"`
}

type StreamServer struct {
	Name       string  `json:"name" validate:"required"`
	URL        string  `json:"url" validate:"required,url"`
	Quality    Quality `json:"quality,omitempty"`
	Active     bool    `json:"active"`
	ServerType string  `json:"serverType,omitempty" validate:"omitempty,oneof=embed direct iframe"`
}

type DownloadLink struct {
	Label   string  `json:"label,omitempty"`
	URL     string  `json:"url" validate:"required,url"`
	Quality Quality `json:"quality,omitempty"`
	Size    string  `json:"size,omitempty"`
}

type DownloadGroup struct {
	Title         string         `json:"title" validate:"required"`
	Icon          string         `json:"icon,omitempty"`
	DownloadLinks []DownloadLink `json:"downloadLinks" validate:"dive"`
}

type SEO struct {
	MetaTitle       string   `json:"metaTitle,omitempty" validate:"max=70"`
	MetaDescription string   `json:"metaDescription,omitempty" validate:"max=160"`
	Keywords        []string `json:"keywords,omitempty"`
}

// ──────────────────── Watchlist ────────────────────

// ContentRef points at a movie or a series. The zero value is invalid.
type ContentRef struct {
	Kind ContentKind `json:"contentType"`
	ID   uuid.UUID   `json:"contentId"`
}

func MovieRef(id uuid.UUID) ContentRef  { return ContentRef{Kind: KindMovie, ID: id} }
func SeriesRef(id uuid.UUID) ContentRef { return ContentRef{Kind: KindSeries, ID: id} }

func ParseContentRef(kind, id string) (ContentRef, error) {
	k, err := ParseContentKind(kind)
	if err != nil {
		return ContentRef{}, err
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return ContentRef{}, fmt.Errorf("invalid content id %q", id)
	}
	return ContentRef{Kind: k, ID: uid}, nil
}

func (r ContentRef) String() string { return string(r.Kind) + ":" + r.ID.String() }
