package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/anikkhan0099/moviehubbd/internal/models"
	"github.com/anikkhan0099/moviehubbd/internal/query"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// ErrInvalidCounter rejects increments of fields that are not counters
	// of the collection.
	ErrInvalidCounter = errors.New("field is not a counter")
)

// ConflictError names the unique key a write collided with.
type ConflictError struct {
	Key string
}

func (e *ConflictError) Error() string { return "duplicate " + e.Key }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// Counter names a field that is only changed through atomic increments.
type Counter string

const (
	CounterViews       Counter = "views"
	CounterLikes       Counter = "likes"
	CounterDownloads   Counter = "downloads"
	CounterImpressions Counter = "impressions"
	CounterClicks      Counter = "clicks"
)

// ContentCounter reports whether c may be incremented on movies and series.
func ContentCounter(c Counter) bool {
	return c == CounterViews || c == CounterLikes || c == CounterDownloads
}

// AdCounter reports whether c may be incremented on ads.
func AdCounter(c Counter) bool {
	return c == CounterImpressions || c == CounterClicks
}

// Related is the recommendation predicate: any shared genre, any shared
// language, or a release year within YearSpan of Year.
type Related struct {
	Genres   []string
	Language []string
	Year     int
	YearSpan int
}

// ListOptions scopes a list or count over a content collection. A zero Limit
// means no limit.
type ListOptions struct {
	Filter    query.Filter
	Search    query.Search
	Related   *Related
	ExcludeID uuid.UUID
	Sort      query.Sort
	Limit     int
	Offset    int
}

type MovieStore interface {
	Create(ctx context.Context, m *models.Movie) error
	Get(ctx context.Context, id uuid.UUID) (*models.Movie, error)
	GetBySlug(ctx context.Context, slug string) (*models.Movie, error)
	GetByTMDbID(ctx context.Context, tmdbID int) (*models.Movie, error)
	Update(ctx context.Context, m *models.Movie) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, opts ListOptions) ([]*models.Movie, error)
	Count(ctx context.Context, opts ListOptions) (int, error)
	IncrementCounter(ctx context.Context, id uuid.UUID, field Counter, delta int64) error
}

type SeriesStore interface {
	Create(ctx context.Context, s *models.Series) error
	Get(ctx context.Context, id uuid.UUID) (*models.Series, error)
	GetBySlug(ctx context.Context, slug string) (*models.Series, error)
	GetByTMDbID(ctx context.Context, tmdbID int) (*models.Series, error)
	Update(ctx context.Context, s *models.Series) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, opts ListOptions) ([]*models.Series, error)
	Count(ctx context.Context, opts ListOptions) (int, error)
	IncrementCounter(ctx context.Context, id uuid.UUID, field Counter, delta int64) error
	IncrementEpisodeViews(ctx context.Context, seriesID, episodeID uuid.UUID, delta int64) error
}

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	SetPassword(ctx context.Context, id uuid.UUID, hash string) error
	SetRefreshToken(ctx context.Context, id uuid.UUID, hash string) error
	SetRole(ctx context.Context, id uuid.UUID, role models.UserRole) error
	TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	List(ctx context.Context, page query.Page) ([]*models.User, int, error)
	CountByRole(ctx context.Context, role models.UserRole) (int, error)
	AddToWatchlist(ctx context.Context, userID uuid.UUID, entry models.WatchlistEntry) error
	RemoveFromWatchlist(ctx context.Context, userID uuid.UUID, ref models.ContentRef) error
}

// AdListOptions scopes the admin ad listing.
type AdListOptions struct {
	Placement models.Placement
	Active    *bool
	Page      query.Page
}

type AdStore interface {
	Create(ctx context.Context, a *models.Ad) error
	Get(ctx context.Context, id uuid.UUID) (*models.Ad, error)
	Update(ctx context.Context, a *models.Ad) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, opts AdListOptions) ([]*models.Ad, int, error)
	// Scheduled returns the enabled ads of a placement whose schedule window
	// contains now. Page, device and country targeting is left to the caller.
	Scheduled(ctx context.Context, placement models.Placement, now time.Time) ([]*models.Ad, error)
	IncrementCounter(ctx context.Context, id uuid.UUID, field Counter, delta int64) error
}

// Stores bundles every collection the API works against.
type Stores struct {
	Movies MovieStore
	Series SeriesStore
	Users  UserStore
	Ads    AdStore
}
