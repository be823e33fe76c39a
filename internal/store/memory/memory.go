// Package memory is an in-process implementation of the repository store
// interfaces. It backs the test suites and STORE=memory development runs.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anikkhan0099/moviehubbd/internal/models"
	"github.com/anikkhan0099/moviehubbd/internal/query"
	"github.com/anikkhan0099/moviehubbd/internal/repository"
)

// New returns empty stores sharing nothing but the clock.
func New() repository.Stores {
	return repository.Stores{
		Movies: &Movies{items: map[uuid.UUID]*models.Movie{}},
		Series: &Series{items: map[uuid.UUID]*models.Series{}},
		Users:  &Users{items: map[uuid.UUID]*models.User{}},
		Ads:    &Ads{items: map[uuid.UUID]*models.Ad{}},
	}
}

func notFound(what string) error { return fmt.Errorf("%s %w", what, repository.ErrNotFound) }

// ──────────────────── shared content helpers ────────────────────

func matches(opts repository.ListOptions, c *models.Content, doc query.Document) bool {
	if opts.ExcludeID != uuid.Nil && c.ID == opts.ExcludeID {
		return false
	}
	if !opts.Filter.Matches(c) || !opts.Search.Matches(doc) {
		return false
	}
	if r := opts.Related; r != nil {
		shared := overlaps(c.Genres, r.Genres) || overlaps(c.Language, r.Language)
		diff := c.ReleaseYear - r.Year
		if diff < 0 {
			diff = -diff
		}
		if !shared && diff > r.YearSpan {
			return false
		}
	}
	return true
}

func overlaps(a, b []string) bool {
	for _, x := range a {
		if slices.Contains(b, x) {
			return true
		}
	}
	return false
}

// sortAndPage orders items the way the SQL repositories do, including the
// trailing id tie-break, then applies offset and limit.
func sortAndPage[T any](items []T, content func(T) *models.Content, opts repository.ListOptions) []T {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := content(items[i]), content(items[j])
		if opts.Sort.Less(a, b) {
			return true
		}
		if opts.Sort.Less(b, a) {
			return false
		}
		return strings.Compare(a.ID.String(), b.ID.String()) < 0
	})
	start := opts.Offset
	if start > len(items) {
		start = len(items)
	}
	items = items[start:]
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}

func cloneContent(c models.Content) models.Content {
	c.Genres = slices.Clone(c.Genres)
	c.Language = slices.Clone(c.Language)
	c.Cast = slices.Clone(c.Cast)
	c.Screenshots = slices.Clone(c.Screenshots)
	c.Servers = slices.Clone(c.Servers)
	c.SEO.Keywords = slices.Clone(c.SEO.Keywords)
	groups := make([]models.DownloadGroup, len(c.DownloadGroups))
	for i, g := range c.DownloadGroups {
		g.DownloadLinks = slices.Clone(g.DownloadLinks)
		groups[i] = g
	}
	if c.DownloadGroups != nil {
		c.DownloadGroups = groups
	}
	return c
}

func bump(c *models.Content, field repository.Counter, delta int64) error {
	switch field {
	case repository.CounterViews:
		c.Views += delta
	case repository.CounterLikes:
		c.Likes += delta
	case repository.CounterDownloads:
		c.Downloads += delta
	default:
		return repository.ErrInvalidCounter
	}
	return nil
}

// uniqueContent enforces the slug, tmdbId and imdbId unique keys.
func uniqueContent(c *models.Content, others func(yield func(*models.Content) bool)) error {
	var err error
	others(func(o *models.Content) bool {
		if o.ID == c.ID {
			return true
		}
		switch {
		case o.Slug == c.Slug:
			err = &repository.ConflictError{Key: "slug"}
		case c.TMDbID != nil && o.TMDbID != nil && *c.TMDbID == *o.TMDbID:
			err = &repository.ConflictError{Key: "tmdb_id"}
		case c.IMDbID != nil && o.IMDbID != nil && *c.IMDbID == *o.IMDbID:
			err = &repository.ConflictError{Key: "imdb_id"}
		}
		return err == nil
	})
	return err
}

// ──────────────────── Movies ────────────────────

type Movies struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*models.Movie
}

func cloneMovie(m *models.Movie) *models.Movie {
	out := *m
	out.Content = cloneContent(m.Content)
	return &out
}

func (s *Movies) each(yield func(*models.Content) bool) {
	for _, m := range s.items {
		if !yield(&m.Content) {
			return
		}
	}
}

func (s *Movies) Create(_ context.Context, m *models.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if _, ok := s.items[m.ID]; ok {
		return &repository.ConflictError{Key: "id"}
	}
	if err := uniqueContent(&m.Content, s.each); err != nil {
		return err
	}
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	s.items[m.ID] = cloneMovie(m)
	return nil
}

func (s *Movies) find(pred func(*models.Movie) bool) (*models.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.items {
		if pred(m) {
			return cloneMovie(m), nil
		}
	}
	return nil, notFound("movie")
}

func (s *Movies) Get(_ context.Context, id uuid.UUID) (*models.Movie, error) {
	return s.find(func(m *models.Movie) bool { return m.ID == id })
}

func (s *Movies) GetBySlug(_ context.Context, slug string) (*models.Movie, error) {
	return s.find(func(m *models.Movie) bool { return m.Slug == slug })
}

func (s *Movies) GetByTMDbID(_ context.Context, tmdbID int) (*models.Movie, error) {
	return s.find(func(m *models.Movie) bool { return m.TMDbID != nil && *m.TMDbID == tmdbID })
}

func (s *Movies) Update(_ context.Context, m *models.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.items[m.ID]
	if !ok {
		return notFound("movie")
	}
	if err := uniqueContent(&m.Content, s.each); err != nil {
		return err
	}
	m.UpdatedAt = time.Now().UTC()
	m.CreatedAt = prev.CreatedAt
	m.Views, m.Likes, m.Downloads = prev.Views, prev.Likes, prev.Downloads
	s.items[m.ID] = cloneMovie(m)
	return nil
}

func (s *Movies) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return notFound("movie")
	}
	delete(s.items, id)
	return nil
}

func (s *Movies) filtered(opts repository.ListOptions) []*models.Movie {
	var out []*models.Movie
	for _, m := range s.items {
		if matches(opts, &m.Content, m) {
			out = append(out, cloneMovie(m))
		}
	}
	return out
}

func (s *Movies) List(_ context.Context, opts repository.ListOptions) ([]*models.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := sortAndPage(s.filtered(opts), func(m *models.Movie) *models.Content { return &m.Content }, opts)
	if out == nil {
		out = []*models.Movie{}
	}
	return out, nil
}

func (s *Movies) Count(_ context.Context, opts repository.ListOptions) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.filtered(opts)), nil
}

func (s *Movies) IncrementCounter(_ context.Context, id uuid.UUID, field repository.Counter, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.items[id]
	if !ok {
		return notFound("movie")
	}
	return bump(&m.Content, field, delta)
}

// ──────────────────── Series ────────────────────

type Series struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*models.Series
}

func cloneSeries(s *models.Series) *models.Series {
	out := *s
	out.Content = cloneContent(s.Content)
	out.Networks = slices.Clone(s.Networks)
	out.Creators = slices.Clone(s.Creators)
	if s.Seasons != nil {
		out.Seasons = make([]models.Season, len(s.Seasons))
		for i, season := range s.Seasons {
			eps := make([]models.Episode, len(season.Episodes))
			for j, ep := range season.Episodes {
				ep.Servers = slices.Clone(ep.Servers)
				ep.DownloadLinks = slices.Clone(ep.DownloadLinks)
				eps[j] = ep
			}
			season.Episodes = eps
			out.Seasons[i] = season
		}
	}
	return &out
}

func (s *Series) each(yield func(*models.Content) bool) {
	for _, m := range s.items {
		if !yield(&m.Content) {
			return
		}
	}
}

func (s *Series) Create(_ context.Context, sr *models.Series) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sr.ID == uuid.Nil {
		sr.ID = uuid.New()
	}
	if _, ok := s.items[sr.ID]; ok {
		return &repository.ConflictError{Key: "id"}
	}
	if err := uniqueContent(&sr.Content, s.each); err != nil {
		return err
	}
	sr.Normalize()
	now := time.Now().UTC()
	sr.CreatedAt, sr.UpdatedAt = now, now
	s.items[sr.ID] = cloneSeries(sr)
	return nil
}

func (s *Series) find(pred func(*models.Series) bool) (*models.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sr := range s.items {
		if pred(sr) {
			return cloneSeries(sr), nil
		}
	}
	return nil, notFound("series")
}

func (s *Series) Get(_ context.Context, id uuid.UUID) (*models.Series, error) {
	return s.find(func(sr *models.Series) bool { return sr.ID == id })
}

func (s *Series) GetBySlug(_ context.Context, slug string) (*models.Series, error) {
	return s.find(func(sr *models.Series) bool { return sr.Slug == slug })
}

func (s *Series) GetByTMDbID(_ context.Context, tmdbID int) (*models.Series, error) {
	return s.find(func(sr *models.Series) bool { return sr.TMDbID != nil && *sr.TMDbID == tmdbID })
}

func (s *Series) Update(_ context.Context, sr *models.Series) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.items[sr.ID]
	if !ok {
		return notFound("series")
	}
	if err := uniqueContent(&sr.Content, s.each); err != nil {
		return err
	}
	sr.Normalize()
	sr.KeepEpisodeViews(prev.Seasons)
	sr.UpdatedAt = time.Now().UTC()
	sr.CreatedAt = prev.CreatedAt
	sr.Views, sr.Likes, sr.Downloads = prev.Views, prev.Likes, prev.Downloads
	s.items[sr.ID] = cloneSeries(sr)
	return nil
}

func (s *Series) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return notFound("series")
	}
	delete(s.items, id)
	return nil
}

func (s *Series) filtered(opts repository.ListOptions) []*models.Series {
	var out []*models.Series
	for _, sr := range s.items {
		if matches(opts, &sr.Content, sr) {
			out = append(out, cloneSeries(sr))
		}
	}
	return out
}

func (s *Series) List(_ context.Context, opts repository.ListOptions) ([]*models.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := sortAndPage(s.filtered(opts), func(sr *models.Series) *models.Content { return &sr.Content }, opts)
	if out == nil {
		out = []*models.Series{}
	}
	return out, nil
}

func (s *Series) Count(_ context.Context, opts repository.ListOptions) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.filtered(opts)), nil
}

func (s *Series) IncrementCounter(_ context.Context, id uuid.UUID, field repository.Counter, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sr, ok := s.items[id]
	if !ok {
		return notFound("series")
	}
	return bump(&sr.Content, field, delta)
}

func (s *Series) IncrementEpisodeViews(_ context.Context, seriesID, episodeID uuid.UUID, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sr, ok := s.items[seriesID]
	if !ok {
		return notFound("series")
	}
	_, ep, err := sr.EpisodeByID(episodeID)
	if err != nil {
		return notFound("episode")
	}
	ep.Views += delta
	return nil
}
