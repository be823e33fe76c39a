package memory

import (
	"context"
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

// ──────────────────── Users ────────────────────

type Users struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*models.User
}

func cloneUser(u *models.User) *models.User {
	out := *u
	out.Watchlist = slices.Clone(u.Watchlist)
	if out.Watchlist == nil {
		out.Watchlist = []models.WatchlistEntry{}
	}
	if u.LastLogin != nil {
		t := *u.LastLogin
		out.LastLogin = &t
	}
	return &out
}

func (s *Users) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = models.NormalizeEmail(u.Email)
	if err := s.unique(u); err != nil {
		return err
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Watchlist == nil {
		u.Watchlist = []models.WatchlistEntry{}
	}
	s.items[u.ID] = cloneUser(u)
	return nil
}

func (s *Users) unique(u *models.User) error {
	for _, o := range s.items {
		if o.ID == u.ID {
			continue
		}
		if strings.EqualFold(o.Email, u.Email) {
			return &repository.ConflictError{Key: "email"}
		}
		if strings.EqualFold(o.Username, u.Username) {
			return &repository.ConflictError{Key: "username"}
		}
	}
	return nil
}

func (s *Users) Get(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.items[id]
	if !ok {
		return nil, notFound("user")
	}
	return cloneUser(u), nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = models.NormalizeEmail(email)
	for _, u := range s.items {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, notFound("user")
}

func (s *Users) Update(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[u.ID]
	if !ok {
		return notFound("user")
	}
	u.Email = models.NormalizeEmail(u.Email)
	if err := s.unique(u); err != nil {
		return err
	}
	cur.Username = u.Username
	cur.Email = u.Email
	cur.Avatar = u.Avatar
	cur.IsActive = u.IsActive
	cur.Preferences = u.Preferences
	cur.UpdatedAt = time.Now().UTC()
	u.UpdatedAt = cur.UpdatedAt
	return nil
}

func (s *Users) mutate(id uuid.UUID, fn func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.items[id]
	if !ok {
		return notFound("user")
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Users) SetPassword(_ context.Context, id uuid.UUID, hash string) error {
	return s.mutate(id, func(u *models.User) {
		u.PasswordHash = hash
		u.RefreshTokenHash = ""
	})
}

func (s *Users) SetRefreshToken(_ context.Context, id uuid.UUID, hash string) error {
	return s.mutate(id, func(u *models.User) { u.RefreshTokenHash = hash })
}

func (s *Users) SetRole(_ context.Context, id uuid.UUID, role models.UserRole) error {
	return s.mutate(id, func(u *models.User) { u.Role = role })
}

func (s *Users) TouchLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	return s.mutate(id, func(u *models.User) { u.LastLogin = &at })
}

func (s *Users) List(_ context.Context, page query.Page) ([]*models.User, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*models.User, 0, len(s.items))
	for _, u := range s.items {
		all = append(all, cloneUser(u))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.String() < all[j].ID.String()
	})
	start, end := query.Window(page, len(all))
	return all[start:end], len(all), nil
}

func (s *Users) CountByRole(_ context.Context, role models.UserRole) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, u := range s.items {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (s *Users) AddToWatchlist(_ context.Context, userID uuid.UUID, entry models.WatchlistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.items[userID]
	if !ok {
		return notFound("user")
	}
	if u.InWatchlist(entry.ContentRef) {
		return &repository.ConflictError{Key: "watchlist entry"}
	}
	u.Watchlist = append(u.Watchlist, entry)
	return nil
}

func (s *Users) RemoveFromWatchlist(_ context.Context, userID uuid.UUID, ref models.ContentRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.items[userID]
	if !ok {
		return notFound("user")
	}
	for i, e := range u.Watchlist {
		if e.ContentRef == ref {
			u.Watchlist = slices.Delete(u.Watchlist, i, i+1)
			return nil
		}
	}
	return notFound("watchlist entry")
}

// ──────────────────── Ads ────────────────────

type Ads struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*models.Ad
}

func cloneAd(a *models.Ad) *models.Ad {
	out := *a
	out.TargetPages = slices.Clone(a.TargetPages)
	out.TargetDevices = slices.Clone(a.TargetDevices)
	out.TargetCountries = slices.Clone(a.TargetCountries)
	return &out
}

func (s *Ads) Create(_ context.Context, a *models.Ad) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if _, ok := s.items[a.ID]; ok {
		return &repository.ConflictError{Key: "id"}
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	s.items[a.ID] = cloneAd(a)
	return nil
}

func (s *Ads) Get(_ context.Context, id uuid.UUID) (*models.Ad, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.items[id]
	if !ok {
		return nil, notFound("ad")
	}
	return cloneAd(a), nil
}

func (s *Ads) Update(_ context.Context, a *models.Ad) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.items[a.ID]
	if !ok {
		return notFound("ad")
	}
	a.CreatedAt = prev.CreatedAt
	a.CreatedBy = prev.CreatedBy
	a.Impressions, a.Clicks = prev.Impressions, prev.Clicks
	a.UpdatedAt = time.Now().UTC()
	s.items[a.ID] = cloneAd(a)
	return nil
}

func (s *Ads) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return notFound("ad")
	}
	delete(s.items, id)
	return nil
}

func byPriorityThenRecency(ads []*models.Ad) {
	sort.SliceStable(ads, func(i, j int) bool {
		if ads[i].Priority != ads[j].Priority {
			return ads[i].Priority > ads[j].Priority
		}
		return ads[i].CreatedAt.After(ads[j].CreatedAt)
	})
}

func (s *Ads) List(_ context.Context, opts repository.AdListOptions) ([]*models.Ad, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []*models.Ad
	for _, a := range s.items {
		if opts.Placement != "" && a.Placement != opts.Placement {
			continue
		}
		if opts.Active != nil && a.IsActive != *opts.Active {
			continue
		}
		all = append(all, cloneAd(a))
	}
	byPriorityThenRecency(all)
	start, end := query.Window(opts.Page, len(all))
	if all == nil {
		all = []*models.Ad{}
	}
	return all[start:end], len(all), nil
}

func (s *Ads) Scheduled(_ context.Context, placement models.Placement, now time.Time) ([]*models.Ad, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Ad{}
	for _, a := range s.items {
		if a.Placement == placement && a.IsCurrentlyActive(now) {
			out = append(out, cloneAd(a))
		}
	}
	byPriorityThenRecency(out)
	return out, nil
}

func (s *Ads) IncrementCounter(_ context.Context, id uuid.UUID, field repository.Counter, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.items[id]
	if !ok {
		return notFound("ad")
	}
	switch field {
	case repository.CounterImpressions:
		a.Impressions += delta
	case repository.CounterClicks:
		a.Clicks += delta
	default:
		return repository.ErrInvalidCounter
	}
	return nil
}
