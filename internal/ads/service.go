package ads

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/anikkhan0099/moviehubbd/internal/counters"
	"github.com/anikkhan0099/moviehubbd/internal/models"
	"github.com/anikkhan0099/moviehubbd/internal/query"
	"github.com/anikkhan0099/moviehubbd/internal/repository"
)

type Service struct {
	store    repository.AdStore
	recorder counters.Recorder
	now      func() time.Time
}

func NewService(store repository.AdStore, rec counters.Recorder) *Service {
	return &Service{store: store, recorder: rec, now: time.Now}
}

// ForPlacement returns the ads to render in one slot.
func (s *Service) ForPlacement(ctx context.Context, req Request) ([]*models.Ad, error) {
	now := s.now()
	scheduled, err := s.store.Scheduled(ctx, req.Placement, now)
	if err != nil {
		return nil, fmt.Errorf("scheduled ads: %w", err)
	}
	return Select(scheduled, req, now), nil
}

func (s *Service) RecordImpression(ctx context.Context, id uuid.UUID) error {
	return s.record(ctx, id, repository.CounterImpressions)
}

func (s *Service) RecordClick(ctx context.Context, id uuid.UUID) error {
	return s.record(ctx, id, repository.CounterClicks)
}

func (s *Service) record(ctx context.Context, id uuid.UUID, c repository.Counter) error {
	if _, err := s.store.Get(ctx, id); err != nil {
		return err
	}
	return s.recorder.Record(ctx, counters.Ad(id, c))
}

// Create validates and stores a new ad owned by author.
func (s *Service) Create(ctx context.Context, a *models.Ad, author uuid.UUID) error {
	a.ApplyDefaults(s.now())
	if err := a.Validate(); err != nil {
		return err
	}
	a.Impressions, a.Clicks = 0, 0
	a.CreatedBy, a.LastModifiedBy = &author, &author
	return s.store.Create(ctx, a)
}

// Update replaces the editable fields of an existing ad.
func (s *Service) Update(ctx context.Context, a *models.Ad, editor uuid.UUID) error {
	if _, err := s.store.Get(ctx, a.ID); err != nil {
		return err
	}
	a.ApplyDefaults(s.now())
	if err := a.Validate(); err != nil {
		return err
	}
	a.LastModifiedBy = &editor
	return s.store.Update(ctx, a)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Ad, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, opts repository.AdListOptions) ([]*models.Ad, int, error) {
	return s.store.List(ctx, opts)
}

// Expired counts enabled ads whose end date has passed.
func (s *Service) Expired(ctx context.Context) (int, error) {
	active := true
	now := s.now()
	n := 0
	for page := 1; ; page++ {
		batch, total, err := s.store.List(ctx, repository.AdListOptions{Active: &active, Page: query.NewPage(page, query.MaxLimit)})
		if err != nil {
			return 0, err
		}
		for _, a := range batch {
			if a.EndDate != nil && a.EndDate.Before(now) {
				n++
			}
		}
		if len(batch) == 0 || page*query.MaxLimit >= total {
			return n, nil
		}
	}
}
