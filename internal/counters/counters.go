// Package counters records view, like, download, impression and click
// increments. Every call adds exactly one; repeated calls are not
// deduplicated.
package counters

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/anikkhan0099/moviehubbd/internal/repository"
)

type Target string

const (
	TargetMovie   Target = "movie"
	TargetSeries  Target = "series"
	TargetEpisode Target = "episode"
	TargetAd      Target = "ad"
)

var ErrBadKey = errors.New("invalid counter key")

// Key identifies one counter. Episode keys carry the owning series in ID and
// the episode in EpisodeID.
type Key struct {
	Target    Target
	ID        uuid.UUID
	EpisodeID uuid.UUID
	Field     repository.Counter
}

func Movie(id uuid.UUID, f repository.Counter) Key  { return Key{Target: TargetMovie, ID: id, Field: f} }
func Series(id uuid.UUID, f repository.Counter) Key { return Key{Target: TargetSeries, ID: id, Field: f} }
func Ad(id uuid.UUID, f repository.Counter) Key     { return Key{Target: TargetAd, ID: id, Field: f} }

func Episode(seriesID, episodeID uuid.UUID) Key {
	return Key{Target: TargetEpisode, ID: seriesID, EpisodeID: episodeID, Field: repository.CounterViews}
}

func (k Key) Valid() bool {
	switch k.Target {
	case TargetMovie, TargetSeries:
		return repository.ContentCounter(k.Field)
	case TargetEpisode:
		return k.Field == repository.CounterViews && k.EpisodeID != uuid.Nil
	case TargetAd:
		return repository.AdCounter(k.Field)
	}
	return false
}

// String encodes the key as a Redis hash field.
func (k Key) String() string {
	if k.Target == TargetEpisode {
		return fmt.Sprintf("%s:%s:%s:%s", k.Target, k.ID, k.EpisodeID, k.Field)
	}
	return fmt.Sprintf("%s:%s:%s", k.Target, k.ID, k.Field)
}

func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, ":")
	var k Key
	switch {
	case len(parts) == 3:
		k.Target, k.Field = Target(parts[0]), repository.Counter(parts[2])
	case len(parts) == 4 && parts[0] == string(TargetEpisode):
		k.Target, k.Field = TargetEpisode, repository.Counter(parts[3])
		id, err := uuid.Parse(parts[2])
		if err != nil {
			return Key{}, fmt.Errorf("%w %q: %v", ErrBadKey, s, err)
		}
		k.EpisodeID = id
	default:
		return Key{}, fmt.Errorf("%w %q", ErrBadKey, s)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return Key{}, fmt.Errorf("%w %q: %v", ErrBadKey, s, err)
	}
	k.ID = id
	if !k.Valid() {
		return Key{}, fmt.Errorf("%w %q", ErrBadKey, s)
	}
	return k, nil
}

// Recorder adds one to a counter.
type Recorder interface {
	Record(ctx context.Context, k Key) error
}

// Direct applies increments straight to the stores with atomic updates.
type Direct struct {
	stores repository.Stores
}

func NewDirect(stores repository.Stores) *Direct {
	return &Direct{stores: stores}
}

func (d *Direct) Record(ctx context.Context, k Key) error {
	return d.Apply(ctx, k, 1)
}

// Apply adds delta to the counter named by k.
func (d *Direct) Apply(ctx context.Context, k Key, delta int64) error {
	if !k.Valid() {
		return fmt.Errorf("%w %s", ErrBadKey, k)
	}
	switch k.Target {
	case TargetMovie:
		return d.stores.Movies.IncrementCounter(ctx, k.ID, k.Field, delta)
	case TargetSeries:
		return d.stores.Series.IncrementCounter(ctx, k.ID, k.Field, delta)
	case TargetEpisode:
		return d.stores.Series.IncrementEpisodeViews(ctx, k.ID, k.EpisodeID, delta)
	default:
		return d.stores.Ads.IncrementCounter(ctx, k.ID, k.Field, delta)
	}
}
