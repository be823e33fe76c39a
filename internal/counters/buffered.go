package counters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/anikkhan0099/moviehubbd/internal/metrics"
	"github.com/anikkhan0099/moviehubbd/internal/repository"
)

const DefaultHash = "moviehub:counters"

// Buffered accumulates increments in a Redis hash. Flush moves them into the
// stores in batches.
type Buffered struct {
	rdb    redis.Cmdable
	direct *Direct
	hash   string
	log    *logrus.Entry
}

func NewBuffered(rdb redis.Cmdable, direct *Direct, log *logrus.Entry) *Buffered {
	return &Buffered{rdb: rdb, direct: direct, hash: DefaultHash, log: log}
}

func (b *Buffered) Record(ctx context.Context, k Key) error {
	if !k.Valid() {
		return fmt.Errorf("%w %s", ErrBadKey, k)
	}
	return b.rdb.HIncrBy(ctx, b.hash, k.String(), 1).Err()
}

// leftovers lists batches a previous flush renamed but did not finish.
func (b *Buffered) leftovers(ctx context.Context) ([]string, error) {
	var out []string
	var cursor uint64
	for {
		keys, next, err := b.rdb.Scan(ctx, cursor, b.hash+":flush:*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan counter batches: %w", err)
		}
		out = append(out, keys...)
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}

// Flush renames the live hash before reading it, so increments that arrive
// during the flush land in a fresh hash and are picked up next time. Batches
// left behind by an interrupted flush go first. It returns the number of keys
// applied.
func (b *Buffered) Flush(ctx context.Context) (int, error) {
	batches, err := b.leftovers(ctx)
	if err != nil {
		return 0, err
	}
	batch := fmt.Sprintf("%s:flush:%d", b.hash, time.Now().UnixNano())
	if err := b.rdb.Rename(ctx, b.hash, batch).Err(); err != nil {
		if !strings.Contains(err.Error(), "no such key") {
			return 0, fmt.Errorf("rename counter hash: %w", err)
		}
	} else {
		batches = append(batches, batch)
	}

	applied := 0
	for _, key := range batches {
		n, err := b.flushBatch(ctx, key)
		applied += n
		if err != nil {
			metrics.CounterFlushes.Add(float64(applied))
			return applied, err
		}
	}
	metrics.CounterFlushes.Add(float64(applied))
	return applied, nil
}

// flushBatch applies one renamed hash. A field leaves the batch once it is
// applied, dropped or handed back to the live hash, so a batch that is cut
// short is safe to replay.
func (b *Buffered) flushBatch(ctx context.Context, batch string) (int, error) {
	vals, err := b.rdb.HGetAll(ctx, batch).Result()
	if err != nil {
		return 0, fmt.Errorf("read counter batch: %w", err)
	}

	applied := 0
	for field, raw := range vals {
		entry := b.log.WithField("key", field)
		k, err := ParseKey(field)
		delta := cast.ToInt64(raw)
		switch {
		case err != nil:
			entry.WithError(err).Warn("dropping malformed counter key")
		case delta == 0:
		default:
			err = b.direct.Apply(ctx, k, delta)
			switch {
			case err == nil:
				applied++
			case errors.Is(err, repository.ErrNotFound), errors.Is(err, ErrBadKey):
				entry.WithError(err).Warn("dropping counter for missing target")
			default:
				entry.WithError(err).Warn("counter flush failed, requeued")
				if err := b.rdb.HIncrBy(ctx, b.hash, field, delta).Err(); err != nil {
					return applied, fmt.Errorf("requeue counter %s: %w", field, err)
				}
			}
		}
		if err := b.rdb.HDel(ctx, batch, field).Err(); err != nil {
			return applied, fmt.Errorf("clear counter %s: %w", field, err)
		}
	}

	if err := b.rdb.Del(ctx, batch).Err(); err != nil {
		return applied, fmt.Errorf("delete counter batch: %w", err)
	}
	return applied, nil
}
