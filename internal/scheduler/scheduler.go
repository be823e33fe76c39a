// Package scheduler runs the periodic maintenance jobs on a cron clock.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is one unit of periodic work.
type Job func(ctx context.Context) error

type Scheduler struct {
	cron    *cron.Cron
	log     *logrus.Entry
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// New creates a scheduler whose jobs are skipped while a previous run of the
// same job is still going.
func New(log *logrus.Entry) *Scheduler {
	logger := cron.PrintfLogger(log)
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger))),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		timeout: time.Minute,
	}
}

// Add registers job under a cron spec such as "@every 30s" or "0 3 * * *".
func (s *Scheduler) Add(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()
		start := time.Now()
		if err := job(ctx); err != nil {
			s.log.WithError(err).WithField("job", name).Error("scheduled job failed")
			return
		}
		s.log.WithFields(logrus.Fields{"job": name, "duration": time.Since(start).String()}).Debug("scheduled job done")
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.log.WithFields(logrus.Fields{"job": name, "spec": spec}).Info("job scheduled")
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them, or for ctx, to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	s.log.Info("scheduler stopped")
}

// ──────────────────── Jobs ────────────────────

type Flusher interface {
	Flush(ctx context.Context) (int, error)
}

// FlushCounters drains buffered view/like/download counters into the store.
func FlushCounters(f Flusher, log *logrus.Entry) Job {
	return func(ctx context.Context) error {
		n, err := f.Flush(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			log.WithField("counters", n).Info("counters flushed")
		}
		return nil
	}
}

type ExpiredAds interface {
	Expired(ctx context.Context) (int, error)
}

// SweepExpiredAds reports active ads whose end date has passed. They are
// already excluded from placement results.
func SweepExpiredAds(ads ExpiredAds, log *logrus.Entry) Job {
	return func(ctx context.Context) error {
		n, err := ads.Expired(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			log.WithField("ads", n).Warn("active ads past their end date")
		}
		return nil
	}
}
