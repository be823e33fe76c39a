package metadata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/anikkhan0099/moviehubbd/internal/metrics"
	"github.com/anikkhan0099/moviehubbd/internal/models"
	"github.com/anikkhan0099/moviehubbd/internal/repository"
)

// Source is the subset of Client the importer needs.
type Source interface {
	GetMovie(ctx context.Context, id int) (*TMDBMovie, error)
	GetTV(ctx context.Context, id int) (*TMDBShow, error)
	GetSeason(ctx context.Context, tvID, season int) (*TMDBSeason, error)
}

// Notifier receives progress events.
type Notifier interface {
	Broadcast(event string, data interface{})
}

type Options struct {
	// Update refreshes an existing item in place instead of failing with a
	// conflict.
	Update  bool
	Publish bool
	Author  uuid.UUID
	// TaskID tags progress events.
	TaskID string
}

type MovieResult struct {
	Movie   *models.Movie `json:"movie"`
	Created bool          `json:"created"`
}

type SeriesResult struct {
	Series         *models.Series `json:"series"`
	Created        bool           `json:"created"`
	SkippedSeasons []int          `json:"skippedSeasons,omitempty"`
}

type Importer struct {
	source     Source
	movies     repository.MovieStore
	series     repository.SeriesStore
	notifier   Notifier
	log        *logrus.Entry
	followYear bool
	now        func() time.Time
}

func NewImporter(src Source, movies repository.MovieStore, series repository.SeriesStore, notifier Notifier, log *logrus.Entry, followYear bool) *Importer {
	return &Importer{
		source: src, movies: movies, series: series, notifier: notifier,
		log: log, followYear: followYear, now: time.Now,
	}
}

func (im *Importer) progress(opts Options, kind string, tmdbID int, status, message string) {
	if im.notifier == nil || opts.TaskID == "" {
		return
	}
	im.notifier.Broadcast("task:update", map[string]interface{}{
		"task_id":   opts.TaskID,
		"task_type": "import:" + kind,
		"tmdb_id":   tmdbID,
		"status":    status,
		"message":   message,
	})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (im *Importer) ImportMovie(ctx context.Context, tmdbID int, opts Options) (res *MovieResult, err error) {
	defer func() { metrics.Imports.WithLabelValues("movie", result(err)).Inc() }()
	im.progress(opts, "movie", tmdbID, "running", "fetching movie")

	t, err := im.source.GetMovie(ctx, tmdbID)
	if err != nil {
		im.progress(opts, "movie", tmdbID, "failed", err.Error())
		return nil, fmt.Errorf("fetch movie %d: %w", tmdbID, err)
	}
	m := MapMovie(t)

	prev, err := im.movies.GetByTMDbID(ctx, tmdbID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		prev = nil
	case err != nil:
		return nil, err
	case !opts.Update:
		return nil, &repository.ConflictError{Key: "tmdb_id"}
	}

	if prev != nil {
		mergeEditorial(&m.Content, &prev.Content)
		m.Content.PreserveSystemFields(&prev.Content)
		m.ApplySlug(&prev.Content, im.followYear)
	} else {
		m.ApplySlug(nil, im.followYear)
		m.AddedBy = &opts.Author
	}
	im.stamp(&m.Content, opts)
	if err := m.Validate(im.now()); err != nil {
		im.progress(opts, "movie", tmdbID, "failed", err.Error())
		return nil, err
	}
	if prev != nil {
		err = im.movies.Update(ctx, m)
	} else {
		err = im.movies.Create(ctx, m)
	}
	if err != nil {
		im.progress(opts, "movie", tmdbID, "failed", err.Error())
		return nil, err
	}
	im.log.WithFields(logrus.Fields{"tmdb_id": tmdbID, "movie_id": m.ID, "update": prev != nil}).Info("movie imported")
	im.progress(opts, "movie", tmdbID, "complete", m.Title)
	return &MovieResult{Movie: m, Created: prev == nil}, nil
}

// ImportSeries fetches the show and each of its numbered seasons. A season
// that fails to load is logged and skipped; any other failure aborts.
func (im *Importer) ImportSeries(ctx context.Context, tmdbID int, opts Options) (res *SeriesResult, err error) {
	defer func() { metrics.Imports.WithLabelValues("series", result(err)).Inc() }()
	im.progress(opts, "series", tmdbID, "running", "fetching series")

	t, err := im.source.GetTV(ctx, tmdbID)
	if err != nil {
		im.progress(opts, "series", tmdbID, "failed", err.Error())
		return nil, fmt.Errorf("fetch series %d: %w", tmdbID, err)
	}
	s := MapSeries(t)

	prev, err := im.series.GetByTMDbID(ctx, tmdbID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		prev = nil
	case err != nil:
		return nil, err
	case !opts.Update:
		return nil, &repository.ConflictError{Key: "tmdb_id"}
	}

	res = &SeriesResult{}
	for i, ref := range t.Seasons {
		if ref.SeasonNumber < 1 {
			continue
		}
		im.progress(opts, "series", tmdbID, "running", fmt.Sprintf("season %d (%d/%d)", ref.SeasonNumber, i+1, len(t.Seasons)))
		ts, err := im.source.GetSeason(ctx, tmdbID, ref.SeasonNumber)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			im.log.WithError(err).WithFields(logrus.Fields{"tmdb_id": tmdbID, "season": ref.SeasonNumber}).Warn("skipping season")
			res.SkippedSeasons = append(res.SkippedSeasons, ref.SeasonNumber)
			continue
		}
		s.Seasons = append(s.Seasons, MapSeason(ts))
	}

	if prev != nil {
		mergeEditorial(&s.Content, &prev.Content)
		mergeSeasons(s, prev)
		s.Content.PreserveSystemFields(&prev.Content)
		s.ApplySlug(&prev.Content, im.followYear)
	} else {
		s.ApplySlug(nil, im.followYear)
		s.AddedBy = &opts.Author
	}
	im.stamp(&s.Content, opts)
	s.Normalize()
	s.Recount()
	if err := s.Validate(im.now()); err != nil {
		im.progress(opts, "series", tmdbID, "failed", err.Error())
		return nil, err
	}
	if prev != nil {
		err = im.series.Update(ctx, s)
	} else {
		err = im.series.Create(ctx, s)
	}
	if err != nil {
		im.progress(opts, "series", tmdbID, "failed", err.Error())
		return nil, err
	}
	im.log.WithFields(logrus.Fields{
		"tmdb_id": tmdbID, "series_id": s.ID, "seasons": s.NumberOfSeasons, "skipped": len(res.SkippedSeasons),
	}).Info("series imported")
	im.progress(opts, "series", tmdbID, "complete", s.Title)
	res.Series, res.Created = s, prev == nil
	return res, nil
}

func (im *Importer) stamp(c *models.Content, opts Options) {
	c.ApplyDefaults()
	if opts.Publish {
		c.AdminStatus = models.AdminPublished
	}
	c.LastModifiedBy = &opts.Author
}

// mergeEditorial keeps what editors added by hand when TMDB data is
// refreshed.
func mergeEditorial(c, prev *models.Content) {
	c.Servers = prev.Servers
	c.DownloadGroups = prev.DownloadGroups
	c.Screenshots = prev.Screenshots
	c.SEO = prev.SEO
	c.Quality = prev.Quality
	c.Status = models.StatusUpdated
	c.AdminStatus = prev.AdminStatus
	c.IMDbRating = prev.IMDbRating
	if c.PosterPath == "" {
		c.PosterPath = prev.PosterPath
	}
	if c.Overview == "" {
		c.Overview = prev.Overview
	}
}

// mergeSeasons carries stored ids, streaming links and views over to the
// refreshed seasons, and keeps stored seasons TMDB no longer returned.
func mergeSeasons(s, prev *models.Series) {
	imported := map[int]bool{}
	for i := range s.Seasons {
		season := &s.Seasons[i]
		imported[season.SeasonNumber] = true
		old, err := prev.Season(season.SeasonNumber)
		if err != nil {
			continue
		}
		season.ID = old.ID
		for j := range season.Episodes {
			ep := &season.Episodes[j]
			for _, oe := range old.Episodes {
				if oe.EpisodeNumber == ep.EpisodeNumber {
					ep.ID, ep.Views = oe.ID, oe.Views
					ep.Servers, ep.DownloadLinks, ep.Active = oe.Servers, oe.DownloadLinks, oe.Active
					break
				}
			}
		}
	}
	for _, old := range prev.Seasons {
		if !imported[old.SeasonNumber] {
			s.Seasons = append(s.Seasons, old)
		}
	}
}
