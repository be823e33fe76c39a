package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/anikkhan0099/moviehubbd/internal/ads"
	"github.com/anikkhan0099/moviehubbd/internal/api"
	"github.com/anikkhan0099/moviehubbd/internal/auth"
	"github.com/anikkhan0099/moviehubbd/internal/catalog"
	"github.com/anikkhan0099/moviehubbd/internal/config"
	"github.com/anikkhan0099/moviehubbd/internal/counters"
	"github.com/anikkhan0099/moviehubbd/internal/db"
	"github.com/anikkhan0099/moviehubbd/internal/jobs"
	"github.com/anikkhan0099/moviehubbd/internal/logging"
	"github.com/anikkhan0099/moviehubbd/internal/metadata"
	"github.com/anikkhan0099/moviehubbd/internal/repository"
	"github.com/anikkhan0099/moviehubbd/internal/scheduler"
	"github.com/anikkhan0099/moviehubbd/internal/store/memory"
	"github.com/anikkhan0099/moviehubbd/internal/telemetry"
	"github.com/anikkhan0099/moviehubbd/internal/upload"
	"github.com/anikkhan0099/moviehubbd/internal/users"
	"github.com/anikkhan0099/moviehubbd/internal/version"
)

func main() {
	cfg := config.Load()
	log := logging.NewLogger("moviehub", logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})

	ver, err := version.Load("version.json")
	if err != nil {
		log.WithError(err).Warn("version unknown")
	}
	log.WithField("version", ver.Version).WithField("env", cfg.AppEnv).Info("MovieHub starting")

	if err := run(cfg, ver, log); err != nil {
		log.WithError(err).Fatal("moviehub stopped")
	}
}

func run(cfg *config.Config, ver version.Info, log *logrus.Entry) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Production() && cfg.JWTSecret == "change-me-in-production" {
		return errors.New("JWT_SECRET must be set in production")
	}

	if enabled, err := telemetry.Init(cfg.SentryDSN, cfg.AppEnv, ver.Version); err != nil {
		log.WithError(err).Warn("error reporting disabled")
	} else if enabled {
		defer telemetry.Flush()
		log.Info("error reporting enabled")
	}

	stores, ping, closeStore, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	direct := counters.NewDirect(stores)
	var recorder counters.Recorder = direct
	var buffered *counters.Buffered
	var queue *jobs.Queue
	if cfg.RedisEnabled() {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()
		buffered = counters.NewBuffered(rdb, direct, log.WithField("component", "counters"))
		recorder = buffered

		if queue, err = jobs.NewQueue(cfg.RedisURL, 2, log.WithField("component", "jobs")); err != nil {
			return err
		}
		defer queue.Stop()
	}

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	if err != nil {
		return err
	}
	cat := catalog.NewService(stores.Movies, stores.Series, catalog.Options{
		ImageBaseURL: cfg.ImageBaseURL,
		MaxFeedSize:  cfg.MaxFeedSize,
	})
	userSvc := users.NewService(stores.Users, issuer, cat, cfg.AdminKey, log.WithField("component", "users"))
	if err := userSvc.Bootstrap(ctx, cfg.AdminBootstrapEmail, cfg.AdminBootstrapPassword); err != nil {
		return err
	}
	adSvc := ads.NewService(stores.Ads, recorder)

	var sink upload.Sink
	var uploadFS afero.Fs
	if cfg.CDNEnabled() {
		sink = upload.NewCDNSink(cfg.CDNUploadURL, cfg.CDNAPIKey)
	} else {
		disk := upload.NewDiskSink(afero.NewOsFs(), cfg.UploadDir, cfg.BaseURL+"/uploads")
		sink, uploadFS = disk, disk.FS()
	}

	hub := api.NewWSHub()
	tmdb := metadata.NewClient(cfg.TMDBAPIKey, cfg.TMDBBaseURL, cfg.TMDBTimeout)
	if cfg.TMDBRetries > 0 {
		tmdb.WithRetries(uint(cfg.TMDBRetries))
	}
	importer := metadata.NewImporter(tmdb, stores.Movies, stores.Series, hub, log.WithField("component", "import"), cfg.SlugFollowsYear)
	if cfg.TMDBAPIKey == "" {
		log.Warn("TMDB_API_KEY not set, imports are disabled")
	}

	if queue != nil {
		jobs.RegisterHandlers(queue, importer, log.WithField("component", "jobs"))
		if err := queue.Start(ctx); err != nil {
			return err
		}
	}

	sched := scheduler.New(log.WithField("component", "scheduler"))
	if buffered != nil {
		if err := sched.Add("flush-counters", cfg.CounterFlushSpec, scheduler.FlushCounters(buffered, log)); err != nil {
			return err
		}
	}
	if err := sched.Add("sweep-expired-ads", "@hourly", scheduler.SweepExpiredAds(adSvc, log)); err != nil {
		return err
	}
	sched.Start()

	srv := api.NewServer(api.Deps{
		Config:   cfg,
		Log:      log,
		Stores:   stores,
		Catalog:  cat,
		Users:    userSvc,
		Ads:      adSvc,
		Issuer:   issuer,
		Counters: recorder,
		Uploads:  upload.NewService(sink, cfg.UploadMaxBytes),
		UploadFS: uploadFS,
		Importer: importer,
		Queue:    queue,
		Hub:      hub,
		Ping:     ping,
		Version:  ver.Version,
	})

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	sched.Stop(shutdownCtx)
	if buffered != nil {
		if _, err := buffered.Flush(shutdownCtx); err != nil {
			log.WithError(err).Warn("final counter flush failed")
		}
	}
	return nil
}

// openStores returns the configured backend, its health check and a closer.
func openStores(ctx context.Context, cfg *config.Config, log *logrus.Entry) (repository.Stores, func(context.Context) error, func(), error) {
	if cfg.Store == "memory" {
		log.Warn("using the in-memory store, data is lost on restart")
		return memory.New(), nil, func() {}, nil
	}
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return repository.Stores{}, nil, nil, err
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return repository.Stores{}, nil, nil, err
	}
	stores := repository.Stores{
		Movies: repository.NewMovieRepository(database.DB),
		Series: repository.NewSeriesRepository(database.DB),
		Users:  repository.NewUserRepository(database.DB),
		Ads:    repository.NewAdRepository(database.DB),
	}
	return stores, database.PingContext, func() { database.Close() }, nil
}
