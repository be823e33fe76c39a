// Package api exposes the catalog over a JSON REST interface.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/anikkhan0099/moviehubbd/internal/ads"
	"github.com/anikkhan0099/moviehubbd/internal/auth"
	"github.com/anikkhan0099/moviehubbd/internal/catalog"
	"github.com/anikkhan0099/moviehubbd/internal/config"
	"github.com/anikkhan0099/moviehubbd/internal/counters"
	"github.com/anikkhan0099/moviehubbd/internal/jobs"
	"github.com/anikkhan0099/moviehubbd/internal/metrics"
	"github.com/anikkhan0099/moviehubbd/internal/models"
	"github.com/anikkhan0099/moviehubbd/internal/repository"
	"github.com/anikkhan0099/moviehubbd/internal/telemetry"
	"github.com/anikkhan0099/moviehubbd/internal/upload"
	"github.com/anikkhan0099/moviehubbd/internal/users"
)

// Deps carries everything the server is wired from.
type Deps struct {
	Config   *config.Config
	Log      *logrus.Entry
	Stores   repository.Stores
	Catalog  *catalog.Service
	Users    *users.Service
	Ads      *ads.Service
	Issuer   *auth.Issuer
	Counters counters.Recorder
	Uploads  *upload.Service
	// UploadFS is served at /uploads/ when images are kept on local disk.
	UploadFS afero.Fs
	Importer jobs.Importer
	// Queue is nil without Redis; imports then always run inline.
	Queue *jobs.Queue
	Hub   *WSHub
	// Ping reports store health for /health. Optional.
	Ping    func(ctx context.Context) error
	Version string
}

type Server struct {
	config   *config.Config
	log      *logrus.Entry
	stores   repository.Stores
	catalog  *catalog.Service
	users    *users.Service
	ads      *ads.Service
	issuer   *auth.Issuer
	counters counters.Recorder
	uploads  *upload.Service
	uploadFS afero.Fs
	importer jobs.Importer
	jobQueue *jobs.Queue
	wsHub    *WSHub
	ping     func(ctx context.Context) error
	version  string
	limiter  *ipLimiter
	proxies  proxySet
	router   *http.ServeMux
	http     *http.Server
}

func NewServer(d Deps) *Server {
	hub := d.Hub
	if hub == nil {
		hub = NewWSHub()
	}
	s := &Server{
		config:   d.Config,
		log:      d.Log,
		stores:   d.Stores,
		catalog:  d.Catalog,
		users:    d.Users,
		ads:      d.Ads,
		issuer:   d.Issuer,
		counters: d.Counters,
		uploads:  d.Uploads,
		uploadFS: d.UploadFS,
		importer: d.Importer,
		jobQueue: d.Queue,
		wsHub:    hub,
		ping:     d.Ping,
		version:  d.Version,
		limiter:  newIPLimiter(d.Config.RateLimitRPS, d.Config.RateLimitBurst),
		router:   http.NewServeMux(),
	}
	proxies, bad := parseProxies(d.Config.TrustedProxies)
	if len(bad) > 0 && s.log != nil {
		s.log.WithField("entries", bad).Warn("ignoring unparseable trusted proxies")
	}
	s.proxies = proxies
	s.setupRoutes()
	return s
}

func (s *Server) WSHub() *WSHub {
	return s.wsHub
}

func (s *Server) setupRoutes() {
	// Public
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.Handle("GET /metrics", metrics.Handler())
	if s.uploadFS != nil {
		files := http.StripPrefix("/uploads/", http.FileServer(afero.NewHttpFs(s.uploadFS).Dir("/")))
		s.router.Handle("GET /uploads/", files)
	}

	// Auth
	s.router.HandleFunc("POST /api/auth/register", s.rateLimited(s.handleRegister))
	s.router.HandleFunc("POST /api/auth/login", s.rateLimited(s.handleLogin))
	s.router.HandleFunc("POST /api/auth/refresh", s.rateLimited(s.handleRefresh))
	s.router.HandleFunc("POST /api/auth/admin-login", s.rateLimited(s.handleAdminLogin))
	s.router.HandleFunc("POST /api/auth/logout", s.authMiddleware(s.handleLogout, models.RoleUser))
	s.router.HandleFunc("GET /api/auth/me", s.authMiddleware(s.handleMe, models.RoleUser))
	s.router.HandleFunc("PUT /api/auth/password", s.authMiddleware(s.handleChangePassword, models.RoleUser))
	s.router.HandleFunc("PUT /api/auth/preferences", s.authMiddleware(s.handleUpdatePreferences, models.RoleUser))

	// Watchlist
	s.router.HandleFunc("GET /api/auth/watchlist", s.authMiddleware(s.handleGetWatchlist, models.RoleUser))
	s.router.HandleFunc("POST /api/auth/watchlist", s.authMiddleware(s.handleAddToWatchlist, models.RoleUser))
	s.router.HandleFunc("DELETE /api/auth/watchlist/{type}/{id}", s.authMiddleware(s.handleRemoveFromWatchlist, models.RoleUser))

	// Movies
	s.router.HandleFunc("GET /api/movies", s.optionalAuth(s.handleListMovies))
	s.router.HandleFunc("POST /api/movies", s.authMiddleware(s.handleCreateMovie, models.RoleModerator))
	s.router.HandleFunc("GET /api/movies/{idOrSlug}", s.optionalAuth(s.handleGetMovie))
	s.router.HandleFunc("PUT /api/movies/{idOrSlug}", s.authMiddleware(s.handleUpdateMovie, models.RoleUser))
	s.router.HandleFunc("DELETE /api/movies/{idOrSlug}", s.authMiddleware(s.handleDeleteMovie, models.RoleUser))
	s.router.HandleFunc("POST /api/movies/{idOrSlug}/view", s.rateLimited(s.handleMovieCounter(repository.CounterViews)))
	s.router.HandleFunc("POST /api/movies/{idOrSlug}/like", s.rateLimited(s.handleMovieCounter(repository.CounterLikes)))
	s.router.HandleFunc("POST /api/movies/{idOrSlug}/download", s.rateLimited(s.handleMovieCounter(repository.CounterDownloads)))

	// Series
	s.router.HandleFunc("GET /api/series", s.optionalAuth(s.handleListSeries))
	s.router.HandleFunc("POST /api/series", s.authMiddleware(s.handleCreateSeries, models.RoleModerator))
	s.router.HandleFunc("GET /api/series/{idOrSlug}", s.optionalAuth(s.handleGetSeries))
	s.router.HandleFunc("PUT /api/series/{idOrSlug}", s.authMiddleware(s.handleUpdateSeries, models.RoleUser))
	s.router.HandleFunc("DELETE /api/series/{idOrSlug}", s.authMiddleware(s.handleDeleteSeries, models.RoleUser))
	s.router.HandleFunc("POST /api/series/{idOrSlug}/view", s.rateLimited(s.handleSeriesCounter(repository.CounterViews)))
	s.router.HandleFunc("POST /api/series/{idOrSlug}/like", s.rateLimited(s.handleSeriesCounter(repository.CounterLikes)))

	// Seasons and episodes
	s.router.HandleFunc("POST /api/series/{idOrSlug}/season", s.authMiddleware(s.handleAddSeason, models.RoleUser))
	s.router.HandleFunc("PUT /api/series/{idOrSlug}/season/{n}", s.authMiddleware(s.handleUpdateSeason, models.RoleUser))
	s.router.HandleFunc("DELETE /api/series/{idOrSlug}/season/{n}", s.authMiddleware(s.handleRemoveSeason, models.RoleUser))
	s.router.HandleFunc("POST /api/series/{idOrSlug}/season/{n}/episode", s.authMiddleware(s.handleAddEpisode, models.RoleUser))
	s.router.HandleFunc("GET /api/series/{idOrSlug}/season/{n}/episode/{m}", s.optionalAuth(s.handleGetEpisode))
	s.router.HandleFunc("PUT /api/series/{idOrSlug}/season/{n}/episode/{m}", s.authMiddleware(s.handleUpdateEpisode, models.RoleUser))
	s.router.HandleFunc("DELETE /api/series/{idOrSlug}/season/{n}/episode/{m}", s.authMiddleware(s.handleRemoveEpisode, models.RoleUser))
	s.router.HandleFunc("POST /api/series/{idOrSlug}/season/{n}/episode/{m}/view", s.rateLimited(s.handleEpisodeView))

	// Merged content
	s.router.HandleFunc("GET /api/content", s.optionalAuth(s.handleListContent))
	s.router.HandleFunc("GET /api/content/trending", s.optionalAuth(s.handleTrending))
	s.router.HandleFunc("GET /api/content/featured", s.optionalAuth(s.handleFeatured))
	s.router.HandleFunc("GET /api/content/recommendations/{id}", s.handleRecommendations)
	s.router.HandleFunc("GET /api/search", s.optionalAuth(s.handleSearch))
	s.router.HandleFunc("GET /api/search/suggestions", s.handleSuggestions)

	// Ads
	s.router.HandleFunc("GET /api/ads/placement/{placement}", s.handleAdsForPlacement)
	s.router.HandleFunc("POST /api/ads/{id}/impression", s.rateLimited(s.handleAdImpression))
	s.router.HandleFunc("POST /api/ads/{id}/click", s.rateLimited(s.handleAdClick))
	s.router.HandleFunc("GET /api/ads", s.authMiddleware(s.handleListAds, models.RoleAdmin))
	s.router.HandleFunc("POST /api/ads", s.authMiddleware(s.handleCreateAd, models.RoleAdmin))
	s.router.HandleFunc("GET /api/ads/{id}", s.authMiddleware(s.handleGetAd, models.RoleAdmin))
	s.router.HandleFunc("PUT /api/ads/{id}", s.authMiddleware(s.handleUpdateAd, models.RoleAdmin))
	s.router.HandleFunc("DELETE /api/ads/{id}", s.authMiddleware(s.handleDeleteAd, models.RoleAdmin))

	// Uploads
	s.router.HandleFunc("POST /api/upload/image", s.authMiddleware(s.handleUploadImage, models.RoleModerator))

	// Admin
	s.router.HandleFunc("GET /api/admin/stats", s.authMiddleware(s.handleAdminStats, models.RoleAdmin))
	s.router.HandleFunc("GET /api/admin/users", s.authMiddleware(s.handleListUsers, models.RoleAdmin))
	s.router.HandleFunc("PUT /api/admin/users/{id}/role", s.authMiddleware(s.handleSetUserRole, models.RoleAdmin))
	s.router.HandleFunc("POST /api/admin/import/movie/{tmdbId}", s.authMiddleware(s.handleImport(jobs.TaskImportMovie), models.RoleAdmin))
	s.router.HandleFunc("POST /api/admin/import/series/{tmdbId}", s.authMiddleware(s.handleImport(jobs.TaskImportSeries), models.RoleAdmin))

	// WebSocket
	s.router.HandleFunc("GET /api/admin/ws", s.handleWebSocket)
}

// Handler is the router wrapped in the global middleware chain:
// logging → metrics → panic recovery → security headers → CORS → routes.
func (s *Server) Handler() http.Handler {
	return s.loggingMiddleware(metrics.Middleware(telemetry.Recover(s.securityHeadersMiddleware(s.corsMiddleware(s.router)), s.respondPanic)))
}

func (s *Server) respondPanic(w http.ResponseWriter, r *http.Request, err error) {
	s.log.WithError(err).WithField("path", r.URL.Path).Error("handler panic")
	s.respondError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.WithField("addr", s.http.Addr).Info("http server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{"status": "ok", "time": time.Now().UTC()}
	if s.version != "" {
		status["version"] = s.version
	}
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			status["status"] = "degraded"
			status["database"] = "unreachable"
			s.respondJSON(w, http.StatusServiceUnavailable, "store unavailable", status)
			return
		}
		status["database"] = "ok"
	}
	s.respondJSON(w, http.StatusOK, "", status)
}
