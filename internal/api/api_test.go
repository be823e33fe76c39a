package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anikkhan0099/moviehubbd/internal/ads"
	"github.com/anikkhan0099/moviehubbd/internal/auth"
	"github.com/anikkhan0099/moviehubbd/internal/catalog"
	"github.com/anikkhan0099/moviehubbd/internal/config"
	"github.com/anikkhan0099/moviehubbd/internal/counters"
	"github.com/anikkhan0099/moviehubbd/internal/logging"
	"github.com/anikkhan0099/moviehubbd/internal/metadata"
	"github.com/anikkhan0099/moviehubbd/internal/models"
	"github.com/anikkhan0099/moviehubbd/internal/repository"
	"github.com/anikkhan0099/moviehubbd/internal/store/memory"
	"github.com/anikkhan0099/moviehubbd/internal/upload"
	"github.com/anikkhan0099/moviehubbd/internal/users"
)

// ──────────────────── Harness ────────────────────

type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  []models.FieldError `json:"errors"`
	Error   string              `json:"error"`
}

type fakeImporter struct {
	err   error
	calls []metadata.Options
}

func (f *fakeImporter) ImportMovie(_ context.Context, tmdbID int, opts metadata.Options) (*metadata.MovieResult, error) {
	f.calls = append(f.calls, opts)
	if f.err != nil {
		return nil, f.err
	}
	id := tmdbID
	return &metadata.MovieResult{Movie: &models.Movie{Content: models.Content{Title: "The Matrix", TMDbID: &id}}, Created: true}, nil
}

func (f *fakeImporter) ImportSeries(_ context.Context, tmdbID int, opts metadata.Options) (*metadata.SeriesResult, error) {
	f.calls = append(f.calls, opts)
	if f.err != nil {
		return nil, f.err
	}
	return &metadata.SeriesResult{Series: &models.Series{Content: models.Content{Title: "Dark"}}}, nil
}

type testEnv struct {
	t        *testing.T
	server   *Server
	handler  http.Handler
	stores   repository.Stores
	users    *users.Service
	importer *fakeImporter
}

func newEnv(t *testing.T, tweak func(*config.Config, *Deps)) *testEnv {
	t.Helper()
	cfg := &config.Config{
		AppEnv:         "test",
		ImageBaseURL:   "https://img.test/w500",
		UploadMaxBytes: 1 << 20,
		MaxFeedSize:    100,
		RateLimitRPS:   0,
		RateLimitBurst: 1,
	}
	log := logging.Discard()
	stores := memory.New()
	issuer, err := auth.NewIssuer("test-secret", time.Minute, time.Hour)
	require.NoError(t, err)
	cat := catalog.NewService(stores.Movies, stores.Series, catalog.Options{ImageBaseURL: cfg.ImageBaseURL, MaxFeedSize: cfg.MaxFeedSize})
	rec := counters.NewDirect(stores)
	sink := upload.NewDiskSink(afero.NewMemMapFs(), "", "/uploads")
	im := &fakeImporter{}
	d := Deps{
		Config:   cfg,
		Log:      log,
		Stores:   stores,
		Catalog:  cat,
		Users:    users.NewService(stores.Users, issuer, cat, "admin-key", log),
		Ads:      ads.NewService(stores.Ads, rec),
		Issuer:   issuer,
		Counters: rec,
		Uploads:  upload.NewService(sink, cfg.UploadMaxBytes),
		UploadFS: sink.FS(),
		Importer: im,
	}
	if tweak != nil {
		tweak(cfg, &d)
	}
	s := NewServer(d)
	return &testEnv{t: t, server: s, handler: s.Handler(), stores: stores, users: d.Users, importer: im}
}

func (e *testEnv) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	e.t.Helper()
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(e.t, err)
		rd = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

// login registers name and returns an access token carrying role.
func (e *testEnv) login(name string, role models.UserRole) string {
	e.t.Helper()
	ctx := context.Background()
	sess, err := e.users.Register(ctx, users.Registration{Username: name, Email: name + "@example.com", Password: "secret12"})
	require.NoError(e.t, err)
	if role != models.RoleUser {
		_, err = e.users.SetRole(ctx, sess.User.ID, role)
		require.NoError(e.t, err)
		sess, err = e.users.Login(ctx, name+"@example.com", "secret12")
		require.NoError(e.t, err)
	}
	return sess.AccessToken
}

func moviePayload(title string, status models.AdminStatus) map[string]interface{} {
	return map[string]interface{}{
		"title":       title,
		"overview":    "A hacker learns the truth about his world.",
		"posterPath":  "/poster.jpg",
		"releaseYear": 1999,
		"genres":      []string{"Action", "Sci-Fi"},
		"language":    []string{"English"},
		"adminStatus": status,
	}
}

func (e *testEnv) createMovie(token, title string, status models.AdminStatus) models.Movie {
	e.t.Helper()
	rec, env := e.do(http.MethodPost, "/api/movies", token, moviePayload(title, status))
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Movie](e.t, env.Data)
}

// ──────────────────── Health & envelope ────────────────────

func TestHealth(t *testing.T) {
	env := newEnv(t, nil)
	rec, body := env.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	down := newEnv(t, func(_ *config.Config, d *Deps) {
		d.Ping = func(context.Context) error { return errors.New("connection refused") }
	})
	rec, body = down.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	status := decode[map[string]interface{}](t, body.Data)
	assert.Equal(t, "unreachable", status["database"])
}

func TestErrorEnvelopeHidesInternalsInProduction(t *testing.T) {
	for _, tc := range []struct {
		env      string
		wantText string
	}{
		{"development", "pq: relation missing"},
		{"production", ""},
	} {
		t.Run(tc.env, func(t *testing.T) {
			env := newEnv(t, func(c *config.Config, _ *Deps) { c.AppEnv = tc.env })
			rec := httptest.NewRecorder()
			env.server.respondErr(rec, httptest.NewRequest(http.MethodGet, "/x", nil), errors.New("pq: relation missing"))
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			var body envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, "Internal Server Error", body.Message)
			assert.Equal(t, tc.wantText, body.Error)
		})
	}
}

func TestStatusOf(t *testing.T) {
	cases := map[error]int{
		&models.ValidationError{Fields: []models.FieldError{{Field: "title"}}}: http.StatusBadRequest,
		badParam("n"):                                   http.StatusBadRequest,
		auth.ErrTokenExpired:                            http.StatusUnauthorized,
		errForbidden:                                    http.StatusForbidden,
		repository.ErrNotFound:                          http.StatusNotFound,
		models.ErrEpisodeNotFound:                       http.StatusNotFound,
		&repository.ConflictError{Key: "slug"}:          http.StatusConflict,
		models.ErrSeasonExists:                          http.StatusConflict,
		upload.ErrTooLarge:                              http.StatusRequestEntityTooLarge,
		metadata.ErrNoAPIKey:                            http.StatusServiceUnavailable,
		errors.New("boom"):                              http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusOf(err), err.Error())
	}
}

// ──────────────────── Auth ────────────────────

func TestRegisterLoginAndMe(t *testing.T) {
	env := newEnv(t, nil)
	rec, body := env.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "trinity", "email": "trinity@example.com", "password": "secret12",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sess := decode[users.Session](t, body.Data)
	assert.NotEmpty(t, sess.AccessToken)
	assert.NotEmpty(t, sess.RefreshToken)

	rec, body = env.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "t", "email": "bad", "password": "1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, body.Errors)

	rec, body = env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "trinity@example.com", "password": "secret12"})
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode[users.Session](t, body.Data).AccessToken

	rec, body = env.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "trinity", decode[models.User](t, body.Data).Username)

	rec, _ = env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "trinity@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = env.do(http.MethodGet, "/api/auth/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshRotatesTokens(t *testing.T) {
	env := newEnv(t, nil)
	_, body := env.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "morpheus", "email": "morpheus@example.com", "password": "secret12",
	})
	first := decode[users.Session](t, body.Data)

	rec, body := env.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": first.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decode[users.Session](t, body.Data)
	assert.NotEmpty(t, second.RefreshToken)

	rec, _ = env.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoleGating(t *testing.T) {
	env := newEnv(t, nil)
	user := env.login("neo", models.RoleUser)
	mod := env.login("smith", models.RoleModerator)

	rec, _ := env.do(http.MethodPost, "/api/movies", "", moviePayload("The Matrix", models.AdminPublished))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = env.do(http.MethodPost, "/api/movies", user, moviePayload("The Matrix", models.AdminPublished))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = env.do(http.MethodGet, "/api/admin/stats", mod, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	m := env.createMovie(mod, "The Matrix", models.AdminPublished)
	assert.Equal(t, "the-matrix-1999", m.Slug)
	assert.Equal(t, "https://img.test/w500/poster.jpg", m.PosterURL)
}

func TestWatchlist(t *testing.T) {
	env := newEnv(t, nil)
	mod := env.login("smith", models.RoleModerator)
	user := env.login("neo", models.RoleUser)
	m := env.createMovie(mod, "The Matrix", models.AdminPublished)

	rec, _ := env.do(http.MethodPost, "/api/auth/watchlist", user, map[string]string{"contentType": "movie", "contentId": m.ID.String()})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, body := env.do(http.MethodGet, "/api/auth/watchlist", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.WatchlistEntry](t, body.Data), 1)

	rec, _ = env.do(http.MethodDelete, "/api/auth/watchlist/movie/"+m.ID.String(), user, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(http.MethodPost, "/api/auth/watchlist", user, map[string]string{"contentType": "movie", "contentId": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ──────────────────── Movies ────────────────────

func TestMovieOwnership(t *testing.T) {
	env := newEnv(t, nil)
	owner := env.login("smith", models.RoleModerator)
	other := env.login("jones", models.RoleModerator)
	admin := env.login("oracle", models.RoleAdmin)
	m := env.createMovie(owner, "The Matrix", models.AdminPublished)

	rec, _ := env.do(http.MethodPut, "/api/movies/"+m.Slug, other, map[string]string{"director": "Someone Else"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := env.do(http.MethodPut, "/api/movies/"+m.Slug, owner, map[string]interface{}{"title": "The Matrix Reloaded", "views": 999})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[models.Movie](t, body.Data)
	assert.Equal(t, "the-matrix-reloaded-1999", updated.Slug)
	assert.Equal(t, int64(0), updated.Views, "counters are not client editable")
	assert.Equal(t, m.ID, updated.ID)

	rec, _ = env.do(http.MethodPut, "/api/movies/"+m.ID.String(), admin, map[string]string{"director": "The Wachowskis"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(http.MethodDelete, "/api/movies/"+m.ID.String(), other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = env.do(http.MethodDelete, "/api/movies/"+m.ID.String(), owner, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = env.do(http.MethodGet, "/api/movies/"+m.ID.String(), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMovieSlugConflict(t *testing.T) {
	env := newEnv(t, nil)
	mod := env.login("smith", models.RoleModerator)
	env.createMovie(mod, "The Matrix", models.AdminPublished)

	rec, body := env.do(http.MethodPost, "/api/movies", mod, moviePayload("The Matrix", models.AdminPublished))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "slug already exists", body.Message)
}

func TestMovieValidation(t *testing.T) {
	env := newEnv(t, nil)
	mod := env.login("smith", models.RoleModerator)
	payload := moviePayload("", models.AdminPublished)
	payload["releaseYear"] = 1800
	rec, body := env.do(http.MethodPost, "/api/movies", mod, payload)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation failed", body.Message)
	fields := map[string]bool{}
	for _, fe := range body.Errors {
		fields[fe.Field] = true
	}
	assert.True(t, fields["title"])
	assert.True(t, fields["releaseYear"])

	req := httptest.NewRequest(http.MethodPost, "/api/movies", strings.NewReader("title=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+mod)
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDraftVisibility(t *testing.T) {
	env := newEnv(t, nil)
	owner := env.login("smith", models.RoleModerator)
	other := env.login("neo", models.RoleUser)
	admin := env.login("oracle", models.RoleAdmin)
	draft := env.createMovie(owner, "Draft Movie", models.AdminDraft)
	env.createMovie(owner, "Live Movie", models.AdminPublished)

	rec, _ := env.do(http.MethodGet, "/api/movies/"+draft.Slug, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = env.do(http.MethodGet, "/api/movies/"+draft.Slug, other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = env.do(http.MethodGet, "/api/movies/"+draft.Slug, owner, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body := env.do(http.MethodGet, "/api/content", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	feed := decode[struct {
		Items []map[string]interface{} `json:"items"`
	}](t, body.Data)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, "Live Movie", feed.Items[0]["title"])
	assert.Equal(t, "movie", feed.Items[0]["contentType"])

	// Only admins can ask for drafts.
	_, body = env.do(http.MethodGet, "/api/movies?adminStatus=Draft", other, nil)
	feed = decode[struct {
		Items []map[string]interface{} `json:"items"`
	}](t, body.Data)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, "Live Movie", feed.Items[0]["title"])

	_, body = env.do(http.MethodGet, "/api/movies?adminStatus=Draft", admin, nil)
	feed = decode[struct {
		Items []map[string]interface{} `json:"items"`
	}](t, body.Data)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, "Draft Movie", feed.Items[0]["title"])
}

func TestMovieCounters(t *testing.T) {
	env := newEnv(t, nil)
	mod := env.login("smith", models.RoleModerator)
	m := env.createMovie(mod, "The Matrix", models.AdminPublished)

	for i := 0; i < 3; i++ {
		rec, _ := env.do(http.MethodPost, "/api/movies/"+m.Slug+"/view", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, _ := env.do(http.MethodPost, "/api/movies/"+m.Slug+"/like", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := env.stores.Movies.Get(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stored.Views)
	assert.Equal(t, int64(1), stored.Likes)

	rec, _ = env.do(http.MethodPost, "/api/movies/missing-slug/view", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCounterRateLimit(t *testing.T) {
	env := newEnv(t, func(c *config.Config, _ *Deps) {
		c.RateLimitRPS = 0.001
		c.RateLimitBurst = 1
	})
	mod := env.login("smith", models.RoleModerator)
	m := env.createMovie(mod, "The Matrix", models.AdminPublished)

	rec, _ := env.do(http.MethodPost, "/api/movies/"+m.Slug+"/view", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, body := env.do(http.MethodPost, "/api/movies/"+m.Slug+"/view", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.False(t, body.Success)
}

// ──────────────────── Series ────────────────────

func TestSeriesSeasonEpisodeFlow(t *testing.T) {
	env := newEnv(t, nil)
	mod := env.login("smith", models.RoleModerator)
	other := env.login("jones", models.RoleModerator)

	payload := moviePayload("Dark", models.AdminPublished)
	payload["releaseYear"] = 2017
	rec, body := env.do(http.MethodPost, "/api/series", mod, payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sr := decode[models.Series](t, body.Data)
	assert.Equal(t, "dark-2017", sr.Slug)
	base := "/api/series/" + sr.Slug

	rec, _ = env.do(http.MethodPost, base+"/season", other, map[string]interface{}{"seasonNumber": 1})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = env.do(http.MethodPost, base+"/season", mod, map[string]interface{}{"seasonNumber": 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	added := decode[struct {
		Result          models.Season `json:"result"`
		NumberOfSeasons int           `json:"numberOfSeasons"`
	}](t, body.Data)
	assert.Equal(t, "Season 1", added.Result.Name)
	assert.Equal(t, 1, added.NumberOfSeasons)

	rec, _ = env.do(http.MethodPost, base+"/season", mod, map[string]interface{}{"seasonNumber": 1})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec, _ = env.do(http.MethodPost, base+"/season", mod, map[string]interface{}{"name": "no number"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, n := range []int{2, 1} {
		rec, _ = env.do(http.MethodPost, base+"/season/1/episode", mod, map[string]interface{}{"episodeNumber": n, "title": "Episode"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	rec, _ = env.do(http.MethodPost, base+"/season/1/episode", mod, map[string]interface{}{"episodeNumber": 1, "title": "Again"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec, _ = env.do(http.MethodPost, base+"/season/9/episode", mod, map[string]interface{}{"episodeNumber": 1, "title": "Lost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = env.do(http.MethodPut, base+"/season/1/episode/2", mod, map[string]interface{}{"title": "Lies"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, body = env.do(http.MethodGet, base+"/season/1/episode/2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[struct {
		Episode models.Episode `json:"episode"`
	}](t, body.Data)
	assert.Equal(t, "Lies", got.Episode.Title)

	rec, _ = env.do(http.MethodPost, base+"/season/1/episode/2/view", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := env.stores.Series.Get(context.Background(), sr.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.NumberOfSeasons)
	assert.Equal(t, 2, stored.NumberOfEpisodes)
	require.Len(t, stored.Seasons[0].Episodes, 2)
	assert.Equal(t, 1, stored.Seasons[0].Episodes[0].EpisodeNumber)
	assert.Equal(t, int64(1), stored.Seasons[0].Episodes[1].Views)

	rec, body = env.do(http.MethodDelete, base+"/season/1/episode/1", mod, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode[map[string]interface{}](t, body.Data)["numberOfEpisodes"])

	rec, _ = env.do(http.MethodGet, base+"/season/x/episode/1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(http.MethodDelete, base+"/season/1", mod, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stored, err = env.stores.Series.Get(context.Background(), sr.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.NumberOfSeasons)
	assert.Equal(t, 0, stored.NumberOfEpisodes)
}

func TestUpdateSeriesReplacesSeasonsByNumber(t *testing.T) {
	env := newEnv(t, nil)
	mod := env.login("smith", models.RoleModerator)
	payload := moviePayload("Dark", models.AdminPublished)
	payload["releaseYear"] = 2017
	rec, body := env.do(http.MethodPost, "/api/series", mod, payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sr := decode[models.Series](t, body.Data)
	base := "/api/series/" + sr.Slug

	rec, _ = env.do(http.MethodPost, base+"/season", mod, map[string]interface{}{"seasonNumber": 1, "name": "Origins"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec, _ = env.do(http.MethodPost, base+"/season", mod, map[string]interface{}{"seasonNumber": 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	for _, n := range []int{1, 2} {
		rec, _ = env.do(http.MethodPost, base+"/season/1/episode", mod, map[string]interface{}{"episodeNumber": n, "title": "Episode"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	before, err := env.stores.Series.Get(context.Background(), sr.ID)
	require.NoError(t, err)
	season2 := before.Seasons[1].ID

	rec, _ = env.do(http.MethodPut, base, mod, map[string]interface{}{
		"seasons": []map[string]interface{}{{"seasonNumber": 2}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := env.stores.Series.Get(context.Background(), sr.ID)
	require.NoError(t, err)
	require.Len(t, stored.Seasons, 1)
	assert.Equal(t, 2, stored.Seasons[0].SeasonNumber)
	assert.Equal(t, season2, stored.Seasons[0].ID)
	assert.Equal(t, "Season 2", stored.Seasons[0].Name)
	assert.Empty(t, stored.Seasons[0].Episodes)
	assert.Equal(t, 1, stored.NumberOfSeasons)
	assert.Equal(t, 0, stored.NumberOfEpisodes)
	assert.Equal(t, "Dark", stored.Title)
}

func TestUpdateSeriesIgnoresClientEpisodeViews(t *testing.T) {
	env := newEnv(t, nil)
	mod := env.login("smith", models.RoleModerator)
	payload := moviePayload("Dark", models.AdminPublished)
	payload["releaseYear"] = 2017
	rec, body := env.do(http.MethodPost, "/api/series", mod, payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	base := "/api/series/" + decode[models.Series](t, body.Data).Slug

	rec, _ = env.do(http.MethodPost, base+"/season", mod, map[string]interface{}{"seasonNumber": 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec, _ = env.do(http.MethodPost, base+"/season/1/episode", mod, map[string]interface{}{"episodeNumber": 1, "title": "Secrets"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	for i := 0; i < 3; i++ {
		rec, _ = env.do(http.MethodPost, base+"/season/1/episode/1/view", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, _ = env.do(http.MethodPut, base, mod, map[string]interface{}{
		"seasons": []map[string]interface{}{{"seasonNumber": 1, "episodes": []map[string]interface{}{
			{"episodeNumber": 1, "title": "Secrets", "views": 999999},
		}}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec, _ = env.do(http.MethodPut, base+"/season/1/episode/1", mod, map[string]interface{}{"title": "Lies", "views": 999999})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, body = env.do(http.MethodGet, base+"/season/1/episode/1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[struct {
		Episode models.Episode `json:"episode"`
	}](t, body.Data)
	assert.Equal(t, "Lies", got.Episode.Title)
	assert.Equal(t, int64(3), got.Episode.Views)
}

func TestUpdateMovieReplacesCastWholesale(t *testing.T) {
	env := newEnv(t, nil)
	mod := env.login("smith", models.RoleModerator)
	payload := moviePayload("The Matrix", models.AdminPublished)
	payload["cast"] = []map[string]interface{}{
		{"name": "Keanu Reeves", "character": "Neo"},
		{"name": "Carrie-Anne Moss", "character": "Trinity"},
	}
	rec, body := env.do(http.MethodPost, "/api/movies", mod, payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	m := decode[models.Movie](t, body.Data)

	rec, _ = env.do(http.MethodPut, "/api/movies/"+m.Slug, mod, map[string]interface{}{
		"cast": []map[string]interface{}{{"name": "Laurence Fishburne"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := env.stores.Movies.Get(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Credit{{Name: "Laurence Fishburne"}}, stored.Cast)
	assert.Equal(t, "The Matrix", stored.Title)
	assert.Equal(t, []string{"Action", "Sci-Fi"}, stored.Genres)
}

// ──────────────────── Search ────────────────────

func TestSearch(t *testing.T) {
	env := newEnv(t, nil)
	mod := env.login("smith", models.RoleModerator)
	env.createMovie(mod, "The Matrix", models.AdminPublished)
	env.createMovie(mod, "Inception", models.AdminPublished)

	rec, body := env.do(http.MethodGet, "/api/search?q=m", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "q", body.Errors[0].Field)

	rec, body = env.do(http.MethodGet, "/api/search?q=matrix", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	feed := decode[struct {
		Items []map[string]interface{} `json:"items"`
	}](t, body.Data)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, "The Matrix", feed.Items[0]["title"])

	rec, _ = env.do(http.MethodGet, "/api/content?contentType=podcast", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHugePageNumbersReturnEmptyPages(t *testing.T) {
	env := newEnv(t, nil)
	mod := env.login("smith", models.RoleModerator)
	env.createMovie(mod, "The Matrix", models.AdminPublished)

	for _, path := range []string{
		"/api/content?page=9223372036854775807&limit=2",
		"/api/movies?page=4611686018427387904&limit=4",
		"/api/content/trending?page=9223372036854775807&limit=2",
		"/api/search?q=matrix&page=9223372036854775807",
	} {
		rec, body := env.do(http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, path+": "+rec.Body.String())
		feed := decode[struct {
			Items      []map[string]interface{} `json:"items"`
			Pagination map[string]interface{}   `json:"pagination"`
		}](t, body.Data)
		assert.Empty(t, feed.Items, path)
		assert.Equal(t, false, feed.Pagination["hasNextPage"], path)
	}
}

// ──────────────────── Ads ────────────────────

func TestCreateAdDefaultsToActive(t *testing.T) {
	env := newEnv(t, nil)
	admin := env.login("oracle", models.RoleAdmin)
	body := map[string]interface{}{"name": "Footer", "type": "Banner", "placement": "Footer", "code": "<div>ad</div>"}

	rec, resp := env.do(http.MethodPost, "/api/ads", admin, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, decode[models.Ad](t, resp.Data).IsActive)

	body["name"], body["isActive"] = "Paused", false
	rec, resp = env.do(http.MethodPost, "/api/ads", admin, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.False(t, decode[models.Ad](t, resp.Data).IsActive)

	rec, resp = env.do(http.MethodGet, "/api/ads/placement/Footer", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	served := decode[[]models.Ad](t, resp.Data)
	require.Len(t, served, 1)
	assert.Equal(t, "Footer", served[0].Name)
}

func TestAdsLifecycle(t *testing.T) {
	env := newEnv(t, nil)
	admin := env.login("oracle", models.RoleAdmin)

	rec, body := env.do(http.MethodPost, "/api/ads", admin, map[string]interface{}{
		"name":          "Header banner",
		"type":          "Banner",
		"placement":     "Header",
		"code":          "<div>ad</div>",
		"isActive":      true,
		"targetDevices": []string{"mobile"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ad := decode[models.Ad](t, body.Data)
	assert.Equal(t, 5, ad.Priority)

	rec, body = env.do(http.MethodGet, "/api/ads/placement/Header?device=mobile", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Ad](t, body.Data), 1)

	_, body = env.do(http.MethodGet, "/api/ads/placement/Header?device=desktop", "", nil)
	assert.Empty(t, decode[[]models.Ad](t, body.Data))

	rec, _ = env.do(http.MethodGet, "/api/ads/placement/Nowhere", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, action := range []string{"impression", "impression", "impression", "impression", "click"} {
		rec, _ = env.do(http.MethodPost, "/api/ads/"+ad.ID.String()+"/"+action, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, body = env.do(http.MethodGet, "/api/ads/"+ad.ID.String(), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[map[string]interface{}](t, body.Data)
	assert.Equal(t, float64(4), view["impressions"])
	assert.Equal(t, float64(25), view["ctr"])

	rec, body = env.do(http.MethodPut, "/api/ads/"+ad.ID.String(), admin, map[string]interface{}{"priority": 9, "impressions": 0})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view = decode[map[string]interface{}](t, body.Data)
	assert.Equal(t, float64(9), view["priority"])
	assert.Equal(t, float64(4), view["impressions"])

	rec, body = env.do(http.MethodGet, "/api/ads?placement=Header&active=true", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Items []map[string]interface{} `json:"items"`
	}](t, body.Data)
	assert.Len(t, list.Items, 1)

	rec, _ = env.do(http.MethodDelete, "/api/ads/"+ad.ID.String(), admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = env.do(http.MethodPost, "/api/ads/"+ad.ID.String()+"/click", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ──────────────────── Admin ────────────────────

func TestAdminUsersAndStats(t *testing.T) {
	env := newEnv(t, nil)
	admin := env.login("oracle", models.RoleAdmin)
	env.login("neo", models.RoleUser)

	rec, body := env.do(http.MethodGet, "/api/admin/users?limit=1", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[struct {
		Items      []models.User `json:"items"`
		Pagination struct {
			TotalItems int `json:"totalItems"`
			TotalPages int `json:"totalPages"`
		} `json:"pagination"`
	}](t, body.Data)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Pagination.TotalItems)
	assert.Equal(t, 2, page.Pagination.TotalPages)

	neo, err := env.stores.Users.GetByEmail(context.Background(), "neo@example.com")
	require.NoError(t, err)
	rec, _ = env.do(http.MethodPut, "/api/admin/users/"+neo.ID.String()+"/role", admin, map[string]string{"role": "moderator"})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = env.do(http.MethodPut, "/api/admin/users/"+neo.ID.String()+"/role", admin, map[string]string{"role": "root"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = env.do(http.MethodGet, "/api/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[map[string]interface{}](t, body.Data)
	assert.Contains(t, stats, "content")
}

func TestInlineImport(t *testing.T) {
	env := newEnv(t, nil)
	admin := env.login("oracle", models.RoleAdmin)

	rec, _ := env.do(http.MethodPost, "/api/admin/import/movie/603?publish=true", admin, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, env.importer.calls, 1)
	assert.True(t, env.importer.calls[0].Publish)
	assert.Equal(t, "import:movie:603", env.importer.calls[0].TaskID)

	// async without a queue falls back to running inline.
	rec, _ = env.do(http.MethodPost, "/api/admin/import/series/1399", admin, map[string]bool{"async": true, "update": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, env.importer.calls[1].Update)

	rec, _ = env.do(http.MethodPost, "/api/admin/import/movie/0", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.importer.err = metadata.ErrNotFound
	rec, _ = env.do(http.MethodPost, "/api/admin/import/movie/404", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ──────────────────── Uploads ────────────────────

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartUpload(t *testing.T, field string, data []byte, folder string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if folder != "" {
		require.NoError(t, mw.WriteField("folder", folder))
	}
	fw, err := mw.CreateFormFile(field, "poster.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestUploadImage(t *testing.T) {
	env := newEnv(t, nil)
	mod := env.login("smith", models.RoleModerator)

	send := func(body io.Reader, ct string) (*httptest.ResponseRecorder, envelope) {
		req := httptest.NewRequest(http.MethodPost, "/api/upload/image", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set("Authorization", "Bearer "+mod)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		var out envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
		return rec, out
	}

	body, ct := multipartUpload(t, "image", pngBytes(t, 4, 3), "Posters")
	rec, out := send(body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[upload.Result](t, out.Data)
	assert.True(t, strings.HasPrefix(res.URL, "/uploads/posters/"), res.URL)
	assert.Equal(t, 4, res.Width)
	assert.Equal(t, "image/png", res.MimeType)

	served := httptest.NewRecorder()
	env.handler.ServeHTTP(served, httptest.NewRequest(http.MethodGet, res.URL, nil))
	assert.Equal(t, http.StatusOK, served.Code)

	body, ct = multipartUpload(t, "image", []byte("plain text, not an image"), "")
	rec, _ = send(body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, ct = multipartUpload(t, "other", pngBytes(t, 1, 1), "")
	rec, _ = send(body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, ct = multipartUpload(t, "image", bytes.Repeat([]byte{0}, 2<<20), "")
	rec, _ = send(body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
