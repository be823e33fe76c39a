package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anikkhan0099/moviehubbd/internal/models"
	"github.com/anikkhan0099/moviehubbd/internal/query"
	"github.com/anikkhan0099/moviehubbd/internal/repository"
)

var (
	_ repository.MovieStore  = (*Movies)(nil)
	_ repository.SeriesStore = (*Series)(nil)
	_ repository.UserStore   = (*Users)(nil)
	_ repository.AdStore     = (*Ads)(nil)
)

func movie(title string, year int, genres ...string) *models.Movie {
	m := &models.Movie{Content: models.Content{
		Title: title, ReleaseYear: year, Genres: genres, Language: []string{"English"},
		AdminStatus: models.AdminPublished,
	}}
	m.ApplySlug(nil, false)
	return m
}

func TestMovieUniqueKeys(t *testing.T) {
	ctx := context.Background()
	st := New()
	require.NoError(t, st.Movies.Create(ctx, movie("The Matrix", 1999)))

	err := st.Movies.Create(ctx, movie("The Matrix", 1999))
	require.ErrorIs(t, err, repository.ErrConflict)

	tmdb := 603
	a := movie("Alpha", 2001)
	a.TMDbID = &tmdb
	require.NoError(t, st.Movies.Create(ctx, a))
	b := movie("Beta", 2001)
	b.TMDbID = &tmdb
	assert.ErrorIs(t, st.Movies.Create(ctx, b), repository.ErrConflict)

	got, err := st.Movies.GetByTMDbID(ctx, 603)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = st.Movies.GetBySlug(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMovieReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	st := New()
	m := movie("Heat", 1995, "Crime")
	require.NoError(t, st.Movies.Create(ctx, m))

	got, err := st.Movies.Get(ctx, m.ID)
	require.NoError(t, err)
	got.Genres[0] = "Mutated"

	again, err := st.Movies.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Crime", again.Genres[0])
}

func TestListFilterSortPage(t *testing.T) {
	ctx := context.Background()
	st := New()
	for i, title := range []string{"Charlie", "alpha", "Bravo", "Delta"} {
		m := movie(title, 2000+i, "Action")
		if title == "Delta" {
			m.Genres = []string{"Drama"}
		}
		require.NoError(t, st.Movies.Create(ctx, m))
	}
	opts := repository.ListOptions{
		Filter: query.Filter{Genres: []string{"Action"}},
		Sort:   query.BuildSort(query.SortAlphabetical, ""),
		Limit:  2,
		Offset: 1,
	}
	list, err := st.Movies.List(ctx, opts)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Bravo", list[0].Title)
	assert.Equal(t, "Charlie", list[1].Title)

	n, err := st.Movies.Count(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRelatedPredicate(t *testing.T) {
	ctx := context.Background()
	st := New()
	src := movie("Source", 2010, "Drama")
	near := movie("Near Year", 2012, "Horror")
	near.Language = []string{"Korean"}
	far := movie("Far", 1980, "Horror")
	far.Language = []string{"Korean"}
	genre := movie("Genre", 1970, "Drama")
	genre.Language = []string{"French"}
	for _, m := range []*models.Movie{src, near, far, genre} {
		require.NoError(t, st.Movies.Create(ctx, m))
	}
	list, err := st.Movies.List(ctx, repository.ListOptions{
		Related:   &repository.Related{Genres: src.Genres, Language: []string{"Tamil"}, Year: 2010, YearSpan: 2},
		ExcludeID: src.ID,
		Sort:      query.BuildSort(query.SortAlphabetical, ""),
	})
	require.NoError(t, err)
	var titles []string
	for _, m := range list {
		titles = append(titles, m.Title)
	}
	assert.Equal(t, []string{"Genre", "Near Year"}, titles)
}

func TestConcurrentCountersDoNotLoseIncrements(t *testing.T) {
	ctx := context.Background()
	st := New()
	m := movie("Busy", 2020)
	require.NoError(t, st.Movies.Create(ctx, m))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = st.Movies.IncrementCounter(ctx, m.ID, repository.CounterViews, 1)
		}()
	}
	wg.Wait()

	got, err := st.Movies.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 50, got.Views)
	assert.ErrorIs(t, st.Movies.IncrementCounter(ctx, m.ID, "title", 1), repository.ErrInvalidCounter)
}

func TestSeriesSaveRecounts(t *testing.T) {
	ctx := context.Background()
	st := New()
	s := &models.Series{Content: models.Content{Title: "Dark", ReleaseYear: 2017}}
	s.ApplySlug(nil, false)
	s.Seasons = []models.Season{{SeasonNumber: 1, Episodes: []models.Episode{{EpisodeNumber: 1, Title: "Secrets"}}}}
	s.NumberOfEpisodes = 99
	require.NoError(t, st.Series.Create(ctx, s))

	got, err := st.Series.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.NumberOfSeasons)
	assert.Equal(t, 1, got.NumberOfEpisodes)

	epID := got.Seasons[0].Episodes[0].ID
	require.NoError(t, st.Series.IncrementEpisodeViews(ctx, s.ID, epID, 3))
	got, _ = st.Series.Get(ctx, s.ID)
	assert.EqualValues(t, 3, got.Seasons[0].Episodes[0].Views)
	assert.ErrorIs(t, st.Series.IncrementEpisodeViews(ctx, s.ID, uuid.New(), 1), repository.ErrNotFound)
}

func TestSeriesUpdateKeepsEpisodeViews(t *testing.T) {
	ctx := context.Background()
	st := New()
	s := &models.Series{Content: models.Content{Title: "Dark", ReleaseYear: 2017}}
	s.ApplySlug(nil, false)
	s.Seasons = []models.Season{{SeasonNumber: 1, Episodes: []models.Episode{{EpisodeNumber: 1, Title: "Secrets"}}}}
	require.NoError(t, st.Series.Create(ctx, s))

	read, err := st.Series.Get(ctx, s.ID)
	require.NoError(t, err)
	epID := read.Seasons[0].Episodes[0].ID
	require.NoError(t, st.Series.IncrementEpisodeViews(ctx, s.ID, epID, 4))

	read.Title = "Dark (2017)"
	read.Seasons[0].Episodes[0].Views = 999999
	read.Seasons[0].Episodes = append(read.Seasons[0].Episodes, models.Episode{EpisodeNumber: 2, Views: 7})
	require.NoError(t, st.Series.Update(ctx, read))

	got, err := st.Series.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dark (2017)", got.Title)
	require.Len(t, got.Seasons[0].Episodes, 2)
	assert.EqualValues(t, 4, got.Seasons[0].Episodes[0].Views)
	assert.Zero(t, got.Seasons[0].Episodes[1].Views)
}

func TestUsersEmailCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	st := New()
	u := &models.User{Username: "neo", Email: "Neo@Example.com", Role: models.RoleUser, PasswordHash: "h"}
	require.NoError(t, st.Users.Create(ctx, u))
	assert.Equal(t, "neo@example.com", u.Email)

	dup := &models.User{Username: "other", Email: "NEO@example.com", Role: models.RoleUser}
	err := st.Users.Create(ctx, dup)
	var ce *repository.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "email", ce.Key)

	got, err := st.Users.GetByEmail(ctx, " neo@EXAMPLE.com ")
	require.NoError(t, err)
	assert.Equal(t, "h", got.PasswordHash, "secrets survive the copy")

	require.NoError(t, st.Users.SetRefreshToken(ctx, u.ID, "r"))
	require.NoError(t, st.Users.SetPassword(ctx, u.ID, "h2"))
	got, _ = st.Users.Get(ctx, u.ID)
	assert.Empty(t, got.RefreshTokenHash)
}

func TestWatchlist(t *testing.T) {
	ctx := context.Background()
	st := New()
	u := &models.User{Username: "trinity", Email: "t@example.com", Role: models.RoleUser}
	require.NoError(t, st.Users.Create(ctx, u))
	ref := models.MovieRef(uuid.New())
	entry := models.WatchlistEntry{ContentRef: ref, AddedAt: time.Now()}

	require.NoError(t, st.Users.AddToWatchlist(ctx, u.ID, entry))
	assert.ErrorIs(t, st.Users.AddToWatchlist(ctx, u.ID, entry), repository.ErrConflict)

	got, _ := st.Users.Get(ctx, u.ID)
	require.Len(t, got.Watchlist, 1)
	require.NoError(t, st.Users.RemoveFromWatchlist(ctx, u.ID, ref))
	assert.ErrorIs(t, st.Users.RemoveFromWatchlist(ctx, u.ID, ref), repository.ErrNotFound)
}

func TestAdsScheduled(t *testing.T) {
	ctx := context.Background()
	st := New()
	now := time.Now()
	past, future := now.Add(-time.Hour), now.Add(time.Hour)
	ads := []*models.Ad{
		{Name: "low", Placement: models.PlacementHeader, IsActive: true, Priority: 2, StartDate: &past},
		{Name: "high", Placement: models.PlacementHeader, IsActive: true, Priority: 9, StartDate: &past},
		{Name: "later", Placement: models.PlacementHeader, IsActive: true, Priority: 10, StartDate: &future},
		{Name: "off", Placement: models.PlacementHeader, IsActive: false, Priority: 10},
		{Name: "footer", Placement: models.PlacementFooter, IsActive: true, Priority: 10},
	}
	for _, a := range ads {
		require.NoError(t, st.Ads.Create(ctx, a))
	}
	got, err := st.Ads.Scheduled(ctx, models.PlacementHeader, now)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "high", got[0].Name)
	assert.Equal(t, "low", got[1].Name)

	list, total, err := st.Ads.List(ctx, repository.AdListOptions{Page: query.NewPage(1, 2)})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, list, 2)
}
