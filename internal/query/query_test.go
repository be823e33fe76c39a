package query

import (
	"net/url"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anikkhan0099/moviehubbd/internal/models"
)

func TestFilterGenresAnyOf(t *testing.T) {
	f := BuildFilter(url.Values{"genres": {"Action, Comedy"}})
	require.Equal(t, []string{"Action", "Comedy"}, f.Genres)

	assert.True(t, f.Matches(&models.Content{Genres: []string{"Action", "Thriller"}}))
	assert.False(t, f.Matches(&models.Content{Genres: []string{"Drama"}}))
}

func TestFilterDropsBlankAndUnknownKeys(t *testing.T) {
	f := BuildFilter(url.Values{
		"genres":   {" , ,"},
		"language": {"   "},
		"rating":   {"high"},
		"$where":   {"1=1"},
		"title":    {"injected"},
	})
	assert.True(t, f.IsZero())
	assert.True(t, f.Matches(&models.Content{}))
}

func TestFilterTypedKeys(t *testing.T) {
	f := BuildFilter(url.Values{
		"language":    {"English"},
		"releaseYear": {"1999"},
		"rating":      {"7.5"},
		"type":        {"Movie"},
		"quality":     {"1080p"},
		"adminStatus": {"Published"},
	})
	c := &models.Content{
		Language:    []string{"English", "Hindi"},
		ReleaseYear: 1999,
		Rating:      7.5,
		Type:        models.TypeMovie,
		Quality:     "1080p",
		AdminStatus: models.AdminPublished,
	}
	assert.True(t, f.Matches(c))

	lower := *c
	lower.Rating = 7.4
	assert.False(t, f.Matches(&lower))

	otherYear := *c
	otherYear.ReleaseYear = 2000
	assert.False(t, f.Matches(&otherYear))

	draft := *c
	draft.AdminStatus = models.AdminDraft
	assert.False(t, f.Matches(&draft))
}

func TestShortSearchMatchesEverything(t *testing.T) {
	docs := []*models.Content{{Title: "Alien"}, {Title: ""}, {Overview: "zzz"}}
	for _, term := range []string{"", " ", "a", "  x  ", "é"} {
		s := BuildSearch(term, ContentSearchFields)
		assert.False(t, s.Active(), "term %q", term)
		for _, d := range docs {
			assert.True(t, s.Matches(d), "term %q", term)
		}
	}
}

func TestSearchCaseInsensitiveSubstring(t *testing.T) {
	s := BuildSearch("  neo ", ContentSearchFields)
	require.True(t, s.Active())
	assert.Equal(t, "neo", s.Term)

	byCast := &models.Content{Title: "The Matrix", Cast: []models.Credit{{Name: "Keanu Reeves", Character: "NEO"}}}
	assert.False(t, s.Matches(byCast), "character is not in the default field set")

	s = BuildSearch("reeves", ContentSearchFields)
	assert.True(t, s.Matches(byCast))
	assert.True(t, BuildSearch("MATRIX", []string{"title"}).Matches(byCast))
	assert.False(t, BuildSearch("matrices", []string{"title"}).Matches(byCast))
}

func TestSearchSeriesFields(t *testing.T) {
	s := &models.Series{
		Content:  models.Content{Title: "Dark"},
		Creators: []models.Credit{{Name: "Baran bo Odar"}},
	}
	assert.True(t, BuildSearch("odar", SeriesSearchFields).Matches(s))
	assert.False(t, BuildSearch("odar", ContentSearchFields).Matches(s))
}

func TestSearchDropsUnknownFields(t *testing.T) {
	s := BuildSearch("hello", []string{"passwordHash"})
	assert.False(t, s.Active())
}

func TestBuildSort(t *testing.T) {
	assert.Equal(t, Sort{{Field: "createdAt", Desc: true}}, BuildSort("newest", "asc"))
	assert.Equal(t, Sort{{Field: "title"}}, BuildSort("alphabetical", ""))
	assert.Equal(t, Sort{
		{Field: "views", Desc: true}, {Field: "rating", Desc: true}, {Field: "createdAt", Desc: true},
	}, BuildSort("trending", ""))
	assert.Equal(t, Sort{{Field: "likes"}}, BuildSort("likes", "ASC"))
	assert.Equal(t, Sort{{Field: "imdbRating", Desc: true}}, BuildSort("imdbRating", "desc"))
	assert.Equal(t, BuildSort("newest", ""), BuildSort("passwordHash", "asc"))
}

func TestTrendingSortPrefersNewerOnTie(t *testing.T) {
	now := time.Now()
	older := &models.Content{Title: "old", Views: 10, Rating: 7, Likes: 3, CreatedAt: now.Add(-48 * time.Hour)}
	newer := &models.Content{Title: "new", Views: 10, Rating: 7, Likes: 3, CreatedAt: now}
	items := []*models.Content{older, newer}

	s := BuildSort(SortTrending, "")
	sort.SliceStable(items, func(i, j int) bool { return s.Less(items[i], items[j]) })
	assert.Equal(t, "new", items[0].Title)
}

func TestAlphabeticalIgnoresCase(t *testing.T) {
	items := []*models.Content{{Title: "beta"}, {Title: "Alpha"}, {Title: "gamma"}}
	s := BuildSort(SortAlphabetical, "")
	sort.SliceStable(items, func(i, j int) bool { return s.Less(items[i], items[j]) })
	assert.Equal(t, "Alpha", items[0].Title)
	assert.Equal(t, "gamma", items[2].Title)
}

func TestPaginateEmpty(t *testing.T) {
	for _, page := range []int{0, 1, 5} {
		for _, limit := range []int{0, 1, 12, 50} {
			p := Paginate(page, limit, 0)
			assert.Equal(t, 0, p.TotalPages)
			assert.False(t, p.HasNextPage)
			assert.False(t, p.HasPrevPage)
			assert.Nil(t, p.NextPage)
			assert.Nil(t, p.PrevPage)
		}
	}
}

func TestPaginateMiddlePage(t *testing.T) {
	p := Paginate(2, 10, 35)
	assert.Equal(t, 4, p.TotalPages)
	assert.True(t, p.HasNextPage)
	assert.True(t, p.HasPrevPage)
	require.NotNil(t, p.NextPage)
	require.NotNil(t, p.PrevPage)
	assert.Equal(t, 3, *p.NextPage)
	assert.Equal(t, 1, *p.PrevPage)
	assert.Equal(t, 11, p.PagingCounter)
}

func TestPaginateBeyondLastPage(t *testing.T) {
	p := Paginate(9, 10, 35)
	assert.Equal(t, 9, p.CurrentPage)
	assert.False(t, p.HasNextPage)

	start, end := Window(Page{Number: 9, Limit: 10}, 35)
	assert.Equal(t, start, end)
}

func TestParsePageDefaults(t *testing.T) {
	assert.Equal(t, Page{Number: 1, Limit: 12}, ParsePage(url.Values{}))
	assert.Equal(t, Page{Number: 1, Limit: 12}, ParsePage(url.Values{"page": {"abc"}, "limit": {"-3"}}))
	assert.Equal(t, Page{Number: 3, Limit: 20}, ParsePage(url.Values{"page": {"3"}, "limit": {"20"}}))
	assert.Equal(t, MaxLimit, ParsePage(url.Values{"limit": {"100000"}}).Limit)
}

func TestWindow(t *testing.T) {
	start, end := Window(Page{Number: 2, Limit: 5}, 12)
	assert.Equal(t, 5, start)
	assert.Equal(t, 10, end)
	start, end = Window(Page{Number: 3, Limit: 5}, 12)
	assert.Equal(t, 10, start)
	assert.Equal(t, 12, end)
}

func TestParsePageHugeNumbers(t *testing.T) {
	for _, raw := range []string{"9223372036854775807", "4611686018427387904", "99999999999999999999999"} {
		p := ParsePage(url.Values{"page": {raw}, "limit": {"100"}})
		assert.Equal(t, MaxPage, p.Number, raw)
		assert.Positive(t, p.Skip(), raw)

		start, end := Window(p, 50)
		assert.Equal(t, 50, start, raw)
		assert.Equal(t, 50, end, raw)
	}
}

func TestParsePageDecimalOnly(t *testing.T) {
	assert.Equal(t, 10, ParsePage(url.Values{"page": {"010"}}).Number)
	assert.Equal(t, 8, ParsePage(url.Values{"limit": {" 08 "}}).Limit)
}

func TestWindowNegativeSkip(t *testing.T) {
	start, end := Window(Page{Number: -5, Limit: 10}, 20)
	assert.Equal(t, 20, start)
	assert.Equal(t, 20, end)
}

func TestFilterReleaseYearIsDecimal(t *testing.T) {
	assert.Equal(t, 2010, BuildFilter(url.Values{"releaseYear": {"02010"}}).ReleaseYear)
	assert.Zero(t, BuildFilter(url.Values{"releaseYear": {"nineteen"}}).ReleaseYear)
	assert.Zero(t, BuildFilter(url.Values{"releaseYear": {"-1999"}}).ReleaseYear)
}
