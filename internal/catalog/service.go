package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/anikkhan0099/moviehubbd/internal/models"
	"github.com/anikkhan0099/moviehubbd/internal/query"
	"github.com/anikkhan0099/moviehubbd/internal/repository"
)

const (
	DefaultMaxFeedSize    = 500
	DefaultRecommendLimit = 12
	RecommendYearSpan     = 2
	SortRelevance         = "relevance"
)

type Options struct {
	ImageBaseURL string
	// MaxFeedSize bounds the candidates loaded per collection for
	// score-ordered feeds.
	MaxFeedSize int
	Now         func() time.Time
}

type Service struct {
	movies    repository.MovieStore
	series    repository.SeriesStore
	imageBase string
	maxFeed   int
	now       func() time.Time
}

func NewService(movies repository.MovieStore, series repository.SeriesStore, opts Options) *Service {
	s := &Service{
		movies:    movies,
		series:    series,
		imageBase: opts.ImageBaseURL,
		maxFeed:   opts.MaxFeedSize,
		now:       opts.Now,
	}
	if s.maxFeed <= 0 {
		s.maxFeed = DefaultMaxFeedSize
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Request describes one merged feed query.
type Request struct {
	// Kind restricts the feed to one collection when set.
	Kind    models.ContentKind
	Filter  query.Filter
	Search  query.Search
	SortKey string
	Order   string
	Page    query.Page
	// Admin callers may ask for a non-published adminStatus.
	Admin bool
}

// Feed is a page of a merged feed.
type Feed struct {
	Items      []Item           `json:"items"`
	Pagination query.Pagination `json:"pagination"`
	// Truncated is set when a score-ordered feed hit the candidate bound.
	Truncated bool `json:"truncated,omitempty"`
}

// visibility forces adminStatus=Published unless an admin asked for a
// specific status.
func (r Request) visibility() query.Filter {
	f := r.Filter
	if !r.Admin || f.AdminStatus == "" {
		f.AdminStatus = models.AdminPublished
	}
	return f
}

func (r Request) page() query.Page {
	if r.Page.Number < 1 || r.Page.Limit < 1 {
		return query.NewPage(r.Page.Number, r.Page.Limit)
	}
	return r.Page
}

func (r Request) wants(k models.ContentKind) bool { return r.Kind == "" || r.Kind == k }

// collect runs the same list (and optionally count) against both collections
// concurrently.
func (s *Service) collect(ctx context.Context, req Request, opts repository.ListOptions, count bool) ([]Item, int, error) {
	var movies []*models.Movie
	var series []*models.Series
	var movieTotal, seriesTotal int

	p := pool.New().WithContext(ctx).WithCancelOnError()
	if req.wants(models.KindMovie) {
		p.Go(func(ctx context.Context) error {
			var err error
			if movies, err = s.movies.List(ctx, opts); err != nil {
				return fmt.Errorf("list movies: %w", err)
			}
			if count {
				if movieTotal, err = s.movies.Count(ctx, opts); err != nil {
					return fmt.Errorf("count movies: %w", err)
				}
			}
			return nil
		})
	}
	if req.wants(models.KindSeries) {
		p.Go(func(ctx context.Context) error {
			var err error
			if series, err = s.series.List(ctx, opts); err != nil {
				return fmt.Errorf("list series: %w", err)
			}
			if count {
				if seriesTotal, err = s.series.Count(ctx, opts); err != nil {
					return fmt.Errorf("count series: %w", err)
				}
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, 0, err
	}

	items := make([]Item, 0, len(movies)+len(series))
	for _, m := range movies {
		items = append(items, MovieItem(m))
	}
	for _, sr := range series {
		items = append(items, SeriesItem(sr))
	}
	return items, movieTotal + seriesTotal, nil
}

func (s *Service) resolve(items []Item) {
	for _, it := range items {
		it.Content().ResolveAssets(s.imageBase)
	}
}

// stableLess breaks ties so merged pages are deterministic.
func stableLess(a, b *models.Content) bool {
	return a.ID.String() < b.ID.String()
}

// counts totals both collections concurrently.
func (s *Service) counts(ctx context.Context, req Request, opts repository.ListOptions) (int, int, error) {
	var movieTotal, seriesTotal int
	p := pool.New().WithContext(ctx).WithCancelOnError()
	if req.wants(models.KindMovie) {
		p.Go(func(ctx context.Context) (err error) {
			if movieTotal, err = s.movies.Count(ctx, opts); err != nil {
				return fmt.Errorf("count movies: %w", err)
			}
			return nil
		})
	}
	if req.wants(models.KindSeries) {
		p.Go(func(ctx context.Context) (err error) {
			if seriesTotal, err = s.series.Count(ctx, opts); err != nil {
				return fmt.Errorf("count series: %w", err)
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return 0, 0, err
	}
	return movieTotal, seriesTotal, nil
}

func sortItems(items []Item, order query.Sort) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Content(), items[j].Content()
		if order.Less(a, b) {
			return true
		}
		if order.Less(b, a) {
			return false
		}
		return stableLess(a, b)
	})
}

// List returns a merged feed ordered by a store-orderable sort key. Counts
// run first, so pages past the end never touch the rows. When only one
// collection has matches the offset is pushed down to its store; otherwise
// each collection returns at most skip+limit rows, capped by its own total.
func (s *Service) List(ctx context.Context, req Request) (*Feed, error) {
	page := req.page()
	order := query.BuildSort(req.SortKey, req.Order)
	opts := repository.ListOptions{
		Filter: req.visibility(),
		Search: req.Search,
		Sort:   order,
	}
	movieTotal, seriesTotal, err := s.counts(ctx, req, opts)
	if err != nil {
		return nil, err
	}
	total := movieTotal + seriesTotal
	feed := &Feed{Items: []Item{}, Pagination: query.Paginate(page.Number, page.Limit, total)}
	skip := page.Skip()
	if skip >= total {
		return feed, nil
	}

	if movieTotal == 0 || seriesTotal == 0 {
		if movieTotal == 0 {
			req.Kind = models.KindSeries
		} else {
			req.Kind = models.KindMovie
		}
		opts.Offset, opts.Limit = skip, page.Limit
		items, _, err := s.collect(ctx, req, opts, false)
		if err != nil {
			return nil, err
		}
		sortItems(items, order)
		s.resolve(items)
		feed.Items = items
		return feed, nil
	}

	opts.Limit = min(skip+page.Limit, max(movieTotal, seriesTotal))
	items, _, err := s.collect(ctx, req, opts, false)
	if err != nil {
		return nil, err
	}
	sortItems(items, order)
	start, end := query.Window(page, len(items))
	feed.Items = items[start:end]
	s.resolve(feed.Items)
	return feed, nil
}

// scored loads up to maxFeed candidates per collection, scores them, and
// returns the requested page of the score-ordered result.
func (s *Service) scored(ctx context.Context, req Request, prefetch query.Sort, score func(*models.Content) float64) (*Feed, error) {
	page := req.page()
	opts := repository.ListOptions{
		Filter: req.visibility(),
		Search: req.Search,
		Sort:   prefetch,
		Limit:  s.maxFeed,
	}
	items, total, err := s.collect(ctx, req, opts, true)
	if err != nil {
		return nil, err
	}
	for i := range items {
		v := score(items[i].Content())
		items[i].Score = &v
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := *items[i].Score, *items[j].Score
		if a != b {
			return a > b
		}
		ca, cb := items[i].Content(), items[j].Content()
		if !ca.CreatedAt.Equal(cb.CreatedAt) {
			return ca.CreatedAt.After(cb.CreatedAt)
		}
		return stableLess(ca, cb)
	})
	truncated := total > len(items)
	if truncated {
		total = len(items)
	}
	start, end := query.Window(page, len(items))
	out := items[start:end]
	s.resolve(out)
	return &Feed{Items: out, Pagination: query.Paginate(page.Number, page.Limit, total), Truncated: truncated}, nil
}

// Trending ranks by TrendingScore.
func (s *Service) Trending(ctx context.Context, req Request) (*Feed, error) {
	now := s.now()
	return s.scored(ctx, req, query.BuildSort(query.SortTrending, ""), func(c *models.Content) float64 {
		return TrendingScore(c, now)
	})
}

// Featured ranks by FeaturedScore.
func (s *Service) Featured(ctx context.Context, req Request) (*Feed, error) {
	return s.scored(ctx, req, query.BuildSort(query.SortRating, ""), FeaturedScore)
}

// Search matches term against the default search fields of each collection.
// Without an explicit sort key hits are ordered by RelevanceScore.
func (s *Service) Search(ctx context.Context, term string, req Request) (*Feed, error) {
	movieSearch := query.BuildSearch(term, query.ContentSearchFields)
	if !movieSearch.Active() {
		return nil, &models.ValidationError{Fields: []models.FieldError{{
			Field: "q", Message: fmt.Sprintf("must be at least %d characters", query.MinSearchLen),
		}}}
	}
	if req.SortKey != "" && req.SortKey != SortRelevance {
		return s.searchBoth(ctx, term, req, func(ctx context.Context, r Request) (*Feed, error) { return s.List(ctx, r) })
	}
	now := s.now()
	return s.searchBoth(ctx, term, req, func(ctx context.Context, r Request) (*Feed, error) {
		return s.scored(ctx, r, query.BuildSort(query.SortViews, ""), func(c *models.Content) float64 {
			return RelevanceScore(c, term, now)
		})
	})
}

// searchBoth applies the per-collection field sets. Movies and series search
// slightly different fields, so a combined query goes through a Search whose
// field list is the union; stores skip fields they do not have.
func (s *Service) searchBoth(ctx context.Context, term string, req Request, run func(context.Context, Request) (*Feed, error)) (*Feed, error) {
	fields := query.ContentSearchFields
	switch req.Kind {
	case models.KindSeries:
		fields = query.SeriesSearchFields
	case "":
		fields = union(query.ContentSearchFields, query.SeriesSearchFields)
	}
	req.Search = query.BuildSearch(term, fields)
	return run(ctx, req)
}

func union(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Suggestion is a compact search-as-you-type hit.
type Suggestion struct {
	ID          uuid.UUID          `json:"id"`
	ContentType models.ContentKind `json:"contentType"`
	Title       string             `json:"title"`
	Slug        string             `json:"slug"`
	ReleaseYear int                `json:"releaseYear"`
	PosterURL   string             `json:"posterUrl,omitempty"`
}

// Suggestions returns up to limit published titles containing term, most
// viewed first.
func (s *Service) Suggestions(ctx context.Context, term string, limit int) ([]Suggestion, error) {
	search := query.BuildSearch(term, []string{"title", "originalTitle"})
	if !search.Active() {
		return []Suggestion{}, nil
	}
	if limit <= 0 || limit > 20 {
		limit = 8
	}
	req := Request{Search: search}
	items, _, err := s.collect(ctx, req, repository.ListOptions{
		Filter: req.visibility(),
		Search: search,
		Sort:   query.BuildSort(query.SortViews, ""),
		Limit:  limit,
	}, false)
	if err != nil {
		return nil, err
	}
	order := query.BuildSort(query.SortViews, "")
	sort.SliceStable(items, func(i, j int) bool { return order.Less(items[i].Content(), items[j].Content()) })
	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]Suggestion, 0, len(items))
	for _, it := range items {
		c := it.Content()
		out = append(out, Suggestion{
			ID: c.ID, ContentType: it.Kind, Title: c.Title, Slug: c.Slug,
			ReleaseYear: c.ReleaseYear, PosterURL: models.AssetURL(s.imageBase, c.PosterPath),
		})
	}
	return out, nil
}

// Recommendations returns published items related to ref by genre, language
// or release year, best rated first. Each collection contributes at most
// limit items before the merge.
func (s *Service) Recommendations(ctx context.Context, ref models.ContentRef, limit int) ([]Item, error) {
	if limit <= 0 || limit > query.MaxLimit {
		limit = DefaultRecommendLimit
	}
	src, err := s.source(ctx, ref)
	if err != nil {
		return nil, err
	}
	byRating := query.BuildSort(query.SortRating, "")
	opts := repository.ListOptions{
		Filter: query.Filter{AdminStatus: models.AdminPublished},
		Related: &repository.Related{
			Genres:   src.Genres,
			Language: src.Language,
			Year:     src.ReleaseYear,
			YearSpan: RecommendYearSpan,
		},
		ExcludeID: src.ID,
		Sort:      byRating,
		Limit:     limit,
	}
	items, _, err := s.collect(ctx, Request{}, opts, false)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return byRating.Less(items[i].Content(), items[j].Content()) })
	if len(items) > limit {
		items = items[:limit]
	}
	s.resolve(items)
	return items, nil
}

func (s *Service) source(ctx context.Context, ref models.ContentRef) (*models.Content, error) {
	switch ref.Kind {
	case models.KindMovie:
		m, err := s.movies.Get(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return &m.Content, nil
	case models.KindSeries:
		sr, err := s.series.Get(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return &sr.Content, nil
	}
	return nil, fmt.Errorf("content type %q %w", ref.Kind, repository.ErrNotFound)
}

// FindSource looks ref up in either collection when the caller did not say
// which one it belongs to.
func (s *Service) FindSource(ctx context.Context, id uuid.UUID) (models.ContentRef, error) {
	if _, err := s.movies.Get(ctx, id); err == nil {
		return models.MovieRef(id), nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return models.ContentRef{}, err
	}
	if _, err := s.series.Get(ctx, id); err != nil {
		return models.ContentRef{}, err
	}
	return models.SeriesRef(id), nil
}

// Exists reports whether ref points at a stored item.
func (s *Service) Exists(ctx context.Context, ref models.ContentRef) error {
	_, err := s.source(ctx, ref)
	return err
}

// Stats summarizes both collections for the admin dashboard.
type Stats struct {
	Movies CollectionStats `json:"movies"`
	Series CollectionStats `json:"series"`
}

type CollectionStats struct {
	Total    int                        `json:"total"`
	ByStatus map[models.AdminStatus]int `json:"byStatus"`
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	statuses := []models.AdminStatus{models.AdminDraft, models.AdminPublished, models.AdminPending, models.AdminArchived}
	out := &Stats{
		Movies: CollectionStats{ByStatus: map[models.AdminStatus]int{}},
		Series: CollectionStats{ByStatus: map[models.AdminStatus]int{}},
	}
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		var err error
		out.Movies.Total, err = s.movies.Count(ctx, repository.ListOptions{})
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		out.Series.Total, err = s.series.Count(ctx, repository.ListOptions{})
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}
	for _, st := range statuses {
		opts := repository.ListOptions{Filter: query.Filter{AdminStatus: st}}
		n, err := s.movies.Count(ctx, opts)
		if err != nil {
			return nil, err
		}
		out.Movies.ByStatus[st] = n
		if n, err = s.series.Count(ctx, opts); err != nil {
			return nil, err
		}
		out.Series.ByStatus[st] = n
	}
	return out, nil
}

// NormalizeKind accepts the "type" parameter of the merged endpoints.
func NormalizeKind(v string) (models.ContentKind, error) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "all") {
		return "", nil
	}
	return models.ParseContentKind(v)
}
