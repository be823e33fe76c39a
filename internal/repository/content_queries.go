package repository

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/anikkhan0099/moviehubbd/internal/models"
	"github.com/anikkhan0099/moviehubbd/internal/query"
)

// contentColumns are shared by the movies and series tables, in scan order.
const contentColumns = `id, slug, title, original_title, overview, poster_path, backdrop_path,
	trailer_url, release_year, rating, imdb_rating, genres, language, type, quality, status,
	admin_status, director, cast_members, tmdb_id, imdb_id, screenshots, servers,
	download_groups, seo, views, likes, downloads, added_by, last_modified_by, created_at, updated_at`

const contentColumnCount = 32

func contentDest(c *models.Content) []any {
	return []any{
		&c.ID, &c.Slug, &c.Title, &c.OriginalTitle, &c.Overview, &c.PosterPath, &c.BackdropPath,
		&c.TrailerURL, &c.ReleaseYear, &c.Rating, &c.IMDbRating, pq.Array(&c.Genres), pq.Array(&c.Language),
		&c.Type, &c.Quality, &c.Status, &c.AdminStatus, &c.Director, jsonCol(&c.Cast), &c.TMDbID,
		&c.IMDbID, pq.Array(&c.Screenshots), jsonCol(&c.Servers), jsonCol(&c.DownloadGroups),
		jsonCol(&c.SEO), &c.Views, &c.Likes, &c.Downloads, &c.AddedBy, &c.LastModifiedBy,
		&c.CreatedAt, &c.UpdatedAt,
	}
}

func contentArgs(c *models.Content) []any {
	return []any{
		c.ID, c.Slug, c.Title, c.OriginalTitle, c.Overview, c.PosterPath, c.BackdropPath,
		c.TrailerURL, c.ReleaseYear, c.Rating, c.IMDbRating, textArray(c.Genres), textArray(c.Language),
		c.Type, c.Quality, c.Status, c.AdminStatus, c.Director, jsonCol(nonNil(c.Cast)), c.TMDbID,
		c.IMDbID, textArray(c.Screenshots), jsonCol(nonNil(c.Servers)), jsonCol(nonNil(c.DownloadGroups)),
		jsonCol(&c.SEO), c.Views, c.Likes, c.Downloads, c.AddedBy, c.LastModifiedBy,
		c.CreatedAt, c.UpdatedAt,
	}
}

// nonNil keeps JSONB list columns as [] instead of null.
func nonNil[T any](s []T) *[]T {
	if s == nil {
		s = []T{}
	}
	return &s
}

// placeholders renders "$from, $from+1, ..." for n parameters.
func placeholders(from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(parts, ", ")
}

// contentUpdateSet renders "col = $n" pairs for every content column except id
// and created_at, starting at parameter 2 ($1 is the id).
func contentUpdateSet(extra ...string) string {
	cols := strings.Split(contentColumns, ",")
	var sets []string
	p := 2
	for _, col := range cols {
		col = strings.TrimSpace(col)
		if col == "id" || col == "created_at" || col == "views" || col == "likes" || col == "downloads" {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", col, p))
		p++
	}
	for _, col := range extra {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, p))
		p++
	}
	return strings.Join(sets, ", ")
}

// contentUpdateArgs is contentArgs minus the columns skipped by contentUpdateSet.
func contentUpdateArgs(c *models.Content) []any {
	all := contentArgs(c)
	out := []any{c.ID}
	for i, a := range all {
		switch i {
		case 0, 25, 26, 27, 30: // id, views, likes, downloads, created_at
			continue
		}
		out = append(out, a)
	}
	return out
}

// searchExprs maps search field names to SQL predicates over one parameter.
var searchExprs = map[string]string{
	"title":          "title ILIKE %[1]s",
	"originalTitle":  "original_title ILIKE %[1]s",
	"overview":       "overview ILIKE %[1]s",
	"director":       "director ILIKE %[1]s",
	"genres":         "array_to_string(genres, ' ') ILIKE %[1]s",
	"language":       "array_to_string(language, ' ') ILIKE %[1]s",
	"seo.keywords":   "(seo->'keywords')::text ILIKE %[1]s",
	"cast.name":      "EXISTS (SELECT 1 FROM jsonb_array_elements(cast_members) e WHERE e->>'name' ILIKE %[1]s)",
	"cast.character": "EXISTS (SELECT 1 FROM jsonb_array_elements(cast_members) e WHERE e->>'character' ILIKE %[1]s)",
}

var seriesSearchExprs = map[string]string{
	"creators.name":          "EXISTS (SELECT 1 FROM jsonb_array_elements(creators) e WHERE e->>'name' ILIKE %[1]s)",
	"networks.name":          "EXISTS (SELECT 1 FROM jsonb_array_elements(networks) e WHERE e->>'name' ILIKE %[1]s)",
	"seasons.episodes.title": "EXISTS (SELECT 1 FROM jsonb_array_elements(seasons) s, jsonb_array_elements(s->'episodes') e WHERE e->>'title' ILIKE %[1]s)",
}

var sortColumns = map[string]string{
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"title":       "lower(title)",
	"releaseYear": "release_year",
	"rating":      "rating",
	"imdbRating":  "imdb_rating",
	"views":       "views",
	"likes":       "likes",
	"downloads":   "downloads",
}

// buildListClauses builds the WHERE and ORDER BY fragments for opts. series
// enables the series-only search fields. paramStart is the next parameter
// index; the returned args line up with it.
func buildListClauses(opts ListOptions, series bool, paramStart int) (string, string, []any) {
	var wheres []string
	var args []any
	p := paramStart
	next := func(v any) string {
		args = append(args, v)
		s := fmt.Sprintf("$%d", p)
		p++
		return s
	}

	f := opts.Filter
	if len(f.Genres) > 0 {
		wheres = append(wheres, "genres && "+next(pq.Array(f.Genres)))
	}
	if f.Language != "" {
		wheres = append(wheres, next(f.Language)+" = ANY(language)")
	}
	if f.ReleaseYear != 0 {
		wheres = append(wheres, "release_year = "+next(f.ReleaseYear))
	}
	if f.MinRating != nil {
		wheres = append(wheres, "rating >= "+next(*f.MinRating))
	}
	if f.Type != "" {
		wheres = append(wheres, "type = "+next(string(f.Type)))
	}
	if f.Quality != "" {
		wheres = append(wheres, "quality = "+next(string(f.Quality)))
	}
	if f.AdminStatus != "" {
		wheres = append(wheres, "admin_status = "+next(string(f.AdminStatus)))
	}
	if f.Status != "" {
		wheres = append(wheres, "status = "+next(string(f.Status)))
	}

	if opts.Search.Active() {
		ph := next(likePattern(opts.Search.Term))
		var ors []string
		for _, field := range opts.Search.Fields {
			expr, ok := searchExprs[field]
			if !ok && series {
				expr, ok = seriesSearchExprs[field]
			}
			if ok {
				ors = append(ors, fmt.Sprintf(expr, ph))
			}
		}
		if len(ors) == 0 {
			wheres = append(wheres, "FALSE")
		} else {
			wheres = append(wheres, "("+strings.Join(ors, " OR ")+")")
		}
	}

	if r := opts.Related; r != nil {
		ors := []string{
			"genres && " + next(pq.Array(nonNilStrings(r.Genres))),
			"language && " + next(pq.Array(nonNilStrings(r.Language))),
		}
		ors = append(ors, fmt.Sprintf("release_year BETWEEN %s AND %s", next(r.Year-r.YearSpan), next(r.Year+r.YearSpan)))
		wheres = append(wheres, "("+strings.Join(ors, " OR ")+")")
	}

	if opts.ExcludeID != uuid.Nil {
		wheres = append(wheres, "id <> "+next(opts.ExcludeID))
	}

	whereSQL := ""
	if len(wheres) > 0 {
		whereSQL = " WHERE " + strings.Join(wheres, " AND ")
	}
	return whereSQL, buildOrder(opts.Sort), args
}

func buildOrder(s query.Sort) string {
	var parts []string
	for _, f := range s {
		col, ok := sortColumns[f.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if f.Desc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	parts = append(parts, "id ASC")
	return " ORDER BY " + strings.Join(parts, ", ")
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func limitOffset(opts ListOptions, paramStart int) (string, []any) {
	var sql string
	var args []any
	p := paramStart
	if opts.Limit > 0 {
		sql += fmt.Sprintf(" LIMIT $%d", p)
		args = append(args, opts.Limit)
		p++
	}
	if opts.Offset > 0 {
		sql += fmt.Sprintf(" OFFSET $%d", p)
		args = append(args, opts.Offset)
	}
	return sql, args
}
