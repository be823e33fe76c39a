package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/anikkhan0099/moviehubbd/internal/models"
)

type SeriesRepository struct {
	db *sql.DB
}

func NewSeriesRepository(db *sql.DB) *SeriesRepository {
	return &SeriesRepository{db: db}
}

// ──────────────────── Series ────────────────────

var seriesExtra = []string{"series_status", "networks", "creators", "seasons", "number_of_seasons", "number_of_episodes"}

const seriesColumns = contentColumns + `, series_status, networks, creators, seasons, number_of_seasons, number_of_episodes`

func scanSeries(row interface{ Scan(...any) error }) (*models.Series, error) {
	s := &models.Series{}
	dest := append(contentDest(&s.Content),
		&s.SeriesStatus, jsonCol(&s.Networks), jsonCol(&s.Creators), jsonCol(&s.Seasons),
		&s.NumberOfSeasons, &s.NumberOfEpisodes)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return s, nil
}

func seriesExtraArgs(s *models.Series) []any {
	return []any{
		s.SeriesStatus, jsonCol(nonNil(s.Networks)), jsonCol(nonNil(s.Creators)),
		jsonCol(nonNil(s.Seasons)), s.NumberOfSeasons, s.NumberOfEpisodes,
	}
}

// Create and Update normalize the season list and recompute the derived
// season and episode counts before writing.
func (r *SeriesRepository) Create(ctx context.Context, s *models.Series) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.Normalize()
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	args := append(contentArgs(&s.Content), seriesExtraArgs(s)...)
	q := `INSERT INTO series (` + seriesColumns + `) VALUES (` + placeholders(1, len(args)) + `)`
	_, err := r.db.ExecContext(ctx, q, args...)
	return mapWriteErr(err)
}

func (r *SeriesRepository) get(ctx context.Context, where string, arg any) (*models.Series, error) {
	q := `SELECT ` + seriesColumns + ` FROM series WHERE ` + where + ` = $1`
	s, err := scanSeries(r.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		return nil, notFound(err, "series")
	}
	return s, nil
}

func (r *SeriesRepository) Get(ctx context.Context, id uuid.UUID) (*models.Series, error) {
	return r.get(ctx, "id", id)
}

func (r *SeriesRepository) GetBySlug(ctx context.Context, slug string) (*models.Series, error) {
	return r.get(ctx, "slug", slug)
}

func (r *SeriesRepository) GetByTMDbID(ctx context.Context, tmdbID int) (*models.Series, error) {
	return r.get(ctx, "tmdb_id", tmdbID)
}

// Update locks the row, carries the stored episode view counts over to s and
// writes it. Views added by IncrementEpisodeViews after s was read are kept.
func (r *SeriesRepository) Update(ctx context.Context, s *models.Series) error {
	s.Normalize()
	s.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin series update: %w", err)
	}
	defer tx.Rollback()

	var stored []models.Season
	err = tx.QueryRowContext(ctx, `SELECT seasons FROM series WHERE id = $1 FOR UPDATE`, s.ID).Scan(jsonCol(&stored))
	if err != nil {
		return notFound(err, "series")
	}
	s.KeepEpisodeViews(stored)

	args := append(contentUpdateArgs(&s.Content), seriesExtraArgs(s)...)
	q := `UPDATE series SET ` + contentUpdateSet(seriesExtra...) + ` WHERE id = $1`
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return mapWriteErr(err)
	}
	return tx.Commit()
}

func (r *SeriesRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM series WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(res, "series")
}

func (r *SeriesRepository) List(ctx context.Context, opts ListOptions) ([]*models.Series, error) {
	whereSQL, orderSQL, args := buildListClauses(opts, true, 1)
	pageSQL, pageArgs := limitOffset(opts, len(args)+1)
	q := `SELECT ` + seriesColumns + ` FROM series` + whereSQL + orderSQL + pageSQL
	rows, err := r.db.QueryContext(ctx, q, append(args, pageArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	list := []*models.Series{}
	for rows.Next() {
		s, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (r *SeriesRepository) Count(ctx context.Context, opts ListOptions) (int, error) {
	whereSQL, _, args := buildListClauses(opts, true, 1)
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM series`+whereSQL, args...).Scan(&n)
	return n, err
}

func (r *SeriesRepository) IncrementCounter(ctx context.Context, id uuid.UUID, field Counter, delta int64) error {
	if !ContentCounter(field) {
		return ErrInvalidCounter
	}
	q := fmt.Sprintf(`UPDATE series SET %[1]s = %[1]s + $1 WHERE id = $2`, field)
	res, err := r.db.ExecContext(ctx, q, delta, id)
	if err != nil {
		return err
	}
	return expectOne(res, "series")
}

// ──────────────────── Episodes ────────────────────

// incrementEpisodeViews rewrites the seasons document in one statement so the
// row lock covers the read and the write of the episode's view count.
const incrementEpisodeViews = `
UPDATE series SET seasons = (
	SELECT jsonb_agg(
		jsonb_set(s, '{episodes}', (
			SELECT COALESCE(jsonb_agg(
				CASE WHEN e->>'id' = $2
					THEN jsonb_set(e, '{views}', to_jsonb(COALESCE((e->>'views')::bigint, 0) + $3::bigint))
					ELSE e END
				ORDER BY eo), '[]'::jsonb)
			FROM jsonb_array_elements(s->'episodes') WITH ORDINALITY AS x(e, eo)
		)) ORDER BY so)
	FROM jsonb_array_elements(seasons) WITH ORDINALITY AS y(s, so)
)
WHERE id = $1 AND EXISTS (
	SELECT 1 FROM jsonb_array_elements(seasons) s, jsonb_array_elements(s->'episodes') e
	WHERE e->>'id' = $2
)`

func (r *SeriesRepository) IncrementEpisodeViews(ctx context.Context, seriesID, episodeID uuid.UUID, delta int64) error {
	res, err := r.db.ExecContext(ctx, incrementEpisodeViews, seriesID, episodeID.String(), delta)
	if err != nil {
		return err
	}
	return expectOne(res, "episode")
}
