package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/anikkhan0099/moviehubbd/internal/models"
)

type MovieRepository struct {
	db *sql.DB
}

func NewMovieRepository(db *sql.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

const movieColumns = contentColumns + `, runtime`

func scanMovie(row interface{ Scan(...any) error }) (*models.Movie, error) {
	m := &models.Movie{}
	dest := append(contentDest(&m.Content), &m.Runtime)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *MovieRepository) Create(ctx context.Context, m *models.Movie) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	args := append(contentArgs(&m.Content), m.Runtime)
	q := `INSERT INTO movies (` + movieColumns + `) VALUES (` + placeholders(1, len(args)) + `)`
	_, err := r.db.ExecContext(ctx, q, args...)
	return mapWriteErr(err)
}

func (r *MovieRepository) get(ctx context.Context, where string, arg any) (*models.Movie, error) {
	q := `SELECT ` + movieColumns + ` FROM movies WHERE ` + where + ` = $1`
	m, err := scanMovie(r.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		return nil, notFound(err, "movie")
	}
	return m, nil
}

func (r *MovieRepository) Get(ctx context.Context, id uuid.UUID) (*models.Movie, error) {
	return r.get(ctx, "id", id)
}

func (r *MovieRepository) GetBySlug(ctx context.Context, slug string) (*models.Movie, error) {
	return r.get(ctx, "slug", slug)
}

func (r *MovieRepository) GetByTMDbID(ctx context.Context, tmdbID int) (*models.Movie, error) {
	return r.get(ctx, "tmdb_id", tmdbID)
}

// Update writes every editable column. Counters and created_at are never
// touched here; they change only through IncrementCounter.
func (r *MovieRepository) Update(ctx context.Context, m *models.Movie) error {
	m.UpdatedAt = time.Now().UTC()
	args := append(contentUpdateArgs(&m.Content), m.Runtime)
	q := `UPDATE movies SET ` + contentUpdateSet("runtime") + ` WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return mapWriteErr(err)
	}
	return expectOne(res, "movie")
}

func (r *MovieRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(res, "movie")
}

func (r *MovieRepository) List(ctx context.Context, opts ListOptions) ([]*models.Movie, error) {
	whereSQL, orderSQL, args := buildListClauses(opts, false, 1)
	pageSQL, pageArgs := limitOffset(opts, len(args)+1)
	q := `SELECT ` + movieColumns + ` FROM movies` + whereSQL + orderSQL + pageSQL
	rows, err := r.db.QueryContext(ctx, q, append(args, pageArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()

	movies := []*models.Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

func (r *MovieRepository) Count(ctx context.Context, opts ListOptions) (int, error) {
	whereSQL, _, args := buildListClauses(opts, false, 1)
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies`+whereSQL, args...).Scan(&n)
	return n, err
}

// IncrementCounter adds delta to a counter column in a single statement.
func (r *MovieRepository) IncrementCounter(ctx context.Context, id uuid.UUID, field Counter, delta int64) error {
	if !ContentCounter(field) {
		return ErrInvalidCounter
	}
	q := fmt.Sprintf(`UPDATE movies SET %[1]s = %[1]s + $1 WHERE id = $2`, field)
	res, err := r.db.ExecContext(ctx, q, delta, id)
	if err != nil {
		return err
	}
	return expectOne(res, "movie")
}
