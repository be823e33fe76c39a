package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/anikkhan0099/moviehubbd/internal/models"
	"github.com/anikkhan0099/moviehubbd/internal/query"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, password_hash, refresh_token_hash, role, avatar,
	is_active, preferences, last_login, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.RefreshTokenHash,
		&u.Role, &u.Avatar, &u.IsActive, jsonCol(&u.Preferences), &u.LastLogin,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = models.NormalizeEmail(u.Email)
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	q := `INSERT INTO users (` + userColumns + `) VALUES (` + placeholders(1, 12) + `)`
	_, err := r.db.ExecContext(ctx, q, u.ID, u.Username, u.Email, u.PasswordHash, u.RefreshTokenHash,
		u.Role, u.Avatar, u.IsActive, jsonCol(&u.Preferences), u.LastLogin, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return mapWriteErr(err)
	}
	if u.Watchlist == nil {
		u.Watchlist = []models.WatchlistEntry{}
	}
	return nil
}

func (r *UserRepository) get(ctx context.Context, where string, arg any) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		return nil, notFound(err, "user")
	}
	if u.Watchlist, err = r.watchlist(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.get(ctx, "id = $1", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.get(ctx, "lower(email) = $1", models.NormalizeEmail(email))
}

// Update writes the profile fields. Secrets and role have dedicated setters.
func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	u.Email = models.NormalizeEmail(u.Email)
	u.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET username = $1, email = $2, avatar = $3, is_active = $4, preferences = $5, updated_at = $6
		WHERE id = $7`,
		u.Username, u.Email, u.Avatar, u.IsActive, jsonCol(&u.Preferences), u.UpdatedAt, u.ID)
	if err != nil {
		return mapWriteErr(err)
	}
	return expectOne(res, "user")
}

func (r *UserRepository) set(ctx context.Context, column string, id uuid.UUID, v any) error {
	q := fmt.Sprintf(`UPDATE users SET %s = $1, updated_at = now() WHERE id = $2`, column)
	res, err := r.db.ExecContext(ctx, q, v, id)
	if err != nil {
		return err
	}
	return expectOne(res, "user")
}

// SetPassword stores a new hash and revokes the refresh token.
func (r *UserRepository) SetPassword(ctx context.Context, id uuid.UUID, hash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, refresh_token_hash = '', updated_at = now() WHERE id = $2`, hash, id)
	if err != nil {
		return err
	}
	return expectOne(res, "user")
}

func (r *UserRepository) SetRefreshToken(ctx context.Context, id uuid.UUID, hash string) error {
	return r.set(ctx, "refresh_token_hash", id, hash)
}

func (r *UserRepository) SetRole(ctx context.Context, id uuid.UUID, role models.UserRole) error {
	return r.set(ctx, "role", id, string(role))
}

func (r *UserRepository) TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.set(ctx, "last_login", id, at)
}

func (r *UserRepository) List(ctx context.Context, page query.Page) ([]*models.User, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		page.Limit, page.Skip())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		u.Watchlist = []models.WatchlistEntry{}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *UserRepository) CountByRole(ctx context.Context, role models.UserRole) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, string(role)).Scan(&n)
	return n, err
}

// ──────────────────── Watchlist ────────────────────

func (r *UserRepository) watchlist(ctx context.Context, userID uuid.UUID) ([]models.WatchlistEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT content_type, content_id, added_at FROM watchlist WHERE user_id = $1 ORDER BY added_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.WatchlistEntry{}
	for rows.Next() {
		var e models.WatchlistEntry
		if err := rows.Scan(&e.Kind, &e.ID, &e.AddedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func (r *UserRepository) AddToWatchlist(ctx context.Context, userID uuid.UUID, entry models.WatchlistEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO watchlist (user_id, content_type, content_id, added_at) VALUES ($1, $2, $3, $4)`,
		userID, string(entry.Kind), entry.ID, entry.AddedAt)
	err = mapWriteErr(err)
	var ce *ConflictError
	if errors.As(err, &ce) {
		ce.Key = "watchlist entry"
	}
	return err
}

func (r *UserRepository) RemoveFromWatchlist(ctx context.Context, userID uuid.UUID, ref models.ContentRef) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM watchlist WHERE user_id = $1 AND content_type = $2 AND content_id = $3`,
		userID, string(ref.Kind), ref.ID)
	if err != nil {
		return err
	}
	return expectOne(res, "watchlist entry")
}
