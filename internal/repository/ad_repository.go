package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/anikkhan0099/moviehubbd/internal/models"
)

type AdRepository struct {
	db *sql.DB
}

func NewAdRepository(db *sql.DB) *AdRepository {
	return &AdRepository{db: db}
}

const adColumns = `id, name, type, placement, code, target_pages, target_devices, target_countries,
	start_date, end_date, is_active, priority, impressions, clicks, created_by, last_modified_by,
	created_at, updated_at`

func scanAd(row interface{ Scan(...any) error }) (*models.Ad, error) {
	a := &models.Ad{}
	err := row.Scan(&a.ID, &a.Name, &a.Type, &a.Placement, &a.Code,
		pq.Array(&a.TargetPages), pq.Array(&a.TargetDevices), pq.Array(&a.TargetCountries),
		&a.StartDate, &a.EndDate, &a.IsActive, &a.Priority, &a.Impressions, &a.Clicks,
		&a.CreatedBy, &a.LastModifiedBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AdRepository) Create(ctx context.Context, a *models.Ad) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	q := `INSERT INTO ads (` + adColumns + `) VALUES (` + placeholders(1, 18) + `)`
	_, err := r.db.ExecContext(ctx, q, a.ID, a.Name, a.Type, a.Placement, a.Code,
		textArray(a.TargetPages), textArray(a.TargetDevices), textArray(a.TargetCountries),
		a.StartDate, a.EndDate, a.IsActive, a.Priority, a.Impressions, a.Clicks,
		a.CreatedBy, a.LastModifiedBy, a.CreatedAt, a.UpdatedAt)
	return mapWriteErr(err)
}

func (r *AdRepository) Get(ctx context.Context, id uuid.UUID) (*models.Ad, error) {
	a, err := scanAd(r.db.QueryRowContext(ctx, `SELECT `+adColumns+` FROM ads WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "ad")
	}
	return a, nil
}

func (r *AdRepository) Update(ctx context.Context, a *models.Ad) error {
	a.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE ads SET name = $1, type = $2, placement = $3, code = $4, target_pages = $5,
			target_devices = $6, target_countries = $7, start_date = $8, end_date = $9,
			is_active = $10, priority = $11, last_modified_by = $12, updated_at = $13
		WHERE id = $14`,
		a.Name, a.Type, a.Placement, a.Code, textArray(a.TargetPages), textArray(a.TargetDevices),
		textArray(a.TargetCountries), a.StartDate, a.EndDate, a.IsActive, a.Priority,
		a.LastModifiedBy, a.UpdatedAt, a.ID)
	if err != nil {
		return mapWriteErr(err)
	}
	return expectOne(res, "ad")
}

func (r *AdRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(res, "ad")
}

func (r *AdRepository) List(ctx context.Context, opts AdListOptions) ([]*models.Ad, int, error) {
	var wheres []string
	var args []any
	if opts.Placement != "" {
		args = append(args, string(opts.Placement))
		wheres = append(wheres, fmt.Sprintf("placement = $%d", len(args)))
	}
	if opts.Active != nil {
		args = append(args, *opts.Active)
		wheres = append(wheres, fmt.Sprintf("is_active = $%d", len(args)))
	}
	whereSQL := ""
	if len(wheres) > 0 {
		whereSQL = " WHERE " + strings.Join(wheres, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ads`+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := fmt.Sprintf(`SELECT %s FROM ads%s ORDER BY priority DESC, created_at DESC LIMIT $%d OFFSET $%d`,
		adColumns, whereSQL, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, q, append(args, opts.Page.Limit, opts.Page.Skip())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	ads, err := collectAds(rows)
	return ads, total, err
}

func (r *AdRepository) Scheduled(ctx context.Context, placement models.Placement, now time.Time) ([]*models.Ad, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+adColumns+` FROM ads
		WHERE placement = $1 AND is_active
			AND (start_date IS NULL OR start_date <= $2)
			AND (end_date IS NULL OR end_date >= $2)
		ORDER BY priority DESC, created_at DESC`, string(placement), now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAds(rows)
}

func collectAds(rows *sql.Rows) ([]*models.Ad, error) {
	ads := []*models.Ad{}
	for rows.Next() {
		a, err := scanAd(rows)
		if err != nil {
			return nil, err
		}
		ads = append(ads, a)
	}
	return ads, rows.Err()
}

func (r *AdRepository) IncrementCounter(ctx context.Context, id uuid.UUID, field Counter, delta int64) error {
	if !AdCounter(field) {
		return ErrInvalidCounter
	}
	q := fmt.Sprintf(`UPDATE ads SET %[1]s = %[1]s + $1 WHERE id = $2`, field)
	res, err := r.db.ExecContext(ctx, q, delta, id)
	if err != nil {
		return err
	}
	return expectOne(res, "ad")
}
