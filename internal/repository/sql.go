package repository

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// jsonb stores a Go value in a JSONB column.
type jsonb[T any] struct {
	V *T
}

func (j jsonb[T]) Value() (driver.Value, error) {
	if j.V == nil {
		return []byte("null"), nil
	}
	return json.Marshal(j.V)
}

func (j jsonb[T]) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported source %T", src)
	}
	return json.Unmarshal(b, j.V)
}

func jsonCol[T any](v *T) jsonb[T] { return jsonb[T]{V: v} }

// textArray never hands NULL to a NOT NULL TEXT[] column.
func textArray(s []string) any {
	if s == nil {
		s = []string{}
	}
	return pq.Array(s)
}

// mapWriteErr converts unique violations to *ConflictError.
func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return &ConflictError{Key: conflictKey(pqErr.Constraint)}
	}
	return err
}

// conflictKey turns "movies_slug_key" into "slug".
func conflictKey(constraint string) string {
	for _, table := range []string{"movies_", "series_", "users_", "ads_", "watchlist_"} {
		if strings.HasPrefix(constraint, table) {
			constraint = strings.TrimPrefix(constraint, table)
			break
		}
	}
	constraint = strings.TrimSuffix(constraint, "_key")
	constraint = strings.TrimSuffix(constraint, "_pkey")
	if constraint == "" || constraint == "pkey" {
		return "id"
	}
	return constraint
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return err
}

func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return nil
}

// likePattern escapes LIKE metacharacters and wraps term for a substring match.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}
