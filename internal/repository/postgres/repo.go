package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/SARVESHVARADKAR123/messenger/internal/cache"
	"github.com/SARVESHVARADKAR123/messenger/internal/repository"
	"github.com/lib/pq"
)

type Repository struct {
	DB    *sql.DB
	Cache *cache.Cache
}

var _ repository.Repository = (*Repository)(nil)

type queryable interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (r *Repository) getter(tx *sql.Tx) queryable {
	if tx != nil {
		return tx
	}
	return r.DB
}

const uniqueViolation = "23505"

// mapErr turns a unique-constraint failure into repository.ErrUniqueViolation.
func mapErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", repository.ErrUniqueViolation, pqErr.Constraint)
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
