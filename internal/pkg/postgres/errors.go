package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const codeUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation.
func (db *Postgres) IsUniqueViolation(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

// IsNoRows reports whether err means the query matched nothing.
func (db *Postgres) IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	return pgErr.Code == code
}
