// Package repositories implements the domain persistence contracts on pgx.
package repositories

import (
	stderrors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/1128026Go/Arconte-sub000/pkg/errors"
)

const uniqueViolation = "23505"

// mapError translates pgx errors into the application taxonomy.
func mapError(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, pgx.ErrNoRows) {
		return errors.NotFound(notFoundMsg)
	}
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return errors.Wrap(err, errors.ErrCodeConflict, "record already exists")
	}
	return errors.Wrap(err, errors.ErrCodeDatabaseError, "database operation failed")
}
