// Package storage holds the pieces every entity store shares: the error
// classes surfaced to callers and the soft-delete marker.
package storage

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Sentinel errors for store operations.
var (
	// ErrNotFound is returned when a row does not exist or is soft-deleted.
	ErrNotFound = errors.New("not found")

	// ErrConstraint is returned when the database rejects a write on a
	// uniqueness, foreign-key, not-null or check constraint.
	ErrConstraint = errors.New("constraint violation")

	// ErrPersistence is returned when a query or commit fails for any other reason.
	ErrPersistence = errors.New("persistence error")
)

// Postgres SQLSTATE codes of the integrity constraint violation class.
const (
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// ClassifyPg maps an error returned by pgx onto one of the store error classes.
// The original error stays in the chain.
func ClassifyPg(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgNotNullViolation, pgForeignKeyViolation, pgUniqueViolation, pgCheckViolation:
			return fmt.Errorf("%w: %s", ErrConstraint, pgErr.Message)
		}
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

// ClassifyGorm maps an error returned by gorm onto one of the store error
// classes. The *gorm.DB must be opened with TranslateError enabled for
// constraint errors to be recognised.
func ClassifyGorm(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %w", ErrConstraint, err)
	}
	// gorm's postgres driver hands back pgconn errors untranslated for
	// not-null and check violations.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return ClassifyPg(err)
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

// Settle classifies an error escaping a gorm transaction. Errors already in a
// store class, or matching one of passthrough, are returned as is; begin and
// commit failures go through ClassifyGorm.
func Settle(err error, passthrough ...error) error {
	if err == nil {
		return nil
	}
	for _, known := range append([]error{ErrNotFound, ErrConstraint, ErrPersistence}, passthrough...) {
		if errors.Is(err, known) {
			return err
		}
	}
	return ClassifyGorm(err)
}
