package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

var (
	ErrConstraintViolation = errors.New("constraint_violation")
	ErrInvalidReference    = errors.New("invalid_reference")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Classify wraps store errors that callers can act on with ErrConstraintViolation
// or ErrInvalidReference. Anything else is returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConstraintViolation) || errors.Is(err, ErrInvalidReference) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %w", ErrInvalidReference, err)
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %w", ErrInvalidReference, err)
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"), strings.Contains(msg, "Duplicate entry"):
		return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"), strings.Contains(msg, "a foreign key constraint fails"):
		return fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}
	return err
}
