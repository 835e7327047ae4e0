package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassify(t *testing.T) {
	plain := errors.New("connection reset")

	cases := []struct {
		name string
		in   error
		want error
	}{
		{"gorm duplicate", gorm.ErrDuplicatedKey, ErrConstraintViolation},
		{"gorm foreign key", gorm.ErrForeignKeyViolated, ErrInvalidReference},
		{"pgx unique", &pgconn.PgError{Code: "23505"}, ErrConstraintViolation},
		{"pgx foreign key", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503"}), ErrInvalidReference},
		{"pq unique", &pq.Error{Code: "23505"}, ErrConstraintViolation},
		{"sqlite unique", errors.New("constraint failed: UNIQUE constraint failed: customers.email (2067)"), ErrConstraintViolation},
		{"sqlite foreign key", errors.New("FOREIGN KEY constraint failed"), ErrInvalidReference},
		{"mysql duplicate", errors.New("Error 1062: Duplicate entry 'a' for key 'email'"), ErrConstraintViolation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.in)
			assert.ErrorIs(t, got, tc.want)
			assert.ErrorIs(t, got, tc.in)
		})
	}

	assert.Nil(t, Classify(nil))
	assert.Same(t, plain, Classify(plain))

	once := Classify(gorm.ErrDuplicatedKey)
	assert.Same(t, once, Classify(once))
}
