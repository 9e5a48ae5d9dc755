package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Store-level sentinels shared by the Postgres and Mongo implementations.
var (
	ErrNotFound                 = errors.New("record not found")
	ErrEmailTaken               = errors.New("account with this email already exists")
	ErrDuplicateAdmissionNumber = errors.New("profile with this admission number already exists")
	ErrDuplicatePhone           = errors.New("profile with this phone number already exists")
	ErrResultExists             = errors.New("completed result already exists for this candidate")
)

// uniqueViolation returns the violated constraint name for a 23505 error.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}
