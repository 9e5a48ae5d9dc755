package service

import (
	"errors"
	"fmt"
)

// Auth errors reported by the account layer.
var (
	ErrAccountExists     = errors.New("email already exists")
	ErrWeakCredential    = errors.New("password is too weak")
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrInvalidCredential = errors.New("account does not exist")
	ErrRateLimited       = errors.New("too many failed attempts, please try again later")
	ErrProfileNotFound   = errors.New("user profile not found")
	ErrInvalidToken      = errors.New("invalid token")
)

// ErrDuplicateIdentifier is matched by every DuplicateIdentifierError.
var ErrDuplicateIdentifier = errors.New("duplicate identifier")

// ValidationError carries per-field messages. It is raised before any store is touched.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

// DuplicateIdentifierError reports an admission number or phone already in use.
type DuplicateIdentifierError struct {
	Field string
}

func (e *DuplicateIdentifierError) Error() string {
	switch e.Field {
	case FieldAdmissionNumber:
		return "admission number already exists"
	case FieldPhone:
		return "phone number already exists"
	}
	return "duplicate " + e.Field
}

func (e *DuplicateIdentifierError) Is(target error) bool {
	return target == ErrDuplicateIdentifier
}

// Field names used in DuplicateIdentifierError.
const (
	FieldAdmissionNumber = "admission_number"
	FieldPhone           = "phone"
)

// PersistenceError wraps a failed store read or write. Submissions that fail
// this way can be retried by the candidate.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
