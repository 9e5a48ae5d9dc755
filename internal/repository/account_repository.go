package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/recruitment-portal/internal/model"
)

// AccountRepository handles credential records.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create inserts a new account. Email uniqueness is case-insensitive.
func (r *AccountRepository) Create(ctx context.Context, a *model.Account) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO accounts (id, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING created_at`,
		a.ID, strings.ToLower(a.Email), a.PasswordHash,
	).Scan(&a.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

// GetByEmail retrieves an account by email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.getOne(ctx,
		`SELECT id, email, password_hash, created_at FROM accounts WHERE LOWER(email) = LOWER($1)`, email)
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return r.getOne(ctx,
		`SELECT id, email, password_hash, created_at FROM accounts WHERE id = $1`, id)
}

// Delete removes an account. Deleting a missing account is not an error.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	return err
}

func (r *AccountRepository) getOne(ctx context.Context, query string, arg string) (*model.Account, error) {
	a := &model.Account{}
	err := r.pool.QueryRow(ctx, query, arg).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}
