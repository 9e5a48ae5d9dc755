package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/recruitment-portal/internal/model"
)

// ProfileRepository handles candidate profile data access.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// Create inserts a profile. Profiles are written once at signup.
func (r *ProfileRepository) Create(ctx context.Context, p *model.CandidateProfile) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO candidate_profiles (id, name, email, phone, admission_number, branch)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		p.ID, p.Name, p.Email, p.Phone, p.AdmissionNumber, p.Branch,
	).Scan(&p.CreatedAt)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			switch constraint {
			case "candidate_profiles_admission_number_key":
				return ErrDuplicateAdmissionNumber
			case "candidate_profiles_phone_key":
				return ErrDuplicatePhone
			}
		}
		return err
	}
	return nil
}

// GetByID retrieves a profile by its owner's account ID.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*model.CandidateProfile, error) {
	p := &model.CandidateProfile{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, phone, admission_number, branch, created_at
		 FROM candidate_profiles WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.AdmissionNumber, &p.Branch, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// ExistsByAdmissionNumber reports whether a profile already uses the admission number.
func (r *ProfileRepository) ExistsByAdmissionNumber(ctx context.Context, admissionNumber string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM candidate_profiles WHERE admission_number = $1)`, admissionNumber,
	).Scan(&exists)
	return exists, err
}

// ExistsByPhone reports whether a profile already uses the phone number.
func (r *ProfileRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM candidate_profiles WHERE phone = $1)`, phone,
	).Scan(&exists)
	return exists, err
}
