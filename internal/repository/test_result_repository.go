package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/recruitment-portal/internal/model"
)

const testResultColumns = `id, candidate_id, candidate_name, candidate_email, admission_number, branch,
	score, total_questions, percentage, time_spent, answers, completed_at, status`

// TestResultRepository handles test result data access. Results are append-only.
type TestResultRepository struct {
	pool *pgxpool.Pool
}

// NewTestResultRepository creates a new TestResultRepository.
func NewTestResultRepository(pool *pgxpool.Pool) *TestResultRepository {
	return &TestResultRepository{pool: pool}
}

// Create inserts a result. A second completed result for the same candidate
// fails with ErrResultExists.
func (r *TestResultRepository) Create(ctx context.Context, res *model.TestResult) error {
	answers, err := json.Marshal(res.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO test_results (`+testResultColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, $12, $13)`,
		res.ID, res.CandidateID, res.CandidateName, res.CandidateEmail, res.AdmissionNumber, res.Branch,
		res.Score, res.TotalQuestions, res.Percentage, res.TimeSpent, answers, res.CompletedAt, string(res.Status),
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrResultExists
		}
		return err
	}
	return nil
}

// GetCompletedByCandidate retrieves the candidate's completed result.
func (r *TestResultRepository) GetCompletedByCandidate(ctx context.Context, candidateID string) (*model.TestResult, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+testResultColumns+` FROM test_results
		 WHERE candidate_id = $1 AND status = $2
		 ORDER BY completed_at DESC LIMIT 1`,
		candidateID, string(model.ResultStatusCompleted),
	)
	res, err := scanTestResult(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return res, nil
}

// ListByCandidate retrieves a candidate's results, newest first.
func (r *TestResultRepository) ListByCandidate(ctx context.Context, candidateID string) ([]model.TestResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+testResultColumns+` FROM test_results
		 WHERE candidate_id = $1
		 ORDER BY completed_at DESC`, candidateID,
	)
	if err != nil {
		return nil, err
	}
	return collectTestResults(rows)
}

// ListAll retrieves every stored result, newest first.
func (r *TestResultRepository) ListAll(ctx context.Context) ([]model.TestResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+testResultColumns+` FROM test_results ORDER BY completed_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	return collectTestResults(rows)
}

func collectTestResults(rows pgx.Rows) ([]model.TestResult, error) {
	defer rows.Close()

	results := make([]model.TestResult, 0)
	for rows.Next() {
		res, err := scanTestResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, rows.Err()
}

func scanTestResult(row pgx.Row) (*model.TestResult, error) {
	var (
		res     model.TestResult
		answers []byte
		status  string
	)
	err := row.Scan(
		&res.ID, &res.CandidateID, &res.CandidateName, &res.CandidateEmail, &res.AdmissionNumber, &res.Branch,
		&res.Score, &res.TotalQuestions, &res.Percentage, &res.TimeSpent, &answers, &res.CompletedAt, &status,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answers, &res.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	res.Status = model.ResultStatus(status)
	return &res, nil
}
