package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/recruitment-portal/internal/model"
)

// TestStatusRepository handles the durable per-candidate test status.
type TestStatusRepository struct {
	pool *pgxpool.Pool
}

// NewTestStatusRepository creates a new TestStatusRepository.
func NewTestStatusRepository(pool *pgxpool.Pool) *TestStatusRepository {
	return &TestStatusRepository{pool: pool}
}

// GetOrCreate returns the status row, inserting an empty one on first access.
func (r *TestStatusRepository) GetOrCreate(ctx context.Context, candidateID string) (*model.UserTestStatus, error) {
	if _, err := r.pool.Exec(ctx,
		`INSERT INTO user_test_status (candidate_id) VALUES ($1)
		 ON CONFLICT (candidate_id) DO NOTHING`, candidateID,
	); err != nil {
		return nil, err
	}

	s := &model.UserTestStatus{}
	err := r.pool.QueryRow(ctx,
		`SELECT candidate_id, has_submitted, submission_date, tab_switch_count,
		        is_test_cancelled, started_at, last_activity
		 FROM user_test_status WHERE candidate_id = $1`, candidateID,
	).Scan(&s.CandidateID, &s.HasSubmitted, &s.SubmissionDate, &s.TabSwitchCount,
		&s.IsTestCancelled, &s.StartedAt, &s.LastActivity)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// MarkStarted records the first start time. Later calls keep the original.
func (r *TestStatusRepository) MarkStarted(ctx context.Context, candidateID string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE user_test_status
		 SET started_at = COALESCE(started_at, $2), last_activity = $2
		 WHERE candidate_id = $1`, candidateID, at)
	return err
}

// IncrementTabSwitch atomically adds one to the counter of a live test. The
// limit guard lets exactly one increment reach limit+1.
func (r *TestStatusRepository) IncrementTabSwitch(ctx context.Context, candidateID string, limit int, at time.Time) (int, bool, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`UPDATE user_test_status
		 SET tab_switch_count = tab_switch_count + 1, last_activity = $2
		 WHERE candidate_id = $1
		   AND NOT is_test_cancelled
		   AND NOT has_submitted
		   AND tab_switch_count <= $3
		 RETURNING tab_switch_count`, candidateID, at, limit,
	).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}

// MarkCancelled sets the cancellation flag.
func (r *TestStatusRepository) MarkCancelled(ctx context.Context, candidateID string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE user_test_status
		 SET is_test_cancelled = TRUE, last_activity = $2
		 WHERE candidate_id = $1`, candidateID, at)
	return err
}

// MarkSubmitted sets hasSubmitted and the submission date.
func (r *TestStatusRepository) MarkSubmitted(ctx context.Context, candidateID string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE user_test_status
		 SET has_submitted = TRUE, submission_date = COALESCE(submission_date, $2), last_activity = $2
		 WHERE candidate_id = $1`, candidateID, at)
	return err
}

// Summary counts candidates by status for the admin monitor.
func (r *TestStatusRepository) Summary(ctx context.Context) (*model.TestStatusSummary, error) {
	s := &model.TestStatusSummary{}
	err := r.pool.QueryRow(ctx,
		`SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE started_at IS NOT NULL AND NOT has_submitted AND NOT is_test_cancelled),
			COUNT(*) FILTER (WHERE has_submitted),
			COUNT(*) FILTER (WHERE is_test_cancelled)
		 FROM user_test_status`,
	).Scan(&s.Total, &s.InProgress, &s.Submitted, &s.Cancelled)
	if err != nil {
		return nil, err
	}
	return s, nil
}
