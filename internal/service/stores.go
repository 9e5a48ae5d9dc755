package service

import (
	"context"
	"time"

	"github.com/stemsi/recruitment-portal/internal/model"
)

// AccountStore holds credentials.
type AccountStore interface {
	Create(ctx context.Context, a *model.Account) error
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	GetByID(ctx context.Context, id string) (*model.Account, error)
	Delete(ctx context.Context, id string) error
}

// ProfileStore is the profiles collection, keyed by principal id.
type ProfileStore interface {
	Create(ctx context.Context, p *model.CandidateProfile) error
	GetByID(ctx context.Context, id string) (*model.CandidateProfile, error)
	ExistsByAdmissionNumber(ctx context.Context, admissionNumber string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
}

// ResultStore is the append-only testResults collection.
type ResultStore interface {
	Create(ctx context.Context, r *model.TestResult) error
	GetCompletedByCandidate(ctx context.Context, candidateID string) (*model.TestResult, error)
	ListByCandidate(ctx context.Context, candidateID string) ([]model.TestResult, error)
	ListAll(ctx context.Context) ([]model.TestResult, error)
}

// TestStatusStore is the userTestStatus collection, keyed by candidate id.
type TestStatusStore interface {
	GetOrCreate(ctx context.Context, candidateID string) (*model.UserTestStatus, error)
	MarkStarted(ctx context.Context, candidateID string, at time.Time) error
	// IncrementTabSwitch adds one to the counter while the test is neither
	// cancelled nor submitted and the counter is at most limit. recorded is
	// false when the write was refused.
	IncrementTabSwitch(ctx context.Context, candidateID string, limit int, at time.Time) (count int, recorded bool, err error)
	MarkCancelled(ctx context.Context, candidateID string, at time.Time) error
	MarkSubmitted(ctx context.Context, candidateID string, at time.Time) error
	Summary(ctx context.Context) (*model.TestStatusSummary, error)
}

// SessionCache tracks active logins and failed-login counters.
type SessionCache interface {
	SetSession(ctx context.Context, principalID, jti string, ttl time.Duration) error
	GetSession(ctx context.Context, principalID string) (string, error)
	DeleteSession(ctx context.Context, principalID string) error
	LoginAttempts(ctx context.Context, email string) (int64, error)
	IncrLoginAttempts(ctx context.Context, email string, window time.Duration) (int64, error)
	ResetLoginAttempts(ctx context.Context, email string) error
}

// EventPublisher feeds the live monitor and the tab-switch audit trail.
type EventPublisher interface {
	Publish(ctx context.Context, ev model.MonitorEvent) error
	EnqueueTabSwitch(ctx context.Context, ev model.TabSwitchEvent) error
}
