package handler

import (
	"context"
	"sync"
	"time"

	"github.com/stemsi/recruitment-portal/internal/model"
	"github.com/stemsi/recruitment-portal/internal/repository"
)

// memStore backs every store interface with maps guarded by one mutex.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*model.Account
	profiles map[string]*model.CandidateProfile
	results  []model.TestResult
	statuses map[string]*model.UserTestStatus
	sessions map[string]string
	attempts map[string]int64
	events   []model.MonitorEvent
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[string]*model.Account),
		profiles: make(map[string]*model.CandidateProfile),
		statuses: make(map[string]*model.UserTestStatus),
		sessions: make(map[string]string),
		attempts: make(map[string]int64),
	}
}

type memAccounts struct{ *memStore }

func (m memAccounts) Create(_ context.Context, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Email == a.Email {
			return repository.ErrEmailTaken
		}
	}
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m memAccounts) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m memAccounts) GetByID(_ context.Context, id string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m memAccounts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, id)
	return nil
}

type memProfiles struct{ *memStore }

func (m memProfiles) Create(_ context.Context, p *model.CandidateProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.profiles {
		if existing.AdmissionNumber == p.AdmissionNumber {
			return repository.ErrDuplicateAdmissionNumber
		}
		if existing.Phone == p.Phone {
			return repository.ErrDuplicatePhone
		}
	}
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

func (m memProfiles) GetByID(_ context.Context, id string) (*model.CandidateProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m memProfiles) ExistsByAdmissionNumber(_ context.Context, n string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.AdmissionNumber == n {
			return true, nil
		}
	}
	return false, nil
}

func (m memProfiles) ExistsByPhone(_ context.Context, phone string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

type memResults struct{ *memStore }

func (m memResults) Create(_ context.Context, r *model.TestResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.results {
		if existing.CandidateID == r.CandidateID && existing.Status == model.ResultStatusCompleted {
			return repository.ErrResultExists
		}
	}
	m.results = append(m.results, *r)
	return nil
}

func (m memResults) GetCompletedByCandidate(_ context.Context, id string) (*model.TestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.results {
		if m.results[i].CandidateID == id && m.results[i].Status == model.ResultStatusCompleted {
			cp := m.results[i]
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m memResults) ListByCandidate(_ context.Context, id string) ([]model.TestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.TestResult
	for _, r := range m.results {
		if r.CandidateID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m memResults) ListAll(_ context.Context) ([]model.TestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.TestResult(nil), m.results...), nil
}

type memStatuses struct{ *memStore }

func (m memStatuses) get(id string) *model.UserTestStatus {
	s, ok := m.statuses[id]
	if !ok {
		s = &model.UserTestStatus{CandidateID: id}
		m.statuses[id] = s
	}
	return s
}

func (m memStatuses) GetOrCreate(_ context.Context, id string) (*model.UserTestStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.get(id)
	return &cp, nil
}

func (m memStatuses) MarkStarted(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.get(id); s.StartedAt == nil {
		s.StartedAt = &at
	}
	return nil
}

func (m memStatuses) IncrementTabSwitch(_ context.Context, id string, limit int, at time.Time) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(id)
	if s.IsTestCancelled || s.HasSubmitted || s.TabSwitchCount > limit {
		return 0, false, nil
	}
	s.TabSwitchCount++
	s.LastActivity = at
	return s.TabSwitchCount, true, nil
}

func (m memStatuses) MarkCancelled(_ context.Context, id string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(id).IsTestCancelled = true
	return nil
}

func (m memStatuses) MarkSubmitted(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(id)
	s.HasSubmitted = true
	s.SubmissionDate = &at
	return nil
}

func (m memStatuses) Summary(_ context.Context) (*model.TestStatusSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := &model.TestStatusSummary{Total: len(m.statuses)}
	for _, s := range m.statuses {
		switch {
		case s.HasSubmitted:
			sum.Submitted++
		case s.IsTestCancelled:
			sum.Cancelled++
		case s.StartedAt != nil:
			sum.InProgress++
		}
	}
	return sum, nil
}

type memSessions struct{ *memStore }

func (m memSessions) SetSession(_ context.Context, id, jti string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = jti
	return nil
}

func (m memSessions) GetSession(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id], nil
}

func (m memSessions) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m memSessions) LoginAttempts(_ context.Context, email string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts[email], nil
}

func (m memSessions) IncrLoginAttempts(_ context.Context, email string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[email]++
	return m.attempts[email], nil
}

func (m memSessions) ResetLoginAttempts(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attempts, email)
	return nil
}

type memEvents struct{ *memStore }

func (m memEvents) Publish(_ context.Context, ev model.MonitorEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m memEvents) EnqueueTabSwitch(context.Context, model.TabSwitchEvent) error {
	return nil
}
