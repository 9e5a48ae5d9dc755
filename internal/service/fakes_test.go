package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/recruitment-portal/internal/config"
	"github.com/stemsi/recruitment-portal/internal/model"
	"github.com/stemsi/recruitment-portal/internal/questionbank"
	"github.com/stemsi/recruitment-portal/internal/repository"
	"github.com/stemsi/recruitment-portal/internal/session"
)

var (
	testStart = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	errStore  = errors.New("store unavailable")
)

// ─── Accounts ───────────────────────────────────────────────────────

type fakeAccounts struct {
	mu      sync.Mutex
	byID    map[string]*model.Account
	deleted []string
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byID: make(map[string]*model.Account)}
}

func (f *fakeAccounts) Create(_ context.Context, a *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == a.Email {
			return repository.ErrEmailTaken
		}
	}
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAccounts) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

// ─── Profiles ───────────────────────────────────────────────────────

type fakeProfiles struct {
	mu   sync.Mutex
	byID map[string]*model.CandidateProfile
	// skipExistsCheck makes Exists* report false so Create loses the race.
	skipExistsCheck bool
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{byID: make(map[string]*model.CandidateProfile)}
}

func (f *fakeProfiles) Create(_ context.Context, p *model.CandidateProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.AdmissionNumber == p.AdmissionNumber {
			return repository.ErrDuplicateAdmissionNumber
		}
		if existing.Phone == p.Phone {
			return repository.ErrDuplicatePhone
		}
	}
	cp := *p
	cp.CreatedAt = time.Now()
	f.byID[p.ID] = &cp
	return nil
}

func (f *fakeProfiles) GetByID(_ context.Context, id string) (*model.CandidateProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) ExistsByAdmissionNumber(_ context.Context, n string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.skipExistsCheck {
		return false, nil
	}
	for _, p := range f.byID {
		if p.AdmissionNumber == n {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProfiles) ExistsByPhone(_ context.Context, phone string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.skipExistsCheck {
		return false, nil
	}
	for _, p := range f.byID {
		if p.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

// ─── Results ────────────────────────────────────────────────────────

type fakeResults struct {
	mu        sync.Mutex
	items     []model.TestResult
	creates   int
	createErr error
	getErr    error
	// createGate, when set, blocks Create until it is closed.
	createGate chan struct{}
}

func (f *fakeResults) Create(_ context.Context, r *model.TestResult) error {
	if f.createGate != nil {
		<-f.createGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return f.createErr
	}
	if r.Status == model.ResultStatusCompleted {
		for _, existing := range f.items {
			if existing.CandidateID == r.CandidateID && existing.Status == model.ResultStatusCompleted {
				return repository.ErrResultExists
			}
		}
	}
	f.items = append(f.items, *r)
	return nil
}

func (f *fakeResults) GetCompletedByCandidate(_ context.Context, id string) (*model.TestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for i := range f.items {
		if f.items[i].CandidateID == id && f.items[i].Status == model.ResultStatusCompleted {
			cp := f.items[i]
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeResults) ListByCandidate(_ context.Context, id string) ([]model.TestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TestResult
	for _, r := range f.items {
		if r.CandidateID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeResults) ListAll(_ context.Context) ([]model.TestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]model.TestResult(nil), f.items...)
	sort.Slice(out, func(i, j int) bool { return out[i].CandidateID < out[j].CandidateID })
	return out, nil
}

func (f *fakeResults) stored() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// ─── Test status ────────────────────────────────────────────────────

type fakeStatuses struct {
	mu              sync.Mutex
	byID            map[string]*model.UserTestStatus
	submittedWrites int
	incrementErr    error
	submitErr       error

	refusedIncrements int
}

func newFakeStatuses() *fakeStatuses {
	return &fakeStatuses{byID: make(map[string]*model.UserTestStatus)}
}

func (f *fakeStatuses) get(id string) *model.UserTestStatus {
	s, ok := f.byID[id]
	if !ok {
		s = &model.UserTestStatus{CandidateID: id}
		f.byID[id] = s
	}
	return s
}

func (f *fakeStatuses) GetOrCreate(_ context.Context, id string) (*model.UserTestStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.get(id)
	return &cp, nil
}

func (f *fakeStatuses) MarkStarted(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.get(id)
	if s.StartedAt == nil {
		s.StartedAt = &at
	}
	return nil
}

func (f *fakeStatuses) IncrementTabSwitch(_ context.Context, id string, limit int, at time.Time) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrementErr != nil {
		return 0, false, f.incrementErr
	}
	s := f.get(id)
	if s.IsTestCancelled || s.HasSubmitted || s.TabSwitchCount > limit {
		f.refusedIncrements++
		return 0, false, nil
	}
	s.TabSwitchCount++
	s.LastActivity = at
	return s.TabSwitchCount, true, nil
}

func (f *fakeStatuses) MarkCancelled(_ context.Context, id string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.get(id).IsTestCancelled = true
	return nil
}

func (f *fakeStatuses) MarkSubmitted(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	s := f.get(id)
	s.HasSubmitted = true
	s.SubmissionDate = &at
	f.submittedWrites++
	return nil
}

func (f *fakeStatuses) Summary(_ context.Context) (*model.TestStatusSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := &model.TestStatusSummary{Total: len(f.byID)}
	for _, s := range f.byID {
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

func (f *fakeStatuses) status(id string) model.UserTestStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.get(id)
}

// ─── Session cache ──────────────────────────────────────────────────

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]string
	attempts map[string]int64
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[string]string), attempts: make(map[string]int64)}
}

func (f *fakeSessions) SetSession(_ context.Context, id, jti string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[id] = jti
	return nil
}

func (f *fakeSessions) GetSession(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id], nil
}

func (f *fakeSessions) DeleteSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessions) LoginAttempts(_ context.Context, email string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[email], nil
}

func (f *fakeSessions) IncrLoginAttempts(_ context.Context, email string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[email]++
	return f.attempts[email], nil
}

func (f *fakeSessions) ResetLoginAttempts(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.attempts, email)
	return nil
}

// ─── Events ─────────────────────────────────────────────────────────

type fakeEvents struct {
	mu        sync.Mutex
	published []model.MonitorEvent
	audits    []model.TabSwitchEvent
}

func (f *fakeEvents) Publish(_ context.Context, ev model.MonitorEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, ev)
	return nil
}

func (f *fakeEvents) EnqueueTabSwitch(_ context.Context, ev model.TabSwitchEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits = append(f.audits, ev)
	return nil
}

func (f *fakeEvents) types() []model.MonitorEventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.MonitorEventType, 0, len(f.published))
	for _, ev := range f.published {
		out = append(out, ev.Type)
	}
	return out
}

func (f *fakeEvents) count(typ model.MonitorEventType) int {
	n := 0
	for _, t := range f.types() {
		if t == typ {
			n++
		}
	}
	return n
}

// ─── Clock ──────────────────────────────────────────────────────────

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// ─── Fixture ────────────────────────────────────────────────────────

type fixture struct {
	cfg      *config.Config
	accounts *fakeAccounts
	profiles *fakeProfiles
	results  *fakeResults
	statuses *fakeStatuses
	sessions *fakeSessions
	events   *fakeEvents
	clock    *fakeClock

	auth      *AuthService
	identity  *IdentityService
	tests     *TestSessionService
	resultSvc *ResultService
}

func newFixture() *fixture {
	cfg := &config.Config{
		JWTSecret:         "test-secret",
		JWTExpiry:         time.Hour,
		BcryptCost:        4,
		MinPasswordLength: 6,
		LoginMaxAttempts:  3,
		LoginLockout:      15 * time.Minute,
		AdminEmails:       []string{"admin@example.com"},
		TestStartTime:     testStart,
		TestDuration:      time.Hour,
		MaxTabSwitches:    2,
	}

	bank, err := questionbank.Default()
	if err != nil {
		panic(err)
	}

	f := &fixture{
		cfg:      cfg,
		accounts: newFakeAccounts(),
		profiles: newFakeProfiles(),
		results:  &fakeResults{},
		statuses: newFakeStatuses(),
		sessions: newFakeSessions(),
		events:   &fakeEvents{},
		clock:    &fakeClock{now: testStart.Add(-time.Minute)},
	}

	log := zerolog.Nop()
	sched := session.Schedule{StartTime: cfg.TestStartTime, Duration: cfg.TestDuration, MaxTabSwitches: cfg.MaxTabSwitches}

	f.auth = NewAuthService(cfg, f.sessions)
	f.identity = NewIdentityService(cfg, f.auth, f.accounts, f.profiles, f.events, log)
	f.tests = NewTestSessionService(sched, bank, f.profiles, f.results, f.statuses, f.events, log)
	f.tests.SetClock(f.clock.Now)
	f.resultSvc = NewResultService(f.tests, f.results, log)
	return f
}

func validSignup() model.SignupRequest {
	return model.SignupRequest{
		Name:            "Asha Rao",
		Email:           "asha@example.com",
		Phone:           "9876543210",
		AdmissionNumber: "123456",
		Branch:          model.Branches[0],
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}
}

// seedCandidate registers a profile directly, bypassing signup.
func (f *fixture) seedCandidate(id string) {
	_ = f.profiles.Create(context.Background(), &model.CandidateProfile{
		ID:              id,
		Name:            "Candidate " + id,
		Email:           id + "@example.com",
		Phone:           "90000000" + id[len(id)-2:],
		AdmissionNumber: "1000" + id[len(id)-2:],
		Branch:          model.Branches[0],
	})
}

// answerKey is the reference bank's correct option per question.
var answerKey = map[string]int{
	"1": 1, "2": 2, "3": 0, "4": 1, "5": 1,
	"6": 2, "7": 1, "8": 2, "9": 1, "10": 3,
}
