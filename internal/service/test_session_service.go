package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/recruitment-portal/internal/metrics"
	"github.com/stemsi/recruitment-portal/internal/model"
	"github.com/stemsi/recruitment-portal/internal/questionbank"
	"github.com/stemsi/recruitment-portal/internal/repository"
	"github.com/stemsi/recruitment-portal/internal/scoring"
	"github.com/stemsi/recruitment-portal/internal/session"
)

// WarningDisplay is how long the first tab-switch warning stays visible.
const WarningDisplay = 5 * time.Second

// LowTimeThreshold is when the countdown switches to its warning style.
const LowTimeThreshold = 5 * time.Minute

// DetachedSubmitGrace is how long after the deadline a session without a live
// stream waits before a plain request closes it with an automatic submit.
const DetachedSubmitGrace = 30 * time.Second

// LeaveMessage is shown by the navigation guard while a test is in progress.
const LeaveMessage = "Are you sure you want to leave? Your test progress will be lost."

// ErrInvalidAnswer rejects a selection for an unknown question or option.
var ErrInvalidAnswer = errors.New("invalid answer selection")

// Outcome collects what applying one event produced.
type Outcome struct {
	State             session.State
	TabSwitchRecorded bool
	Warning           string
	Cancelled         bool
	ConfirmLeave      bool
	Result            *model.TestResult
	SubmitInFlight    bool
	// Reconciled is set when a refused write reloaded the durable status.
	Reconciled        bool
}

// TestSessionService runs the session state machine against the stores.
// Transitions are pure; store I/O happens only while executing their effects.
type TestSessionService struct {
	sched    session.Schedule
	bank     *questionbank.Bank
	profiles ProfileStore
	results  ResultStore
	statuses TestStatusStore
	events   EventPublisher
	now      func() time.Time
	log      zerolog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewTestSessionService creates a new TestSessionService.
func NewTestSessionService(
	sched session.Schedule,
	bank *questionbank.Bank,
	profiles ProfileStore,
	results ResultStore,
	statuses TestStatusStore,
	events EventPublisher,
	log zerolog.Logger,
) *TestSessionService {
	return &TestSessionService{
		sched:    sched,
		bank:     bank,
		profiles: profiles,
		results:  results,
		statuses: statuses,
		events:   events,
		now:      time.Now,
		log:      log.With().Str("component", "test_session_service").Logger(),
		inFlight: make(map[string]struct{}),
	}
}

// SetClock replaces the wall clock.
func (s *TestSessionService) SetClock(now func() time.Time) {
	s.now = now
}

// Schedule returns the configured test window.
func (s *TestSessionService) Schedule() session.Schedule {
	return s.sched
}

// Bank returns the question bank.
func (s *TestSessionService) Bank() *questionbank.Bank {
	return s.bank
}

// Load restores a candidate's session from the durable status, creating the
// status record on first access. A session still in progress well past the
// deadline is auto-submitted on the spot.
func (s *TestSessionService) Load(ctx context.Context, candidateID string) (session.State, error) {
	return s.load(ctx, candidateID, nil)
}

func (s *TestSessionService) load(ctx context.Context, candidateID string, answers map[string]int) (session.State, error) {
	status, err := s.statuses.GetOrCreate(ctx, candidateID)
	if err != nil {
		return session.State{}, persistence("load test status", err)
	}
	now := s.now()
	st := session.Restore(candidateID, status, s.sched, now)
	if st.Phase != session.PhaseInProgress || now.Before(s.sched.EndTime().Add(DetachedSubmitGrace)) {
		return st, nil
	}

	out, err := s.Apply(ctx, st, session.Tick{Now: now}, answers)
	return out.State, err
}

// View renders the candidate-facing snapshot of st at now.
func (s *TestSessionService) View(st session.State, now time.Time) model.SessionView {
	untilStart := s.sched.TimeUntilStart(now)
	untilEnd := s.sched.TimeUntilEnd(now)

	v := model.SessionView{
		Phase:             string(st.Phase),
		StartTime:         s.sched.StartTime,
		EndTime:           s.sched.EndTime(),
		SecondsUntilStart: int64(untilStart / time.Second),
		SecondsUntilEnd:   int64(untilEnd / time.Second),
		TabSwitchCount:    st.TabSwitchCount,
		MaxTabSwitches:    s.sched.MaxTabSwitches,
		TotalQuestions:    s.bank.Len(),
		LowTime:           st.Phase == session.PhaseInProgress && untilEnd < LowTimeThreshold,
	}

	switch st.Phase {
	case session.PhaseWaiting:
		v.Countdown = session.FormatCountdown(untilStart)
	case session.PhaseAvailable, session.PhaseInProgress:
		v.Countdown = session.FormatCountdown(untilEnd)
	}

	if err := session.CanStart(s.sched, st, now); err != nil {
		v.Reason = err.Error()
	} else {
		v.CanStart = true
	}
	return v
}

// Status returns the current session view.
func (s *TestSessionService) Status(ctx context.Context, candidateID string) (model.SessionView, error) {
	st, err := s.Load(ctx, candidateID)
	if err != nil {
		return model.SessionView{}, err
	}
	return s.View(st, s.now()), nil
}

// Start begins the test. Starting an in-progress test resumes it.
func (s *TestSessionService) Start(ctx context.Context, candidateID string) (model.SessionView, error) {
	st, err := s.Load(ctx, candidateID)
	if err != nil {
		return model.SessionView{}, err
	}
	now := s.now()
	out, err := s.Apply(ctx, st, session.Start{Now: now}, nil)
	if err != nil {
		return model.SessionView{}, err
	}
	return s.View(out.State, now), nil
}

// RecordHidden handles one loss of page visibility.
func (s *TestSessionService) RecordHidden(ctx context.Context, candidateID string) (model.TabSwitchOutcome, error) {
	st, err := s.Load(ctx, candidateID)
	if err != nil {
		return model.TabSwitchOutcome{}, err
	}
	out, err := s.Apply(ctx, st, session.Hidden{Now: s.now()}, nil)
	if err != nil {
		return model.TabSwitchOutcome{}, err
	}
	return model.TabSwitchOutcome{
		Recorded:       out.TabSwitchRecorded,
		TabSwitchCount: out.State.TabSwitchCount,
		MaxTabSwitches: s.sched.MaxTabSwitches,
		Warning:        out.Warning,
		Cancelled:      out.State.Phase == session.PhaseCancelled,
		Result:         out.Result,
	}, nil
}

// SuspendAttempt reports whether the navigation guard should be shown.
func (s *TestSessionService) SuspendAttempt(ctx context.Context, candidateID string) (bool, error) {
	st, err := s.Load(ctx, candidateID)
	if err != nil {
		return false, err
	}
	out, err := s.Apply(ctx, st, session.SuspendAttempt{}, nil)
	if err != nil {
		return false, err
	}
	return out.ConfirmLeave, nil
}

// Submit finishes the test with the candidate's answer map. A submit that
// races one already in flight reports InProgress and writes nothing. A repeat
// submit after success returns the stored result. A submit after the deadline
// is recorded as the automatic one, timed at the end of the window.
func (s *TestSessionService) Submit(ctx context.Context, candidateID string, answers map[string]int, auto bool) (model.SubmitOutcome, error) {
	st, err := s.load(ctx, candidateID, answers)
	if err != nil {
		return model.SubmitOutcome{}, err
	}

	out, err := s.Apply(ctx, st, session.SubmitRequested{Now: s.now(), Auto: auto}, answers)
	if errors.Is(err, session.ErrAlreadySubmitted) {
		existing, lookupErr := s.results.GetCompletedByCandidate(ctx, candidateID)
		if lookupErr != nil {
			return model.SubmitOutcome{}, persistence("load stored result", lookupErr)
		}
		return model.SubmitOutcome{Result: existing}, nil
	}
	if err != nil {
		return model.SubmitOutcome{}, err
	}
	return model.SubmitOutcome{Result: out.Result, InProgress: out.SubmitInFlight}, nil
}

// Apply feeds ev through the state machine, executes the resulting effects
// and loops their follow-up events back in. On error the returned state is
// the last consistent one.
func (s *TestSessionService) Apply(ctx context.Context, st session.State, ev session.Event, answers map[string]int) (Outcome, error) {
	var out Outcome
	queue := []session.Event{ev}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		next, effects, err := session.Transition(s.sched, st, current)
		if err != nil {
			out.State = st
			return out, err
		}

		for _, eff := range effects {
			follow, err := s.execute(ctx, next, eff, answers, &out)
			if err != nil {
				if follow != nil {
					// The follow-up settles the state, e.g. clears the in-flight flag.
					next, _, _ = session.Transition(s.sched, next, follow)
					out.State = next
				} else {
					out.State = st
				}
				return out, err
			}
			if follow != nil {
				queue = append(queue, follow)
			}
		}
		st = next
	}

	out.State = st
	return out, nil
}

func (s *TestSessionService) execute(ctx context.Context, st session.State, eff session.Effect, answers map[string]int, out *Outcome) (session.Event, error) {
	log := s.log.With().Str("candidate_id", st.CandidateID).Logger()

	switch e := eff.(type) {
	case session.PersistStart:
		if err := s.statuses.MarkStarted(ctx, st.CandidateID, e.At); err != nil {
			return nil, persistence("mark started", err)
		}
		metrics.SessionsStarted.Inc()
		log.Info().Msg("Test started")
		s.publish(ctx, model.MonitorEvent{Type: model.MonitorStarted, CandidateID: st.CandidateID, At: e.At})
		return nil, nil

	case session.RecordTabSwitch:
		count, recorded, err := s.statuses.IncrementTabSwitch(ctx, st.CandidateID, s.sched.MaxTabSwitches, e.At)
		if err != nil {
			return nil, persistence("record tab switch", err)
		}
		if !recorded {
			status, err := s.statuses.GetOrCreate(ctx, st.CandidateID)
			if err != nil {
				return nil, persistence("reload test status", err)
			}
			log.Info().Msg("Tab switch ignored for a finished test")
			out.Reconciled = true
			return session.StatusReloaded{Status: status, Now: e.At}, nil
		}
		out.TabSwitchRecorded = true
		metrics.TabSwitches.Inc()
		log.Warn().Int("count", count).Msg("Tab switch recorded")

		audit := model.TabSwitchEvent{
			CandidateID: st.CandidateID,
			Count:       count,
			Cancelled:   count > s.sched.MaxTabSwitches,
			RecordedAt:  e.At,
		}
		if s.events != nil {
			if err := s.events.EnqueueTabSwitch(ctx, audit); err != nil {
				log.Warn().Err(err).Msg("Failed to queue tab switch audit")
			}
		}
		s.publish(ctx, model.MonitorEvent{Type: model.MonitorTabSwitch, CandidateID: st.CandidateID, At: e.At, Data: audit})
		return session.TabSwitchRecorded{Count: count}, nil

	case session.ShowWarning:
		out.Warning = fmt.Sprintf(
			"You have switched the window. Doing this more times may cancel your test. (%d/%d switches used)",
			e.Count, e.Max)
		return nil, nil

	case session.CancelSession:
		at := s.now()
		// The counter is already durable, so a failed flag write still restores as cancelled.
		if err := s.statuses.MarkCancelled(ctx, st.CandidateID, at); err != nil {
			log.Error().Err(err).Msg("Failed to persist cancellation flag")
		}
		out.Cancelled = true
		out.Result = s.abandonedResult(ctx, st, at)
		metrics.Cancellations.Inc()
		log.Warn().Int("count", e.Count).Int("max", e.Max).Msg("Test cancelled for excessive tab switching")
		s.publish(ctx, model.MonitorEvent{Type: model.MonitorCancelled, CandidateID: st.CandidateID, At: at})
		return nil, nil

	case session.PerformSubmit:
		if !s.acquire(st.CandidateID) {
			out.SubmitInFlight = true
			return session.SubmitFailed{}, nil
		}
		defer s.release(st.CandidateID)

		res, status, err := s.submit(ctx, st, e, answers)
		if errors.Is(err, session.ErrTestCancelled) {
			metrics.Submissions.WithLabelValues(metrics.SubmitMode(e.Auto), "rejected").Inc()
			log.Warn().Bool("auto", e.Auto).Msg("Submission rejected for a cancelled test")
			out.Reconciled = true
			return session.StatusReloaded{Status: status, Now: e.At}, err
		}
		if err != nil {
			metrics.Submissions.WithLabelValues(metrics.SubmitMode(e.Auto), "failed").Inc()
			log.Error().Err(err).Bool("auto", e.Auto).Msg("Submission failed")
			return session.SubmitFailed{}, err
		}
		out.Result = res
		metrics.Submissions.WithLabelValues(metrics.SubmitMode(e.Auto), "stored").Inc()
		return session.SubmitSucceeded{At: e.At}, nil

	case session.ConfirmLeave:
		out.ConfirmLeave = true
		return nil, nil
	}
	return nil, nil
}

// submit freezes and scores the answers, stores the result and marks the
// status submitted. A result left behind by an earlier partial failure is
// reused. A test cancelled in the meantime is refused with the reloaded status.
func (s *TestSessionService) submit(ctx context.Context, st session.State, e session.PerformSubmit, answers map[string]int) (*model.TestResult, *model.UserTestStatus, error) {
	status, err := s.statuses.GetOrCreate(ctx, st.CandidateID)
	if err != nil {
		return nil, nil, persistence("reload test status", err)
	}
	if status.HasSubmitted {
		existing, err := s.results.GetCompletedByCandidate(ctx, st.CandidateID)
		if err != nil {
			return nil, nil, persistence("load stored result", err)
		}
		return existing, status, nil
	}
	if status.IsTestCancelled || status.TabSwitchCount > s.sched.MaxTabSwitches {
		return nil, status, session.ErrTestCancelled
	}

	frozen := s.bank.Freeze(answers)
	score := scoring.Calculate(frozen)

	res := s.newResult(ctx, st, e.At)
	res.ID = uuid.New().String()
	res.Score = score.Score
	res.TotalQuestions = score.Total
	res.Percentage = score.Percentage
	res.Answers = frozen
	res.Status = model.ResultStatusCompleted

	if err := s.results.Create(ctx, res); err != nil {
		if !errors.Is(err, repository.ErrResultExists) {
			return nil, nil, persistence("store result", err)
		}
		existing, err := s.results.GetCompletedByCandidate(ctx, st.CandidateID)
		if err != nil {
			return nil, nil, persistence("load stored result", err)
		}
		res = existing
	}

	if err := s.statuses.MarkSubmitted(ctx, st.CandidateID, e.At); err != nil {
		return nil, nil, persistence("mark submitted", err)
	}

	s.log.Info().
		Str("candidate_id", st.CandidateID).
		Int("score", res.Score).
		Int("total", res.TotalQuestions).
		Bool("auto", e.Auto).
		Msg("Test submitted and graded")
	s.publish(ctx, model.MonitorEvent{
		Type:        model.MonitorSubmitted,
		CandidateID: st.CandidateID,
		At:          e.At,
		Data: map[string]interface{}{
			"score":      res.Score,
			"percentage": res.Percentage,
			"auto":       e.Auto,
		},
	})
	return res, status, nil
}

// abandonedResult synthesizes the zero-score result shown after cancellation.
// It is not stored.
func (s *TestSessionService) abandonedResult(ctx context.Context, st session.State, at time.Time) *model.TestResult {
	res := s.newResult(ctx, st, at)
	res.TotalQuestions = s.bank.Len()
	res.Answers = []model.Answer{}
	res.Status = model.ResultStatusAbandoned
	return res
}

// newResult fills the denormalized profile fields and timing.
func (s *TestSessionService) newResult(ctx context.Context, st session.State, at time.Time) *model.TestResult {
	res := &model.TestResult{
		CandidateID: st.CandidateID,
		CompletedAt: at.UTC(),
	}
	if !st.StartedAt.IsZero() && at.After(st.StartedAt) {
		res.TimeSpent = int(at.Sub(st.StartedAt) / time.Second)
	}

	profile, err := s.profiles.GetByID(ctx, st.CandidateID)
	if err != nil {
		s.log.Warn().Err(err).Str("candidate_id", st.CandidateID).Msg("Result written without profile fields")
		return res
	}
	res.CandidateName = profile.Name
	res.CandidateEmail = profile.Email
	res.AdmissionNumber = profile.AdmissionNumber
	res.Branch = profile.Branch
	return res
}

func (s *TestSessionService) acquire(candidateID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[candidateID]; busy {
		return false
	}
	s.inFlight[candidateID] = struct{}{}
	return true
}

func (s *TestSessionService) release(candidateID string) {
	s.mu.Lock()
	delete(s.inFlight, candidateID)
	s.mu.Unlock()
}

func (s *TestSessionService) publish(ctx context.Context, ev model.MonitorEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("type", string(ev.Type)).Msg("Failed to publish monitor event")
	}
}
