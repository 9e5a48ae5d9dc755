// Package session implements the per-candidate test session state machine.
//
// The package is pure: Transition maps (state, event) to (state', effects)
// and performs no I/O. Callers execute the returned effects against their
// stores and feed the outcome back in as further events.
package session

import (
	"errors"
	"time"

	"github.com/stemsi/recruitment-portal/internal/model"
)

// Phase enumerates session phases.
type Phase string

const (
	PhaseWaiting           Phase = "WAITING"
	PhaseAvailable         Phase = "AVAILABLE"
	PhaseInProgress        Phase = "IN_PROGRESS"
	PhaseSubmitted         Phase = "SUBMITTED"
	PhaseCancelled         Phase = "CANCELLED"
	PhaseExpiredUnanswered Phase = "EXPIRED_UNANSWERED"
)

// Terminal reports whether no transition can leave the phase.
func (p Phase) Terminal() bool {
	return p == PhaseSubmitted || p == PhaseCancelled || p == PhaseExpiredUnanswered
}

// Precondition violations for Start and Submit. State is never changed when
// one of these is returned.
var (
	ErrNotYetAvailable  = errors.New("the test has not started yet")
	ErrWindowClosed     = errors.New("the test window has closed")
	ErrAlreadySubmitted = errors.New("you have already submitted this test")
	ErrTestCancelled    = errors.New("your test was cancelled due to excessive tab switching")
	ErrNotInProgress    = errors.New("the test is not in progress")
)

// State is one candidate's session.
type State struct {
	CandidateID    string
	Phase          Phase
	TabSwitchCount int
	StartedAt      time.Time
	SubmittedAt    time.Time

	// Submitting is set while a submit is in flight.
	Submitting bool
	// AutoSubmitAttempted makes the deadline submit fire at most once.
	AutoSubmitAttempted bool
}

// Restore re-derives a session from the durable status record. Submitted and
// cancelled are read back, a recorded start means in progress, and everything
// else is recomputed from the clock.
func Restore(candidateID string, status *model.UserTestStatus, sched Schedule, now time.Time) State {
	st := State{CandidateID: candidateID}
	if status == nil {
		st.Phase = sched.ClockPhase(now)
		return st
	}

	st.TabSwitchCount = status.TabSwitchCount
	if status.StartedAt != nil {
		st.StartedAt = *status.StartedAt
	}
	if status.SubmissionDate != nil {
		st.SubmittedAt = *status.SubmissionDate
	}

	switch {
	case status.HasSubmitted:
		st.Phase = PhaseSubmitted
	case status.IsTestCancelled, status.TabSwitchCount > sched.MaxTabSwitches:
		st.Phase = PhaseCancelled
	case status.StartedAt != nil:
		st.Phase = PhaseInProgress
	default:
		st.Phase = sched.ClockPhase(now)
	}
	return st
}

// CanStart returns the precondition that blocks Start, or nil.
func CanStart(sched Schedule, st State, now time.Time) error {
	switch {
	case st.Phase == PhaseSubmitted:
		return ErrAlreadySubmitted
	case st.Phase == PhaseCancelled:
		return ErrTestCancelled
	case st.Phase == PhaseInProgress:
		return nil
	case !sched.Started(now):
		return ErrNotYetAvailable
	case sched.Ended(now):
		return ErrWindowClosed
	}
	return nil
}
