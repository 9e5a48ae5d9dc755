package session

import (
	"time"

	"github.com/stemsi/recruitment-portal/internal/model"
)

// ─── Events ─────────────────────────────────────────────────────────

// Event is an input to Transition.
type Event interface{ isEvent() }

// Tick samples the clock. Derived phases are recomputed from Now.
type Tick struct{ Now time.Time }

// Start is the candidate beginning the test.
type Start struct{ Now time.Time }

// Hidden is the host reporting a loss of page visibility.
type Hidden struct{ Now time.Time }

// SuspendAttempt is the host reporting an unload or navigation attempt.
type SuspendAttempt struct{}

// TabSwitchRecorded carries the durable counter after an increment.
type TabSwitchRecorded struct{ Count int }

// SubmitRequested asks to finish the test, manually or on deadline.
type SubmitRequested struct {
	Now  time.Time
	Auto bool
}

// SubmitSucceeded reports that the result and status were stored.
type SubmitSucceeded struct{ At time.Time }

// SubmitFailed reports a failed submission. No retry is scheduled.
type SubmitFailed struct{}

// StatusReloaded carries the durable status after a store write was refused
// because the session had already finished elsewhere.
type StatusReloaded struct {
	Status *model.UserTestStatus
	Now    time.Time
}

func (Tick) isEvent()              {}
func (Start) isEvent()             {}
func (Hidden) isEvent()            {}
func (SuspendAttempt) isEvent()    {}
func (TabSwitchRecorded) isEvent() {}
func (SubmitRequested) isEvent()   {}
func (SubmitSucceeded) isEvent()   {}
func (SubmitFailed) isEvent()      {}
func (StatusReloaded) isEvent()    {}

// ─── Effects ────────────────────────────────────────────────────────

// Effect is work the caller must perform after a transition.
type Effect interface{ isEffect() }

// PersistStart records the session start time.
type PersistStart struct{ At time.Time }

// RecordTabSwitch increments the durable tab-switch counter.
type RecordTabSwitch struct{ At time.Time }

// ShowWarning displays the transient tab-switch warning.
type ShowWarning struct{ Count, Max int }

// CancelSession persists cancellation and yields an abandoned result.
type CancelSession struct{ Count, Max int }

// PerformSubmit freezes, scores and stores the answers.
type PerformSubmit struct {
	At   time.Time
	Auto bool
}

// ConfirmLeave asks the host to show the navigation guard.
type ConfirmLeave struct{}

func (PersistStart) isEffect()    {}
func (RecordTabSwitch) isEffect() {}
func (ShowWarning) isEffect()     {}
func (CancelSession) isEffect()   {}
func (PerformSubmit) isEffect()   {}
func (ConfirmLeave) isEffect()    {}

// ─── Transition ─────────────────────────────────────────────────────

// Transition applies ev to st. On error the returned state equals st and no
// effects are produced.
func Transition(sched Schedule, st State, ev Event) (State, []Effect, error) {
	switch e := ev.(type) {
	case Tick:
		return onTick(sched, st, e.Now)
	case Start:
		return onStart(sched, st, e.Now)
	case Hidden:
		if st.Phase != PhaseInProgress || st.Submitting {
			return st, nil, nil
		}
		return st, []Effect{RecordTabSwitch{At: e.Now}}, nil
	case SuspendAttempt:
		if st.Phase != PhaseInProgress {
			return st, nil, nil
		}
		return st, []Effect{ConfirmLeave{}}, nil
	case TabSwitchRecorded:
		return onTabSwitchRecorded(sched, st, e.Count)
	case SubmitRequested:
		return onSubmit(sched, st, e)
	case SubmitSucceeded:
		if st.Phase != PhaseInProgress {
			return st, nil, nil
		}
		st.Phase = PhaseSubmitted
		st.SubmittedAt = e.At
		st.Submitting = false
		return st, nil, nil
	case SubmitFailed:
		st.Submitting = false
		return st, nil, nil
	case StatusReloaded:
		next := Restore(st.CandidateID, e.Status, sched, e.Now)
		next.AutoSubmitAttempted = st.AutoSubmitAttempted
		return next, nil, nil
	}
	return st, nil, nil
}

func onTick(sched Schedule, st State, now time.Time) (State, []Effect, error) {
	switch st.Phase {
	case PhaseWaiting, PhaseAvailable:
		// Waiting and Available follow the clock in both directions.
		st.Phase = sched.ClockPhase(now)
		return st, nil, nil
	case PhaseInProgress:
		if sched.Ended(now) && !st.Submitting && !st.AutoSubmitAttempted {
			st.Submitting = true
			st.AutoSubmitAttempted = true
			return st, []Effect{PerformSubmit{At: sched.EndTime(), Auto: true}}, nil
		}
	}
	return st, nil, nil
}

func onStart(sched Schedule, st State, now time.Time) (State, []Effect, error) {
	if err := CanStart(sched, st, now); err != nil {
		return st, nil, err
	}
	if st.Phase == PhaseInProgress {
		// Resume.
		return st, nil, nil
	}
	st.Phase = PhaseInProgress
	st.StartedAt = now
	return st, []Effect{PersistStart{At: now}}, nil
}

func onTabSwitchRecorded(sched Schedule, st State, count int) (State, []Effect, error) {
	if count > st.TabSwitchCount {
		st.TabSwitchCount = count
	}
	if st.Phase != PhaseInProgress {
		return st, nil, nil
	}
	if st.TabSwitchCount > sched.MaxTabSwitches {
		st.Phase = PhaseCancelled
		st.Submitting = false
		// Only the increment that crosses the limit cancels.
		if count != sched.MaxTabSwitches+1 {
			return st, nil, nil
		}
		return st, []Effect{CancelSession{Count: count, Max: sched.MaxTabSwitches}}, nil
	}
	if st.TabSwitchCount == 1 {
		return st, []Effect{ShowWarning{Count: 1, Max: sched.MaxTabSwitches}}, nil
	}
	return st, nil, nil
}

// onSubmit caps a submit that arrives after the deadline at the end of the
// window and treats it as the automatic one.
func onSubmit(sched Schedule, st State, e SubmitRequested) (State, []Effect, error) {
	switch st.Phase {
	case PhaseSubmitted:
		return st, nil, ErrAlreadySubmitted
	case PhaseCancelled:
		return st, nil, ErrTestCancelled
	case PhaseExpiredUnanswered:
		return st, nil, ErrWindowClosed
	case PhaseWaiting, PhaseAvailable:
		return st, nil, ErrNotInProgress
	}
	if st.Submitting {
		return st, nil, nil
	}
	if sched.Ended(e.Now) {
		e.Now = sched.EndTime()
		e.Auto = true
	}
	st.Submitting = true
	if e.Auto {
		st.AutoSubmitAttempted = true
	}
	return st, []Effect{PerformSubmit{At: e.Now, Auto: e.Auto}}, nil
}
