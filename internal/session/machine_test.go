package session

import (
	"testing"
	"time"

	"github.com/stemsi/recruitment-portal/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func testSchedule() Schedule {
	return Schedule{StartTime: t0, Duration: time.Hour, MaxTabSwitches: 2}
}

func inProgress() State {
	return State{CandidateID: "c1", Phase: PhaseInProgress, StartedAt: t0.Add(time.Minute)}
}

func apply(t *testing.T, st State, ev Event) (State, []Effect) {
	t.Helper()
	next, effects, err := Transition(testSchedule(), st, ev)
	require.NoError(t, err)
	return next, effects
}

func TestTick_PhaseFollowsClock(t *testing.T) {
	sched := testSchedule()
	st := State{CandidateID: "c1", Phase: PhaseWaiting}

	for _, tc := range []struct {
		now  time.Time
		want Phase
	}{
		{t0.Add(-time.Second), PhaseWaiting},
		{t0, PhaseAvailable},
		{t0.Add(59 * time.Minute), PhaseAvailable},
		{t0.Add(-time.Minute), PhaseWaiting}, // clock moved back before any start
		{t0.Add(time.Hour), PhaseExpiredUnanswered},
	} {
		next, effects, err := Transition(sched, st, Tick{Now: tc.now})
		require.NoError(t, err)
		assert.Empty(t, effects)
		assert.Equal(t, tc.want, next.Phase, "at %s", tc.now)
		st = next
	}
}

func TestTick_NeverWaitingAfterStart(t *testing.T) {
	sched := testSchedule()
	for _, phase := range []Phase{PhaseInProgress, PhaseSubmitted, PhaseCancelled} {
		st := State{Phase: phase, StartedAt: t0}
		next, _, err := Transition(sched, st, Tick{Now: t0.Add(-time.Hour)})
		require.NoError(t, err)
		assert.Equal(t, phase, next.Phase)
	}
}

func TestStart_Preconditions(t *testing.T) {
	sched := testSchedule()
	tests := []struct {
		name string
		st   State
		now  time.Time
		err  error
	}{
		{"before window", State{Phase: PhaseWaiting}, t0.Add(-time.Second), ErrNotYetAvailable},
		{"after window", State{Phase: PhaseAvailable}, t0.Add(time.Hour), ErrWindowClosed},
		{"already submitted", State{Phase: PhaseSubmitted}, t0.Add(time.Minute), ErrAlreadySubmitted},
		{"cancelled", State{Phase: PhaseCancelled}, t0.Add(time.Minute), ErrTestCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, effects, err := Transition(sched, tt.st, Start{Now: tt.now})
			assert.ErrorIs(t, err, tt.err)
			assert.Empty(t, effects)
			assert.Equal(t, tt.st, next)
		})
	}
}

func TestStart_Succeeds(t *testing.T) {
	now := t0.Add(5 * time.Minute)
	next, effects := apply(t, State{CandidateID: "c1", Phase: PhaseAvailable}, Start{Now: now})

	assert.Equal(t, PhaseInProgress, next.Phase)
	assert.Equal(t, now, next.StartedAt)
	assert.Equal(t, []Effect{PersistStart{At: now}}, effects)
}

func TestStart_ResumeIsNoop(t *testing.T) {
	st := inProgress()
	next, effects := apply(t, st, Start{Now: t0.Add(10 * time.Minute)})

	assert.Equal(t, st, next)
	assert.Empty(t, effects)
}

func TestHidden_OnlyWhileInProgress(t *testing.T) {
	now := t0.Add(2 * time.Minute)

	_, effects := apply(t, inProgress(), Hidden{Now: now})
	assert.Equal(t, []Effect{RecordTabSwitch{At: now}}, effects)

	submitting := inProgress()
	submitting.Submitting = true
	_, effects = apply(t, submitting, Hidden{Now: now})
	assert.Empty(t, effects)

	for _, phase := range []Phase{PhaseWaiting, PhaseAvailable, PhaseSubmitted, PhaseCancelled} {
		_, effects = apply(t, State{Phase: phase}, Hidden{Now: now})
		assert.Empty(t, effects, phase)
	}
}

func TestTabSwitches_WarningThenCancel(t *testing.T) {
	st := inProgress()
	var cancellations int

	st, effects := apply(t, st, TabSwitchRecorded{Count: 1})
	assert.Equal(t, []Effect{ShowWarning{Count: 1, Max: 2}}, effects)
	assert.Equal(t, PhaseInProgress, st.Phase)

	st, effects = apply(t, st, TabSwitchRecorded{Count: 2})
	assert.Empty(t, effects)
	assert.Equal(t, PhaseInProgress, st.Phase)

	st, effects = apply(t, st, TabSwitchRecorded{Count: 3})
	for _, e := range effects {
		if _, ok := e.(CancelSession); ok {
			cancellations++
		}
	}
	assert.Equal(t, PhaseCancelled, st.Phase)
	assert.Equal(t, 3, st.TabSwitchCount)

	// Further switches after cancellation never cancel again.
	st, effects = apply(t, st, Hidden{Now: t0.Add(3 * time.Minute)})
	assert.Empty(t, effects)
	st, effects = apply(t, st, TabSwitchRecorded{Count: 4})
	assert.Empty(t, effects)
	assert.Equal(t, 4, st.TabSwitchCount)
	assert.Equal(t, 1, cancellations)
}

func TestTabSwitches_CountIsMonotonic(t *testing.T) {
	st := inProgress()
	st.TabSwitchCount = 2

	next, _ := apply(t, st, TabSwitchRecorded{Count: 1})
	assert.Equal(t, 2, next.TabSwitchCount)
}

func TestTabSwitches_CancelWinsOverWarning(t *testing.T) {
	sched := Schedule{StartTime: t0, Duration: time.Hour, MaxTabSwitches: 0}

	next, effects, err := Transition(sched, inProgress(), TabSwitchRecorded{Count: 1})
	require.NoError(t, err)
	assert.Equal(t, PhaseCancelled, next.Phase)
	assert.Equal(t, []Effect{CancelSession{Count: 1, Max: 0}}, effects)
}

func TestSubmit_InFlightIsNoop(t *testing.T) {
	now := t0.Add(20 * time.Minute)
	st, effects := apply(t, inProgress(), SubmitRequested{Now: now})
	require.Equal(t, []Effect{PerformSubmit{At: now}}, effects)
	assert.True(t, st.Submitting)

	again, effects := apply(t, st, SubmitRequested{Now: now})
	assert.Empty(t, effects)
	assert.Equal(t, st, again)

	done, _ := apply(t, st, SubmitSucceeded{At: now})
	assert.Equal(t, PhaseSubmitted, done.Phase)
	assert.False(t, done.Submitting)
	assert.Equal(t, now, done.SubmittedAt)
}

func TestSubmit_Preconditions(t *testing.T) {
	sched := testSchedule()
	cases := map[Phase]error{
		PhaseWaiting:           ErrNotInProgress,
		PhaseAvailable:         ErrNotInProgress,
		PhaseSubmitted:         ErrAlreadySubmitted,
		PhaseCancelled:         ErrTestCancelled,
		PhaseExpiredUnanswered: ErrWindowClosed,
	}
	for phase, want := range cases {
		_, effects, err := Transition(sched, State{Phase: phase}, SubmitRequested{Now: t0})
		assert.ErrorIs(t, err, want, phase)
		assert.Empty(t, effects)
	}
}

func TestTick_AutoSubmitOnce(t *testing.T) {
	end := t0.Add(time.Hour)

	st, effects := apply(t, inProgress(), Tick{Now: end.Add(-time.Second)})
	assert.Empty(t, effects)

	st, effects = apply(t, st, Tick{Now: end})
	assert.Equal(t, []Effect{PerformSubmit{At: end, Auto: true}}, effects)

	// Failed auto submit is not retried by later ticks.
	st, _ = apply(t, st, SubmitFailed{})
	assert.False(t, st.Submitting)
	_, effects = apply(t, st, Tick{Now: end.Add(5 * time.Second)})
	assert.Empty(t, effects)

	// A manual retry is still allowed.
	_, effects = apply(t, st, SubmitRequested{Now: end.Add(10 * time.Second)})
	assert.Len(t, effects, 1)
}

func TestSuspendAttempt(t *testing.T) {
	_, effects := apply(t, inProgress(), SuspendAttempt{})
	assert.Equal(t, []Effect{ConfirmLeave{}}, effects)

	_, effects = apply(t, State{Phase: PhaseSubmitted}, SuspendAttempt{})
	assert.Empty(t, effects)
}

func TestTerminalPhasesNeverLeave(t *testing.T) {
	events := []Event{
		Tick{Now: t0.Add(-time.Hour)}, Tick{Now: t0.Add(2 * time.Hour)},
		Hidden{Now: t0}, SuspendAttempt{}, TabSwitchRecorded{Count: 9},
		SubmitSucceeded{At: t0}, SubmitFailed{},
	}
	for _, phase := range []Phase{PhaseSubmitted, PhaseCancelled, PhaseExpiredUnanswered} {
		for _, ev := range events {
			next, _, _ := Transition(testSchedule(), State{Phase: phase}, ev)
			assert.Equal(t, phase, next.Phase, "%s after %T", phase, ev)
		}
	}
}

func TestRestore(t *testing.T) {
	sched := testSchedule()
	started := t0.Add(time.Minute)
	submitted := t0.Add(30 * time.Minute)

	tests := []struct {
		name   string
		status *model.UserTestStatus
		now    time.Time
		want   Phase
	}{
		{"no record before start", nil, t0.Add(-time.Minute), PhaseWaiting},
		{"fresh record in window", &model.UserTestStatus{}, t0.Add(time.Minute), PhaseAvailable},
		{"never started after window", &model.UserTestStatus{}, t0.Add(2 * time.Hour), PhaseExpiredUnanswered},
		{"started", &model.UserTestStatus{StartedAt: &started}, t0.Add(5 * time.Minute), PhaseInProgress},
		{"submitted", &model.UserTestStatus{HasSubmitted: true, SubmissionDate: &submitted, StartedAt: &started}, t0.Add(-time.Hour), PhaseSubmitted},
		{"cancelled", &model.UserTestStatus{IsTestCancelled: true, TabSwitchCount: 3}, t0.Add(time.Minute), PhaseCancelled},
		{"count over limit without flag", &model.UserTestStatus{TabSwitchCount: 3, StartedAt: &started}, t0.Add(time.Minute), PhaseCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := Restore("c1", tt.status, sched, tt.now)
			assert.Equal(t, tt.want, st.Phase)
			assert.Equal(t, "c1", st.CandidateID)
		})
	}
}

func TestScheduleHelpers(t *testing.T) {
	sched := testSchedule()

	assert.Equal(t, t0.Add(time.Hour), sched.EndTime())
	assert.Equal(t, 10*time.Second, sched.TimeUntilStart(t0.Add(-10*time.Second)))
	assert.Equal(t, time.Duration(0), sched.TimeUntilStart(t0.Add(time.Second)))
	assert.Equal(t, 30*time.Minute, sched.TimeUntilEnd(t0.Add(30*time.Minute)))
	assert.Equal(t, time.Duration(0), sched.TimeUntilEnd(t0.Add(2*time.Hour)))
}

func TestFormatCountdown(t *testing.T) {
	assert.Equal(t, "5s", FormatCountdown(5*time.Second))
	assert.Equal(t, "1m 5s", FormatCountdown(65*time.Second))
	assert.Equal(t, "2h 0m 1s", FormatCountdown(2*time.Hour+time.Second))
	assert.Equal(t, "1d 1h 0m 0s", FormatCountdown(25*time.Hour))
}

func TestTabSwitches_OnlyCrossingIncrementCancels(t *testing.T) {
	// A stale in-progress state learning a count past the limit moves to
	// cancelled without cancelling a second time.
	st, effects := apply(t, inProgress(), TabSwitchRecorded{Count: 4})
	assert.Empty(t, effects)
	assert.Equal(t, PhaseCancelled, st.Phase)
	assert.Equal(t, 4, st.TabSwitchCount)

	st, effects = apply(t, inProgress(), TabSwitchRecorded{Count: 3})
	assert.Equal(t, []Effect{CancelSession{Count: 3, Max: 2}}, effects)
	assert.Equal(t, PhaseCancelled, st.Phase)
}

func TestStatusReloaded_AdoptsStoredOutcome(t *testing.T) {
	started := t0.Add(time.Minute)
	submitted := t0.Add(30 * time.Minute)

	st := inProgress()
	st.Submitting = true
	st.AutoSubmitAttempted = true

	next, effects := apply(t, st, StatusReloaded{
		Status: &model.UserTestStatus{IsTestCancelled: true, TabSwitchCount: 3, StartedAt: &started},
		Now:    t0.Add(40 * time.Minute),
	})
	assert.Empty(t, effects)
	assert.Equal(t, PhaseCancelled, next.Phase)
	assert.Equal(t, 3, next.TabSwitchCount)
	assert.False(t, next.Submitting)
	assert.True(t, next.AutoSubmitAttempted)

	next, _ = apply(t, inProgress(), StatusReloaded{
		Status: &model.UserTestStatus{HasSubmitted: true, SubmissionDate: &submitted, StartedAt: &started},
		Now:    t0.Add(40 * time.Minute),
	})
	assert.Equal(t, PhaseSubmitted, next.Phase)
	assert.Equal(t, submitted, next.SubmittedAt)
}

func TestSubmit_AfterDeadlineIsCappedAuto(t *testing.T) {
	end := t0.Add(time.Hour)

	st, effects := apply(t, inProgress(), SubmitRequested{Now: end.Add(4 * time.Hour)})
	assert.Equal(t, []Effect{PerformSubmit{At: end, Auto: true}}, effects)
	assert.True(t, st.AutoSubmitAttempted)

	_, effects = apply(t, inProgress(), SubmitRequested{Now: end.Add(-time.Minute)})
	assert.Equal(t, []Effect{PerformSubmit{At: end.Add(-time.Minute)}}, effects)
}

func TestTick_LateTickSubmitsAtDeadline(t *testing.T) {
	end := t0.Add(time.Hour)
	_, effects := apply(t, inProgress(), Tick{Now: end.Add(5 * time.Hour)})
	assert.Equal(t, []Effect{PerformSubmit{At: end, Auto: true}}, effects)
}
