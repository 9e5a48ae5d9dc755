package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/recruitment-portal/internal/model"
	"github.com/stemsi/recruitment-portal/internal/session"
)

// SignalKind names a host signal delivered to a SessionRunner.
type SignalKind string

const (
	SignalStart          SignalKind = "start"
	SignalAnswer         SignalKind = "answer"
	SignalHidden         SignalKind = "hidden"
	SignalSuspendAttempt SignalKind = "suspend_attempt"
	SignalSubmit         SignalKind = "submit"
	SignalPing           SignalKind = "ping"
)

// HostSignal is one input from the candidate's page.
type HostSignal struct {
	Kind       SignalKind
	QuestionID string
	Choice     int
}

// Notifier receives everything the page has to render.
type Notifier interface {
	Tick(view model.SessionView)
	Warning(message string)
	WarningDismissed()
	ConfirmLeave(message string)
	Cancelled(result *model.TestResult)
	Submitted(result *model.TestResult)
	Error(err error)
	Pong()
}

// SessionRunner drives one candidate's live session. Answers are held in
// memory until submission. A runner is not safe for concurrent use; Run owns it.
type SessionRunner struct {
	svc     *TestSessionService
	notify  Notifier
	log     zerolog.Logger
	id      string
	state   session.State
	answers map[string]int

	warningUntil time.Time
	resync       bool
}

// NewRunner creates a runner for candidateID.
func (s *TestSessionService) NewRunner(candidateID string, notify Notifier) *SessionRunner {
	return &SessionRunner{
		svc:     s,
		notify:  notify,
		log:     s.log.With().Str("candidate_id", candidateID).Logger(),
		id:      candidateID,
		answers: make(map[string]int),
	}
}

// State returns the runner's current session state.
func (r *SessionRunner) State() session.State {
	return r.state
}

// Answers returns a copy of the answers selected so far.
func (r *SessionRunner) Answers() map[string]int {
	out := make(map[string]int, len(r.answers))
	for k, v := range r.answers {
		out[k] = v
	}
	return out
}

// Run restores the session and processes signals and ticks until the session
// reaches a terminal phase, a channel closes or ctx is done.
func (r *SessionRunner) Run(ctx context.Context, signals <-chan HostSignal, ticks <-chan time.Time) error {
	st, err := r.svc.Load(ctx, r.id)
	if err != nil {
		r.notify.Error(err)
		return err
	}
	r.state = st

	if r.state.Phase.Terminal() {
		r.announceTerminal(ctx)
		return nil
	}
	r.notify.Tick(r.svc.View(r.state, r.svc.now()))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			r.handleSignal(ctx, sig)
		case now, ok := <-ticks:
			if !ok {
				return nil
			}
			r.handleTick(ctx, now)
		}

		if r.state.Phase.Terminal() {
			return nil
		}
	}
}

func (r *SessionRunner) handleTick(ctx context.Context, now time.Time) {
	if r.resync {
		r.resync = false
		if st, err := r.svc.Load(ctx, r.id); err == nil {
			// Keep the local guard so a lost race does not auto-submit twice.
			st.AutoSubmitAttempted = st.AutoSubmitAttempted || r.state.AutoSubmitAttempted
			r.state = st
			if st.Phase.Terminal() {
				r.announceTerminal(ctx)
				return
			}
		}
	}

	out, err := r.svc.Apply(ctx, r.state, session.Tick{Now: now}, r.answers)
	r.state = out.State
	if r.finishedElsewhere(ctx, out) {
		return
	}
	if err != nil {
		r.log.Error().Err(err).Msg("Automatic submission failed")
		r.notify.Error(err)
	}
	r.report(out, now)

	if !r.warningUntil.IsZero() && !now.Before(r.warningUntil) {
		r.warningUntil = time.Time{}
		r.notify.WarningDismissed()
	}
	if !r.state.Phase.Terminal() {
		r.notify.Tick(r.svc.View(r.state, now))
	}
}

func (r *SessionRunner) handleSignal(ctx context.Context, sig HostSignal) {
	now := r.svc.now()

	switch sig.Kind {
	case SignalPing:
		r.notify.Pong()

	case SignalAnswer:
		if r.state.Phase != session.PhaseInProgress {
			r.notify.Error(session.ErrNotInProgress)
			return
		}
		if !r.svc.bank.ValidChoice(sig.QuestionID, sig.Choice) {
			r.notify.Error(ErrInvalidAnswer)
			return
		}
		r.answers[sig.QuestionID] = sig.Choice

	case SignalStart:
		r.apply(ctx, session.Start{Now: now}, now)
		if r.state.Phase == session.PhaseInProgress {
			r.notify.Tick(r.svc.View(r.state, now))
		}

	case SignalHidden:
		r.apply(ctx, session.Hidden{Now: now}, now)

	case SignalSuspendAttempt:
		r.apply(ctx, session.SuspendAttempt{}, now)

	case SignalSubmit:
		out, err := r.svc.Apply(ctx, r.state, session.SubmitRequested{Now: now}, r.answers)
		r.state = out.State
		if r.finishedElsewhere(ctx, out) {
			return
		}
		if errors.Is(err, session.ErrAlreadySubmitted) {
			r.announceTerminal(ctx)
			return
		}
		if err != nil {
			r.notify.Error(err)
			return
		}
		r.report(out, now)

	default:
		r.notify.Error(fmt.Errorf("unknown action %q", sig.Kind))
	}
}

func (r *SessionRunner) apply(ctx context.Context, ev session.Event, now time.Time) {
	out, err := r.svc.Apply(ctx, r.state, ev, r.answers)
	r.state = out.State
	if r.finishedElsewhere(ctx, out) {
		return
	}
	if err != nil {
		r.notify.Error(err)
		return
	}
	r.report(out, now)
}

// finishedElsewhere announces a session that another tab or request already
// submitted or cancelled, detected when the store refused a write.
func (r *SessionRunner) finishedElsewhere(ctx context.Context, out Outcome) bool {
	if !out.Reconciled || !r.state.Phase.Terminal() {
		return false
	}
	r.log.Info().Str("phase", string(r.state.Phase)).Msg("Session finished elsewhere")
	r.announceTerminal(ctx)
	return true
}

func (r *SessionRunner) report(out Outcome, now time.Time) {
	if out.SubmitInFlight {
		r.resync = true
	}
	if out.Warning != "" {
		r.warningUntil = now.Add(WarningDisplay)
		r.notify.Warning(out.Warning)
	}
	if out.ConfirmLeave {
		r.notify.ConfirmLeave(LeaveMessage)
	}
	if out.Cancelled {
		r.notify.Cancelled(out.Result)
		return
	}
	if out.Result != nil && r.state.Phase == session.PhaseSubmitted {
		r.notify.Submitted(out.Result)
	}
}

// announceTerminal reports a session that was already finished elsewhere.
func (r *SessionRunner) announceTerminal(ctx context.Context) {
	switch r.state.Phase {
	case session.PhaseSubmitted:
		res, err := r.svc.results.GetCompletedByCandidate(ctx, r.id)
		if err != nil {
			r.notify.Error(persistence("load stored result", err))
			return
		}
		r.notify.Submitted(res)
	case session.PhaseCancelled:
		r.notify.Cancelled(r.svc.abandonedResult(ctx, r.state, r.svc.now()))
	default:
		r.notify.Tick(r.svc.View(r.state, r.svc.now()))
	}
}
