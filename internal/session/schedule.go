package session

import (
	"fmt"
	"time"
)

// Schedule is the global test window shared by every candidate.
type Schedule struct {
	StartTime      time.Time
	Duration       time.Duration
	MaxTabSwitches int
}

// EndTime is the instant the window closes.
func (s Schedule) EndTime() time.Time {
	return s.StartTime.Add(s.Duration)
}

// TimeUntilStart is zero once the window has opened.
func (s Schedule) TimeUntilStart(now time.Time) time.Duration {
	if d := s.StartTime.Sub(now); d > 0 {
		return d
	}
	return 0
}

// TimeUntilEnd is zero once the window has closed.
func (s Schedule) TimeUntilEnd(now time.Time) time.Duration {
	if d := s.EndTime().Sub(now); d > 0 {
		return d
	}
	return 0
}

// Started reports whether now is at or past the start time.
func (s Schedule) Started(now time.Time) bool {
	return !now.Before(s.StartTime)
}

// Ended reports whether now is at or past the end time.
func (s Schedule) Ended(now time.Time) bool {
	return !now.Before(s.EndTime())
}

// ClockPhase derives the phase of a candidate who has not started.
func (s Schedule) ClockPhase(now time.Time) Phase {
	switch {
	case !s.Started(now):
		return PhaseWaiting
	case !s.Ended(now):
		return PhaseAvailable
	default:
		return PhaseExpiredUnanswered
	}
}

// FormatCountdown renders a duration as "1d 2h 3m 4s", dropping leading zero units.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
