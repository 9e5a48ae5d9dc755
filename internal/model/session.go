package model

import "time"

// SubmitRequest carries the in-memory answer map at submission time.
// Keys are question IDs, values are selected option indexes.
type SubmitRequest struct {
	Answers map[string]int `json:"answers"`
}

// SessionView is the candidate-facing snapshot of a test session.
type SessionView struct {
	Phase             string    `json:"phase"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	SecondsUntilStart int64     `json:"seconds_until_start"`
	SecondsUntilEnd   int64     `json:"seconds_until_end"`
	Countdown         string    `json:"countdown"`
	TabSwitchCount    int       `json:"tab_switch_count"`
	MaxTabSwitches    int       `json:"max_tab_switches"`
	CanStart          bool      `json:"can_start"`
	Reason            string    `json:"reason,omitempty"`
	TotalQuestions    int       `json:"total_questions"`
	// LowTime marks the last minutes of a running test.
	LowTime           bool      `json:"low_time"`
}

// TabSwitchOutcome reports the effect of a single visibility loss.
type TabSwitchOutcome struct {
	Recorded       bool        `json:"recorded"`
	TabSwitchCount int         `json:"tab_switch_count"`
	MaxTabSwitches int         `json:"max_tab_switches"`
	Warning        string      `json:"warning,omitempty"`
	Cancelled      bool        `json:"cancelled"`
	Result         *TestResult `json:"result,omitempty"`
}

// SubmitOutcome reports the effect of a submit request.
type SubmitOutcome struct {
	Result     *TestResult `json:"result,omitempty"`
	InProgress bool        `json:"in_progress"`
}
