package model

import "time"

// UserTestStatus is the durable per-candidate test record.
type UserTestStatus struct {
	CandidateID     string     `json:"candidate_id"`
	HasSubmitted    bool       `json:"has_submitted"`
	SubmissionDate  *time.Time `json:"submission_date,omitempty"`
	TabSwitchCount  int        `json:"tab_switch_count"`
	IsTestCancelled bool       `json:"is_test_cancelled"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	LastActivity    time.Time  `json:"last_activity"`
}

// TestStatusSummary aggregates status rows for the admin monitor.
type TestStatusSummary struct {
	Total      int `json:"total"`
	InProgress int `json:"in_progress"`
	Submitted  int `json:"submitted"`
	Cancelled  int `json:"cancelled"`
}

// TabSwitchEvent is an audit record of a single visibility loss.
type TabSwitchEvent struct {
	CandidateID string    `json:"candidate_id"`
	Count       int       `json:"count"`
	Cancelled   bool      `json:"cancelled"`
	RecordedAt  time.Time `json:"recorded_at"`
}
