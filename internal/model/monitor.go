package model

import "time"

// MonitorEventType enumerates live monitor feed events.
type MonitorEventType string

const (
	MonitorSignup    MonitorEventType = "signup"
	MonitorStarted   MonitorEventType = "started"
	MonitorTabSwitch MonitorEventType = "tab_switch"
	MonitorCancelled MonitorEventType = "cancelled"
	MonitorSubmitted MonitorEventType = "submitted"
)

// MonitorEvent is published to administrators watching the live feed.
type MonitorEvent struct {
	Type        MonitorEventType `json:"type"`
	CandidateID string           `json:"candidate_id"`
	At          time.Time        `json:"at"`
	Data        interface{}      `json:"data,omitempty"`
}
