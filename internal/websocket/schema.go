package websocket

import "github.com/stemsi/recruitment-portal/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionStart          Action = "start"
	ActionAnswer         Action = "answer"
	ActionHidden         Action = "hidden"
	ActionSuspendAttempt Action = "suspend_attempt"
	ActionSubmit         Action = "submit"
	ActionPing           Action = "ping"
)

// Request is every client message. Only answer uses the question fields.
type Request struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id,omitempty"`
	Choice     *int   `json:"choice,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventTick             Event = "tick"
	EventWarning          Event = "warning"
	EventWarningDismissed Event = "warning_dismissed"
	EventConfirmLeave     Event = "confirm_leave"
	EventCancelled        Event = "cancelled"
	EventSubmitted        Event = "submitted"
	EventError            Event = "error"
	EventPong             Event = "pong"
)

type TickResponse struct {
	Event   Event             `json:"event"`
	Session model.SessionView `json:"session"`
}

type MessageResponse struct {
	Event   Event  `json:"event"`
	Message string `json:"message"`
}

type ResultResponse struct {
	Event  Event             `json:"event"`
	Result *model.TestResult `json:"result"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
