package model

import "time"

// ResultStatus enumerates test result outcomes.
type ResultStatus string

const (
	ResultStatusCompleted  ResultStatus = "completed"
	ResultStatusInProgress ResultStatus = "in-progress"
	ResultStatusAbandoned  ResultStatus = "abandoned"
)

// TestResult is the outcome of one candidate's test. Immutable once stored.
type TestResult struct {
	ID              string       `json:"id"`
	CandidateID     string       `json:"candidate_id"`
	CandidateName   string       `json:"candidate_name"`
	CandidateEmail  string       `json:"candidate_email"`
	AdmissionNumber string       `json:"admission_number"`
	Branch          string       `json:"branch"`
	Score           int          `json:"score"`
	TotalQuestions  int          `json:"total_questions"`
	Percentage      int          `json:"percentage"`
	TimeSpent       int          `json:"time_spent"`
	Answers         []Answer     `json:"answers"`
	CompletedAt     time.Time    `json:"completed_at"`
	Status          ResultStatus `json:"status"`
}

// GradeInfo pairs a letter grade with its display message.
type GradeInfo struct {
	Grade   string `json:"grade"`
	Message string `json:"message"`
}

// AnswerBreakdown is a per-question line of the detailed result view.
type AnswerBreakdown struct {
	QuestionID     string   `json:"question_id"`
	Prompt         string   `json:"question"`
	Options        []string `json:"options"`
	SelectedAnswer int      `json:"selected_answer"`
	CorrectAnswer  int      `json:"correct_answer"`
	IsCorrect      bool     `json:"is_correct"`
}

// ResultView is the result presentation payload.
type ResultView struct {
	Result        *TestResult       `json:"result"`
	Grade         GradeInfo         `json:"grade"`
	TimeFormatted string            `json:"time_formatted"`
	Unanswered    int               `json:"unanswered"`
	Breakdown     []AnswerBreakdown `json:"breakdown,omitempty"`
}
