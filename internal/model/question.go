package model

// Question is a single multiple-choice item from the question bank.
type Question struct {
	ID            string   `json:"id" yaml:"id"`
	Prompt        string   `json:"question" yaml:"question"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer int      `json:"correct_answer" yaml:"correct_answer"`
	Category      string   `json:"category" yaml:"category"`
}

// QuestionForCandidate omits the correct option.
type QuestionForCandidate struct {
	ID       string   `json:"id"`
	Prompt   string   `json:"question"`
	Options  []string `json:"options"`
	Category string   `json:"category"`
}

// Unanswered marks a question with no selected option at submission time.
const Unanswered = -1

// Answer is a frozen response to one question.
type Answer struct {
	QuestionID     string `json:"question_id" bson:"questionId"`
	SelectedAnswer int    `json:"selected_answer" bson:"selectedAnswer"`
	IsCorrect      bool   `json:"is_correct" bson:"isCorrect"`
}
