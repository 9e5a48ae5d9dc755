// Package questionbank holds the fixed, ordered set of test questions.
// The bank is loaded once at startup and never mutated; every accessor
// returns copies.
package questionbank

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/stemsi/recruitment-portal/internal/model"
	"gopkg.in/yaml.v3"
)

// OptionCount is the number of options every question carries.
const OptionCount = 4

//go:embed questions.yaml
var defaultBank []byte

var ErrEmptyBank = errors.New("question bank has no questions")

type bankFile struct {
	Questions []model.Question `yaml:"questions"`
}

// Bank is a read-only ordered question sequence.
type Bank struct {
	questions []model.Question
	index     map[string]int
}

// Default returns the embedded reference bank.
func Default() (*Bank, error) {
	return Parse(defaultBank)
}

// Load reads the bank from path, or the embedded default when path is empty.
func Load(path string) (*Bank, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML question bank.
func Parse(data []byte) (*Bank, error) {
	var f bankFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode question bank: %w", err)
	}
	return New(f.Questions)
}

// New validates questions and builds a bank from them.
func New(questions []model.Question) (*Bank, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyBank
	}

	b := &Bank{
		questions: make([]model.Question, 0, len(questions)),
		index:     make(map[string]int, len(questions)),
	}
	for i, q := range questions {
		if q.ID == "" {
			return nil, fmt.Errorf("question %d: missing id", i+1)
		}
		if _, dup := b.index[q.ID]; dup {
			return nil, fmt.Errorf("question %s: duplicate id", q.ID)
		}
		if len(q.Options) != OptionCount {
			return nil, fmt.Errorf("question %s: expected %d options, got %d", q.ID, OptionCount, len(q.Options))
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= OptionCount {
			return nil, fmt.Errorf("question %s: correct answer %d out of range", q.ID, q.CorrectAnswer)
		}
		b.index[q.ID] = i
		b.questions = append(b.questions, cloneQuestion(q))
	}
	return b, nil
}

// Len returns the number of questions.
func (b *Bank) Len() int {
	return len(b.questions)
}

// Questions returns a copy of the ordered question sequence.
func (b *Bank) Questions() []model.Question {
	out := make([]model.Question, len(b.questions))
	for i, q := range b.questions {
		out[i] = cloneQuestion(q)
	}
	return out
}

// ForCandidate returns the questions without their correct answers.
func (b *Bank) ForCandidate() []model.QuestionForCandidate {
	out := make([]model.QuestionForCandidate, len(b.questions))
	for i, q := range b.questions {
		out[i] = model.QuestionForCandidate{
			ID:       q.ID,
			Prompt:   q.Prompt,
			Options:  append([]string(nil), q.Options...),
			Category: q.Category,
		}
	}
	return out
}

// Lookup returns the question with the given id.
func (b *Bank) Lookup(id string) (model.Question, bool) {
	i, ok := b.index[id]
	if !ok {
		return model.Question{}, false
	}
	return cloneQuestion(b.questions[i]), true
}

// Freeze turns the in-memory answer map into one Answer per question in bank
// order. Missing, unknown or out-of-range selections become unanswered.
func (b *Bank) Freeze(selected map[string]int) []model.Answer {
	answers := make([]model.Answer, len(b.questions))
	for i, q := range b.questions {
		choice, ok := selected[q.ID]
		if !ok || choice < 0 || choice >= len(q.Options) {
			choice = model.Unanswered
		}
		answers[i] = model.Answer{
			QuestionID:     q.ID,
			SelectedAnswer: choice,
			IsCorrect:      choice == q.CorrectAnswer,
		}
	}
	return answers
}

// ValidChoice reports whether choice is a selectable option for question id.
func (b *Bank) ValidChoice(id string, choice int) bool {
	q, ok := b.Lookup(id)
	return ok && choice >= 0 && choice < len(q.Options)
}

func cloneQuestion(q model.Question) model.Question {
	q.Options = append([]string(nil), q.Options...)
	return q
}
