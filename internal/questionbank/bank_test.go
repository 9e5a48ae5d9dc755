package questionbank

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stemsi/recruitment-portal/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_ReferenceBank(t *testing.T) {
	b, err := Default()
	require.NoError(t, err)

	qs := b.Questions()
	require.Len(t, qs, 10)
	assert.Equal(t, "1", qs[0].ID)
	assert.Equal(t, "General", qs[0].Category)
	assert.Equal(t, 1, qs[0].CorrectAnswer)
	assert.Equal(t, "Laravel", qs[9].Options[qs[9].CorrectAnswer])
	for _, q := range qs[1:] {
		assert.Equal(t, "Technical", q.Category)
	}
}

func TestQuestions_ReturnsCopies(t *testing.T) {
	b, err := Default()
	require.NoError(t, err)

	qs := b.Questions()
	qs[0].Options[0] = "mutated"
	qs[0].CorrectAnswer = 3

	fresh, ok := b.Lookup("1")
	require.True(t, ok)
	assert.Equal(t, "To evaluate technical skills", fresh.Options[0])
	assert.Equal(t, 1, fresh.CorrectAnswer)
}

func TestForCandidate_HidesAnswers(t *testing.T) {
	b, err := Default()
	require.NoError(t, err)

	out := b.ForCandidate()
	require.Len(t, out, b.Len())
	assert.Equal(t, "What does HTML stand for?", out[2].Prompt)
	assert.Len(t, out[2].Options, OptionCount)
}

func TestFreeze(t *testing.T) {
	b, err := Default()
	require.NoError(t, err)

	answers := b.Freeze(map[string]int{
		"1":  1,  // correct
		"2":  0,  // wrong
		"3":  9,  // out of range
		"99": 0,  // unknown question
		"4":  -1, // explicit unanswered
	})

	require.Len(t, answers, 10)
	assert.Equal(t, model.Answer{QuestionID: "1", SelectedAnswer: 1, IsCorrect: true}, answers[0])
	assert.Equal(t, model.Answer{QuestionID: "2", SelectedAnswer: 0, IsCorrect: false}, answers[1])
	assert.Equal(t, model.Unanswered, answers[2].SelectedAnswer)
	assert.False(t, answers[2].IsCorrect)
	assert.Equal(t, model.Unanswered, answers[3].SelectedAnswer)
	for _, a := range answers[4:] {
		assert.Equal(t, model.Unanswered, a.SelectedAnswer)
		assert.False(t, a.IsCorrect)
	}
}

func TestNew_RejectsInvalidQuestions(t *testing.T) {
	opts := []string{"a", "b", "c", "d"}

	_, err := New(nil)
	assert.ErrorIs(t, err, ErrEmptyBank)

	_, err = New([]model.Question{{ID: "1", Options: opts[:3]}})
	assert.ErrorContains(t, err, "expected 4 options")

	_, err = New([]model.Question{{ID: "1", Options: opts, CorrectAnswer: 4}})
	assert.ErrorContains(t, err, "out of range")

	_, err = New([]model.Question{{ID: "1", Options: opts}, {ID: "1", Options: opts}})
	assert.ErrorContains(t, err, "duplicate id")
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.yaml")
	content := `questions:
  - id: q1
    question: Pick b
    options: [a, b, c, d]
    correct_answer: 1
    category: General
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	b, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Len())
	assert.True(t, b.ValidChoice("q1", 3))
	assert.False(t, b.ValidChoice("q1", 4))
}
