// Package scoring grades a frozen answer sequence.
package scoring

import (
	"fmt"
	"math"

	"github.com/stemsi/recruitment-portal/internal/model"
)

// Score is the outcome of grading an answer sequence.
type Score struct {
	Score      int
	Total      int
	Percentage int
}

// Calculate counts correct answers. Each question weighs the same and there is
// no partial credit or negative marking.
func Calculate(answers []model.Answer) Score {
	correct := 0
	for _, a := range answers {
		if a.IsCorrect {
			correct++
		}
	}
	return Score{
		Score:      correct,
		Total:      len(answers),
		Percentage: Percentage(correct, len(answers)),
	}
}

// Percentage returns round(100*score/total), or 0 when total is 0.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(score) / float64(total)))
}

var gradeBands = []struct {
	min   int
	grade model.GradeInfo
}{
	{90, model.GradeInfo{Grade: "A+", Message: "Outstanding Performance!"}},
	{80, model.GradeInfo{Grade: "A", Message: "Excellent Work!"}},
	{70, model.GradeInfo{Grade: "B+", Message: "Good Performance!"}},
	{60, model.GradeInfo{Grade: "B", Message: "Satisfactory!"}},
	{50, model.GradeInfo{Grade: "C", Message: "Needs Improvement!"}},
}

var gradeF = model.GradeInfo{Grade: "F", Message: "Better Luck Next Time!"}

// Grade maps a percentage to its letter grade. Lower bounds are inclusive.
func Grade(percentage int) model.GradeInfo {
	for _, b := range gradeBands {
		if percentage >= b.min {
			return b.grade
		}
	}
	return gradeF
}

// Unanswered counts answers with no selected option.
func Unanswered(answers []model.Answer) int {
	n := 0
	for _, a := range answers {
		if a.SelectedAnswer == model.Unanswered {
			n++
		}
	}
	return n
}

// FormatDuration renders seconds as "1h 2m 3s", "2m 3s" or "45s".
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
