package service

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog"
	"github.com/stemsi/recruitment-portal/internal/model"
	"github.com/stemsi/recruitment-portal/internal/repository"
	"github.com/stemsi/recruitment-portal/internal/scoring"
	"github.com/stemsi/recruitment-portal/internal/session"
)

// ErrNoResult is returned when a candidate has nothing to present yet.
var ErrNoResult = errors.New("no test result found")

// ResultService builds the result presentation payloads.
type ResultService struct {
	sessions *TestSessionService
	results  ResultStore
	log      zerolog.Logger
}

// NewResultService creates a new ResultService.
func NewResultService(sessions *TestSessionService, results ResultStore, log zerolog.Logger) *ResultService {
	return &ResultService{
		sessions: sessions,
		results:  results,
		log:      log.With().Str("component", "result_service").Logger(),
	}
}

// Current returns the candidate's completed result with its grade. A
// cancelled candidate gets the synthesized abandoned result.
func (s *ResultService) Current(ctx context.Context, candidateID string, detailed bool) (*model.ResultView, error) {
	res, err := s.results.GetCompletedByCandidate(ctx, candidateID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, persistence("load result", err)
	}

	if res == nil {
		st, err := s.sessions.Load(ctx, candidateID)
		if err != nil {
			return nil, err
		}
		if st.Phase != session.PhaseCancelled {
			return nil, ErrNoResult
		}
		res = s.sessions.abandonedResult(ctx, st, s.sessions.now())
	}

	return s.present(res, detailed), nil
}

// History lists every result of the candidate, newest first.
func (s *ResultService) History(ctx context.Context, candidateID string) ([]model.ResultView, error) {
	results, err := s.results.ListByCandidate(ctx, candidateID)
	if err != nil {
		return nil, persistence("list results", err)
	}
	return s.presentAll(results), nil
}

// All lists every stored result for administrators, newest first.
func (s *ResultService) All(ctx context.Context) ([]model.ResultView, error) {
	results, err := s.results.ListAll(ctx)
	if err != nil {
		return nil, persistence("list results", err)
	}
	return s.presentAll(results), nil
}

func (s *ResultService) presentAll(results []model.TestResult) []model.ResultView {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CompletedAt.After(results[j].CompletedAt)
	})

	views := make([]model.ResultView, 0, len(results))
	for i := range results {
		views = append(views, *s.present(&results[i], false))
	}
	return views
}

func (s *ResultService) present(res *model.TestResult, detailed bool) *model.ResultView {
	view := &model.ResultView{
		Result:        res,
		Grade:         scoring.Grade(res.Percentage),
		TimeFormatted: scoring.FormatDuration(res.TimeSpent),
		Unanswered:    scoring.Unanswered(res.Answers),
	}
	if res.Status == model.ResultStatusAbandoned {
		view.Unanswered = res.TotalQuestions
	}
	if detailed {
		view.Breakdown = s.breakdown(res.Answers)
	}
	return view
}

func (s *ResultService) breakdown(answers []model.Answer) []model.AnswerBreakdown {
	bank := s.sessions.Bank()
	out := make([]model.AnswerBreakdown, 0, len(answers))
	for _, a := range answers {
		line := model.AnswerBreakdown{
			QuestionID:     a.QuestionID,
			SelectedAnswer: a.SelectedAnswer,
			IsCorrect:      a.IsCorrect,
		}
		if q, ok := bank.Lookup(a.QuestionID); ok {
			line.Prompt = q.Prompt
			line.Options = q.Options
			line.CorrectAnswer = q.CorrectAnswer
		} else {
			s.log.Warn().Str("question_id", a.QuestionID).Msg("Stored answer references unknown question")
			line.CorrectAnswer = model.Unanswered
		}
		out = append(out, line)
	}
	return out
}
