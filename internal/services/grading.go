package services

import (
	"math"
	"strings"

	"github.com/eduspark/exam-service/internal/models"
)

// Grader computes a result from a question bank and a learner's answers.
// It is pure: no storage, no clock, no side effects. The attempt service
// calls it inside the submit transaction so the state flip and the result
// write commit together.
type Grader struct{}

func NewGrader() *Grader {
	return &Grader{}
}

// GradeSummary is the grader's output, persisted verbatim as the result.
type GradeSummary struct {
	Score                int
	Passed               bool
	EarnedPoints         float64
	AutoGradablePoints   float64
	PendingManualGrading bool
	PerQuestion          []models.QuestionResult
}

// Grade scores answers against the bank in question order.
//
// Soft issues never fail grading: a missing or malformed answer scores as
// incorrect. The only error path is an internally inconsistent bank (a
// multiple-choice correct answer that is not an option key), which returns
// an IntegrityError — authoring validation makes that unreachable, but the
// grader does not trust its inputs.
func (g *Grader) Grade(exam *models.Exam, questions []*models.Question, answers models.AnswerMap) (*GradeSummary, error) {
	summary := &GradeSummary{
		PerQuestion: make([]models.QuestionResult, 0, len(questions)),
	}

	for _, question := range questions {
		studentAnswer, _ := answers.Get(question.ID)

		row := models.QuestionResult{
			QuestionID:    question.ID,
			Type:          question.Type,
			StudentAnswer: studentAnswer,
			Points:        question.Points,
		}

		switch question.Type {
		case models.MultipleChoice:
			if !question.HasOption(question.CorrectAnswer) {
				return nil, NewIntegrityError(question.ID, "correct answer is not an option key")
			}
			// Option keys compare case-sensitively; the key is an authored
			// identifier, not free text.
			correct := studentAnswer == question.CorrectAnswer
			row.IsCorrect = &correct
			row.CorrectAnswer = strPtr(question.CorrectAnswer)
			summary.AutoGradablePoints += question.Points
			if correct {
				row.EarnedPoints = question.Points
				summary.EarnedPoints += question.Points
			}

		case models.ShortAnswer:
			correct := normalizeAnswer(studentAnswer) != "" &&
				normalizeAnswer(studentAnswer) == normalizeAnswer(question.CorrectAnswer)
			row.IsCorrect = &correct
			row.CorrectAnswer = strPtr(question.CorrectAnswer)
			summary.AutoGradablePoints += question.Points
			if correct {
				row.EarnedPoints = question.Points
				summary.EarnedPoints += question.Points
			}

		case models.Essay:
			// Graded manually; excluded from the automatic tally.
			summary.PendingManualGrading = true

		default:
			return nil, NewIntegrityError(question.ID, "unsupported question type "+string(question.Type))
		}

		summary.PerQuestion = append(summary.PerQuestion, row)
	}

	if summary.AutoGradablePoints > 0 {
		summary.Score = roundHalfUp(summary.EarnedPoints / summary.AutoGradablePoints * 100)
	}
	summary.Passed = summary.Score >= exam.PassingScore

	return summary, nil
}

// normalizeAnswer is the short-answer matching policy: surrounding
// whitespace is ignored and comparison is case-insensitive. " Paris "
// matches "paris".
func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// roundHalfUp rounds to the nearest integer with ties going up, so a 49.5%
// raw score reports as 50.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

func strPtr(s string) *string {
	return &s
}
