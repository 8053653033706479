package services

import (
	"context"
	"fmt"

	"github.com/eduspark/exam-service/internal/events"
	"github.com/eduspark/exam-service/internal/models"
	"github.com/eduspark/exam-service/internal/repositories"
)

func (s *examService) getExam(ctx context.Context, id uint) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return exam, nil
}

// fillComputedFields resolves the derived question count and total points.
// Total points are never stored; a stored copy could drift from the bank.
func (s *examService) fillComputedFields(ctx context.Context, exam *models.Exam) error {
	count, err := s.repo.Question().CountByExam(ctx, nil, exam.ID)
	if err != nil {
		return fmt.Errorf("failed to count questions: %w", err)
	}
	points, err := s.repo.Question().SumPointsByExam(ctx, nil, exam.ID)
	if err != nil {
		return fmt.Errorf("failed to sum question points: %w", err)
	}
	exam.QuestionCount = count
	exam.TotalPoints = points
	return nil
}

func (s *examService) buildExamResponse(ctx context.Context, exam *models.Exam, userID string) *ExamResponse {
	return &ExamResponse{
		Exam:    exam,
		CanEdit: exam.CreatedBy == userID && exam.IsEditable(),
		CanTake: exam.Status == models.ExamPublished,
	}
}

func (s *examService) applyExamUpdates(exam *models.Exam, req *UpdateExamRequest) {
	if req.Title != nil {
		exam.Title = *req.Title
	}
	if req.Description != nil {
		exam.Description = req.Description
	}
	if req.TimeLimitMinutes != nil {
		exam.TimeLimitMinutes = *req.TimeLimitMinutes
	}
	if req.PassingScore != nil {
		exam.PassingScore = *req.PassingScore
	}
}

// publishEvent pushes to the bus without letting a broker failure reach the
// request path.
func (s *examService) publishEvent(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "event_type", event.Type, "error", err)
	}
}
