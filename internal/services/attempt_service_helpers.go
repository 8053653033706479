package services

import (
	"context"
	"fmt"

	"github.com/eduspark/exam-service/internal/events"
	"github.com/eduspark/exam-service/internal/models"
	"github.com/eduspark/exam-service/internal/repositories"
)

// ===== GET OPERATIONS =====

func (s *attemptService) GetByID(ctx context.Context, attemptID uint, userID string) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	canAccess, err := s.canAccessAttempt(ctx, attempt, userID)
	if err != nil {
		return nil, err
	}
	if !canAccess {
		return nil, NewPermissionError(userID, attemptID, "attempt", "read", "not owner or insufficient permissions")
	}

	return s.buildAttemptResponse(attempt), nil
}

// GetExamForStudent returns the learner-facing exam view: sanitized
// questions (no answer keys) plus the current attempt, started idempotently
// if none is in progress.
func (s *attemptService) GetExamForStudent(ctx context.Context, examID uint, studentID string) (*StudentExamView, error) {
	exam, err := s.publishedExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	attemptResp, err := s.Start(ctx, examID, studentID)
	if err != nil {
		return nil, err
	}

	questions, err := s.repo.Question().GetByExam(ctx, nil, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}

	sanitized := make([]*models.Question, len(questions))
	for i, q := range questions {
		sanitized[i] = q.Sanitized()
	}

	exam.QuestionCount = len(questions)
	exam.TotalPoints = 0
	for _, q := range questions {
		exam.TotalPoints += q.Points
	}

	return &StudentExamView{
		Exam:      &ExamResponse{Exam: exam, CanTake: true},
		Questions: sanitized,
		Attempt:   attemptResp,
	}, nil
}

// ===== LIST OPERATIONS =====

func (s *attemptService) ListForStudent(ctx context.Context, studentID string, filters repositories.AttemptFilters) ([]*AttemptResponse, int64, error) {
	attempts, total, err := s.repo.Attempt().GetByStudent(ctx, nil, studentID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}

	responses := make([]*AttemptResponse, len(attempts))
	for i, attempt := range attempts {
		responses[i] = s.buildAttemptResponse(attempt)
	}
	return responses, total, nil
}

func (s *attemptService) ListForExam(ctx context.Context, examID uint, teacherID string, filters repositories.AttemptFilters) ([]*AttemptResponse, int64, error) {
	exam, err := s.repo.Exam().GetByID(ctx, nil, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, 0, ErrExamNotFound
		}
		return nil, 0, fmt.Errorf("failed to get exam: %w", err)
	}
	if exam.CreatedBy != teacherID {
		return nil, 0, NewPermissionError(teacherID, examID, "exam", "view_attempts", "not the exam owner")
	}

	attempts, total, err := s.repo.Attempt().GetByExam(ctx, nil, examID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list exam attempts: %w", err)
	}

	responses := make([]*AttemptResponse, len(attempts))
	for i, attempt := range attempts {
		responses[i] = s.buildAttemptResponse(attempt)
	}
	return responses, total, nil
}

// ===== HELPERS =====

// publishedExam loads an exam a learner is allowed to see. Drafts and
// unknown ids are both not-found; learners never learn drafts exist.
func (s *attemptService) publishedExam(ctx context.Context, examID uint) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByID(ctx, nil, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	if exam.Status != models.ExamPublished {
		return nil, ErrExamNotFound
	}
	return exam, nil
}

func (s *attemptService) canAccessAttempt(ctx context.Context, attempt *models.ExamAttempt, userID string) (bool, error) {
	if attempt.StudentID == userID {
		return true, nil
	}

	// The owning teacher may inspect attempts against their exam.
	exam, err := s.repo.Exam().GetByID(ctx, nil, attempt.ExamID)
	if err != nil {
		return false, fmt.Errorf("failed to get exam for access check: %w", err)
	}
	if exam.CreatedBy == userID {
		return true, nil
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return false, nil
	}
	return user.Role == models.RoleAdmin, nil
}

func (s *attemptService) buildAttemptResponse(attempt *models.ExamAttempt) *AttemptResponse {
	return &AttemptResponse{
		ExamAttempt: attempt,
		CanSubmit:   attempt.Status == models.AttemptInProgress,
	}
}

func buildResultResponse(result *models.ExamResult) (*ResultResponse, error) {
	breakdown, err := result.Breakdown()
	if err != nil {
		return nil, err
	}
	return &ResultResponse{
		AttemptID:            result.AttemptID,
		ExamID:               result.ExamID,
		Score:                result.Score,
		Passed:               result.Passed,
		EarnedPoints:         result.EarnedPoints,
		AutoGradablePoints:   result.AutoGradablePoints,
		PendingManualGrading: result.PendingManualGrading,
		PerQuestion:          breakdown,
		GradedAt:             result.GradedAt,
	}, nil
}

func (s *attemptService) publishEvent(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "event_type", event.Type, "error", err)
	}
}
