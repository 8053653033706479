package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/eduspark/exam-service/internal/models"
	"github.com/eduspark/exam-service/internal/repositories"
)

type resultService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewResultService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) ResultService {
	return &resultService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

// GetByAttempt serves the stored result verbatim. It never regrades: the
// first grading is authoritative even if the question bank changed since.
func (s *resultService) GetByAttempt(ctx context.Context, attemptID uint, userID string) (*ResultResponse, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	canAccess, err := s.canAccessResult(ctx, attempt, userID)
	if err != nil {
		return nil, err
	}
	if !canAccess {
		return nil, NewPermissionError(userID, attemptID, "result", "read", "not owner or insufficient permissions")
	}

	// An attempt still in progress has no result yet.
	if attempt.Status != models.AttemptSubmitted {
		return nil, ErrResultNotFound
	}

	result, err := s.repo.Result().GetByAttempt(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	return buildResultResponse(result)
}

func (s *resultService) ListByExam(ctx context.Context, examID uint, teacherID string) ([]*ResultResponse, error) {
	exam, err := s.repo.Exam().GetByID(ctx, nil, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	if exam.CreatedBy != teacherID {
		return nil, NewPermissionError(teacherID, examID, "exam", "view_results", "not the exam owner")
	}

	results, err := s.repo.Result().GetByExam(ctx, nil, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to get results: %w", err)
	}

	responses := make([]*ResultResponse, 0, len(results))
	for _, result := range results {
		resp, err := buildResultResponse(result)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func (s *resultService) canAccessResult(ctx context.Context, attempt *models.ExamAttempt, userID string) (bool, error) {
	if attempt.StudentID == userID {
		return true, nil
	}

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
