package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/eduspark/exam-service/internal/events"
	"github.com/eduspark/exam-service/internal/models"
	"github.com/eduspark/exam-service/internal/repositories"
	"github.com/eduspark/exam-service/internal/validator"
)

type attemptService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	grader    *Grader
	publisher events.EventPublisher
}

func NewAttemptService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, publisher events.EventPublisher) AttemptService {
	return &attemptService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
		grader:    NewGrader(),
		publisher: publisher,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

// Start is idempotent per (exam, student): two starts in a row return the
// same attempt. An unpublished or unknown exam reads as not found — the
// learner cannot tell the difference, by design.
func (s *attemptService) Start(ctx context.Context, examID uint, studentID string) (*AttemptResponse, error) {
	s.logger.Info("Starting exam attempt", "exam_id", examID, "student_id", studentID)

	exam, err := s.publishedExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	// Resume an existing in-progress attempt rather than duplicating it.
	existing, err := s.repo.Attempt().GetActiveAttempt(ctx, nil, examID, studentID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check active attempt: %w", err)
	}
	if existing != nil {
		s.logger.Info("Resuming existing attempt", "attempt_id", existing.ID)
		return s.buildAttemptResponse(existing), nil
	}

	now := time.Now()
	attempt := &models.ExamAttempt{
		ExamID:    examID,
		StudentID: studentID,
		Status:    models.AttemptInProgress,
		StartedAt: now,
		ExpiresAt: exam.Deadline(now),
		Answers:   models.AnswerMap{},
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		// Re-check under the transaction; two racing starts must converge
		// on one row.
		racing, err := txRepo.Attempt().GetActiveAttempt(ctx, nil, examID, studentID)
		if err == nil && racing != nil {
			attempt = racing
			return nil
		}
		if err != nil && !repositories.IsNotFoundError(err) {
			return err
		}
		return txRepo.Attempt().Create(ctx, nil, attempt)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start attempt: %w", err)
	}

	s.logger.Info("Exam attempt started", "attempt_id", attempt.ID, "exam_id", examID)

	return s.buildAttemptResponse(attempt), nil
}

// RecordAnswer upserts a single answer. Legal only while the attempt is in
// progress; the row lock serializes bursts of per-field saves from the UI.
func (s *attemptService) RecordAnswer(ctx context.Context, attemptID uint, req *RecordAnswerRequest, studentID string) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	return s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		attempt, err := txRepo.Attempt().GetByIDForUpdate(ctx, nil, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to get attempt: %w", err)
		}

		if attempt.StudentID != studentID {
			return NewPermissionError(studentID, attemptID, "attempt", "record_answer", "not owned by student")
		}
		if attempt.Status != models.AttemptInProgress {
			return ErrAttemptNotActive
		}

		// The answer must target a question of this exam.
		question, err := txRepo.Question().GetByID(ctx, nil, req.QuestionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuestionNotFound
			}
			return fmt.Errorf("failed to get question: %w", err)
		}
		if question.ExamID != attempt.ExamID {
			return ErrQuestionNotFound
		}

		if attempt.Answers == nil {
			attempt.Answers = models.AnswerMap{}
		}
		attempt.Answers.Set(req.QuestionID, req.Value)

		if err := txRepo.Attempt().Update(ctx, nil, attempt); err != nil {
			return fmt.Errorf("failed to save answer: %w", err)
		}
		return nil
	})
}

// Submit finalizes the attempt: state flip, grading and result write commit
// as one transaction, so a crash cannot leave a submitted attempt without a
// result. A retried submit on an already-submitted attempt returns the
// stored result instead of erroring — clients retry after network failures.
func (s *attemptService) Submit(ctx context.Context, attemptID uint, req *SubmitAttemptRequest, studentID string) (*ResultResponse, error) {
	s.logger.Info("Submitting exam attempt",
		"attempt_id", attemptID,
		"student_id", studentID,
		"answers_count", len(req.Answers))

	var (
		result   *models.ExamResult
		attempt  *models.ExamAttempt
		resubmit bool
	)

	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		var err error
		attempt, err = txRepo.Attempt().GetByIDForUpdate(ctx, nil, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to get attempt: %w", err)
		}

		if attempt.StudentID != studentID {
			return NewPermissionError(studentID, attemptID, "attempt", "submit", "not owned by student")
		}

		if attempt.Status == models.AttemptSubmitted {
			// Idempotent retry: hand back the authoritative first grading.
			resubmit = true
			result, err = txRepo.Result().GetByAttempt(ctx, nil, attemptID)
			if err != nil {
				return fmt.Errorf("submitted attempt has no stored result: %w", err)
			}
			return nil
		}

		exam, err := txRepo.Exam().GetByID(ctx, nil, attempt.ExamID)
		if err != nil {
			return fmt.Errorf("failed to get exam: %w", err)
		}
		questions, err := txRepo.Question().GetByExam(ctx, nil, attempt.ExamID)
		if err != nil {
			return fmt.Errorf("failed to get questions: %w", err)
		}

		// Final payload overlays any previously recorded answers.
		if attempt.Answers == nil {
			attempt.Answers = models.AnswerMap{}
		}
		attempt.Answers.Merge(models.AnswerMap(req.Answers))

		now := time.Now()
		attempt.Status = models.AttemptSubmitted
		attempt.SubmittedAt = &now
		endReason := models.AttemptEndReasonSubmitted
		if attempt.IsExpired(now) {
			// Late submits are accepted verbatim and flagged, not clipped.
			attempt.Late = true
			endReason = models.AttemptEndReasonTimeExpired
		}
		attempt.EndReason = &endReason

		summary, err := s.grader.Grade(exam, questions, attempt.Answers)
		if err != nil {
			return fmt.Errorf("grading failed: %w", err)
		}

		result = &models.ExamResult{
			AttemptID:            attempt.ID,
			ExamID:               attempt.ExamID,
			StudentID:            attempt.StudentID,
			Score:                summary.Score,
			Passed:               summary.Passed,
			EarnedPoints:         summary.EarnedPoints,
			AutoGradablePoints:   summary.AutoGradablePoints,
			PendingManualGrading: summary.PendingManualGrading,
			GradedAt:             now,
		}
		if err := result.SetBreakdown(summary.PerQuestion); err != nil {
			return err
		}

		if err := txRepo.Attempt().Update(ctx, nil, attempt); err != nil {
			return fmt.Errorf("failed to update attempt: %w", err)
		}
		if err := txRepo.Result().Create(ctx, nil, result); err != nil {
			return fmt.Errorf("failed to store result: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !resubmit {
		s.logger.Info("Exam attempt submitted",
			"attempt_id", attemptID,
			"score", result.Score,
			"passed", result.Passed,
			"late", attempt.Late)

		s.publishEvent(ctx, events.NewEvent(events.EventAttemptSubmitted, events.AttemptSubmittedEvent{
			AttemptID: attempt.ID,
			ExamID:    attempt.ExamID,
			StudentID: attempt.StudentID,
			Late:      attempt.Late,
		}))
		s.publishEvent(ctx, events.NewEvent(events.EventResultCreated, events.ResultCreatedEvent{
			AttemptID:            result.AttemptID,
			ExamID:               result.ExamID,
			StudentID:            result.StudentID,
			Score:                result.Score,
			Passed:               result.Passed,
			PendingManualGrading: result.PendingManualGrading,
		}))
	}

	return buildResultResponse(result)
}

// SubmitByExam resolves the student's in-progress attempt for the exam and
// submits it. If nothing is in progress but a submitted attempt exists,
// the latest stored result is returned, keeping the endpoint idempotent.
func (s *attemptService) SubmitByExam(ctx context.Context, examID uint, req *SubmitAttemptRequest, studentID string) (*ResultResponse, error) {
	attempt, err := s.repo.Attempt().GetActiveAttempt(ctx, nil, examID, studentID)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to get active attempt: %w", err)
		}

		// No attempt in progress: a retried submit after the first one
		// landed. Serve the stored result of the latest submitted attempt.
		results, rerr := s.repo.Result().GetByExamAndStudent(ctx, nil, examID, studentID)
		if rerr != nil {
			return nil, fmt.Errorf("failed to look up stored results: %w", rerr)
		}
		if len(results) == 0 {
			return nil, ErrAttemptNotFound
		}
		return buildResultResponse(results[len(results)-1])
	}

	return s.Submit(ctx, attempt.ID, req, studentID)
}
