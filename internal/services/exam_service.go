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

type examService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewExamService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, publisher events.EventPublisher) ExamService {
	return &examService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
		publisher: publisher,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *examService) Create(ctx context.Context, courseID uint, req *CreateExamRequest, teacherID string) (*ExamResponse, error) {
	s.logger.Info("Creating exam", "course_id", courseID, "teacher_id", teacherID, "title", req.Title)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exam := &models.Exam{
		CourseID:         courseID,
		Title:            req.Title,
		Description:      req.Description,
		TimeLimitMinutes: req.TimeLimitMinutes,
		PassingScore:     req.PassingScore,
		Status:           models.ExamDraft,
		CreatedBy:        teacherID,
	}

	if err := s.repo.Exam().Create(ctx, nil, exam); err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}

	s.logger.Info("Exam created successfully", "exam_id", exam.ID)

	return s.buildExamResponse(ctx, exam, teacherID), nil
}

func (s *examService) GetByID(ctx context.Context, id uint, userID string) (*ExamResponse, error) {
	exam, err := s.getExam(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.fillComputedFields(ctx, exam); err != nil {
		return nil, err
	}

	return s.buildExamResponse(ctx, exam, userID), nil
}

func (s *examService) GetByIDWithQuestions(ctx context.Context, id uint, userID string) (*ExamResponse, error) {
	exam, err := s.repo.Exam().GetByIDWithQuestions(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam with questions: %w", err)
	}

	// Only the owning teacher sees answer keys.
	if exam.CreatedBy != userID {
		return nil, NewPermissionError(userID, id, "exam", "read_questions", "not the exam owner")
	}

	exam.QuestionCount = len(exam.Questions)
	exam.TotalPoints = 0
	for _, q := range exam.Questions {
		exam.TotalPoints += q.Points
	}

	return s.buildExamResponse(ctx, exam, userID), nil
}

func (s *examService) Update(ctx context.Context, id uint, req *UpdateExamRequest, teacherID string) (*ExamResponse, error) {
	s.logger.Info("Updating exam", "exam_id", id, "teacher_id", teacherID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exam, err := s.getExam(ctx, id)
	if err != nil {
		return nil, err
	}

	if exam.CreatedBy != teacherID {
		return nil, NewPermissionError(teacherID, id, "exam", "update", "not the exam owner")
	}

	// Metadata is frozen at publish so stored results stay consistent with
	// the definition they were graded against.
	if !exam.IsEditable() {
		return nil, ErrExamNotEditable
	}

	s.applyExamUpdates(exam, req)

	if err := s.repo.Exam().Update(ctx, nil, exam); err != nil {
		return nil, fmt.Errorf("failed to update exam: %w", err)
	}

	s.logger.Info("Exam updated successfully", "exam_id", id)

	return s.buildExamResponse(ctx, exam, teacherID), nil
}

func (s *examService) Delete(ctx context.Context, id uint, teacherID string) error {
	s.logger.Info("Deleting exam", "exam_id", id, "teacher_id", teacherID)

	exam, err := s.getExam(ctx, id)
	if err != nil {
		return err
	}

	if exam.CreatedBy != teacherID {
		return NewPermissionError(teacherID, id, "exam", "delete", "not the exam owner")
	}

	if !exam.IsEditable() {
		return ErrExamNotEditable
	}

	if err := s.repo.Exam().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete exam: %w", err)
	}

	s.logger.Info("Exam deleted successfully", "exam_id", id)
	return nil
}

// ===== LIST OPERATIONS =====

func (s *examService) ListByCourse(ctx context.Context, courseID uint, teacherID string, filters repositories.ExamFilters) (*ExamListResponse, error) {
	filters.CreatedBy = &teacherID

	exams, total, err := s.repo.Exam().GetByCourse(ctx, nil, courseID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams for course: %w", err)
	}

	responses := make([]*ExamResponse, len(exams))
	for i, exam := range exams {
		if err := s.fillComputedFields(ctx, exam); err != nil {
			return nil, err
		}
		responses[i] = s.buildExamResponse(ctx, exam, teacherID)
	}

	return &ExamListResponse{Exams: responses, Total: total}, nil
}

func (s *examService) ListPublished(ctx context.Context, filters repositories.ExamFilters) (*ExamListResponse, error) {
	exams, total, err := s.repo.Exam().GetPublished(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list published exams: %w", err)
	}

	responses := make([]*ExamResponse, len(exams))
	for i, exam := range exams {
		if err := s.fillComputedFields(ctx, exam); err != nil {
			return nil, err
		}
		responses[i] = &ExamResponse{Exam: exam, CanTake: true}
	}

	return &ExamListResponse{Exams: responses, Total: total}, nil
}

// ===== STATUS MANAGEMENT =====

func (s *examService) Publish(ctx context.Context, id uint, teacherID string) error {
	s.logger.Info("Publishing exam", "exam_id", id, "teacher_id", teacherID)

	exam, err := s.getExam(ctx, id)
	if err != nil {
		return err
	}

	if exam.CreatedBy != teacherID {
		return NewPermissionError(teacherID, id, "exam", "publish", "not the exam owner")
	}

	// Re-publishing is a no-op so client retries cannot fail.
	if exam.Status == models.ExamPublished {
		s.logger.Info("Exam already published, publish is a no-op", "exam_id", id)
		return nil
	}

	questionCount, err := s.repo.Question().CountByExam(ctx, nil, id)
	if err != nil {
		return fmt.Errorf("failed to count questions: %w", err)
	}
	totalPoints, err := s.repo.Question().SumPointsByExam(ctx, nil, id)
	if err != nil {
		return fmt.Errorf("failed to sum question points: %w", err)
	}

	if errs := s.validator.GetBusinessValidator().ValidateStatusTransition(exam.Status, models.ExamPublished, questionCount, totalPoints); len(errs) > 0 {
		return NewBusinessRuleError(
			"EX-PUBLISH-PRECONDITION",
			errs[0].Message,
			map[string]interface{}{
				"exam_id":        id,
				"question_count": questionCount,
				"total_points":   totalPoints,
			},
		)
	}

	// Compare-and-set guards concurrent double-publish: only one caller
	// observes the draft → published flip.
	transitioned, err := s.repo.Exam().UpdateStatusIfCurrent(ctx, nil, id, models.ExamDraft, models.ExamPublished, time.Now())
	if err != nil {
		return fmt.Errorf("failed to publish exam: %w", err)
	}
	if !transitioned {
		// Someone else published concurrently; same outcome, same answer.
		s.logger.Info("Exam publish lost the race, already published", "exam_id", id)
		return nil
	}

	s.logger.Info("Exam published successfully", "exam_id", id)

	s.publishEvent(ctx, events.NewEvent(events.EventExamPublished, events.ExamPublishedEvent{
		ExamID:   exam.ID,
		CourseID: exam.CourseID,
		Title:    exam.Title,
		Teacher:  teacherID,
	}))

	return nil
}

// ===== STATISTICS =====

func (s *examService) GetStats(ctx context.Context, id uint, teacherID string) (*repositories.ExamStats, error) {
	exam, err := s.getExam(ctx, id)
	if err != nil {
		return nil, err
	}

	if exam.CreatedBy != teacherID {
		return nil, NewPermissionError(teacherID, id, "exam", "view_stats", "not the exam owner")
	}

	stats, err := s.repo.Exam().GetStats(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get exam stats: %w", err)
	}
	return stats, nil
}

// ===== PERMISSION CHECKS =====

func (s *examService) CanEdit(ctx context.Context, examID uint, userID string) (bool, error) {
	exam, err := s.getExam(ctx, examID)
	if err != nil {
		return false, err
	}
	return exam.CreatedBy == userID && exam.IsEditable(), nil
}
