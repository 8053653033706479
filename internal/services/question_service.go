package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/eduspark/exam-service/internal/models"
	"github.com/eduspark/exam-service/internal/repositories"
	"github.com/eduspark/exam-service/internal/validator"
)

type questionService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewQuestionService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator) QuestionService {
	return &questionService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
	}
}

func (s *questionService) Add(ctx context.Context, examID uint, req *CreateQuestionRequest, teacherID string) (*QuestionResponse, error) {
	s.logger.Info("Adding question to exam",
		"exam_id", examID,
		"teacher_id", teacherID,
		"type", req.Type)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if errs := s.validator.GetBusinessValidator().ValidateQuestionPayload(req.Type, req.Options, req.CorrectAnswer); len(errs) > 0 {
		return nil, errs
	}

	exam, err := s.editableExam(ctx, examID, teacherID, "add_question")
	if err != nil {
		return nil, err
	}

	var question *models.Question
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		orderIndex, err := txRepo.Question().NextOrderIndex(ctx, nil, exam.ID)
		if err != nil {
			return fmt.Errorf("failed to get next order index: %w", err)
		}

		question = &models.Question{
			ExamID:        exam.ID,
			OrderIndex:    orderIndex,
			Text:          req.Text,
			Type:          req.Type,
			Points:        req.Points,
			Options:       req.Options,
			CorrectAnswer: req.CorrectAnswer,
		}

		if err := txRepo.Question().Create(ctx, nil, question); err != nil {
			return fmt.Errorf("failed to create question: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Question added successfully",
		"exam_id", examID,
		"question_id", question.ID,
		"order_index", question.OrderIndex)

	return &QuestionResponse{Question: question}, nil
}

func (s *questionService) Update(ctx context.Context, examID, questionID uint, req *UpdateQuestionRequest, teacherID string) (*QuestionResponse, error) {
	s.logger.Info("Updating question",
		"exam_id", examID,
		"question_id", questionID,
		"teacher_id", teacherID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.editableExam(ctx, examID, teacherID, "update_question"); err != nil {
		return nil, err
	}

	question, err := s.questionInExam(ctx, examID, questionID)
	if err != nil {
		return nil, err
	}

	if req.Text != nil {
		question.Text = *req.Text
	}
	if req.Type != nil {
		question.Type = *req.Type
	}
	if req.Points != nil {
		question.Points = *req.Points
	}
	if req.Options != nil {
		question.Options = *req.Options
	}
	if req.CorrectAnswer != nil {
		question.CorrectAnswer = *req.CorrectAnswer
	}

	// The effective payload must hold together after partial updates too.
	if errs := s.validator.GetBusinessValidator().ValidateQuestionPayload(question.Type, question.Options, question.CorrectAnswer); len(errs) > 0 {
		return nil, errs
	}

	if err := s.repo.Question().Update(ctx, nil, question); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	s.logger.Info("Question updated successfully", "question_id", questionID)

	return &QuestionResponse{Question: question}, nil
}

func (s *questionService) Delete(ctx context.Context, examID, questionID uint, teacherID string) error {
	s.logger.Info("Deleting question",
		"exam_id", examID,
		"question_id", questionID,
		"teacher_id", teacherID)

	if _, err := s.editableExam(ctx, examID, teacherID, "delete_question"); err != nil {
		return err
	}

	if _, err := s.questionInExam(ctx, examID, questionID); err != nil {
		return err
	}

	if err := s.repo.Question().Delete(ctx, nil, questionID); err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}

	s.logger.Info("Question deleted successfully", "question_id", questionID)
	return nil
}

func (s *questionService) GetByExam(ctx context.Context, examID uint, teacherID string) ([]*QuestionResponse, error) {
	exam, err := s.repo.Exam().GetByID(ctx, nil, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	if exam.CreatedBy != teacherID {
		return nil, NewPermissionError(teacherID, examID, "exam", "read_questions", "not the exam owner")
	}

	questions, err := s.repo.Question().GetByExam(ctx, nil, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}

	responses := make([]*QuestionResponse, len(questions))
	for i, q := range questions {
		responses[i] = &QuestionResponse{Question: q}
	}
	return responses, nil
}

// ===== HELPERS =====

// editableExam loads the exam and enforces ownership plus the draft-only
// edit rule.
func (s *questionService) editableExam(ctx context.Context, examID uint, teacherID, action string) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByID(ctx, nil, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	if exam.CreatedBy != teacherID {
		return nil, NewPermissionError(teacherID, examID, "exam", action, "not the exam owner")
	}
	if !exam.IsEditable() {
		return nil, ErrExamNotEditable
	}
	return exam, nil
}

func (s *questionService) questionInExam(ctx context.Context, examID, questionID uint) (*models.Question, error) {
	question, err := s.repo.Question().GetByID(ctx, nil, questionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	if question.ExamID != examID {
		return nil, ErrQuestionNotFound
	}
	return question, nil
}
