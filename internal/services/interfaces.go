package services

import (
	"context"
	"time"

	"github.com/eduspark/exam-service/internal/models"
	"github.com/eduspark/exam-service/internal/repositories"
	"github.com/eduspark/exam-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Request shapes live beside the validation rules.
type CreateExamRequest = validator.ExamCreateRequest
type UpdateExamRequest = validator.ExamUpdateRequest
type CreateQuestionRequest = validator.QuestionCreateRequest
type UpdateQuestionRequest = validator.QuestionUpdateRequest
type RecordAnswerRequest = validator.RecordAnswerRequest
type SubmitAttemptRequest = validator.SubmitAttemptRequest

type ExamResponse struct {
	*models.Exam
	CanEdit bool `json:"can_edit"`
	CanTake bool `json:"can_take"`
}

type ExamListResponse struct {
	Exams []*ExamResponse `json:"exams"`
	Total int64           `json:"total"`
}

type QuestionResponse struct {
	*models.Question
}

// AttemptResponse is the student-facing view of an attempt. Questions are
// included on detail reads with answer keys stripped while the attempt is
// in progress.
type AttemptResponse struct {
	*models.ExamAttempt
	CanSubmit bool               `json:"can_submit"`
	Questions []*models.Question `json:"questions,omitempty"`
}

// ResultResponse is the stored result plus its decoded breakdown.
type ResultResponse struct {
	AttemptID            uint                    `json:"attempt_id"`
	ExamID               uint                    `json:"exam_id"`
	Score                int                     `json:"score"`
	Passed               bool                    `json:"passed"`
	EarnedPoints         float64                 `json:"earned_points"`
	AutoGradablePoints   float64                 `json:"auto_gradable_points"`
	PendingManualGrading bool                    `json:"pending_manual_grading"`
	PerQuestion          []models.QuestionResult `json:"per_question"`
	GradedAt             time.Time               `json:"graded_at"`
}

// StudentExamView is the sanitized exam a learner sees when opening an
// exam: questions without answer keys plus the current attempt.
type StudentExamView struct {
	Exam      *ExamResponse      `json:"exam"`
	Questions []*models.Question `json:"questions"`
	Attempt   *AttemptResponse   `json:"attempt"`
}

// ===== SERVICE INTERFACES =====

type ExamService interface {
	Create(ctx context.Context, courseID uint, req *CreateExamRequest, teacherID string) (*ExamResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*ExamResponse, error)
	GetByIDWithQuestions(ctx context.Context, id uint, userID string) (*ExamResponse, error)
	Update(ctx context.Context, id uint, req *UpdateExamRequest, teacherID string) (*ExamResponse, error)
	Delete(ctx context.Context, id uint, teacherID string) error

	ListByCourse(ctx context.Context, courseID uint, teacherID string, filters repositories.ExamFilters) (*ExamListResponse, error)
	ListPublished(ctx context.Context, filters repositories.ExamFilters) (*ExamListResponse, error)

	// Publish performs the one-way draft → published transition. It is
	// idempotent: publishing an already-published exam succeeds without
	// effect.
	Publish(ctx context.Context, id uint, teacherID string) error

	GetStats(ctx context.Context, id uint, teacherID string) (*repositories.ExamStats, error)

	CanEdit(ctx context.Context, examID uint, userID string) (bool, error)
}

type QuestionService interface {
	Add(ctx context.Context, examID uint, req *CreateQuestionRequest, teacherID string) (*QuestionResponse, error)
	Update(ctx context.Context, examID, questionID uint, req *UpdateQuestionRequest, teacherID string) (*QuestionResponse, error)
	Delete(ctx context.Context, examID, questionID uint, teacherID string) error
	GetByExam(ctx context.Context, examID uint, teacherID string) ([]*QuestionResponse, error)
}

type AttemptService interface {
	// Start creates an in_progress attempt, or returns the existing one
	// for this (exam, student) — starting is idempotent.
	Start(ctx context.Context, examID uint, studentID string) (*AttemptResponse, error)

	// RecordAnswer upserts one answer while the attempt is in progress.
	RecordAnswer(ctx context.Context, attemptID uint, req *RecordAnswerRequest, studentID string) error

	// Submit finalizes the attempt, grades it and stores the result in one
	// transaction. A retried submit returns the stored result.
	Submit(ctx context.Context, attemptID uint, req *SubmitAttemptRequest, studentID string) (*ResultResponse, error)

	// SubmitByExam resolves the student's attempt for an exam and submits
	// it (the wire shape the client uses).
	SubmitByExam(ctx context.Context, examID uint, req *SubmitAttemptRequest, studentID string) (*ResultResponse, error)

	GetByID(ctx context.Context, attemptID uint, userID string) (*AttemptResponse, error)
	GetExamForStudent(ctx context.Context, examID uint, studentID string) (*StudentExamView, error)
	ListForStudent(ctx context.Context, studentID string, filters repositories.AttemptFilters) ([]*AttemptResponse, int64, error)
	ListForExam(ctx context.Context, examID uint, teacherID string, filters repositories.AttemptFilters) ([]*AttemptResponse, int64, error)
}

type ResultService interface {
	GetByAttempt(ctx context.Context, attemptID uint, userID string) (*ResultResponse, error)
	ListByExam(ctx context.Context, examID uint, teacherID string) ([]*ResultResponse, error)
}

type ExportService interface {
	// ExportExamResults renders an exam's results as an xlsx workbook.
	ExportExamResults(ctx context.Context, examID uint, teacherID string) ([]byte, string, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Exam() ExamService
	Question() QuestionService
	Attempt() AttemptService
	Result() ResultService
	Export() ExportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
