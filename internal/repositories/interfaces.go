package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/eduspark/exam-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type ExamFilters struct {
	Status    *models.ExamStatus `json:"status"`
	CourseID  *uint              `json:"course_id"`
	CreatedBy *string            `json:"created_by"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
	SortBy    string             `json:"sort_by"`    // "created_at", "title", "status"
	SortOrder string             `json:"sort_order"` // "asc", "desc"
}

type AttemptFilters struct {
	Status    *models.AttemptStatus `json:"status"`
	StudentID *string               `json:"student_id"`
	DateFrom  *time.Time            `json:"date_from"`
	DateTo    *time.Time            `json:"date_to"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

// ===== SHARED STATISTICS STRUCTS =====

type ExamStats struct {
	TotalAttempts     int     `json:"total_attempts"`
	SubmittedAttempts int     `json:"submitted_attempts"`
	AverageScore      float64 `json:"average_score"`
	BestScore         int     `json:"best_score"`
	PassRate          float64 `json:"pass_rate"`
	QuestionCount     int     `json:"question_count"`
	TotalPoints       float64 `json:"total_points"`
}

// ===== REPOSITORY INTERFACES =====

// ExamRepository owns exam rows and the publish state transition.
type ExamRepository interface {
	Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error)
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error)
	Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	List(ctx context.Context, tx *gorm.DB, filters ExamFilters) ([]*models.Exam, int64, error)
	GetByCourse(ctx context.Context, tx *gorm.DB, courseID uint, filters ExamFilters) ([]*models.Exam, int64, error)
	GetPublished(ctx context.Context, tx *gorm.DB, filters ExamFilters) ([]*models.Exam, int64, error)

	// UpdateStatusIfCurrent performs a compare-and-set on the status column
	// and reports whether a row actually transitioned. This is the guard
	// against concurrent double-publish.
	UpdateStatusIfCurrent(ctx context.Context, tx *gorm.DB, id uint, current, next models.ExamStatus, publishedAt time.Time) (bool, error)

	GetStats(ctx context.Context, tx *gorm.DB, id uint) (*ExamStats, error)
}

// QuestionRepository owns the per-exam question bank.
type QuestionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	Update(ctx context.Context, tx *gorm.DB, question *models.Question) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// GetByExam returns the exam's questions in order_index order.
	GetByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.Question, error)
	CountByExam(ctx context.Context, tx *gorm.DB, examID uint) (int, error)
	SumPointsByExam(ctx context.Context, tx *gorm.DB, examID uint) (float64, error)

	// NextOrderIndex returns the order index a newly appended question takes.
	NextOrderIndex(ctx context.Context, tx *gorm.DB, examID uint) (int, error)
}

// AttemptRepository owns attempt rows. Mutating operations that race with
// submit go through GetByIDForUpdate so per-attempt writes serialize on the
// row lock.
type AttemptRepository interface {
	Create(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamAttempt, error)
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamAttempt, error)
	Update(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error

	GetActiveAttempt(ctx context.Context, tx *gorm.DB, examID uint, studentID string) (*models.ExamAttempt, error)
	GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters AttemptFilters) ([]*models.ExamAttempt, int64, error)
	GetByExam(ctx context.Context, tx *gorm.DB, examID uint, filters AttemptFilters) ([]*models.ExamAttempt, int64, error)
	CountByExamAndStudent(ctx context.Context, tx *gorm.DB, examID uint, studentID string) (int, error)
}

// ResultRepository owns the immutable grading output.
type ResultRepository interface {
	Create(ctx context.Context, tx *gorm.DB, result *models.ExamResult) error
	GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) (*models.ExamResult, error)
	GetByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.ExamResult, error)
	GetByExamAndStudent(ctx context.Context, tx *gorm.DB, examID uint, studentID string) ([]*models.ExamResult, error)
}

// UserRepository resolves users from the identity provider. Read-only.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
