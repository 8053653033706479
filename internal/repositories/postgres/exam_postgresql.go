package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/eduspark/exam-service/internal/cache"
	"github.com/eduspark/exam-service/internal/models"
	"github.com/eduspark/exam-service/internal/repositories"
)

type ExamPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewExamPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ExamRepository {
	return &ExamPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *ExamPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *ExamPostgreSQL) Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	return r.getDB(tx).WithContext(ctx).Create(exam).Error
}

func (r *ExamPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	db := r.getDB(tx)
	var exam models.Exam
	if err := db.WithContext(ctx).First(&exam, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return &exam, nil
}

func (r *ExamPostgreSQL) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	db := r.getDB(tx)
	var exam models.Exam
	if err := db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		First(&exam, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get exam with questions: %w", err)
	}
	return &exam, nil
}

func (r *ExamPostgreSQL) Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	if err := r.getDB(tx).WithContext(ctx).Save(exam).Error; err != nil {
		return err
	}
	r.cacheManager.InvalidateExam(ctx, exam.ID)
	return nil
}

func (r *ExamPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	if err := r.getDB(tx).WithContext(ctx).Delete(&models.Exam{}, id).Error; err != nil {
		return err
	}
	r.cacheManager.InvalidateExam(ctx, id)
	return nil
}

func (r *ExamPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	db := r.getDB(tx)
	var exams []*models.Exam
	var total int64

	query := db.WithContext(ctx).Model(&models.Exam{})
	query = r.helpers.ApplyExamFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = r.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&exams).Error; err != nil {
		return nil, 0, err
	}
	return exams, total, nil
}

func (r *ExamPostgreSQL) GetByCourse(ctx context.Context, tx *gorm.DB, courseID uint, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	filters.CourseID = &courseID
	return r.List(ctx, tx, filters)
}

func (r *ExamPostgreSQL) GetPublished(ctx context.Context, tx *gorm.DB, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	status := models.ExamPublished
	filters.Status = &status
	return r.List(ctx, tx, filters)
}

// UpdateStatusIfCurrent flips the status with a compare-and-set. Reports
// false when no row matched, which means the exam was already past the
// expected state (or gone).
func (r *ExamPostgreSQL) UpdateStatusIfCurrent(ctx context.Context, tx *gorm.DB, id uint, current, next models.ExamStatus, publishedAt time.Time) (bool, error) {
	db := r.getDB(tx)
	updates := map[string]interface{}{
		"status":     next,
		"updated_at": time.Now(),
	}
	if next == models.ExamPublished {
		updates["published_at"] = publishedAt
	}

	result := db.WithContext(ctx).
		Model(&models.Exam{}).
		Where("id = ? AND status = ?", id, current).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update exam status: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		r.cacheManager.InvalidateExam(ctx, id)
	}
	return result.RowsAffected > 0, nil
}

func (r *ExamPostgreSQL) GetStats(ctx context.Context, tx *gorm.DB, id uint) (*repositories.ExamStats, error) {
	db := r.getDB(tx)
	stats := &repositories.ExamStats{}

	var totalAttempts, submitted int64
	if err := db.WithContext(ctx).Model(&models.ExamAttempt{}).
		Where("exam_id = ?", id).Count(&totalAttempts).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&models.ExamAttempt{}).
		Where("exam_id = ? AND status = ?", id, models.AttemptSubmitted).
		Count(&submitted).Error; err != nil {
		return nil, err
	}
	stats.TotalAttempts = int(totalAttempts)
	stats.SubmittedAttempts = int(submitted)

	type aggregate struct {
		AvgScore    float64
		BestScore   int
		PassedCount int64
	}
	var agg aggregate
	if submitted > 0 {
		if err := db.WithContext(ctx).Model(&models.ExamResult{}).
			Select("COALESCE(AVG(score), 0) AS avg_score, COALESCE(MAX(score), 0) AS best_score, COUNT(*) FILTER (WHERE passed) AS passed_count").
			Where("exam_id = ?", id).
			Scan(&agg).Error; err != nil {
			return nil, err
		}
		stats.AverageScore = agg.AvgScore
		stats.BestScore = agg.BestScore
		stats.PassRate = float64(agg.PassedCount) / float64(submitted) * 100
	}

	var questionCount int64
	if err := db.WithContext(ctx).Model(&models.Question{}).
		Where("exam_id = ?", id).Count(&questionCount).Error; err != nil {
		return nil, err
	}
	stats.QuestionCount = int(questionCount)

	var totalPoints float64
	if err := db.WithContext(ctx).Model(&models.Question{}).
		Where("exam_id = ?", id).
		Select("COALESCE(SUM(points), 0)").
		Scan(&totalPoints).Error; err != nil {
		return nil, err
	}
	stats.TotalPoints = totalPoints

	return stats, nil
}
