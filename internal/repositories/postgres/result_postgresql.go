package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/eduspark/exam-service/internal/cache"
	"github.com/eduspark/exam-service/internal/models"
	"github.com/eduspark/exam-service/internal/repositories"
)

type ResultPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewResultPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ResultRepository {
	return &ResultPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *ResultPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *ResultPostgreSQL) Create(ctx context.Context, tx *gorm.DB, result *models.ExamResult) error {
	return r.getDB(tx).WithContext(ctx).Create(result).Error
}

// GetByAttempt reads the stored result. Results are immutable once written,
// so the cache never needs invalidation.
func (r *ResultPostgreSQL) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) (*models.ExamResult, error) {
	db := r.getDB(tx)

	// Skip the cache inside transactions so a just-written result in an
	// uncommitted tx is read back consistently.
	if tx != nil {
		return r.getByAttemptFromDB(ctx, db, attemptID)
	}

	cacheKey := fmt.Sprintf("attempt:%d", attemptID)
	var result models.ExamResult
	err := r.cacheManager.Result.CacheOrExecute(ctx, cacheKey, &result, cache.ResultCacheConfig.TTL, func() (interface{}, error) {
		return r.getByAttemptFromDB(ctx, db, attemptID)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (r *ResultPostgreSQL) getByAttemptFromDB(ctx context.Context, db *gorm.DB, attemptID uint) (*models.ExamResult, error) {
	var result models.ExamResult
	if err := db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return &result, nil
}

func (r *ResultPostgreSQL) GetByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.ExamResult, error) {
	db := r.getDB(tx)
	var results []*models.ExamResult
	if err := db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("graded_at ASC").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to get results for exam: %w", err)
	}
	return results, nil
}

func (r *ResultPostgreSQL) GetByExamAndStudent(ctx context.Context, tx *gorm.DB, examID uint, studentID string) ([]*models.ExamResult, error) {
	db := r.getDB(tx)
	var results []*models.ExamResult
	if err := db.WithContext(ctx).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		Order("graded_at ASC").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to get student results: %w", err)
	}
	return results, nil
}
