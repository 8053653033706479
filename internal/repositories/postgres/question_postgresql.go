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

type QuestionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	if err := r.getDB(tx).WithContext(ctx).Create(question).Error; err != nil {
		return err
	}
	r.cacheManager.InvalidateExam(ctx, question.ExamID)
	return nil
}

func (r *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	db := r.getDB(tx)
	var question models.Question
	if err := db.WithContext(ctx).First(&question, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return &question, nil
}

func (r *QuestionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	if err := r.getDB(tx).WithContext(ctx).Save(question).Error; err != nil {
		return err
	}
	r.cacheManager.InvalidateExam(ctx, question.ExamID)
	return nil
}

func (r *QuestionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	question, err := r.GetByID(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := r.getDB(tx).WithContext(ctx).Delete(&models.Question{}, id).Error; err != nil {
		return err
	}
	r.cacheManager.InvalidateExam(ctx, question.ExamID)
	return nil
}

func (r *QuestionPostgreSQL) GetByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.Question, error) {
	db := r.getDB(tx)
	var questions []*models.Question
	if err := db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("order_index ASC").
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to get questions for exam: %w", err)
	}
	return questions, nil
}

func (r *QuestionPostgreSQL) CountByExam(ctx context.Context, tx *gorm.DB, examID uint) (int, error) {
	db := r.getDB(tx)
	var count int64
	if err := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("exam_id = ?", examID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *QuestionPostgreSQL) SumPointsByExam(ctx context.Context, tx *gorm.DB, examID uint) (float64, error) {
	db := r.getDB(tx)
	var sum float64
	if err := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("exam_id = ?", examID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *QuestionPostgreSQL) NextOrderIndex(ctx context.Context, tx *gorm.DB, examID uint) (int, error) {
	db := r.getDB(tx)
	var maxOrder int
	if err := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("exam_id = ?", examID).
		Select("COALESCE(MAX(order_index), 0)").
		Scan(&maxOrder).Error; err != nil {
		return 0, err
	}
	return maxOrder + 1, nil
}
