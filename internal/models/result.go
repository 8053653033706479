package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// ExamResult is the once-computed, immutable outcome of grading a submitted
// attempt. It is written in the same transaction that flips the attempt to
// submitted and is never recomputed, even if the question bank changes
// afterwards.
type ExamResult struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	AttemptID uint   `json:"attempt_id" gorm:"not null;uniqueIndex"`
	ExamID    uint   `json:"exam_id" gorm:"not null;index"`
	StudentID string `json:"student_id" gorm:"not null;index;size:255"`

	// Score is the rounded percentage of auto-gradable points earned.
	Score  int  `json:"score" gorm:"not null"`
	Passed bool `json:"passed" gorm:"not null"`

	EarnedPoints       float64 `json:"earned_points" gorm:"not null"`
	AutoGradablePoints float64 `json:"auto_gradable_points" gorm:"not null"`

	// PendingManualGrading is set when the exam contains essay questions;
	// their points are outside the automatic tally.
	PendingManualGrading bool `json:"pending_manual_grading" gorm:"default:false"`

	// PerQuestion holds the ordered breakdown as graded, serialized JSONB.
	PerQuestion datatypes.JSON `json:"per_question" gorm:"type:jsonb"`

	GradedAt  time.Time `json:"graded_at" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (ExamResult) TableName() string {
	return "exam_results"
}

// QuestionResult is one row of the per-question breakdown, in question
// order. CorrectAnswer and IsCorrect are null for essays, which are graded
// manually.
type QuestionResult struct {
	QuestionID    uint         `json:"question_id"`
	Type          QuestionType `json:"type"`
	StudentAnswer string       `json:"student_answer"`
	CorrectAnswer *string      `json:"correct_answer"`
	IsCorrect     *bool        `json:"is_correct"`
	Points        float64      `json:"points"`
	EarnedPoints  float64      `json:"earned_points"`
}

// Breakdown decodes the stored per-question rows.
func (r *ExamResult) Breakdown() ([]QuestionResult, error) {
	if len(r.PerQuestion) == 0 {
		return nil, nil
	}
	var rows []QuestionResult
	if err := json.Unmarshal(r.PerQuestion, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode result breakdown: %w", err)
	}
	return rows, nil
}

// SetBreakdown encodes the per-question rows for storage.
func (r *ExamResult) SetBreakdown(rows []QuestionResult) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode result breakdown: %w", err)
	}
	r.PerQuestion = data
	return nil
}
