package models

import (
	"time"

	"gorm.io/gorm"
)

type ExamStatus string

const (
	ExamDraft     ExamStatus = "draft"
	ExamPublished ExamStatus = "published"
)

// examTransitions is the allowed-transition table for the exam lifecycle.
// Publishing is one-way; there is no unpublish and no transition out of
// published. Modeled as a table rather than a boolean so future states
// (archived, scheduled) slot in without restructuring.
var examTransitions = map[ExamStatus][]ExamStatus{
	ExamDraft:     {ExamPublished},
	ExamPublished: {},
}

// CanTransition reports whether moving from s to next is a legal lifecycle
// step.
func (s ExamStatus) CanTransition(next ExamStatus) bool {
	for _, allowed := range examTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Exam struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	CourseID uint   `json:"course_id" gorm:"not null;index"`
	Title    string `json:"title" gorm:"not null;size:200;index" validate:"required,exam_title"`

	Description *string `json:"description" gorm:"type:text" validate:"omitempty,max=2000"`

	// TimeLimitMinutes of 0 means the exam is untimed.
	TimeLimitMinutes int        `json:"time_limit_minutes" gorm:"not null;default:0" validate:"min=0,max=600"`
	PassingScore     int        `json:"passing_score" gorm:"not null" validate:"passing_score"`
	Status           ExamStatus `json:"status" gorm:"default:draft;index" validate:"omitempty,oneof=draft published"`

	CreatedBy string         `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	PublishedAt *time.Time `json:"published_at"`

	// Relations
	Questions []Question    `json:"questions,omitempty" gorm:"foreignKey:ExamID"`
	Attempts  []ExamAttempt `json:"-" gorm:"foreignKey:ExamID"`

	// Computed fields (not stored)
	QuestionCount int     `json:"question_count" gorm:"-"`
	TotalPoints   float64 `json:"total_points" gorm:"-"`
}

func (Exam) TableName() string {
	return "exams"
}

// IsEditable reports whether structural edits (metadata, questions) are
// still legal. Only draft exams are editable; stored results stay consistent
// with the bank they were graded against.
func (e *Exam) IsEditable() bool {
	return e.Status == ExamDraft
}

// Deadline returns the submit deadline for an attempt started at the given
// time, or nil when the exam is untimed.
func (e *Exam) Deadline(startedAt time.Time) *time.Time {
	if e.TimeLimitMinutes <= 0 {
		return nil
	}
	d := startedAt.Add(time.Duration(e.TimeLimitMinutes) * time.Minute)
	return &d
}
