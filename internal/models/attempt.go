package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
)

const (
	AttemptEndReasonSubmitted   = "submitted"
	AttemptEndReasonTimeExpired = "time_expired"
)

// ExamAttempt is a single learner's pass through an exam. At most one
// in_progress attempt exists per (exam, student); submitted attempts
// accumulate as history.
type ExamAttempt struct {
	ID        uint          `json:"id" gorm:"primaryKey"`
	ExamID    uint          `json:"exam_id" gorm:"not null;index:idx_attempt_exam_student,priority:1"`
	StudentID string        `json:"student_id" gorm:"not null;size:255;index:idx_attempt_exam_student,priority:2"`
	Status    AttemptStatus `json:"status" gorm:"default:in_progress;index"`

	StartedAt   time.Time  `json:"started_at" gorm:"not null"`
	ExpiresAt   *time.Time `json:"expires_at"`
	SubmittedAt *time.Time `json:"submitted_at"`

	// Answers maps question id (decimal string, matching the wire shape) to
	// the learner's raw submitted value.
	Answers AnswerMap `json:"answers" gorm:"type:jsonb"`

	// Late is set when the submit arrived after ExpiresAt. Answers are
	// accepted verbatim; the flag surfaces the policy to teachers.
	Late      bool    `json:"late" gorm:"default:false"`
	EndReason *string `json:"end_reason" gorm:"size:50"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Exam   Exam        `json:"-" gorm:"foreignKey:ExamID"`
	Result *ExamResult `json:"-" gorm:"foreignKey:AttemptID"`
}

func (ExamAttempt) TableName() string {
	return "exam_attempts"
}

// IsExpired reports whether the attempt's time limit has passed at the given
// instant. Untimed attempts never expire.
func (a *ExamAttempt) IsExpired(now time.Time) bool {
	return a.ExpiresAt != nil && now.After(*a.ExpiresAt)
}

// AnswerMap maps question ids to submitted answer values. Keys are decimal
// strings because the JSONB representation and the client payload both key
// by the question id's string form.
type AnswerMap map[string]string

// AnswerKey renders a question id in the map's key form.
func AnswerKey(questionID uint) string {
	return strconv.FormatUint(uint64(questionID), 10)
}

// Get returns the stored answer for a question id.
func (m AnswerMap) Get(questionID uint) (string, bool) {
	v, ok := m[AnswerKey(questionID)]
	return v, ok
}

// Set upserts the answer for a question id.
func (m AnswerMap) Set(questionID uint, value string) {
	m[AnswerKey(questionID)] = value
}

// Merge overlays other onto m, taking other's value on conflict.
func (m AnswerMap) Merge(other AnswerMap) {
	for k, v := range other {
		m[k] = v
	}
}

func (m AnswerMap) Value() (driver.Value, error) {
	if m == nil {
		m = AnswerMap{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (m *AnswerMap) Scan(src interface{}) error {
	if src == nil {
		*m = AnswerMap{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("answers: cannot scan %T", src)
	}
}

func (AnswerMap) GormDataType() string {
	return "jsonb"
}
