package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the exam service.
const (
	EventExamPublished    = "exam.published"
	EventAttemptSubmitted = "attempt.submitted"
	EventResultCreated    = "result.created"
)

// Event is the envelope published to the event bus. Consumers (notification
// service, analytics) key off Type; Data carries the type-specific payload.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent builds an envelope with the service identity stamped on.
func NewEvent(eventType string, data interface{}) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    "exam-service",
		Version:   "1.0",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// ExamPublishedEvent is the payload for exam.published.
type ExamPublishedEvent struct {
	ExamID   uint   `json:"exam_id"`
	CourseID uint   `json:"course_id"`
	Title    string `json:"title"`
	Teacher  string `json:"teacher_id"`
}

// AttemptSubmittedEvent is the payload for attempt.submitted.
type AttemptSubmittedEvent struct {
	AttemptID uint   `json:"attempt_id"`
	ExamID    uint   `json:"exam_id"`
	StudentID string `json:"student_id"`
	Late      bool   `json:"late"`
}

// ResultCreatedEvent is the payload for result.created.
type ResultCreatedEvent struct {
	AttemptID            uint   `json:"attempt_id"`
	ExamID               uint   `json:"exam_id"`
	StudentID            string `json:"student_id"`
	Score                int    `json:"score"`
	Passed               bool   `json:"passed"`
	PendingManualGrading bool   `json:"pending_manual_grading"`
}
