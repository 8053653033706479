package validator

import (
	"github.com/eduspark/exam-service/internal/models"
)

// ExamCreateRequest is the request body for creating an exam in draft.
type ExamCreateRequest struct {
	Title            string  `json:"title" validate:"required,exam_title"`
	Description      *string `json:"description" validate:"omitempty,max=2000"`
	TimeLimitMinutes int     `json:"time_limit_minutes" validate:"min=0,max=600"`
	PassingScore     int     `json:"passing_score" validate:"passing_score"`
}

// ExamUpdateRequest updates exam metadata. All fields are optional; only
// draft exams accept updates.
type ExamUpdateRequest struct {
	Title            *string `json:"title" validate:"omitempty,exam_title"`
	Description      *string `json:"description" validate:"omitempty,max=2000"`
	TimeLimitMinutes *int    `json:"time_limit_minutes" validate:"omitempty,min=0,max=600"`
	PassingScore     *int    `json:"passing_score" validate:"omitempty,passing_score"`
}

// QuestionCreateRequest adds a question to a draft exam. Options and
// CorrectAnswer are interpreted per Type; cross-field rules live in
// BusinessValidator.ValidateQuestionPayload.
type QuestionCreateRequest struct {
	Text          string              `json:"text" validate:"required,min=1,max=2000"`
	Type          models.QuestionType `json:"type" validate:"required,question_type"`
	Points        float64             `json:"points" validate:"required,gt=0"`
	Options       models.OptionMap    `json:"options"`
	CorrectAnswer string              `json:"correct_answer"`
}

// QuestionUpdateRequest edits a question on a draft exam. Type changes are
// allowed while drafting; the payload is revalidated against the effective
// type.
type QuestionUpdateRequest struct {
	Text          *string              `json:"text" validate:"omitempty,min=1,max=2000"`
	Type          *models.QuestionType `json:"type" validate:"omitempty,question_type"`
	Points        *float64             `json:"points" validate:"omitempty,gt=0"`
	Options       *models.OptionMap    `json:"options"`
	CorrectAnswer *string              `json:"correct_answer"`
}

// RecordAnswerRequest upserts a single answer on an in-progress attempt.
type RecordAnswerRequest struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	Value      string `json:"value"`
}

// SubmitAttemptRequest finalizes an attempt. Answers are merged over any
// previously recorded values before grading.
type SubmitAttemptRequest struct {
	Answers map[string]string `json:"answers"`
}
