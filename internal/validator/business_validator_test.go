package validator

import (
	"testing"

	"github.com/eduspark/exam-service/internal/models"
)

func TestValidateQuestionPayload(t *testing.T) {
	bv := New().GetBusinessValidator()

	tests := []struct {
		name      string
		qType     models.QuestionType
		options   models.OptionMap
		correct   string
		wantError bool
	}{
		{
			name:    "valid multiple choice",
			qType:   models.MultipleChoice,
			options: models.NewOptionMap("A", "Paris", "B", "London"),
			correct: "A",
		},
		{
			name:      "multiple choice answer not an option key",
			qType:     models.MultipleChoice,
			options:   models.NewOptionMap("A", "Paris", "B", "London"),
			correct:   "Z",
			wantError: true,
		},
		{
			name:      "multiple choice needs two options",
			qType:     models.MultipleChoice,
			options:   models.NewOptionMap("A", "Paris"),
			correct:   "A",
			wantError: true,
		},
		{
			name:      "multiple choice without answer",
			qType:     models.MultipleChoice,
			options:   models.NewOptionMap("A", "Paris", "B", "London"),
			wantError: true,
		},
		{
			name:    "valid short answer",
			qType:   models.ShortAnswer,
			correct: "Paris",
		},
		{
			name:      "short answer with blank expectation",
			qType:     models.ShortAnswer,
			correct:   "   ",
			wantError: true,
		},
		{
			name:      "short answer with options",
			qType:     models.ShortAnswer,
			options:   models.NewOptionMap("A", "Paris", "B", "Rome"),
			correct:   "Paris",
			wantError: true,
		},
		{
			name:  "valid essay",
			qType: models.Essay,
		},
		{
			name:      "essay with answer key",
			qType:     models.Essay,
			correct:   "anything",
			wantError: true,
		},
		{
			name:      "unknown type",
			qType:     models.QuestionType("true_false"),
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := bv.ValidateQuestionPayload(tt.qType, tt.options, tt.correct)
			if tt.wantError && len(errs) == 0 {
				t.Error("expected validation errors, got none")
			}
			if !tt.wantError && len(errs) > 0 {
				t.Errorf("unexpected validation errors: %v", errs)
			}
		})
	}
}

func TestValidateStatusTransition(t *testing.T) {
	bv := New().GetBusinessValidator()

	tests := []struct {
		name          string
		current, next models.ExamStatus
		questionCount int
		totalPoints   float64
		wantError     bool
	}{
		{"draft to published with questions", models.ExamDraft, models.ExamPublished, 3, 30, false},
		{"draft to published without questions", models.ExamDraft, models.ExamPublished, 0, 0, true},
		{"draft to published with zero points", models.ExamDraft, models.ExamPublished, 2, 0, true},
		{"published back to draft", models.ExamPublished, models.ExamDraft, 3, 30, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := bv.ValidateStatusTransition(tt.current, tt.next, tt.questionCount, tt.totalPoints)
			if tt.wantError && len(errs) == 0 {
				t.Error("expected validation errors, got none")
			}
			if !tt.wantError && len(errs) > 0 {
				t.Errorf("unexpected validation errors: %v", errs)
			}
		})
	}
}

func TestStructValidation(t *testing.T) {
	v := New()

	err := v.Validate(&ExamCreateRequest{Title: "", PassingScore: 60})
	if err == nil {
		t.Error("empty title must fail")
	}
	if _, ok := err.(ValidationErrors); !ok {
		t.Errorf("error type = %T, want ValidationErrors", err)
	}

	if err := v.Validate(&ExamCreateRequest{Title: "Midterm", PassingScore: 100}); err != nil {
		t.Errorf("valid request failed: %v", err)
	}

	if err := v.Validate(&ExamCreateRequest{Title: "Midterm", PassingScore: 101}); err == nil {
		t.Error("passing score over 100 must fail")
	}
}
