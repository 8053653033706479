package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/eduspark/exam-service/internal/models"
)

// BusinessValidator handles cross-field and lifecycle rules that struct tags
// cannot express.
type BusinessValidator struct {
	validate *validator.Validate
}

func registerBusinessRules(validate *validator.Validate) {
	// Title validation (1-200 characters after trimming)
	validate.RegisterValidation("exam_title", func(fl validator.FieldLevel) bool {
		title := strings.TrimSpace(fl.Field().String())
		return len(title) >= 1 && len(title) <= 200
	})

	// Passing score validation (0-100)
	validate.RegisterValidation("passing_score", func(fl validator.FieldLevel) bool {
		score := fl.Field().Int()
		return score >= 0 && score <= 100
	})

	// Question type validation
	validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		qType := models.QuestionType(fl.Field().String())
		switch qType {
		case models.MultipleChoice, models.ShortAnswer, models.Essay:
			return true
		}
		return false
	})
}

// ValidateQuestionPayload enforces the type-specific answer-key rules:
// multiple choice needs at least two options and a correct answer that is
// one of the option keys; short answer needs a non-empty expected string;
// essays carry no key at all.
func (bv *BusinessValidator) ValidateQuestionPayload(qType models.QuestionType, options models.OptionMap, correctAnswer string) ValidationErrors {
	var errs ValidationErrors

	switch qType {
	case models.MultipleChoice:
		if options.Len() < 2 {
			errs = append(errs, ValidationError{
				Field:   "options",
				Message: "multiple choice questions need at least 2 options",
				Value:   options.Len(),
				Rule:    "business_logic",
			})
		}
		if correctAnswer == "" {
			errs = append(errs, ValidationError{
				Field:   "correct_answer",
				Message: "is required for multiple choice questions",
				Rule:    "business_logic",
			})
		} else if _, ok := options.Get(correctAnswer); !ok {
			errs = append(errs, ValidationError{
				Field:   "correct_answer",
				Message: "must be one of the option keys",
				Value:   correctAnswer,
				Rule:    "business_logic",
			})
		}
	case models.ShortAnswer:
		if strings.TrimSpace(correctAnswer) == "" {
			errs = append(errs, ValidationError{
				Field:   "correct_answer",
				Message: "is required for short answer questions",
				Rule:    "business_logic",
			})
		}
		if options.Len() > 0 {
			errs = append(errs, ValidationError{
				Field:   "options",
				Message: "short answer questions do not take options",
				Rule:    "business_logic",
			})
		}
	case models.Essay:
		if correctAnswer != "" {
			errs = append(errs, ValidationError{
				Field:   "correct_answer",
				Message: "essay questions are graded manually and take no answer key",
				Rule:    "business_logic",
			})
		}
		if options.Len() > 0 {
			errs = append(errs, ValidationError{
				Field:   "options",
				Message: "essay questions do not take options",
				Rule:    "business_logic",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported question type %q", qType),
			Value:   qType,
			Rule:    "business_logic",
		})
	}

	return errs
}

// ValidateStatusTransition checks the exam lifecycle table plus the
// publish precondition (at least one question, positive total points).
func (bv *BusinessValidator) ValidateStatusTransition(current, next models.ExamStatus, questionCount int, totalPoints float64) ValidationErrors {
	var errs ValidationErrors

	if !current.CanTransition(next) {
		errs = append(errs, ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("cannot transition from %s to %s", current, next),
			Value:   next,
			Rule:    "status_transition",
		})
		return errs
	}

	if next == models.ExamPublished {
		if questionCount == 0 {
			errs = append(errs, ValidationError{
				Field:   "questions",
				Message: "exam must have at least one question before publishing",
				Value:   questionCount,
				Rule:    "business_logic",
			})
		}
		if questionCount > 0 && totalPoints <= 0 {
			errs = append(errs, ValidationError{
				Field:   "total_points",
				Message: "exam must be worth more than zero points",
				Value:   totalPoints,
				Rule:    "business_logic",
			})
		}
	}

	return errs
}
