package services

import (
	"errors"
	"fmt"

	"github.com/eduspark/exam-service/internal/validator"
)

// Re-exported so handlers can errors.As against one package.
type ValidationErrors = validator.ValidationErrors
type ValidationError = validator.ValidationError

// ===== SENTINEL ERRORS =====

var (
	// Exam lifecycle
	ErrExamNotFound         = errors.New("exam not found")
	ErrExamNotPublished     = errors.New("exam is not published")
	ErrExamNotEditable      = errors.New("exam is published and no longer editable")
	ErrExamAlreadyPublished = errors.New("exam is already published")

	// Question bank
	ErrQuestionNotFound = errors.New("question not found")

	// Attempts
	ErrAttemptNotFound         = errors.New("attempt not found")
	ErrAttemptNotActive        = errors.New("attempt is not in progress")
	ErrAttemptAlreadySubmitted = errors.New("attempt already submitted")

	// Results
	ErrResultNotFound = errors.New("result not found")

	// Generic
	ErrUserNotFound = errors.New("user not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// ===== TYPED ERRORS =====

// PermissionError carries who tried what on which resource.
type PermissionError struct {
	UserID   string
	Resource string
	ID       uint
	Action   string
	Reason   string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %d: %s",
		e.UserID, e.Action, e.Resource, e.ID, e.Reason)
}

func NewPermissionError(userID string, id uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:   userID,
		Resource: resource,
		ID:       id,
		Action:   action,
		Reason:   reason,
	}
}

// BusinessRuleError is a legal request rejected by a lifecycle or domain
// rule (e.g. publishing an empty exam, editing a published one).
type BusinessRuleError struct {
	Rule    string
	Message string
	Context map[string]interface{}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

// IntegrityError flags an internally inconsistent question bank reaching
// the grader — a programming-logic failure, not user input. Authoring-time
// validation makes this unreachable; the grader still checks.
type IntegrityError struct {
	QuestionID uint
	Detail     string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("question bank integrity violation on question %d: %s", e.QuestionID, e.Detail)
}

func NewIntegrityError(questionID uint, detail string) *IntegrityError {
	return &IntegrityError{QuestionID: questionID, Detail: detail}
}
