package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eduspark/exam-service/internal/models"
	"github.com/eduspark/exam-service/internal/repositories"
	"github.com/eduspark/exam-service/internal/services"
	"github.com/eduspark/exam-service/internal/utils"
	"github.com/eduspark/exam-service/internal/validator"
)

// AttemptHandler serves the student-facing exam-taking surface.
type AttemptHandler struct {
	BaseHandler
	examService    services.ExamService
	attemptService services.AttemptService
	resultService  services.ResultService
	validator      *validator.Validator
}

func NewAttemptHandler(
	sm services.ServiceManager,
	v *validator.Validator,
	logger utils.Logger,
) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		examService:    sm.Exam(),
		attemptService: sm.Attempt(),
		resultService:  sm.Result(),
		validator:      v,
	}
}

// ListExams lists published exams plus the student's attempt history.
// GET /student/exams
func (h *AttemptHandler) ListExams(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 50)

	exams, err := h.examService.ListPublished(c.Request.Context(), repositories.ExamFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	attempts, _, err := h.attemptService.ListForStudent(c.Request.Context(), userID, repositories.AttemptFilters{})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"exams":    exams.Exams,
		"total":    exams.Total,
		"attempts": attempts,
	})
}

// GetExam returns the sanitized exam (no answer keys) together with the
// student's current attempt, started idempotently if none is in progress.
// GET /student/exams/:exam_id
func (h *AttemptHandler) GetExam(c *gin.Context) {
	examID := h.parseIDParam(c, "exam_id")
	if examID == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	view, err := h.attemptService.GetExamForStudent(c.Request.Context(), examID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// StartAttempt explicitly starts (or resumes) the attempt for an exam.
// POST /student/exams/:exam_id/attempt/start
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	examID := h.parseIDParam(c, "exam_id")
	if examID == 0 {
		return
	}

	h.LogRequest(c, "Starting attempt", "exam_id", examID)

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.Start(c.Request.Context(), examID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// RecordAnswer upserts one answer on an in-progress attempt. The UI calls
// this once per field change.
// PUT /student/exams/attempts/:attempt_id/answer
func (h *AttemptHandler) RecordAnswer(c *gin.Context) {
	attemptID := h.parseIDParam(c, "attempt_id")
	if attemptID == 0 {
		return
	}

	var req services.RecordAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.attemptService.RecordAnswer(c.Request.Context(), attemptID, &req, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Answer recorded"})
}

// SubmitAttempt submits the student's attempt for an exam with the final
// answers payload. Retried submits return the stored result.
// POST /student/exams/:exam_id/attempt
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	examID := h.parseIDParam(c, "exam_id")
	if examID == 0 {
		return
	}

	h.LogRequest(c, "Submitting attempt", "exam_id", examID)

	var req services.SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	result, err := h.attemptService.SubmitByExam(c.Request.Context(), examID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attempt_id": result.AttemptID,
		"score":      result.Score,
		"passed":     result.Passed,
	})
}

// GetAttempt returns one attempt (owner or exam teacher).
// GET /student/exams/attempts/:attempt_id
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	attemptID := h.parseIDParam(c, "attempt_id")
	if attemptID == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.GetByID(c.Request.Context(), attemptID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// GetResult returns the stored result of a submitted attempt.
// GET /student/exams/attempts/:attempt_id/result
func (h *AttemptHandler) GetResult(c *gin.Context) {
	attemptID := h.parseIDParam(c, "attempt_id")
	if attemptID == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	result, err := h.resultService.GetByAttempt(c.Request.Context(), attemptID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListAttempts returns the student's own attempt history.
// GET /student/exams/attempts
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	filters := repositories.AttemptFilters{
		Limit:  h.parseIntQuery(c, "size", 50),
		Offset: (h.parseIntQuery(c, "page", 1) - 1) * h.parseIntQuery(c, "size", 50),
	}
	if status := c.Query("status"); status != "" {
		attemptStatus := models.AttemptStatus(status)
		filters.Status = &attemptStatus
	}

	attempts, total, err := h.attemptService.ListForStudent(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attempts": attempts,
		"total":    total,
	})
}
