package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/eduspark/exam-service/internal/config"
	"github.com/eduspark/exam-service/internal/models"
	"github.com/eduspark/exam-service/internal/repositories"
	"github.com/eduspark/exam-service/internal/services"
	"github.com/eduspark/exam-service/internal/utils"
	"github.com/eduspark/exam-service/internal/validator"
)

type HandlerManager struct {
	examHandler    *ExamHandler
	attemptHandler *AttemptHandler
	authMiddleware *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	v *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	return &HandlerManager{
		examHandler:    NewExamHandler(serviceManager, v, logger),
		attemptHandler: NewAttemptHandler(serviceManager, v, logger),
		authMiddleware: NewCasdoorAuthMiddleware(casdoorConfig, userRepo),
	}
}

// SetupRoutes sets up all API routes.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Teacher authoring surface
		teacher := api.Group("/teacher/courses/:course_id/exams")
		teacher.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher))
		{
			teacher.POST("", hm.examHandler.CreateExam)
			teacher.GET("", hm.examHandler.ListExams)
			teacher.GET("/:exam_id", hm.examHandler.GetExam)
			teacher.PUT("/:exam_id", hm.examHandler.UpdateExam)
			teacher.DELETE("/:exam_id", hm.examHandler.DeleteExam)
			teacher.POST("/:exam_id/publish", hm.examHandler.PublishExam)

			teacher.POST("/:exam_id/questions", hm.examHandler.AddQuestion)
			teacher.PUT("/:exam_id/questions/:question_id", hm.examHandler.UpdateQuestion)
			teacher.DELETE("/:exam_id/questions/:question_id", hm.examHandler.DeleteQuestion)

			teacher.GET("/:exam_id/stats", hm.examHandler.GetExamStats)
			teacher.GET("/:exam_id/attempts", hm.examHandler.ListExamAttempts)
			teacher.GET("/:exam_id/results", hm.examHandler.ListExamResults)
			teacher.GET("/:exam_id/results/export", hm.examHandler.ExportExamResults)
		}

		// Student exam-taking surface
		student := api.Group("/student/exams")
		student.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleStudent))
		{
			student.GET("", hm.attemptHandler.ListExams)

			// Attempt routes come before /:exam_id so "attempts" is never
			// parsed as an exam id.
			student.GET("/attempts", hm.attemptHandler.ListAttempts)
			student.GET("/attempts/:attempt_id", hm.attemptHandler.GetAttempt)
			student.GET("/attempts/:attempt_id/result", hm.attemptHandler.GetResult)
			student.PUT("/attempts/:attempt_id/answer", hm.attemptHandler.RecordAnswer)

			student.GET("/:exam_id", hm.attemptHandler.GetExam)
			student.POST("/:exam_id/attempt/start", hm.attemptHandler.StartAttempt)
			student.POST("/:exam_id/attempt", hm.attemptHandler.SubmitAttempt)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "exam-service",
		})
	})
}
