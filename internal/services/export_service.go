package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/eduspark/exam-service/internal/models"
	"github.com/eduspark/exam-service/internal/repositories"
)

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		logger: logger,
	}
}

// ExportExamResults renders every stored result of an exam into an xlsx
// workbook: a summary sheet with one row per attempt and a breakdown sheet
// with one row per graded question.
func (s *exportService) ExportExamResults(ctx context.Context, examID uint, teacherID string) ([]byte, string, error) {
	s.logger.Info("Exporting exam results", "exam_id", examID, "teacher_id", teacherID)

	exam, err := s.repo.Exam().GetByID(ctx, nil, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, "", ErrExamNotFound
		}
		return nil, "", fmt.Errorf("failed to get exam: %w", err)
	}
	if exam.CreatedBy != teacherID {
		return nil, "", NewPermissionError(teacherID, examID, "exam", "export_results", "not the exam owner")
	}

	results, err := s.repo.Result().GetByExam(ctx, nil, examID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get results: %w", err)
	}

	attempts, _, err := s.repo.Attempt().GetByExam(ctx, nil, examID, repositories.AttemptFilters{})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get attempts: %w", err)
	}
	attemptByID := make(map[uint]*models.ExamAttempt, len(attempts))
	for _, a := range attempts {
		attemptByID[a.ID] = a
	}

	f := excelize.NewFile()
	defer f.Close()

	const summarySheet = "Results"
	const breakdownSheet = "Breakdown"

	f.SetSheetName(f.GetSheetName(0), summarySheet)
	if _, err := f.NewSheet(breakdownSheet); err != nil {
		return nil, "", fmt.Errorf("failed to create breakdown sheet: %w", err)
	}

	summaryHeaders := []string{"Attempt ID", "Student ID", "Score (%)", "Passed", "Earned Points", "Auto-Gradable Points", "Pending Manual Grading", "Late", "Submitted At"}
	for i, h := range summaryHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(summarySheet, cell, h); err != nil {
			return nil, "", fmt.Errorf("failed to write header: %w", err)
		}
	}

	for row, result := range results {
		late := false
		submittedAt := ""
		if attempt, ok := attemptByID[result.AttemptID]; ok {
			late = attempt.Late
			if attempt.SubmittedAt != nil {
				submittedAt = attempt.SubmittedAt.Format(time.RFC3339)
			}
		}

		values := []interface{}{
			result.AttemptID,
			result.StudentID,
			result.Score,
			result.Passed,
			result.EarnedPoints,
			result.AutoGradablePoints,
			result.PendingManualGrading,
			late,
			submittedAt,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(summarySheet, cell, v); err != nil {
				return nil, "", fmt.Errorf("failed to write result row: %w", err)
			}
		}
	}

	breakdownHeaders := []string{"Attempt ID", "Student ID", "Question ID", "Type", "Student Answer", "Correct Answer", "Is Correct", "Points", "Earned Points"}
	for i, h := range breakdownHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(breakdownSheet, cell, h); err != nil {
			return nil, "", fmt.Errorf("failed to write breakdown header: %w", err)
		}
	}

	breakdownRow := 2
	for _, result := range results {
		rows, err := result.Breakdown()
		if err != nil {
			return nil, "", err
		}
		for _, qr := range rows {
			correctAnswer := ""
			if qr.CorrectAnswer != nil {
				correctAnswer = *qr.CorrectAnswer
			}
			isCorrect := ""
			if qr.IsCorrect != nil {
				isCorrect = fmt.Sprintf("%t", *qr.IsCorrect)
			}

			values := []interface{}{
				result.AttemptID,
				result.StudentID,
				qr.QuestionID,
				string(qr.Type),
				qr.StudentAnswer,
				correctAnswer,
				isCorrect,
				qr.Points,
				qr.EarnedPoints,
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, breakdownRow)
				if err := f.SetCellValue(breakdownSheet, cell, v); err != nil {
					return nil, "", fmt.Errorf("failed to write breakdown row: %w", err)
				}
			}
			breakdownRow++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to render workbook: %w", err)
	}

	filename := fmt.Sprintf("exam-%d-results-%s.xlsx", examID, time.Now().Format("2006-01-02"))

	s.logger.Info("Exam results exported",
		"exam_id", examID,
		"result_count", len(results),
		"filename", filename)

	return buf.Bytes(), filename, nil
}
