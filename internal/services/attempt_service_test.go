package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/eduspark/exam-service/internal/events"
	"github.com/eduspark/exam-service/internal/models"
	"github.com/eduspark/exam-service/internal/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newAttemptFixture seeds a published two-question exam and returns the
// wired services plus ids.
func newAttemptFixture(t *testing.T) (*fakeRepository, AttemptService, *events.MockEventPublisher, uint) {
	t.Helper()

	repo := newFakeRepository()
	logger := testLogger()
	v := validator.New()
	publisher := events.NewMockEventPublisher(logger)

	exam := &models.Exam{
		CourseID:     1,
		Title:        "Geography basics",
		PassingScore: 50,
		Status:       models.ExamPublished,
		CreatedBy:    "teacher-1",
	}
	if err := repo.Exam().Create(context.Background(), nil, exam); err != nil {
		t.Fatalf("seed exam: %v", err)
	}

	q1 := mcQuestion(0, 1, 10, "A", "A", "Paris", "B", "London")
	q1.ExamID = exam.ID
	q2 := mcQuestion(0, 2, 10, "B", "A", "Red", "B", "Blue")
	q2.ExamID = exam.ID
	for _, q := range []*models.Question{q1, q2} {
		if err := repo.Question().Create(context.Background(), nil, q); err != nil {
			t.Fatalf("seed question: %v", err)
		}
	}

	svc := NewAttemptService(repo, nil, logger, v, publisher)
	return repo, svc, publisher, exam.ID
}

func TestStartAttemptIsIdempotent(t *testing.T) {
	_, svc, _, examID := newAttemptFixture(t)
	ctx := context.Background()

	first, err := svc.Start(ctx, examID, "student-1")
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	second, err := svc.Start(ctx, examID, "student-1")
	if err != nil {
		t.Fatalf("second start: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("two starts produced different attempts: %d vs %d", first.ID, second.ID)
	}
	if first.Status != models.AttemptInProgress {
		t.Errorf("status = %s, want in_progress", first.Status)
	}

	// A different student gets their own attempt.
	other, err := svc.Start(ctx, examID, "student-2")
	if err != nil {
		t.Fatalf("other student start: %v", err)
	}
	if other.ID == first.ID {
		t.Error("different students must not share an attempt")
	}
}

func TestStartAttemptUnknownOrDraftExam(t *testing.T) {
	repo, svc, _, _ := newAttemptFixture(t)
	ctx := context.Background()

	if _, err := svc.Start(ctx, 9999, "student-1"); !errors.Is(err, ErrExamNotFound) {
		t.Errorf("unknown exam: got %v, want ErrExamNotFound", err)
	}

	draft := &models.Exam{CourseID: 1, Title: "Draft", PassingScore: 50, Status: models.ExamDraft, CreatedBy: "teacher-1"}
	if err := repo.Exam().Create(ctx, nil, draft); err != nil {
		t.Fatalf("seed draft: %v", err)
	}

	// A draft exam reads exactly like a missing one to learners.
	if _, err := svc.Start(ctx, draft.ID, "student-1"); !errors.Is(err, ErrExamNotFound) {
		t.Errorf("draft exam: got %v, want ErrExamNotFound", err)
	}
}

func TestRecordAnswerLifecycle(t *testing.T) {
	_, svc, _, examID := newAttemptFixture(t)
	ctx := context.Background()

	attempt, err := svc.Start(ctx, examID, "student-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := svc.RecordAnswer(ctx, attempt.ID, &RecordAnswerRequest{QuestionID: 1, Value: "A"}, "student-1"); err != nil {
		t.Fatalf("record answer: %v", err)
	}

	// Re-recording overwrites (upsert semantics).
	if err := svc.RecordAnswer(ctx, attempt.ID, &RecordAnswerRequest{QuestionID: 1, Value: "B"}, "student-1"); err != nil {
		t.Fatalf("re-record answer: %v", err)
	}

	// Wrong owner is rejected.
	err = svc.RecordAnswer(ctx, attempt.ID, &RecordAnswerRequest{QuestionID: 1, Value: "A"}, "student-2")
	var permErr *PermissionError
	if !errors.As(err, &permErr) {
		t.Errorf("foreign student: got %v, want PermissionError", err)
	}

	// Unknown question is rejected.
	if err := svc.RecordAnswer(ctx, attempt.ID, &RecordAnswerRequest{QuestionID: 999, Value: "A"}, "student-1"); !errors.Is(err, ErrQuestionNotFound) {
		t.Errorf("unknown question: got %v, want ErrQuestionNotFound", err)
	}

	// After submit, recording fails with an invalid-state error.
	if _, err := svc.Submit(ctx, attempt.ID, &SubmitAttemptRequest{}, "student-1"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := svc.RecordAnswer(ctx, attempt.ID, &RecordAnswerRequest{QuestionID: 1, Value: "A"}, "student-1"); !errors.Is(err, ErrAttemptNotActive) {
		t.Errorf("record after submit: got %v, want ErrAttemptNotActive", err)
	}
}

func TestSubmitGradesAndStoresResult(t *testing.T) {
	repo, svc, publisher, examID := newAttemptFixture(t)
	ctx := context.Background()

	attempt, err := svc.Start(ctx, examID, "student-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	result, err := svc.Submit(ctx, attempt.ID, &SubmitAttemptRequest{
		Answers: map[string]string{"1": "A", "2": "A"},
	}, "student-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if result.Score != 50 {
		t.Errorf("score = %d, want 50", result.Score)
	}
	if !result.Passed {
		t.Error("50 must pass a threshold of 50")
	}
	if len(result.PerQuestion) != 2 {
		t.Fatalf("breakdown rows = %d, want 2", len(result.PerQuestion))
	}
	if !*result.PerQuestion[0].IsCorrect || *result.PerQuestion[1].IsCorrect {
		t.Error("expected Q1 correct, Q2 incorrect")
	}

	stored, err := repo.Result().GetByAttempt(ctx, nil, attempt.ID)
	if err != nil {
		t.Fatalf("stored result: %v", err)
	}
	if stored.Score != result.Score {
		t.Errorf("stored score %d differs from returned %d", stored.Score, result.Score)
	}

	published := publisher.GetPublishedEvents()
	var types []string
	for _, e := range published {
		types = append(types, e.Type)
		if e.Source != "exam-service" {
			t.Errorf("event source = %q, want exam-service", e.Source)
		}
	}
	want := []string{events.EventAttemptSubmitted, events.EventResultCreated}
	if !reflect.DeepEqual(types, want) {
		t.Errorf("published events %v, want %v", types, want)
	}
}

func TestSubmitIsIdempotent(t *testing.T) {
	repo, svc, _, examID := newAttemptFixture(t)
	ctx := context.Background()

	attempt, err := svc.Start(ctx, examID, "student-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	first, err := svc.Submit(ctx, attempt.ID, &SubmitAttemptRequest{
		Answers: map[string]string{"1": "A", "2": "B"},
	}, "student-1")
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}

	// Editing the bank after the first grading must not change the stored
	// outcome: the first grading is authoritative.
	q, err := repo.Question().GetByID(ctx, nil, 1)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	q.CorrectAnswer = "B"
	if err := repo.Question().Update(ctx, nil, q); err != nil {
		t.Fatalf("update question: %v", err)
	}

	second, err := svc.Submit(ctx, attempt.ID, &SubmitAttemptRequest{
		Answers: map[string]string{"1": "B", "2": "A"},
	}, "student-1")
	if err != nil {
		t.Fatalf("retried submit: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("retried submit returned a different result:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if second.Score != 100 {
		t.Errorf("stored score = %d, want the originally graded 100", second.Score)
	}
}

func TestSubmitByExamRetryAfterCompletion(t *testing.T) {
	_, svc, _, examID := newAttemptFixture(t)
	ctx := context.Background()

	if _, err := svc.Start(ctx, examID, "student-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	first, err := svc.SubmitByExam(ctx, examID, &SubmitAttemptRequest{
		Answers: map[string]string{"1": "A", "2": "B"},
	}, "student-1")
	if err != nil {
		t.Fatalf("submit by exam: %v", err)
	}

	// No attempt is in progress any more; the retried call must return the
	// stored result rather than failing.
	second, err := svc.SubmitByExam(ctx, examID, &SubmitAttemptRequest{
		Answers: map[string]string{"1": "B"},
	}, "student-1")
	if err != nil {
		t.Fatalf("retried submit by exam: %v", err)
	}

	if first.AttemptID != second.AttemptID || first.Score != second.Score {
		t.Errorf("retry returned different result: %+v vs %+v", first, second)
	}
}

func TestSubmitAfterDeadlineIsAcceptedAndFlagged(t *testing.T) {
	repo, svc, _, examID := newAttemptFixture(t)
	ctx := context.Background()

	attempt, err := svc.Start(ctx, examID, "student-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// Force the deadline into the past.
	stored, err := repo.Attempt().GetByID(ctx, nil, attempt.ID)
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	past := time.Now().Add(-time.Minute)
	stored.ExpiresAt = &past
	if err := repo.Attempt().Update(ctx, nil, stored); err != nil {
		t.Fatalf("update attempt: %v", err)
	}

	result, err := svc.Submit(ctx, attempt.ID, &SubmitAttemptRequest{
		Answers: map[string]string{"1": "A", "2": "B"},
	}, "student-1")
	if err != nil {
		t.Fatalf("late submit must be accepted: %v", err)
	}
	if result.Score != 100 {
		t.Errorf("late answers graded verbatim: score = %d, want 100", result.Score)
	}

	after, err := repo.Attempt().GetByID(ctx, nil, attempt.ID)
	if err != nil {
		t.Fatalf("reload attempt: %v", err)
	}
	if !after.Late {
		t.Error("late submit must be flagged")
	}
	if after.EndReason == nil || *after.EndReason != models.AttemptEndReasonTimeExpired {
		t.Errorf("end reason = %v, want %s", after.EndReason, models.AttemptEndReasonTimeExpired)
	}
}

func TestGetExamForStudentStripsAnswerKeys(t *testing.T) {
	_, svc, _, examID := newAttemptFixture(t)
	ctx := context.Background()

	view, err := svc.GetExamForStudent(ctx, examID, "student-1")
	if err != nil {
		t.Fatalf("get exam for student: %v", err)
	}

	if view.Attempt == nil || view.Attempt.Status != models.AttemptInProgress {
		t.Fatal("expected an in-progress attempt in the view")
	}
	if len(view.Questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(view.Questions))
	}
	for _, q := range view.Questions {
		if q.CorrectAnswer != "" {
			t.Errorf("question %d leaked its answer key", q.ID)
		}
		if q.Type == models.MultipleChoice && q.Options.Len() == 0 {
			t.Errorf("question %d lost its options", q.ID)
		}
	}

	// Opening the exam twice keeps the same attempt.
	again, err := svc.GetExamForStudent(ctx, examID, "student-1")
	if err != nil {
		t.Fatalf("second view: %v", err)
	}
	if again.Attempt.ID != view.Attempt.ID {
		t.Error("re-opening the exam must resume the same attempt")
	}
}
