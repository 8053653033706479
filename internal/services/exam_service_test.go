package services

import (
	"context"
	"errors"
	"testing"

	"github.com/eduspark/exam-service/internal/events"
	"github.com/eduspark/exam-service/internal/models"
	"github.com/eduspark/exam-service/internal/validator"
)

func newExamFixture(t *testing.T) (*fakeRepository, ExamService, QuestionService, *events.MockEventPublisher) {
	t.Helper()

	repo := newFakeRepository()
	logger := testLogger()
	v := validator.New()
	publisher := events.NewMockEventPublisher(logger)

	examSvc := NewExamService(repo, nil, logger, v, publisher)
	questionSvc := NewQuestionService(repo, nil, logger, v)
	return repo, examSvc, questionSvc, publisher
}

func TestCreateExamStartsInDraft(t *testing.T) {
	_, examSvc, _, _ := newExamFixture(t)
	ctx := context.Background()

	exam, err := examSvc.Create(ctx, 1, &CreateExamRequest{
		Title:            "Midterm",
		TimeLimitMinutes: 60,
		PassingScore:     60,
	}, "teacher-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if exam.Status != models.ExamDraft {
		t.Errorf("status = %s, want draft", exam.Status)
	}
	if !exam.CanEdit {
		t.Error("creator must be able to edit a draft")
	}
	if exam.CanTake {
		t.Error("a draft is not takeable")
	}
}

func TestCreateExamValidation(t *testing.T) {
	_, examSvc, _, _ := newExamFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateExamRequest
	}{
		{"empty title", CreateExamRequest{Title: "   ", PassingScore: 60}},
		{"passing score above 100", CreateExamRequest{Title: "t", PassingScore: 150}},
		{"negative time limit", CreateExamRequest{Title: "t", PassingScore: 60, TimeLimitMinutes: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := examSvc.Create(ctx, 1, &tt.req, "teacher-1")
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Errorf("got %v, want ValidationErrors", err)
			}
		})
	}
}

func TestPublishRequiresQuestions(t *testing.T) {
	_, examSvc, questionSvc, publisher := newExamFixture(t)
	ctx := context.Background()

	exam, err := examSvc.Create(ctx, 1, &CreateExamRequest{Title: "Empty", PassingScore: 60}, "teacher-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = examSvc.Publish(ctx, exam.ID, "teacher-1")
	var ruleErr *BusinessRuleError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("publishing an empty exam: got %v, want BusinessRuleError", err)
	}

	if _, err := questionSvc.Add(ctx, exam.ID, &CreateQuestionRequest{
		Text:          "Capital of France?",
		Type:          models.MultipleChoice,
		Points:        10,
		Options:       models.NewOptionMap("A", "Paris", "B", "London"),
		CorrectAnswer: "A",
	}, "teacher-1"); err != nil {
		t.Fatalf("add question: %v", err)
	}

	if err := examSvc.Publish(ctx, exam.ID, "teacher-1"); err != nil {
		t.Fatalf("publish with a question: %v", err)
	}

	got, err := examSvc.GetByID(ctx, exam.ID, "teacher-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.ExamPublished {
		t.Errorf("status = %s, want published", got.Status)
	}

	found := false
	for _, e := range publisher.GetPublishedEvents() {
		if e.Type == events.EventExamPublished {
			found = true
		}
	}
	if !found {
		t.Error("publishing must emit exam.published")
	}
}

func TestPublishIsIdempotentAndOneWay(t *testing.T) {
	_, examSvc, questionSvc, _ := newExamFixture(t)
	ctx := context.Background()

	exam, err := examSvc.Create(ctx, 1, &CreateExamRequest{Title: "Quiz", PassingScore: 60}, "teacher-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := questionSvc.Add(ctx, exam.ID, &CreateQuestionRequest{
		Text:          "2+2?",
		Type:          models.ShortAnswer,
		Points:        5,
		CorrectAnswer: "4",
	}, "teacher-1"); err != nil {
		t.Fatalf("add question: %v", err)
	}

	if err := examSvc.Publish(ctx, exam.ID, "teacher-1"); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	// A repeated publish is a no-op, not an error.
	if err := examSvc.Publish(ctx, exam.ID, "teacher-1"); err != nil {
		t.Fatalf("second publish must be idempotent: %v", err)
	}

	// There is no way back to draft: edits are now rejected.
	title := "Renamed"
	if _, err := examSvc.Update(ctx, exam.ID, &UpdateExamRequest{Title: &title}, "teacher-1"); !errors.Is(err, ErrExamNotEditable) {
		t.Errorf("update after publish: got %v, want ErrExamNotEditable", err)
	}
	if err := examSvc.Delete(ctx, exam.ID, "teacher-1"); !errors.Is(err, ErrExamNotEditable) {
		t.Errorf("delete after publish: got %v, want ErrExamNotEditable", err)
	}
}

func TestPublishPermission(t *testing.T) {
	_, examSvc, questionSvc, _ := newExamFixture(t)
	ctx := context.Background()

	exam, err := examSvc.Create(ctx, 1, &CreateExamRequest{Title: "Quiz", PassingScore: 60}, "teacher-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := questionSvc.Add(ctx, exam.ID, &CreateQuestionRequest{
		Text:          "2+2?",
		Type:          models.ShortAnswer,
		Points:        5,
		CorrectAnswer: "4",
	}, "teacher-1"); err != nil {
		t.Fatalf("add question: %v", err)
	}

	err = examSvc.Publish(ctx, exam.ID, "teacher-2")
	var permErr *PermissionError
	if !errors.As(err, &permErr) {
		t.Errorf("foreign teacher publish: got %v, want PermissionError", err)
	}
}

func TestExamStatusTransitionTable(t *testing.T) {
	if !models.ExamDraft.CanTransition(models.ExamPublished) {
		t.Error("draft -> published must be allowed")
	}
	if models.ExamPublished.CanTransition(models.ExamDraft) {
		t.Error("published -> draft must not be allowed")
	}
	if models.ExamPublished.CanTransition(models.ExamPublished) {
		t.Error("published -> published is not a transition")
	}
}
