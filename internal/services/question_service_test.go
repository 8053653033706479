package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/eduspark/exam-service/internal/models"
)

func TestAddQuestionValidatesPayloadByType(t *testing.T) {
	_, examSvc, questionSvc, _ := newExamFixture(t)
	ctx := context.Background()

	exam, err := examSvc.Create(ctx, 1, &CreateExamRequest{Title: "Quiz", PassingScore: 60}, "teacher-1")
	if err != nil {
		t.Fatalf("create exam: %v", err)
	}

	tests := []struct {
		name string
		req  CreateQuestionRequest
	}{
		{
			name: "multiple choice with answer outside options",
			req: CreateQuestionRequest{
				Text:          "Capital of France?",
				Type:          models.MultipleChoice,
				Points:        10,
				Options:       models.NewOptionMap("A", "Paris", "B", "London"),
				CorrectAnswer: "C",
			},
		},
		{
			name: "multiple choice with a single option",
			req: CreateQuestionRequest{
				Text:          "Pick one",
				Type:          models.MultipleChoice,
				Points:        10,
				Options:       models.NewOptionMap("A", "Only"),
				CorrectAnswer: "A",
			},
		},
		{
			name: "short answer without expected string",
			req: CreateQuestionRequest{
				Text:   "Name it",
				Type:   models.ShortAnswer,
				Points: 10,
			},
		},
		{
			name: "essay with an answer key",
			req: CreateQuestionRequest{
				Text:          "Discuss",
				Type:          models.Essay,
				Points:        10,
				CorrectAnswer: "anything",
			},
		},
		{
			name: "zero points",
			req: CreateQuestionRequest{
				Text:          "Capital of France?",
				Type:          models.ShortAnswer,
				Points:        0,
				CorrectAnswer: "Paris",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := questionSvc.Add(ctx, exam.ID, &tt.req, "teacher-1")
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Errorf("got %v, want ValidationErrors", err)
			}
		})
	}
}

func TestAddQuestionAssignsSequentialOrder(t *testing.T) {
	_, examSvc, questionSvc, _ := newExamFixture(t)
	ctx := context.Background()

	exam, err := examSvc.Create(ctx, 1, &CreateExamRequest{Title: "Quiz", PassingScore: 60}, "teacher-1")
	if err != nil {
		t.Fatalf("create exam: %v", err)
	}

	for i, text := range []string{"first", "second", "third"} {
		q, err := questionSvc.Add(ctx, exam.ID, &CreateQuestionRequest{
			Text:          text,
			Type:          models.ShortAnswer,
			Points:        5,
			CorrectAnswer: "x",
		}, "teacher-1")
		if err != nil {
			t.Fatalf("add %q: %v", text, err)
		}
		if q.OrderIndex != i+1 {
			t.Errorf("%q order index = %d, want %d", text, q.OrderIndex, i+1)
		}
	}
}

func TestQuestionOptionsRoundTripPreservesOrder(t *testing.T) {
	_, examSvc, questionSvc, _ := newExamFixture(t)
	ctx := context.Background()

	exam, err := examSvc.Create(ctx, 1, &CreateExamRequest{Title: "Quiz", PassingScore: 60}, "teacher-1")
	if err != nil {
		t.Fatalf("create exam: %v", err)
	}

	options := models.NewOptionMap("D", "Delta", "A", "Alpha", "C", "Charlie", "B", "Bravo")
	added, err := questionSvc.Add(ctx, exam.ID, &CreateQuestionRequest{
		Text:          "Pick",
		Type:          models.MultipleChoice,
		Points:        10,
		Options:       options,
		CorrectAnswer: "C",
	}, "teacher-1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	fetched, err := questionSvc.GetByExam(ctx, exam.ID, "teacher-1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(fetched) != 1 {
		t.Fatalf("fetched %d questions, want 1", len(fetched))
	}

	wantKeys := []string{"D", "A", "C", "B"}
	if !reflect.DeepEqual(fetched[0].Options.Keys(), wantKeys) {
		t.Errorf("option keys after round trip = %v, want %v", fetched[0].Options.Keys(), wantKeys)
	}
	if fetched[0].ID != added.ID {
		t.Errorf("fetched id %d, want %d", fetched[0].ID, added.ID)
	}
}

func TestQuestionEditsForbiddenAfterPublish(t *testing.T) {
	_, examSvc, questionSvc, _ := newExamFixture(t)
	ctx := context.Background()

	exam, err := examSvc.Create(ctx, 1, &CreateExamRequest{Title: "Quiz", PassingScore: 60}, "teacher-1")
	if err != nil {
		t.Fatalf("create exam: %v", err)
	}
	q, err := questionSvc.Add(ctx, exam.ID, &CreateQuestionRequest{
		Text:          "2+2?",
		Type:          models.ShortAnswer,
		Points:        5,
		CorrectAnswer: "4",
	}, "teacher-1")
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	if err := examSvc.Publish(ctx, exam.ID, "teacher-1"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	text := "3+3?"
	if _, err := questionSvc.Update(ctx, exam.ID, q.ID, &UpdateQuestionRequest{Text: &text}, "teacher-1"); !errors.Is(err, ErrExamNotEditable) {
		t.Errorf("update after publish: got %v, want ErrExamNotEditable", err)
	}
	if err := questionSvc.Delete(ctx, exam.ID, q.ID, "teacher-1"); !errors.Is(err, ErrExamNotEditable) {
		t.Errorf("delete after publish: got %v, want ErrExamNotEditable", err)
	}
	if _, err := questionSvc.Add(ctx, exam.ID, &CreateQuestionRequest{
		Text:          "new",
		Type:          models.ShortAnswer,
		Points:        5,
		CorrectAnswer: "x",
	}, "teacher-1"); !errors.Is(err, ErrExamNotEditable) {
		t.Errorf("add after publish: got %v, want ErrExamNotEditable", err)
	}
}

func TestUpdateQuestionRevalidatesEffectivePayload(t *testing.T) {
	_, examSvc, questionSvc, _ := newExamFixture(t)
	ctx := context.Background()

	exam, err := examSvc.Create(ctx, 1, &CreateExamRequest{Title: "Quiz", PassingScore: 60}, "teacher-1")
	if err != nil {
		t.Fatalf("create exam: %v", err)
	}
	q, err := questionSvc.Add(ctx, exam.ID, &CreateQuestionRequest{
		Text:          "Pick",
		Type:          models.MultipleChoice,
		Points:        10,
		Options:       models.NewOptionMap("A", "Paris", "B", "London"),
		CorrectAnswer: "A",
	}, "teacher-1")
	if err != nil {
		t.Fatalf("add question: %v", err)
	}

	// Shrinking options so the existing correct answer dangles must fail.
	bad := models.NewOptionMap("X", "Only")
	_, err = questionSvc.Update(ctx, exam.ID, q.ID, &UpdateQuestionRequest{Options: &bad}, "teacher-1")
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Errorf("dangling correct answer: got %v, want ValidationErrors", err)
	}

	// A consistent update passes.
	newAnswer := "B"
	updated, err := questionSvc.Update(ctx, exam.ID, q.ID, &UpdateQuestionRequest{CorrectAnswer: &newAnswer}, "teacher-1")
	if err != nil {
		t.Fatalf("consistent update: %v", err)
	}
	if updated.CorrectAnswer != "B" {
		t.Errorf("correct answer = %q, want B", updated.CorrectAnswer)
	}
}
