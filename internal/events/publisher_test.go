package events

import (
	"context"
	"log/slog"
	"os"
	"testing"
)

func TestMockEventPublisher(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	publisher := NewMockEventPublisher(logger)
	ctx := context.Background()

	event := NewEvent(EventExamPublished, ExamPublishedEvent{
		ExamID:   1,
		CourseID: 2,
		Title:    "Midterm",
		Teacher:  "teacher-1",
	})

	if err := publisher.Publish(ctx, event); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	published := publisher.GetPublishedEvents()
	if len(published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(published))
	}

	got := published[0]
	if got.Type != EventExamPublished {
		t.Errorf("type = %s, want %s", got.Type, EventExamPublished)
	}
	if got.ID == "" {
		t.Error("event ID should not be empty")
	}
	if got.Source != "exam-service" {
		t.Errorf("source = %s, want exam-service", got.Source)
	}
	if got.Version != "1.0" {
		t.Errorf("version = %s, want 1.0", got.Version)
	}
	if got.Timestamp.IsZero() {
		t.Error("event timestamp should not be zero")
	}

	publisher.ClearEvents()
	if len(publisher.GetPublishedEvents()) != 0 {
		t.Error("ClearEvents left events behind")
	}
}

// Integration test example (would require a running Kafka broker).
func TestKafkaEventPublisherIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	t.Skip("requires a Kafka broker; covered by deployment smoke tests")
}
