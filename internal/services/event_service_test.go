package services

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

func TestEventService_PublishEvents(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	mockPublisher := events.NewMockPublisher(logger)
	service := NewEventService(mockPublisher, logger)

	ctx := context.Background()

	t.Run("AssignmentCreated", func(t *testing.T) {
		mockPublisher.ClearEvents()

		assignment := &models.Assignment{ID: 11, EvaluationID: 3, StudentID: "student-1"}
		if err := service.PublishAssignmentCreated(ctx, assignment); err != nil {
			t.Fatalf("Failed to publish event: %v", err)
		}

		published := mockPublisher.PublishedEvents()
		if len(published) != 1 {
			t.Fatalf("Expected 1 event, got %d", len(published))
		}

		event := published[0]
		if event.Type != events.EventAssignmentCreated {
			t.Errorf("Expected event type %s, got %s", events.EventAssignmentCreated, event.Type)
		}
		data, ok := event.Data.(events.AssignmentCreatedEvent)
		if !ok {
			t.Fatalf("Unexpected event payload type %T", event.Data)
		}
		if data.AssignmentID != 11 || data.EvaluationID != 3 || data.StudentID != "student-1" {
			t.Errorf("Unexpected payload: %+v", data)
		}
	})

	t.Run("AttemptCompleted", func(t *testing.T) {
		mockPublisher.ClearEvents()

		submitted := time.Now().UTC()
		reason := models.CloseReasonSubmitted
		assignment := &models.Assignment{ID: 11, EvaluationID: 3, StudentID: "student-1"}
		attempt := &models.Attempt{
			ID:            4,
			AttemptNumber: 2,
			Score:         3,
			MaxScore:      5,
			Percentage:    60,
			SubmittedAt:   &submitted,
			CloseReason:   &reason,
		}

		if err := service.PublishAttemptCompleted(ctx, assignment, attempt); err != nil {
			t.Fatalf("Failed to publish event: %v", err)
		}

		published := mockPublisher.PublishedEvents()
		if len(published) != 1 {
			t.Fatalf("Expected 1 event, got %d", len(published))
		}

		data, ok := published[0].Data.(events.AttemptCompletedEvent)
		if !ok {
			t.Fatalf("Unexpected event payload type %T", published[0].Data)
		}
		if data.AttemptID != 4 || data.Score != 3 || data.CloseReason != "submitted" {
			t.Errorf("Unexpected payload: %+v", data)
		}
	})

	t.Run("EnvelopeStructure", func(t *testing.T) {
		mockPublisher.ClearEvents()

		assignment := &models.Assignment{ID: 1, EvaluationID: 1, StudentID: "s"}
		if err := service.PublishAssignmentCreated(ctx, assignment); err != nil {
			t.Fatalf("Failed to publish event: %v", err)
		}

		event := mockPublisher.PublishedEvents()[0]
		if event.ID == "" {
			t.Error("Event ID should not be empty")
		}
		if event.Source != "evaluation-service" {
			t.Errorf("Expected source 'evaluation-service', got '%s'", event.Source)
		}
		if event.Version != "1.0" {
			t.Errorf("Expected version '1.0', got '%s'", event.Version)
		}
		if event.Timestamp.IsZero() {
			t.Error("Event timestamp should not be zero")
		}
	})
}
