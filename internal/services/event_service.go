package services

import (
	"context"
	"log/slog"

	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

// domainEventService maps domain objects onto the event envelope and hands
// them to the configured publisher. Publish failures are the caller's to
// log; callers must never fail the originating operation over them.
type domainEventService struct {
	publisher events.Publisher
	logger    *slog.Logger
}

func NewEventService(publisher events.Publisher, logger *slog.Logger) EventPublisher {
	return &domainEventService{
		publisher: publisher,
		logger:    logger,
	}
}

func (s *domainEventService) PublishAssignmentCreated(ctx context.Context, assignment *models.Assignment) error {
	return s.publisher.Publish(ctx, events.EventAssignmentCreated, events.AssignmentCreatedEvent{
		AssignmentID: assignment.ID,
		EvaluationID: assignment.EvaluationID,
		StudentID:    assignment.StudentID,
	})
}

func (s *domainEventService) PublishAttemptCompleted(ctx context.Context, assignment *models.Assignment, attempt *models.Attempt) error {
	closeReason := ""
	if attempt.CloseReason != nil {
		closeReason = string(*attempt.CloseReason)
	}
	return s.publisher.Publish(ctx, events.EventAttemptCompleted, events.AttemptCompletedEvent{
		AssignmentID:      assignment.ID,
		AttemptID:         attempt.ID,
		AttemptNumber:     attempt.AttemptNumber,
		StudentID:         assignment.StudentID,
		Score:             attempt.Score,
		MaxScore:          attempt.MaxScore,
		Percentage:        attempt.Percentage,
		NeedsManualReview: attempt.NeedsManualReview,
		CloseReason:       closeReason,
	})
}

func (s *domainEventService) Close() error {
	return s.publisher.Close()
}
