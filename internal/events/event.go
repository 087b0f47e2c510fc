package events

import (
	"time"
)

// Event types published by the evaluation service.
const (
	EventAssignmentCreated = "assignment.created"
	EventAttemptCompleted  = "attempt.completed"
)

const (
	eventSource  = "evaluation-service"
	eventVersion = "1.0"
)

// Event is the envelope every published message uses.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// AssignmentCreatedEvent is emitted once per assignment actually created
// during distribution. Skipped (already existing) assignments do not emit.
type AssignmentCreatedEvent struct {
	AssignmentID uint   `json:"assignment_id"`
	EvaluationID uint   `json:"evaluation_id"`
	StudentID    string `json:"student_id"`
}

// AttemptCompletedEvent is emitted after the transaction closing an attempt
// commits, regardless of close reason.
type AttemptCompletedEvent struct {
	AssignmentID      uint    `json:"assignment_id"`
	AttemptID         uint    `json:"attempt_id"`
	AttemptNumber     int     `json:"attempt_number"`
	StudentID         string  `json:"student_id"`
	Score             float64 `json:"score"`
	MaxScore          float64 `json:"max_score"`
	Percentage        float64 `json:"percentage"`
	NeedsManualReview bool    `json:"needs_manual_review"`
	CloseReason       string  `json:"close_reason"`
}
