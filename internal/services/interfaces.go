package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

// ===== DISTRIBUTION DTOs =====

type DistributeRequest struct {
	EvaluationID uint                    `json:"evaluation_id" validate:"required"`
	Mode         models.DistributionMode `json:"mode" validate:"required,distribution_mode"`

	// Selector: student ids for EXPLICIT_LIST, program id otherwise.
	StudentIDs []string `json:"student_ids,omitempty" validate:"omitempty,dive,min=1"`
	ProgramID  *uint    `json:"program_id,omitempty"`
}

type DistributionResult struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
}

// ===== ATTEMPT DTOs =====

// AttemptView is what a student sees when opening an assignment. Questions
// are sanitized (no correctness flags) and omitted entirely once the
// assignment is terminal, where only the final score remains.
type AttemptView struct {
	AssignmentID  uint                   `json:"assignment_id"`
	State         models.AssignmentState `json:"state"`
	ReadOnly      bool                   `json:"read_only"`
	AttemptID     *uint                  `json:"attempt_id,omitempty"`
	AttemptNumber int                    `json:"attempt_number,omitempty"`
	AttemptsUsed  int                    `json:"attempts_used"`
	AttemptsMax   *int                   `json:"attempts_max,omitempty"`
	Deadline      *time.Time             `json:"deadline,omitempty"`
	Questions     []QuestionView         `json:"questions,omitempty"`
	PreviousScore *ScoreResult           `json:"previous_score,omitempty"`
}

// QuestionView is a snapshot question with correctness flags stripped.
type QuestionView struct {
	ID        uint                `json:"id"`
	Statement string              `json:"statement"`
	Type      models.QuestionType `json:"type"`
	Required  bool                `json:"required"`
	Points    float64             `json:"points"`
	Options   []OptionView        `json:"options,omitempty"`
}

type OptionView struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

type AnswerSubmission struct {
	QuestionID uint    `json:"question_id" validate:"required"`
	OptionID   *uint   `json:"option_id,omitempty"`
	Text       *string `json:"text,omitempty"`
}

type SubmitRequest struct {
	Answers []AnswerSubmission `json:"answers" validate:"required,dive"`
}

type ScoreResult struct {
	AttemptID         uint       `json:"attempt_id"`
	AttemptNumber     int        `json:"attempt_number"`
	Score             float64    `json:"score"`
	MaxScore          float64    `json:"max_score"`
	Percentage        float64    `json:"percentage"`
	NeedsManualReview bool       `json:"needs_manual_review"`
	SubmittedAt       *time.Time `json:"submitted_at,omitempty"`
}

// ===== GRADING DTOs =====

// NormalizedAnswer is the validator's output: exactly one entry per snapshot
// question, unanswered optional questions included as empty.
type NormalizedAnswer struct {
	QuestionID uint    `json:"question_id"`
	OptionID   *uint   `json:"option_id,omitempty"`
	Text       *string `json:"text,omitempty"`
	Answered   bool    `json:"answered"`
}

type QuestionGrade struct {
	QuestionID    uint    `json:"question_id"`
	IsCorrect     *bool   `json:"is_correct,omitempty"`
	PointsAwarded float64 `json:"points_awarded"`
	NeedsReview   bool    `json:"needs_review"`
}

// GradeOutcome is the grading engine's result: raw points plus the share of
// the auto-gradable maximum.
type GradeOutcome struct {
	Score             float64         `json:"score"`
	MaxScore          float64         `json:"max_score"`
	Percentage        float64         `json:"percentage"`
	NeedsManualReview bool            `json:"needs_manual_review"`
	Questions         []QuestionGrade `json:"questions"`
}

// ===== SERVICE INTERFACES =====

// DistributionService creates assignments for a target student set.
type DistributionService interface {
	Assign(ctx context.Context, req DistributeRequest) (*DistributionResult, error)
}

// AttemptService owns the assignment state machine. It is the only component
// allowed to mutate assignment state or create attempts.
type AttemptService interface {
	OpenAttempt(ctx context.Context, assignmentID uint, studentID string) (*AttemptView, error)
	SaveProgress(ctx context.Context, assignmentID uint, studentID string, req SubmitRequest) error
	Submit(ctx context.Context, assignmentID uint, studentID string, req SubmitRequest) (*ScoreResult, error)
	ListAttempts(ctx context.Context, assignmentID uint, studentID string, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error)
}

// SnapshotReader exposes the frozen evaluation view consumed at attempt start.
type SnapshotReader interface {
	GetSnapshot(ctx context.Context, evaluationID uint) (*models.EvaluationSnapshot, error)
}

// GradingService computes scores. Grade is pure: same snapshot and answers
// always produce the same outcome.
type GradingService interface {
	Grade(snapshot *models.EvaluationSnapshot, answers []NormalizedAnswer) GradeOutcome
}

// ReportingService serves the administrative read side.
type ReportingService interface {
	ListAssignments(ctx context.Context, evaluationID uint, filters repositories.AssignmentFilters) ([]*models.Assignment, int64, error)
	GetStats(ctx context.Context, evaluationID uint) (*models.EvaluationStats, error)
	ExportResults(ctx context.Context, evaluationID uint) ([]byte, error)
}

// EventPublisher emits domain events after commit. Implementations must
// tolerate a missing broker by degrading to logs.
type EventPublisher interface {
	PublishAssignmentCreated(ctx context.Context, assignment *models.Assignment) error
	PublishAttemptCompleted(ctx context.Context, assignment *models.Assignment, attempt *models.Attempt) error
	Close() error
}

// ServiceManager wires and owns all services.
type ServiceManager interface {
	Distribution() DistributionService
	Attempt() AttemptService
	Snapshot() SnapshotReader
	Grading() GradingService
	Reporting() ReportingService
	Events() EventPublisher

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
