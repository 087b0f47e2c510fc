package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

// AssignmentRepository owns the assignment rows. State transitions run under
// GetByIDForUpdate inside a transaction so attempts-used increments are
// serialized per assignment.
type AssignmentRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assignment, error)
	GetByIDWithAttempts(ctx context.Context, tx *gorm.DB, id uint) (*models.Assignment, error)
	Update(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error

	// GetByIDForUpdate loads the row under an exclusive row lock. Must be
	// called inside a transaction.
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Assignment, error)

	// Idempotent distribution primitive: inserts the (evaluation, student)
	// pair unless it already exists, reporting whether a row was created.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) (created bool, err error)

	// Query operations
	GetByEvaluationAndStudent(ctx context.Context, tx *gorm.DB, evaluationID uint, studentID string) (*models.Assignment, error)
	ListByEvaluation(ctx context.Context, tx *gorm.DB, evaluationID uint, filters AssignmentFilters) ([]*models.Assignment, int64, error)
	GetAssignedStudentIDs(ctx context.Context, tx *gorm.DB, evaluationID uint) ([]string, error)

	// Statistics
	GetStats(ctx context.Context, tx *gorm.DB, evaluationID uint) (*models.EvaluationStats, error)
	GetResults(ctx context.Context, tx *gorm.DB, evaluationID uint) ([]*models.StudentResult, error)
}

// AttemptRepository owns attempt rows. Attempts are created only inside the
// assignment row-lock critical section.
type AttemptRepository interface {
	Create(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error)
	GetByIDWithAnswers(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error)
	Update(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error

	ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint, filters AttemptFilters) ([]*models.Attempt, int64, error)
}

// AnswerRepository owns per-attempt answer rows.
type AnswerRepository interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, answers []*models.AttemptAnswer) error
	GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.AttemptAnswer, error)
	UpsertBatch(ctx context.Context, tx *gorm.DB, answers []*models.AttemptAnswer) error
	DeleteByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) error
}
