package repositories

import (
	"context"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

// StudentDirectory resolves students and program membership from the identity
// provider. Only the distribution service consumes it; the engine itself
// needs nothing beyond stable student ids.
type StudentDirectory interface {
	GetByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByID(ctx context.Context, id string) (bool, error)

	// ResolveProgramMembers returns the student ids targeted by a
	// program-scoped distribution. Mode MAIN_PROGRAM matches students whose
	// primary program equals programID; ANY_ASSOCIATED_PROGRAM matches any
	// association, secondary enrollments included.
	ResolveProgramMembers(ctx context.Context, programID uint, mode models.DistributionMode) ([]string, error)
}
