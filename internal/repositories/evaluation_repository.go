package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

// EvaluationRepository is the engine's read-only view of the catalog.
// Authoring lives in the catalog service; nothing here mutates.
type EvaluationRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Evaluation, error)
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Evaluation, error)
	ExistsByID(ctx context.Context, tx *gorm.DB, id uint) (bool, error)

	// GetSnapshot builds the frozen question/option set plus limits for an
	// evaluation. Callers persist the result onto the attempt; the engine
	// never re-reads the catalog for an open attempt.
	GetSnapshot(ctx context.Context, tx *gorm.DB, id uint) (*models.EvaluationSnapshot, error)
}
