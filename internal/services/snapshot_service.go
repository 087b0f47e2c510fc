package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

type snapshotReader struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewSnapshotReader(repo repositories.Repository, logger *slog.Logger) SnapshotReader {
	return &snapshotReader{
		repo:   repo,
		logger: logger,
	}
}

// GetSnapshot returns the frozen question/option set for an evaluation.
// Repository-level caching makes repeated reads cheap; callers that open an
// attempt persist the snapshot onto the attempt row and never call back here
// for that attempt.
func (s *snapshotReader) GetSnapshot(ctx context.Context, evaluationID uint) (*models.EvaluationSnapshot, error) {
	snapshot, err := s.repo.Evaluation().GetSnapshot(ctx, nil, evaluationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEvaluationNotFound
		}
		return nil, fmt.Errorf("failed to read evaluation snapshot: %w", err)
	}
	return snapshot, nil
}
