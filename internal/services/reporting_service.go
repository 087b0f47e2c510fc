package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

type reportingService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewReportingService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) ReportingService {
	return &reportingService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

// ===== LISTING =====

func (s *reportingService) ListAssignments(ctx context.Context, evaluationID uint, filters repositories.AssignmentFilters) ([]*models.Assignment, int64, error) {
	if err := s.requireEvaluation(ctx, evaluationID); err != nil {
		return nil, 0, err
	}
	return s.repo.Assignment().ListByEvaluation(ctx, nil, evaluationID, filters)
}

func (s *reportingService) GetStats(ctx context.Context, evaluationID uint) (*models.EvaluationStats, error) {
	if err := s.requireEvaluation(ctx, evaluationID); err != nil {
		return nil, err
	}
	return s.repo.Assignment().GetStats(ctx, nil, evaluationID)
}

// ===== EXPORT =====

var exportHeaders = []string{
	"Student ID", "State", "Attempts Used",
	"Score", "Max Score", "Percentage",
	"Needs Manual Review", "Submitted At",
}

// ExportResults renders the latest submitted result per assignment into an
// XLSX workbook.
func (s *reportingService) ExportResults(ctx context.Context, evaluationID uint) ([]byte, error) {
	if err := s.requireEvaluation(ctx, evaluationID); err != nil {
		return nil, err
	}

	results, err := s.repo.Assignment().GetResults(ctx, nil, evaluationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation results: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Results"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create results sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	for col, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header row: %w", err)
		}
	}

	for i, result := range results {
		row := i + 2
		values := []any{
			result.StudentID,
			string(result.State),
			result.AttemptsUsed,
			floatCell(result.Score),
			floatCell(result.MaxScore),
			floatCell(result.Percentage),
			result.NeedsManualReview,
			timeCell(result.SubmittedAt),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write result row %d: %w", row, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	s.logger.Info("Results exported",
		"evaluation_id", evaluationID,
		"rows", len(results))
	return buf.Bytes(), nil
}

func (s *reportingService) requireEvaluation(ctx context.Context, evaluationID uint) error {
	exists, err := s.repo.Evaluation().ExistsByID(ctx, nil, evaluationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEvaluationNotFound
		}
		return fmt.Errorf("failed to check evaluation: %w", err)
	}
	if !exists {
		return ErrEvaluationNotFound
	}
	return nil
}

func floatCell(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func timeCell(v *time.Time) any {
	if v == nil {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}
