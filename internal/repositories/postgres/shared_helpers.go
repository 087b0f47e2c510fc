package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

// SharedHelpers contains common database operations
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// CountAssignments counts assignments for an evaluation
func (h *SharedHelpers) CountAssignments(ctx context.Context, evaluationID uint) (int64, error) {
	var count int64
	err := h.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("evaluation_id = ?", evaluationID).
		Count(&count).Error
	return count, err
}

// CountAssignmentsByState counts assignments in a given state
func (h *SharedHelpers) CountAssignmentsByState(ctx context.Context, evaluationID uint, state models.AssignmentState) (int64, error) {
	var count int64
	err := h.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("evaluation_id = ? AND state = ?", evaluationID, state).
		Count(&count).Error
	return count, err
}

// ApplyAssignmentFilters applies common filters to assignment queries
func (h *SharedHelpers) ApplyAssignmentFilters(query *gorm.DB, filters repositories.AssignmentFilters) *gorm.DB {
	if filters.State != nil {
		query = query.Where("state = ?", *filters.State)
	}
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	return query
}

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	// Whitelist allowed sort columns
	allowedSortColumns := map[string]bool{
		"created_at":     true,
		"updated_at":     true,
		"id":             true,
		"state":          true,
		"student_id":     true,
		"attempts_used":  true,
		"attempt_number": true,
		"score":          true,
	}

	if sortBy == "" || !allowedSortColumns[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "ASC" {
		sortOrder = "DESC"
	} else {
		sortOrder = "ASC"
	}

	query = query.Order(sortBy + " " + sortOrder)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}
