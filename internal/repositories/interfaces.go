package repositories

import (
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type AssignmentFilters struct {
	State     *models.AssignmentState `json:"state"`
	StudentID *string                 `json:"student_id"`
	DateFrom  *time.Time              `json:"date_from"`
	DateTo    *time.Time              `json:"date_to"`
	Limit     int                     `json:"limit"`
	Offset    int                     `json:"offset"`
	SortBy    string                  `json:"sort_by"`    // "created_at", "state", "attempts_used"
	SortOrder string                  `json:"sort_order"` // "asc", "desc"
}

type AttemptFilters struct {
	SubmittedOnly bool       `json:"submitted_only"`
	DateFrom      *time.Time `json:"date_from"`
	DateTo        *time.Time `json:"date_to"`
	Limit         int        `json:"limit"`
	Offset        int        `json:"offset"`
	SortBy        string     `json:"sort_by"`
	SortOrder     string     `json:"sort_order"`
}

// ===== DIRECTORY STRUCTS =====

type DirectoryFilters struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}
