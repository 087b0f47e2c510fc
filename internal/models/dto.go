package models

import "time"

// ===== DISTRIBUTION =====

type DistributionMode string

const (
	ModeExplicitList         DistributionMode = "EXPLICIT_LIST"
	ModeMainProgram          DistributionMode = "MAIN_PROGRAM"
	ModeAnyAssociatedProgram DistributionMode = "ANY_ASSOCIATED_PROGRAM"
)

func (m DistributionMode) Valid() bool {
	switch m {
	case ModeExplicitList, ModeMainProgram, ModeAnyAssociatedProgram:
		return true
	}
	return false
}

// ===== ROLES =====

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// ===== DIRECTORY =====

// Student is the directory's view of a student, resolved from the identity
// provider. The engine only relies on the stable ID.
type Student struct {
	ID             string    `json:"id"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	MainProgramID  *uint     `json:"main_program_id,omitempty"`
	ProgramIDs     []uint    `json:"program_ids,omitempty"`
	EnrolledAt     time.Time `json:"enrolled_at"`
}

// ===== SHARED RESPONSES =====

type PaginatedResponse struct {
	Data       any   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// EvaluationStats aggregates assignment outcomes for one evaluation.
type EvaluationStats struct {
	EvaluationID    uint    `json:"evaluation_id"`
	AssignedCount   int64   `json:"assigned_count"`
	PendingCount    int64   `json:"pending_count"`
	InProgressCount int64   `json:"in_progress_count"`
	CompletedCount  int64   `json:"completed_count"`
	AverageScore    float64 `json:"average_score"`
	AveragePercent  float64 `json:"average_percent"`
	ManualReview    int64   `json:"manual_review_count"`
}

// StudentResult is one row of the per-evaluation results export.
type StudentResult struct {
	StudentID         string     `json:"student_id"`
	State             string     `json:"state"`
	AttemptsUsed      int        `json:"attempts_used"`
	Score             *float64   `json:"score,omitempty"`
	MaxScore          *float64   `json:"max_score,omitempty"`
	Percentage        *float64   `json:"percentage,omitempty"`
	NeedsManualReview bool       `json:"needs_manual_review"`
	SubmittedAt       *time.Time `json:"submitted_at,omitempty"`
}
