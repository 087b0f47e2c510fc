package models

import (
	"time"

	"gorm.io/gorm"
)

// ===== ASSIGNMENT =====

type AssignmentState string

const (
	AssignmentPending    AssignmentState = "pending"
	AssignmentInProgress AssignmentState = "in_progress"
	AssignmentCompleted  AssignmentState = "completed"
)

// Assignment binds one evaluation to one student and tracks progress across
// attempts. The (evaluation, student) pair is unique for all time; the
// distribution service creates rows, the attempt service owns every state
// change after that.
type Assignment struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	EvaluationID uint            `json:"evaluation_id" gorm:"not null;uniqueIndex:idx_assignments_evaluation_student;index"`
	StudentID    string          `json:"student_id" gorm:"size:255;not null;uniqueIndex:idx_assignments_evaluation_student;index"`
	State        AssignmentState `json:"state" gorm:"size:20;not null;default:'pending';index"`
	AttemptsUsed int             `json:"attempts_used" gorm:"not null;default:0"`

	// Single pointer to the open attempt; nil except in IN_PROGRESS.
	CurrentAttemptID *uint `json:"current_attempt_id,omitempty"`

	Evaluation *Evaluation `json:"evaluation,omitempty" gorm:"foreignKey:EvaluationID"`
	Attempts   []Attempt   `json:"attempts,omitempty" gorm:"foreignKey:AssignmentID"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// LastScore returns the most recent completed attempt's score, or nil when no
// attempt has been graded yet. Attempts must be preloaded.
func (a *Assignment) LastScore() *float64 {
	var latest *Attempt
	for i := range a.Attempts {
		att := &a.Attempts[i]
		if att.SubmittedAt == nil {
			continue
		}
		if latest == nil || att.AttemptNumber > latest.AttemptNumber {
			latest = att
		}
	}
	if latest == nil {
		return nil
	}
	score := latest.Score
	return &score
}
