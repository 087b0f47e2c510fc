package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// ===== ATTEMPT =====

type AttemptCloseReason string

const (
	CloseReasonSubmitted AttemptCloseReason = "submitted"
	CloseReasonExpired   AttemptCloseReason = "expired"
	CloseReasonDiscarded AttemptCloseReason = "discarded"
)

// Attempt is one try at an assignment. The question/option snapshot is frozen
// into the row at open time; answers and score are write-once, set by the
// grading transaction that also marks the attempt submitted.
type Attempt struct {
	ID            uint `json:"id" gorm:"primaryKey"`
	AssignmentID  uint `json:"assignment_id" gorm:"not null;uniqueIndex:idx_attempts_assignment_number"`
	AttemptNumber int  `json:"attempt_number" gorm:"not null;uniqueIndex:idx_attempts_assignment_number"`

	StartedAt   time.Time  `json:"started_at" gorm:"not null"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`

	Score             float64             `json:"score" gorm:"not null;default:0"`
	MaxScore          float64             `json:"max_score" gorm:"not null;default:0"`
	Percentage        float64             `json:"percentage" gorm:"not null;default:0"`
	NeedsManualReview bool                `json:"needs_manual_review" gorm:"default:false"`
	CloseReason       *AttemptCloseReason `json:"close_reason,omitempty" gorm:"size:20"`

	Snapshot datatypes.JSON `json:"-" gorm:"type:jsonb;not null"`

	Assignment *Assignment     `json:"assignment,omitempty" gorm:"foreignKey:AssignmentID"`
	Answers    []AttemptAnswer `json:"answers,omitempty" gorm:"foreignKey:AttemptID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// IsOpen reports whether the attempt still accepts a submission at now.
func (a *Attempt) IsOpen(now time.Time) bool {
	if a.SubmittedAt != nil {
		return false
	}
	return !a.IsExpired(now)
}

// IsExpired reports whether the time limit elapsed. Attempts without a limit
// never expire.
func (a *Attempt) IsExpired(now time.Time) bool {
	return a.ExpiresAt != nil && now.After(*a.ExpiresAt)
}

// DecodeSnapshot unmarshals the frozen evaluation snapshot.
func (a *Attempt) DecodeSnapshot() (*EvaluationSnapshot, error) {
	var snapshot EvaluationSnapshot
	if err := json.Unmarshal(a.Snapshot, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode attempt snapshot: %w", err)
	}
	return &snapshot, nil
}

// ===== ANSWERS =====

// AttemptAnswer holds one answer inside an attempt. Exactly one of
// SelectedOptionID / FreeText is populated, matching the question's type;
// the validator enforces this at the boundary.
type AttemptAnswer struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	AttemptID  uint `json:"attempt_id" gorm:"not null;uniqueIndex:idx_answers_attempt_question"`
	QuestionID uint `json:"question_id" gorm:"not null;uniqueIndex:idx_answers_attempt_question"`

	SelectedOptionID *uint   `json:"selected_option_id,omitempty"`
	FreeText         *string `json:"free_text,omitempty" gorm:"type:text"`

	IsCorrect     *bool   `json:"is_correct,omitempty"`
	PointsAwarded float64 `json:"points_awarded" gorm:"not null;default:0"`
	NeedsReview   bool    `json:"needs_review" gorm:"default:false;index"`

	CreatedAt time.Time `json:"created_at"`
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}

// IsEmpty reports whether the answer carries no content.
func (a *AttemptAnswer) IsEmpty() bool {
	return a.SelectedOptionID == nil && (a.FreeText == nil || *a.FreeText == "")
}
