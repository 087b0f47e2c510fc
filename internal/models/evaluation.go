package models

import (
	"time"

	"gorm.io/gorm"
)

// ===== EVALUATION (catalog-owned, read-only to the engine) =====

type EvaluationTargetType string

const (
	TargetTechnical  EvaluationTargetType = "technical"
	TargetValidation EvaluationTargetType = "validation"
	TargetNone       EvaluationTargetType = "none"
)

// Evaluation is the authored quiz definition. The engine never writes to it;
// authoring belongs to the catalog service. It lives in this schema so the
// engine can read it and so fixtures can be seeded in standalone deployments.
type Evaluation struct {
	ID         uint                 `json:"id" gorm:"primaryKey"`
	Title      string               `json:"title" gorm:"size:255;not null"`
	TargetType EvaluationTargetType `json:"target_type" gorm:"size:20;default:'none'"`

	ProgramID *uint `json:"program_id,omitempty" gorm:"index"`
	SubjectID *uint `json:"subject_id,omitempty"`

	// Nil bounds mean unbounded on that side.
	ActiveFrom *time.Time `json:"active_from,omitempty"`
	ActiveTo   *time.Time `json:"active_to,omitempty"`

	// Nil means unlimited.
	MaxAttempts      *int `json:"max_attempts,omitempty"`
	TimeLimitMinutes *int `json:"time_limit_minutes,omitempty"`

	Active bool `json:"active" gorm:"default:true;index"`

	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:EvaluationID"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Evaluation) TableName() string {
	return "evaluations"
}

// ===== QUESTIONS =====

type QuestionType string

const (
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionTrueFalse    QuestionType = "true_false"
	QuestionOpenText     QuestionType = "open_text"
)

// IsAutoGradable reports whether correctness is determined mechanically from
// a flagged option. Open-text questions are never auto-graded.
func (t QuestionType) IsAutoGradable() bool {
	return t == QuestionSingleChoice || t == QuestionTrueFalse
}

type Question struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	EvaluationID uint         `json:"evaluation_id" gorm:"not null;index"`
	Statement    string       `json:"statement" gorm:"type:text;not null"`
	Type         QuestionType `json:"type" gorm:"size:20;not null"`
	Required     bool         `json:"required" gorm:"default:false"`
	Points       float64      `json:"points" gorm:"not null;default:0"`
	Position     int          `json:"position" gorm:"not null;default:0"`

	Options []QuestionOption `json:"options,omitempty" gorm:"foreignKey:QuestionID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

type QuestionOption struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Text       string `json:"text" gorm:"type:text;not null"`
	IsCorrect  bool   `json:"is_correct" gorm:"default:false"`
	Position   int    `json:"position" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
}

func (QuestionOption) TableName() string {
	return "question_options"
}

// ===== SNAPSHOT =====

// EvaluationSnapshot is the frozen copy of an evaluation's questions, options
// and limits taken at attempt start. Grading always runs against the
// snapshot, never against the live catalog rows, so concurrent authoring
// edits cannot affect an in-flight attempt.
type EvaluationSnapshot struct {
	EvaluationID     uint               `json:"evaluation_id"`
	Title            string             `json:"title"`
	MaxAttempts      *int               `json:"max_attempts,omitempty"`
	TimeLimitMinutes *int               `json:"time_limit_minutes,omitempty"`
	ActiveFrom       *time.Time         `json:"active_from,omitempty"`
	ActiveTo         *time.Time         `json:"active_to,omitempty"`
	Questions        []QuestionSnapshot `json:"questions"`
}

type QuestionSnapshot struct {
	ID        uint             `json:"id"`
	Statement string           `json:"statement"`
	Type      QuestionType     `json:"type"`
	Required  bool             `json:"required"`
	Points    float64          `json:"points"`
	Options   []OptionSnapshot `json:"options,omitempty"`
}

type OptionSnapshot struct {
	ID        uint   `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
	Position  int    `json:"position"`
}

// Question returns the snapshot question with the given id, or nil.
func (s *EvaluationSnapshot) Question(questionID uint) *QuestionSnapshot {
	for i := range s.Questions {
		if s.Questions[i].ID == questionID {
			return &s.Questions[i]
		}
	}
	return nil
}

// Option returns the option with the given id, or nil.
func (q *QuestionSnapshot) Option(optionID uint) *OptionSnapshot {
	for i := range q.Options {
		if q.Options[i].ID == optionID {
			return &q.Options[i]
		}
	}
	return nil
}

// CorrectOption returns the option flagged correct. Choice questions carry
// exactly one; open-text questions carry none.
func (q *QuestionSnapshot) CorrectOption() *OptionSnapshot {
	for i := range q.Options {
		if q.Options[i].IsCorrect {
			return &q.Options[i]
		}
	}
	return nil
}

// AutoGradableMax sums the point values of choice/true-false questions. A
// snapshot with only open-text questions has an auto-gradable max of zero.
func (s *EvaluationSnapshot) AutoGradableMax() float64 {
	var max float64
	for _, q := range s.Questions {
		if q.Type.IsAutoGradable() {
			max += q.Points
		}
	}
	return max
}

// HasOpenQuestions reports whether any question needs manual review.
func (s *EvaluationSnapshot) HasOpenQuestions() bool {
	for _, q := range s.Questions {
		if !q.Type.IsAutoGradable() {
			return true
		}
	}
	return false
}

// WindowOpen reports whether now falls inside the active window.
func (s *EvaluationSnapshot) WindowOpen(now time.Time) bool {
	if s.ActiveFrom != nil && now.Before(*s.ActiveFrom) {
		return false
	}
	if s.ActiveTo != nil && now.After(*s.ActiveTo) {
		return false
	}
	return true
}
