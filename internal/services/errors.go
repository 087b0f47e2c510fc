package services

import (
	"errors"
	"fmt"
)

// ===== SENTINEL ERRORS =====

var (
	// Not found
	ErrEvaluationNotFound = errors.New("evaluation not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrAttemptNotFound    = errors.New("attempt not found")

	// Conflict
	ErrAttemptClosed          = errors.New("attempt is closed")
	ErrAttemptLimitExceeded   = errors.New("maximum attempts reached")
	ErrEvaluationWindowClosed = errors.New("evaluation window is closed")
	ErrEvaluationInactive     = errors.New("evaluation is not active")

	// Concurrency: lock contention not resolved within the retry budget
	ErrLockContention = errors.New("assignment is locked by a concurrent request")

	// Authorization
	ErrNotAssignmentOwner = errors.New("assignment belongs to another student")
)

// ===== TYPED ERRORS =====

// Submission failure reason codes, machine-readable for the caller.
const (
	ReasonAttemptClosed          = "ATTEMPT_CLOSED"
	ReasonMissingRequiredAnswers = "MISSING_REQUIRED_ANSWERS"
	ReasonInvalidReference       = "INVALID_REFERENCE"
	ReasonTypeMismatch           = "TYPE_MISMATCH"
)

// SubmissionError reports why a submitted answer set was rejected, carrying
// the offending question ids so the caller can highlight them per field.
type SubmissionError struct {
	Reason      string `json:"reason"`
	Message     string `json:"message"`
	QuestionIDs []uint `json:"question_ids,omitempty"`
}

func (e *SubmissionError) Error() string {
	if len(e.QuestionIDs) > 0 {
		return fmt.Sprintf("%s: %s (questions %v)", e.Reason, e.Message, e.QuestionIDs)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func NewSubmissionError(reason, message string, questionIDs ...uint) *SubmissionError {
	return &SubmissionError{
		Reason:      reason,
		Message:     message,
		QuestionIDs: questionIDs,
	}
}

// BusinessRuleError flags a domain rule violation that is neither a missing
// resource nor a malformed request.
type BusinessRuleError struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}

func NewBusinessRuleError(rule, message string) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message}
}
