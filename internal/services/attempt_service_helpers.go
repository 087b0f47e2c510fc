package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

// ===== LOCKING =====

// withAssignmentLock runs fn inside a transaction holding the assignment's
// row lock. Lock contention and serialization failures are retried
// transparently a bounded number of times; the caller only sees
// ErrLockContention once the budget is spent.
func (s *attemptService) withAssignmentLock(ctx context.Context, assignmentID uint, fn func(txRepo repositories.Repository, tx *gorm.DB, locked *models.Assignment) error) error {
	attempts := s.lockRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			locked, err := s.repo.Assignment().GetByIDForUpdate(ctx, tx, assignmentID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrAssignmentNotFound
				}
				return err
			}
			return fn(s.repo, tx, locked)
		})
		if err == nil {
			return nil
		}
		if !isRetryableTxError(err) {
			return err
		}

		lastErr = err
		s.logger.Warn("Retrying assignment transaction after contention",
			"assignment_id", assignmentID,
			"attempt", i+1,
			"error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.lockBackoff * time.Duration(i+1)):
		}
	}

	return fmt.Errorf("%w: %v", ErrLockContention, lastErr)
}

// isRetryableTxError matches Postgres transient concurrency failures.
func isRetryableTxError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "could not serialize access") ||
		strings.Contains(msg, "lock timeout")
}

// ===== LOOKUPS =====

func (s *attemptService) getOwnedAssignment(ctx context.Context, assignmentID uint, studentID string) (*models.Assignment, error) {
	assignment, err := s.repo.Assignment().GetByID(ctx, nil, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	if studentID != "" && assignment.StudentID != studentID {
		return nil, ErrNotAssignmentOwner
	}

	return assignment, nil
}

func (s *attemptService) currentAttempt(ctx context.Context, txRepo repositories.Repository, tx *gorm.DB, assignment *models.Assignment) (*models.Attempt, error) {
	if assignment.CurrentAttemptID == nil {
		return nil, fmt.Errorf("assignment %d is in progress without a current attempt", assignment.ID)
	}
	attempt, err := txRepo.Attempt().GetByID(ctx, tx, *assignment.CurrentAttemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get current attempt: %w", err)
	}
	return attempt, nil
}

// ===== STATE RULES =====

// retryAllowed implements the COMPLETED -> IN_PROGRESS guard: attempts must
// remain, the evaluation must still be active and its window open.
func (s *attemptService) retryAllowed(assignment *models.Assignment, evaluation *models.Evaluation, snapshot *models.EvaluationSnapshot, now time.Time) bool {
	return RetryAllowed(assignment.AttemptsUsed, snapshot.MaxAttempts, evaluation.Active, snapshot.WindowOpen(now))
}

// RetryAllowed is the pure retry rule. A nil maxAttempts means unlimited.
func RetryAllowed(attemptsUsed int, maxAttempts *int, evaluationActive, windowOpen bool) bool {
	if !evaluationActive || !windowOpen {
		return false
	}
	if maxAttempts == nil {
		return true
	}
	return attemptsUsed < *maxAttempts
}

// ===== VIEW BUILDING =====

// buildOpenView renders an IN_PROGRESS assignment with its sanitized
// question set. Correctness flags never leave the service.
func (s *attemptService) buildOpenView(assignment *models.Assignment, attempt *models.Attempt) *AttemptView {
	view := &AttemptView{
		AssignmentID:  assignment.ID,
		State:         assignment.State,
		AttemptID:     &attempt.ID,
		AttemptNumber: attempt.AttemptNumber,
		AttemptsUsed:  assignment.AttemptsUsed,
		Deadline:      attempt.ExpiresAt,
	}

	snapshot, err := attempt.DecodeSnapshot()
	if err != nil {
		s.logger.Error("Failed to decode attempt snapshot for view",
			"attempt_id", attempt.ID, "error", err)
		return view
	}

	view.AttemptsMax = snapshot.MaxAttempts
	view.Questions = SanitizeQuestions(snapshot)
	return view
}

// buildResultView renders the terminal read-only outcome: no questions,
// just the last score.
func (s *attemptService) buildResultView(ctx context.Context, txRepo repositories.Repository, tx *gorm.DB, assignment *models.Assignment) (*AttemptView, error) {
	view := &AttemptView{
		AssignmentID: assignment.ID,
		State:        assignment.State,
		ReadOnly:     true,
		AttemptsUsed: assignment.AttemptsUsed,
	}

	attempts, _, err := txRepo.Attempt().ListByAssignment(ctx, tx, assignment.ID, repositories.AttemptFilters{SubmittedOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	var latest *models.Attempt
	for _, att := range attempts {
		if latest == nil || att.AttemptNumber > latest.AttemptNumber {
			latest = att
		}
	}
	if latest != nil {
		view.PreviousScore = scoreResult(latest)
		if snapshot, err := latest.DecodeSnapshot(); err == nil {
			view.AttemptsMax = snapshot.MaxAttempts
		}
	}

	return view, nil
}

// SanitizeQuestions strips correctness flags from a snapshot for delivery to
// students.
func SanitizeQuestions(snapshot *models.EvaluationSnapshot) []QuestionView {
	questions := make([]QuestionView, 0, len(snapshot.Questions))
	for _, q := range snapshot.Questions {
		qv := QuestionView{
			ID:        q.ID,
			Statement: q.Statement,
			Type:      q.Type,
			Required:  q.Required,
			Points:    q.Points,
			Options:   make([]OptionView, 0, len(q.Options)),
		}
		for _, o := range q.Options {
			qv.Options = append(qv.Options, OptionView{ID: o.ID, Text: o.Text})
		}
		questions = append(questions, qv)
	}
	return questions
}

// ===== CONVERSIONS =====

func scoreResult(attempt *models.Attempt) *ScoreResult {
	return &ScoreResult{
		AttemptID:         attempt.ID,
		AttemptNumber:     attempt.AttemptNumber,
		Score:             attempt.Score,
		MaxScore:          attempt.MaxScore,
		Percentage:        attempt.Percentage,
		NeedsManualReview: attempt.NeedsManualReview,
		SubmittedAt:       attempt.SubmittedAt,
	}
}

// answerRows converts a normalized answer set into persistent rows, merging
// in grades when the set has been graded. Unanswered entries persist too, so
// the stored attempt mirrors the normalized form.
func answerRows(attemptID uint, normalized []NormalizedAnswer, grades []QuestionGrade) []*models.AttemptAnswer {
	gradeByQuestion := make(map[uint]*QuestionGrade, len(grades))
	for i := range grades {
		gradeByQuestion[grades[i].QuestionID] = &grades[i]
	}

	rows := make([]*models.AttemptAnswer, 0, len(normalized))
	for i := range normalized {
		entry := &normalized[i]
		row := &models.AttemptAnswer{
			AttemptID:        attemptID,
			QuestionID:       entry.QuestionID,
			SelectedOptionID: entry.OptionID,
			FreeText:         entry.Text,
		}
		if grade := gradeByQuestion[entry.QuestionID]; grade != nil {
			row.IsCorrect = grade.IsCorrect
			row.PointsAwarded = grade.PointsAwarded
			row.NeedsReview = grade.NeedsReview
		}
		rows = append(rows, row)
	}
	return rows
}

// normalizeRecorded rebuilds the normalized answer set from rows recorded
// during the attempt, for expiry-triggered grading.
func normalizeRecorded(snapshot *models.EvaluationSnapshot, recorded []*models.AttemptAnswer) []NormalizedAnswer {
	byQuestion := make(map[uint]*models.AttemptAnswer, len(recorded))
	for _, row := range recorded {
		byQuestion[row.QuestionID] = row
	}

	normalized := make([]NormalizedAnswer, 0, len(snapshot.Questions))
	for i := range snapshot.Questions {
		question := &snapshot.Questions[i]
		entry := NormalizedAnswer{QuestionID: question.ID}
		if row, ok := byQuestion[question.ID]; ok && !row.IsEmpty() {
			entry.Answered = true
			entry.OptionID = row.SelectedOptionID
			entry.Text = row.FreeText
		}
		normalized = append(normalized, entry)
	}
	return normalized
}
