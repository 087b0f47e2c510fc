package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/evaluation-service/internal/config"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/SAP-F-2025/evaluation-service/internal/validator"
)

type attemptService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	answers   *AnswerValidator
	grading   GradingService
	events    EventPublisher

	expiryPolicy config.ExpiryPolicy
	lockRetries  int
	lockBackoff  time.Duration
}

func NewAttemptService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, grading GradingService, events EventPublisher, cfg AttemptServiceConfig) AttemptService {
	return &attemptService{
		repo:         repo,
		db:           db,
		logger:       logger,
		validator:    v,
		answers:      NewAnswerValidator(),
		grading:      grading,
		events:       events,
		expiryPolicy: cfg.ExpiryPolicy,
		lockRetries:  cfg.LockRetries,
		lockBackoff:  cfg.LockBackoff,
	}
}

// AttemptServiceConfig carries the tunable state machine policy.
type AttemptServiceConfig struct {
	ExpiryPolicy config.ExpiryPolicy
	LockRetries  int
	LockBackoff  time.Duration
}

func DefaultAttemptServiceConfig() AttemptServiceConfig {
	return AttemptServiceConfig{
		ExpiryPolicy: config.ExpiryGradePartial,
		LockRetries:  3,
		LockBackoff:  50 * time.Millisecond,
	}
}

// ===== OPEN =====

// OpenAttempt drives the assignment state machine:
//
//	PENDING     -> IN_PROGRESS  creates attempt #1 while the window is open
//	IN_PROGRESS -> IN_PROGRESS  returns the existing open attempt (reload)
//	COMPLETED   -> IN_PROGRESS  creates attempt #(n+1) while retries remain
//	COMPLETED   -> COMPLETED    read-only result view once exhausted
//
// A PENDING assignment whose evaluation is inactive or whose window has
// closed never opens; it answers with the read-only view instead.
//
// A stale open attempt observed here is force-closed first (lazy expiry),
// then the retry rule is evaluated as for COMPLETED. The whole transition
// runs under the assignment's row lock; the snapshot is fetched before the
// critical section so no lock is held across a network call.
func (s *attemptService) OpenAttempt(ctx context.Context, assignmentID uint, studentID string) (*AttemptView, error) {
	assignment, err := s.getOwnedAssignment(ctx, assignmentID, studentID)
	if err != nil {
		return nil, err
	}

	evaluation, err := s.repo.Evaluation().GetByID(ctx, nil, assignment.EvaluationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEvaluationNotFound
		}
		return nil, fmt.Errorf("failed to load evaluation: %w", err)
	}

	// Snapshot read happens outside the row-lock critical section.
	snapshot, err := s.repo.Evaluation().GetSnapshot(ctx, nil, assignment.EvaluationID)
	if err != nil {
		return nil, fmt.Errorf("failed to read evaluation snapshot: %w", err)
	}

	var view *AttemptView
	err = s.withAssignmentLock(ctx, assignmentID, func(txRepo repositories.Repository, tx *gorm.DB, locked *models.Assignment) error {
		now := time.Now()

		if locked.State == models.AssignmentInProgress {
			attempt, err := s.currentAttempt(ctx, txRepo, tx, locked)
			if err != nil {
				return err
			}
			if !attempt.IsExpired(now) {
				// Idempotent re-open: the student reloaded the page.
				view = s.buildOpenView(locked, attempt)
				return nil
			}
			// Lazy expiry: close the stale attempt, then fall through to
			// the retry evaluation below.
			if err := s.closeExpiredLocked(ctx, txRepo, tx, locked, attempt, now); err != nil {
				return err
			}
		}

		switch locked.State {
		case models.AssignmentPending:
			// The active/window guard applies to the first open exactly as
			// it does to retries; an assignment distributed into a window
			// that has since closed degrades to the read-only view.
			if !s.retryAllowed(locked, evaluation, snapshot, now) {
				v, err := s.buildResultView(ctx, txRepo, tx, locked)
				if err != nil {
					return err
				}
				view = v
				return nil
			}
			attempt, err := s.openAttemptLocked(ctx, txRepo, tx, locked, snapshot, 1, now)
			if err != nil {
				return err
			}
			view = s.buildOpenView(locked, attempt)
			return nil

		case models.AssignmentCompleted:
			if !s.retryAllowed(locked, evaluation, snapshot, now) {
				v, err := s.buildResultView(ctx, txRepo, tx, locked)
				if err != nil {
					return err
				}
				view = v
				return nil
			}
			attempt, err := s.openAttemptLocked(ctx, txRepo, tx, locked, snapshot, locked.AttemptsUsed+1, now)
			if err != nil {
				return err
			}
			view = s.buildOpenView(locked, attempt)
			return nil

		default:
			return fmt.Errorf("assignment %d in unexpected state %q", locked.ID, locked.State)
		}
	})
	if err != nil {
		return nil, err
	}

	return view, nil
}

// ===== SAVE PROGRESS =====

// SaveProgress records in-flight answers without closing the attempt, so an
// expiry-triggered close has something to grade. Reference and shape checks
// apply; required coverage does not until final submission.
func (s *attemptService) SaveProgress(ctx context.Context, assignmentID uint, studentID string, req SubmitRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	assignment, err := s.getOwnedAssignment(ctx, assignmentID, studentID)
	if err != nil {
		return err
	}

	return s.withAssignmentLock(ctx, assignmentID, func(txRepo repositories.Repository, tx *gorm.DB, locked *models.Assignment) error {
		if locked.State != models.AssignmentInProgress {
			return ErrAttemptClosed
		}

		attempt, err := s.currentAttempt(ctx, txRepo, tx, locked)
		if err != nil {
			return err
		}

		snapshot, err := attempt.DecodeSnapshot()
		if err != nil {
			return err
		}

		now := time.Now()
		if attempt.IsExpired(now) {
			// Lazy expiry: a save past the deadline closes the attempt
			// instead of recording the answers.
			if err := s.closeExpiredLocked(ctx, txRepo, tx, locked, attempt, now); err != nil {
				return err
			}
			return ErrAttemptClosed
		}

		normalized, err := s.answers.Validate(attempt, snapshot, req.Answers, now, true)
		if err != nil {
			return err
		}

		rows := answerRows(attempt.ID, normalized, nil)
		if err := txRepo.Answer().UpsertBatch(ctx, tx, rows); err != nil {
			return fmt.Errorf("failed to save answers: %w", err)
		}

		s.logger.Debug("Progress saved",
			"assignment_id", assignment.ID,
			"attempt_id", attempt.ID,
			"answers", len(rows))
		return nil
	})
}

// ===== SUBMIT =====

// Submit closes the current attempt with a validated, graded answer set.
// Score write, answer persistence, attempt close and the attempts-used
// increment commit in one transaction; a crash between scoring and counting
// can neither double-count nor lose an attempt. Racing submissions serialize
// on the row lock: exactly one wins, the loser observes ErrAttemptClosed.
func (s *attemptService) Submit(ctx context.Context, assignmentID uint, studentID string, req SubmitRequest) (*ScoreResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	assignment, err := s.getOwnedAssignment(ctx, assignmentID, studentID)
	if err != nil {
		return nil, err
	}

	var result *ScoreResult
	var completed *models.Attempt
	err = s.withAssignmentLock(ctx, assignmentID, func(txRepo repositories.Repository, tx *gorm.DB, locked *models.Assignment) error {
		if locked.State != models.AssignmentInProgress {
			return ErrAttemptClosed
		}

		attempt, err := s.currentAttempt(ctx, txRepo, tx, locked)
		if err != nil {
			return err
		}

		snapshot, err := attempt.DecodeSnapshot()
		if err != nil {
			return err
		}

		now := time.Now()
		if attempt.IsExpired(now) {
			if s.expiryPolicy == config.ExpiryDiscard {
				if err := s.closeExpiredLocked(ctx, txRepo, tx, locked, attempt, now); err != nil {
					return err
				}
				return ErrAttemptClosed
			}
			// grade_partial: the late payload is graded on whatever subset
			// it answers; required coverage is not enforced on an
			// expiry-triggered close.
			r, err := s.gradeAndCloseLocked(ctx, txRepo, tx, locked, attempt, snapshot, req.Answers, now, true, models.CloseReasonExpired)
			if err != nil {
				return err
			}
			result, completed = r, attempt
			return nil
		}

		r, err := s.gradeAndCloseLocked(ctx, txRepo, tx, locked, attempt, snapshot, req.Answers, now, false, models.CloseReasonSubmitted)
		if err != nil {
			return err
		}
		result, completed = r, attempt
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.events != nil && completed != nil {
		if err := s.events.PublishAttemptCompleted(ctx, assignment, completed); err != nil {
			s.logger.Warn("Failed to publish attempt completed event",
				"attempt_id", completed.ID,
				"error", err)
		}
	}

	return result, nil
}

// ===== LIST =====

func (s *attemptService) ListAttempts(ctx context.Context, assignmentID uint, studentID string, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	if _, err := s.getOwnedAssignment(ctx, assignmentID, studentID); err != nil {
		return nil, 0, err
	}
	return s.repo.Attempt().ListByAssignment(ctx, nil, assignmentID, filters)
}

// ===== LOCKED TRANSITIONS =====

// openAttemptLocked creates the next attempt and moves the assignment to
// IN_PROGRESS. Caller holds the row lock; attemptNumber is derived from the
// locked row, never from an unlocked count.
func (s *attemptService) openAttemptLocked(ctx context.Context, txRepo repositories.Repository, tx *gorm.DB, assignment *models.Assignment, snapshot *models.EvaluationSnapshot, attemptNumber int, now time.Time) (*models.Attempt, error) {
	frozen, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to freeze snapshot: %w", err)
	}

	attempt := &models.Attempt{
		AssignmentID:  assignment.ID,
		AttemptNumber: attemptNumber,
		StartedAt:     now,
		Snapshot:      frozen,
	}
	if snapshot.TimeLimitMinutes != nil {
		deadline := now.Add(time.Duration(*snapshot.TimeLimitMinutes) * time.Minute)
		attempt.ExpiresAt = &deadline
	}

	if err := txRepo.Attempt().Create(ctx, tx, attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	assignment.State = models.AssignmentInProgress
	assignment.CurrentAttemptID = &attempt.ID
	if err := txRepo.Assignment().Update(ctx, tx, assignment); err != nil {
		return nil, fmt.Errorf("failed to update assignment: %w", err)
	}

	s.logger.Info("Attempt opened",
		"assignment_id", assignment.ID,
		"attempt_id", attempt.ID,
		"attempt_number", attempt.AttemptNumber)

	return attempt, nil
}

// gradeAndCloseLocked validates, grades and closes the current attempt, and
// advances the assignment to COMPLETED with attempts-used incremented.
func (s *attemptService) gradeAndCloseLocked(ctx context.Context, txRepo repositories.Repository, tx *gorm.DB, assignment *models.Assignment, attempt *models.Attempt, snapshot *models.EvaluationSnapshot, submitted []AnswerSubmission, now time.Time, skipRequired bool, reason models.AttemptCloseReason) (*ScoreResult, error) {
	normalized, err := s.answers.Validate(attempt, snapshot, submitted, now, skipRequired)
	if err != nil {
		return nil, err
	}

	outcome := s.grading.Grade(snapshot, normalized)

	rows := answerRows(attempt.ID, normalized, outcome.Questions)
	if err := txRepo.Answer().UpsertBatch(ctx, tx, rows); err != nil {
		return nil, fmt.Errorf("failed to persist answers: %w", err)
	}

	if err := s.finalizeAttemptLocked(ctx, txRepo, tx, assignment, attempt, outcome, now, reason); err != nil {
		return nil, err
	}

	return scoreResult(attempt), nil
}

// closeExpiredLocked force-closes a stale attempt per the expiry policy,
// grading the answers recorded as of expiry (or none, under discard).
func (s *attemptService) closeExpiredLocked(ctx context.Context, txRepo repositories.Repository, tx *gorm.DB, assignment *models.Assignment, attempt *models.Attempt, now time.Time) error {
	snapshot, err := attempt.DecodeSnapshot()
	if err != nil {
		return err
	}

	var outcome GradeOutcome
	if s.expiryPolicy == config.ExpiryDiscard {
		outcome = GradeOutcome{MaxScore: snapshot.AutoGradableMax()}
	} else {
		recorded, err := txRepo.Answer().GetByAttempt(ctx, tx, attempt.ID)
		if err != nil {
			return err
		}
		normalized := normalizeRecorded(snapshot, recorded)
		outcome = s.grading.Grade(snapshot, normalized)

		rows := answerRows(attempt.ID, normalized, outcome.Questions)
		if err := txRepo.Answer().UpsertBatch(ctx, tx, rows); err != nil {
			return fmt.Errorf("failed to persist graded answers: %w", err)
		}
	}

	reason := models.CloseReasonExpired
	if s.expiryPolicy == config.ExpiryDiscard {
		reason = models.CloseReasonDiscarded
	}

	if err := s.finalizeAttemptLocked(ctx, txRepo, tx, assignment, attempt, outcome, now, reason); err != nil {
		return err
	}

	s.logger.Info("Expired attempt closed",
		"assignment_id", assignment.ID,
		"attempt_id", attempt.ID,
		"policy", s.expiryPolicy)
	return nil
}

// finalizeAttemptLocked writes the attempt result and the assignment's
// COMPLETED transition in the enclosing transaction.
func (s *attemptService) finalizeAttemptLocked(ctx context.Context, txRepo repositories.Repository, tx *gorm.DB, assignment *models.Assignment, attempt *models.Attempt, outcome GradeOutcome, now time.Time, reason models.AttemptCloseReason) error {
	attempt.SubmittedAt = &now
	attempt.Score = outcome.Score
	attempt.MaxScore = outcome.MaxScore
	attempt.Percentage = outcome.Percentage
	attempt.NeedsManualReview = outcome.NeedsManualReview
	attempt.CloseReason = &reason
	if err := txRepo.Attempt().Update(ctx, tx, attempt); err != nil {
		return fmt.Errorf("failed to close attempt: %w", err)
	}

	assignment.State = models.AssignmentCompleted
	assignment.AttemptsUsed++
	assignment.CurrentAttemptID = nil
	if err := txRepo.Assignment().Update(ctx, tx, assignment); err != nil {
		return fmt.Errorf("failed to complete assignment: %w", err)
	}

	return nil
}
