package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/SAP-F-2025/evaluation-service/internal/validator"
)

type distributionService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	events    EventPublisher
}

func NewDistributionService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, events EventPublisher) DistributionService {
	return &distributionService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
		events:    events,
	}
}

// Assign resolves the target student set for the requested mode and creates
// assignments idempotently. Students already holding an assignment for this
// evaluation are reported in skipped, never treated as an error, so the
// operation can be re-run with overlapping selectors. Each student is
// inserted in its own statement; unrelated students never serialize on each
// other, and one student's failure degrades to a skip rather than aborting
// the batch.
func (s *distributionService) Assign(ctx context.Context, req DistributeRequest) (*DistributionResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.Evaluation().GetByID(ctx, nil, req.EvaluationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEvaluationNotFound
		}
		return nil, fmt.Errorf("failed to load evaluation: %w", err)
	}

	targets, preSkipped, err := s.resolveTargets(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &DistributionResult{
		Created: make([]string, 0, len(targets)),
		Skipped: append(make([]string, 0, len(preSkipped)), preSkipped...),
	}

	for _, studentID := range targets {
		assignment := &models.Assignment{
			EvaluationID: req.EvaluationID,
			StudentID:    studentID,
			State:        models.AssignmentPending,
			AttemptsUsed: 0,
		}

		created, err := s.repo.Assignment().CreateIfAbsent(ctx, nil, assignment)
		if err != nil {
			s.logger.Warn("Failed to create assignment, skipping student",
				"evaluation_id", req.EvaluationID,
				"student_id", studentID,
				"error", err)
			result.Skipped = append(result.Skipped, studentID)
			continue
		}

		if !created {
			result.Skipped = append(result.Skipped, studentID)
			continue
		}

		result.Created = append(result.Created, studentID)

		if s.events != nil {
			if err := s.events.PublishAssignmentCreated(ctx, assignment); err != nil {
				s.logger.Warn("Failed to publish assignment created event",
					"assignment_id", assignment.ID,
					"error", err)
			}
		}
	}

	s.logger.Info("Distribution completed",
		"evaluation_id", req.EvaluationID,
		"mode", req.Mode,
		"created", len(result.Created),
		"skipped", len(result.Skipped))

	return result, nil
}

// resolveTargets turns the selector into concrete student ids. For explicit
// lists, unknown or unresolvable students degrade to skipped. An empty
// resolved set is a valid administrative outcome, not an error.
func (s *distributionService) resolveTargets(ctx context.Context, req DistributeRequest) (targets, skipped []string, err error) {
	switch req.Mode {
	case models.ModeExplicitList:
		seen := make(map[string]bool, len(req.StudentIDs))
		for _, studentID := range req.StudentIDs {
			if seen[studentID] {
				continue
			}
			seen[studentID] = true

			exists, err := s.repo.Directory().ExistsByID(ctx, studentID)
			if err != nil {
				s.logger.Warn("Directory lookup failed, skipping student",
					"student_id", studentID, "error", err)
				skipped = append(skipped, studentID)
				continue
			}
			if !exists {
				skipped = append(skipped, studentID)
				continue
			}
			targets = append(targets, studentID)
		}
		return targets, skipped, nil

	case models.ModeMainProgram, models.ModeAnyAssociatedProgram:
		if req.ProgramID == nil {
			return nil, nil, NewBusinessRuleError("program_selector",
				"program id is required for program-scoped distribution")
		}
		members, err := s.repo.Directory().ResolveProgramMembers(ctx, *req.ProgramID, req.Mode)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve program members: %w", err)
		}
		return members, nil, nil

	default:
		return nil, nil, NewBusinessRuleError("distribution_mode",
			fmt.Sprintf("unknown distribution mode %q", req.Mode))
	}
}
