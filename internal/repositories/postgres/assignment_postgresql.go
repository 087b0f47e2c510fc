package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/evaluation-service/internal/cache"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

type AssignmentPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewAssignmentPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AssignmentRepository {
	return &AssignmentPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (a *AssignmentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

// ===== BASIC CRUD =====

func (a *AssignmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error {
	db := a.getDB(tx)
	return db.WithContext(ctx).Create(assignment).Error
}

func (a *AssignmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assignment, error) {
	db := a.getDB(tx)
	var assignment models.Assignment
	if err := db.WithContext(ctx).First(&assignment, id).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (a *AssignmentPostgreSQL) GetByIDWithAttempts(ctx context.Context, tx *gorm.DB, id uint) (*models.Assignment, error) {
	db := a.getDB(tx)
	var assignment models.Assignment
	if err := db.WithContext(ctx).
		Preload("Attempts", func(db *gorm.DB) *gorm.DB {
			return db.Order("attempts.attempt_number ASC")
		}).
		First(&assignment, id).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (a *AssignmentPostgreSQL) Update(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Save(assignment).Error; err != nil {
		return err
	}
	cache.InvalidateAssignmentCache(ctx, a.cacheManager, assignment.ID, assignment.EvaluationID)
	return nil
}

// GetByIDForUpdate loads the assignment row under FOR UPDATE. Every state
// transition goes through this inside a transaction so concurrent opens and
// submits on the same assignment serialize.
func (a *AssignmentPostgreSQL) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Assignment, error) {
	db := a.getDB(tx)
	var assignment models.Assignment
	if err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&assignment, id).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

// CreateIfAbsent is the idempotent distribution primitive: the unique
// (evaluation_id, student_id) index plus ON CONFLICT DO NOTHING makes
// re-distribution a no-op reported as created=false.
func (a *AssignmentPostgreSQL) CreateIfAbsent(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) (bool, error) {
	db := a.getDB(tx)
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "evaluation_id"}, {Name: "student_id"}},
			DoNothing: true,
		}).
		Create(assignment)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create assignment: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ===== QUERY OPERATIONS =====

func (a *AssignmentPostgreSQL) GetByEvaluationAndStudent(ctx context.Context, tx *gorm.DB, evaluationID uint, studentID string) (*models.Assignment, error) {
	db := a.getDB(tx)
	var assignment models.Assignment
	if err := db.WithContext(ctx).
		Where("evaluation_id = ? AND student_id = ?", evaluationID, studentID).
		First(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (a *AssignmentPostgreSQL) ListByEvaluation(ctx context.Context, tx *gorm.DB, evaluationID uint, filters repositories.AssignmentFilters) ([]*models.Assignment, int64, error) {
	db := a.getDB(tx)
	var assignments []*models.Assignment
	var total int64

	query := db.WithContext(ctx).Model(&models.Assignment{}).Where("evaluation_id = ?", evaluationID)
	query = a.helpers.ApplyAssignmentFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&assignments).Error; err != nil {
		return nil, 0, err
	}

	return assignments, total, nil
}

func (a *AssignmentPostgreSQL) GetAssignedStudentIDs(ctx context.Context, tx *gorm.DB, evaluationID uint) ([]string, error) {
	db := a.getDB(tx)
	var studentIDs []string
	if err := db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("evaluation_id = ?", evaluationID).
		Pluck("student_id", &studentIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to list assigned students: %w", err)
	}
	return studentIDs, nil
}

// ===== STATISTICS =====

func (a *AssignmentPostgreSQL) GetStats(ctx context.Context, tx *gorm.DB, evaluationID uint) (*models.EvaluationStats, error) {
	db := a.getDB(tx)

	cacheKey := fmt.Sprintf("evaluation:%d:assignments", evaluationID)
	var stats models.EvaluationStats

	err := a.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		computed := &models.EvaluationStats{EvaluationID: evaluationID}

		type stateCount struct {
			State string
			Count int64
		}
		var counts []stateCount
		if err := db.WithContext(ctx).
			Model(&models.Assignment{}).
			Select("state, COUNT(*) as count").
			Where("evaluation_id = ?", evaluationID).
			Group("state").
			Scan(&counts).Error; err != nil {
			return nil, err
		}
		for _, c := range counts {
			computed.AssignedCount += c.Count
			switch models.AssignmentState(c.State) {
			case models.AssignmentPending:
				computed.PendingCount = c.Count
			case models.AssignmentInProgress:
				computed.InProgressCount = c.Count
			case models.AssignmentCompleted:
				computed.CompletedCount = c.Count
			}
		}

		type scoreAgg struct {
			AvgScore   float64
			AvgPercent float64
			Review     int64
		}
		var agg scoreAgg
		if err := db.WithContext(ctx).
			Model(&models.Attempt{}).
			Select("COALESCE(AVG(attempts.score), 0) as avg_score, COALESCE(AVG(attempts.percentage), 0) as avg_percent, COUNT(*) FILTER (WHERE attempts.needs_manual_review) as review").
			Joins("JOIN assignments ON assignments.id = attempts.assignment_id").
			Where("assignments.evaluation_id = ? AND attempts.submitted_at IS NOT NULL", evaluationID).
			Scan(&agg).Error; err != nil {
			return nil, err
		}
		computed.AverageScore = agg.AvgScore
		computed.AveragePercent = agg.AvgPercent
		computed.ManualReview = agg.Review

		return computed, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute evaluation stats: %w", err)
	}

	return &stats, nil
}

func (a *AssignmentPostgreSQL) GetResults(ctx context.Context, tx *gorm.DB, evaluationID uint) ([]*models.StudentResult, error) {
	db := a.getDB(tx)

	var results []*models.StudentResult
	// One row per assignment, joined to its most recent submitted attempt.
	err := db.WithContext(ctx).Raw(`
		SELECT
			a.student_id,
			a.state,
			a.attempts_used,
			t.score,
			t.max_score,
			t.percentage,
			COALESCE(t.needs_manual_review, false) AS needs_manual_review,
			t.submitted_at
		FROM assignments a
		LEFT JOIN LATERAL (
			SELECT score, max_score, percentage, needs_manual_review, submitted_at
			FROM attempts
			WHERE attempts.assignment_id = a.id AND attempts.submitted_at IS NOT NULL
			ORDER BY attempts.attempt_number DESC
			LIMIT 1
		) t ON true
		WHERE a.evaluation_id = ? AND a.deleted_at IS NULL
		ORDER BY a.student_id
	`, evaluationID).Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load evaluation results: %w", err)
	}

	return results, nil
}
