package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/evaluation-service/internal/cache"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

type EvaluationPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewEvaluationPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.EvaluationRepository {
	return &EvaluationPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (e *EvaluationPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return e.db
}

func (e *EvaluationPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Evaluation, error) {
	db := e.getDB(tx)
	var evaluation models.Evaluation
	if err := db.WithContext(ctx).First(&evaluation, id).Error; err != nil {
		return nil, err
	}
	return &evaluation, nil
}

func (e *EvaluationPostgreSQL) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Evaluation, error) {
	db := e.getDB(tx)
	var evaluation models.Evaluation
	if err := db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.position ASC")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_options.position ASC")
		}).
		First(&evaluation, id).Error; err != nil {
		return nil, err
	}
	return &evaluation, nil
}

func (e *EvaluationPostgreSQL) ExistsByID(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	db := e.getDB(tx)

	cacheKey := fmt.Sprintf("evaluation:%d", id)
	if exists, err := e.cacheManager.Exists.Exists(ctx, cacheKey); err == nil && exists {
		return true, nil
	}

	var count int64
	err := db.WithContext(ctx).Model(&models.Evaluation{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, err
	}

	if count > 0 {
		_ = e.cacheManager.Exists.Set(ctx, cacheKey, true, cache.ExistsCacheConfig.TTL)
	}
	return count > 0, nil
}

// GetSnapshot freezes the evaluation's questions, options and limits into a
// value the caller persists onto the attempt. Snapshots are cached; catalog
// edits invalidate via InvalidateEvaluation.
func (e *EvaluationPostgreSQL) GetSnapshot(ctx context.Context, tx *gorm.DB, id uint) (*models.EvaluationSnapshot, error) {
	cacheKey := fmt.Sprintf("evaluation:%d", id)
	var snapshot models.EvaluationSnapshot

	err := e.cacheManager.Snapshot.CacheOrExecute(ctx, cacheKey, &snapshot, cache.SnapshotCacheConfig.TTL, func() (interface{}, error) {
		return e.buildSnapshot(ctx, tx, id)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to build evaluation snapshot: %w", err)
	}

	return &snapshot, nil
}

func (e *EvaluationPostgreSQL) buildSnapshot(ctx context.Context, tx *gorm.DB, id uint) (*models.EvaluationSnapshot, error) {
	evaluation, err := e.GetByIDWithQuestions(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	snapshot := &models.EvaluationSnapshot{
		EvaluationID:     evaluation.ID,
		Title:            evaluation.Title,
		MaxAttempts:      evaluation.MaxAttempts,
		TimeLimitMinutes: evaluation.TimeLimitMinutes,
		ActiveFrom:       evaluation.ActiveFrom,
		ActiveTo:         evaluation.ActiveTo,
		Questions:        make([]models.QuestionSnapshot, 0, len(evaluation.Questions)),
	}

	for _, q := range evaluation.Questions {
		qs := models.QuestionSnapshot{
			ID:        q.ID,
			Statement: q.Statement,
			Type:      q.Type,
			Required:  q.Required,
			Points:    q.Points,
			Options:   make([]models.OptionSnapshot, 0, len(q.Options)),
		}
		for _, o := range q.Options {
			qs.Options = append(qs.Options, models.OptionSnapshot{
				ID:        o.ID,
				Text:      o.Text,
				IsCorrect: o.IsCorrect,
				Position:  o.Position,
			})
		}
		sort.Slice(qs.Options, func(i, j int) bool {
			return qs.Options[i].Position < qs.Options[j].Position
		})
		snapshot.Questions = append(snapshot.Questions, qs)
	}

	return snapshot, nil
}
