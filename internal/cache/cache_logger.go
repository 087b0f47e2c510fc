package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateAssignmentCache drops every cache entry touched by a state
// transition on one assignment.
func InvalidateAssignmentCache(ctx context.Context, cm *CacheManager, assignmentID, evaluationID uint) {
	SafeDelete(ctx, cm.Assignment,
		fmt.Sprintf("id:%d", assignmentID),
		fmt.Sprintf("details:%d", assignmentID))

	SafeInvalidatePattern(ctx, cm.Assignment, fmt.Sprintf("evaluation:%d:*", evaluationID))
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("evaluation:%d:*", evaluationID))
}
