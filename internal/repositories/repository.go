package repositories

import "context"

// Repository aggregates every data-access interface of the engine.
type Repository interface {
	// Catalog domain (read-only for the engine)
	Evaluation() EvaluationRepository

	// Assignment domain
	Assignment() AssignmentRepository
	Attempt() AttemptRepository
	Answer() AnswerRepository

	// Student/program directory (identity provider backed)
	Directory() StudentDirectory

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
