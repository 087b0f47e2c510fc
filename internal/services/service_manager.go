package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/evaluation-service/internal/config"
	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/SAP-F-2025/evaluation-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	ExpiryPolicy config.ExpiryPolicy
	LockRetries  int
	LockBackoff  time.Duration

	// Kafka settings; publishing degrades to a no-op when no brokers are set.
	KafkaBrokers []string
	KafkaTopic   string

	DefaultTimeout time.Duration
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	config    ServiceManagerConfig

	// Service instances
	distributionService DistributionService
	attemptService      AttemptService
	snapshotReader      SnapshotReader
	gradingService      GradingService
	reportingService    ReportingService
	eventPublisher      EventPublisher

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, cfg ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
		config:    cfg,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) ServiceManager {
	attemptDefaults := DefaultAttemptServiceConfig()
	return NewServiceManager(db, repo, logger, validator, ServiceManagerConfig{
		ExpiryPolicy:   attemptDefaults.ExpiryPolicy,
		LockRetries:    attemptDefaults.LockRetries,
		LockBackoff:    attemptDefaults.LockBackoff,
		DefaultTimeout: 30 * time.Second,
	})
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.initializeServices(ctx); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeServices(_ context.Context) error {
	// Event publisher comes first, the write-side services depend on it.
	var publisher events.Publisher
	if len(sm.config.KafkaBrokers) > 0 {
		kafkaPublisher, err := events.NewKafkaPublisher(sm.config.KafkaBrokers, sm.config.KafkaTopic, sm.logger)
		if err != nil {
			return fmt.Errorf("failed to create event publisher: %w", err)
		}
		publisher = kafkaPublisher
		sm.logger.Info("Kafka event publisher initialized", "topic", sm.config.KafkaTopic)
	} else {
		publisher = events.NewNoOpPublisher(sm.logger)
		sm.logger.Info("Event publishing disabled, no brokers configured")
	}
	sm.eventPublisher = NewEventService(publisher, sm.logger)

	sm.gradingService = NewGradingService(sm.logger)
	sm.logger.Info("Grading service initialized")

	sm.snapshotReader = NewSnapshotReader(sm.repo, sm.logger)
	sm.logger.Info("Snapshot reader initialized")

	sm.distributionService = NewDistributionService(sm.repo, sm.db, sm.logger, sm.validator, sm.eventPublisher)
	sm.logger.Info("Distribution service initialized")

	sm.attemptService = NewAttemptService(sm.repo, sm.db, sm.logger, sm.validator, sm.gradingService, sm.eventPublisher, AttemptServiceConfig{
		ExpiryPolicy: sm.config.ExpiryPolicy,
		LockRetries:  sm.config.LockRetries,
		LockBackoff:  sm.config.LockBackoff,
	})
	sm.logger.Info("Attempt service initialized", "expiry_policy", sm.config.ExpiryPolicy)

	sm.reportingService = NewReportingService(sm.repo, sm.db, sm.logger)
	sm.logger.Info("Reporting service initialized")

	return nil
}

// Service getters

func (sm *serviceManager) Distribution() DistributionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.distributionService == nil {
		panic("distribution service not initialized")
	}
	return sm.distributionService
}

func (sm *serviceManager) Attempt() AttemptService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.attemptService == nil {
		panic("attempt service not initialized")
	}
	return sm.attemptService
}

func (sm *serviceManager) Snapshot() SnapshotReader {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.snapshotReader == nil {
		panic("snapshot reader not initialized")
	}
	return sm.snapshotReader
}

func (sm *serviceManager) Grading() GradingService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.gradingService == nil {
		panic("grading service not initialized")
	}
	return sm.gradingService
}

func (sm *serviceManager) Reporting() ReportingService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.reportingService == nil {
		panic("reporting service not initialized")
	}
	return sm.reportingService
}

func (sm *serviceManager) Events() EventPublisher {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.eventPublisher == nil {
		panic("event publisher not initialized")
	}
	return sm.eventPublisher
}

// Health and lifecycle

func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.eventPublisher != nil {
		if err := sm.eventPublisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	if repoManager, ok := sm.repo.(repositories.RepositoryManager); ok {
		if err := repoManager.Shutdown(ctx); err != nil {
			sm.logger.Error("Failed to shutdown repository manager", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}

// WithTimeout creates a context with the default timeout
func (sm *serviceManager) WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := sm.config.DefaultTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(parent, timeout)
}
