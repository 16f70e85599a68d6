package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/college-cbcs-api/internal/models"
	"github.com/noah-isme/college-cbcs-api/internal/repository"
	appErrors "github.com/noah-isme/college-cbcs-api/pkg/errors"
	"github.com/noah-isme/college-cbcs-api/pkg/jobs"
	"github.com/noah-isme/college-cbcs-api/pkg/locks"
)

// SystemActor is recorded as the finalizer for queue-triggered runs.
const SystemActor = "system"

type allocationRepository interface {
	FinalizeCycle(ctx context.Context, cycleID, actorID string, lockTimeout time.Duration) (*models.FinalizeResult, error)
}

type finalizationCycleRepository interface {
	FindByID(ctx context.Context, id string) (*models.CBCSCycle, error)
}

type selectionCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// FinalizationConfig tunes finalization runs.
type FinalizationConfig struct {
	LockWait             time.Duration
	StatementLockTimeout time.Duration
}

// FinalizationService runs the allocation engine over a cycle, either from
// the background queue when the last student submits or on explicit request.
type FinalizationService struct {
	allocations allocationRepository
	cycles      finalizationCycleRepository
	locks       lockRegistry
	cache       selectionCacheInvalidator
	metrics     *MetricsService
	logger      *zap.Logger
	config      FinalizationConfig
}

// NewFinalizationService constructs a FinalizationService.
func NewFinalizationService(allocations allocationRepository, cycles finalizationCycleRepository, registry lockRegistry, cache selectionCacheInvalidator, metrics *MetricsService, logger *zap.Logger, config FinalizationConfig) *FinalizationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.LockWait <= 0 {
		config.LockWait = 30 * time.Second
	}
	if config.StatementLockTimeout <= 0 {
		config.StatementLockTimeout = 2 * time.Minute
	}
	return &FinalizationService{allocations: allocations, cycles: cycles, locks: registry, cache: cache, metrics: metrics, logger: logger, config: config}
}

// Finalize allocates every subject of the cycle and marks it complete. Only
// one run per cycle proceeds at a time; re-running a complete cycle replaces
// its final enrollments from current preferences.
func (s *FinalizationService) Finalize(ctx context.Context, cycleID, actorID string) (*models.FinalizeResult, error) {
	release, err := s.locks.Acquire(ctx, "cbcs:finalize:"+cycleID, s.config.LockWait)
	if err != nil {
		if errors.Is(err, locks.ErrTimeout) {
			return nil, appErrors.Clone(appErrors.ErrLockBusy, "finalization already in progress for this cycle")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire finalization lock")
	}
	defer release()

	start := time.Now()
	result, err := s.allocations.FinalizeCycle(ctx, cycleID, actorID, s.config.StatementLockTimeout)
	duration := time.Since(start)

	assigned, unassigned := 0, 0
	if result != nil {
		for _, course := range result.Courses {
			assigned += course.Assigned
			unassigned += len(course.Unassigned)
		}
	}
	s.metrics.ObserveFinalization(duration, assigned, unassigned, err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cycle not found")
		}
		if errors.Is(err, repository.ErrNoSections) {
			return nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "a subject has no configured sections")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "finalization failed")
	}

	for _, course := range result.Courses {
		if course.Skipped {
			s.logger.Warn("course skipped, no preferences submitted",
				zap.String("cycle_id", cycleID),
				zap.String("course_code", course.CourseCode))
			continue
		}
		if len(course.Unassigned) > 0 {
			s.logger.Warn("students left unassigned",
				zap.String("cycle_id", cycleID),
				zap.String("course_code", course.CourseCode),
				zap.Strings("students", course.Unassigned))
		}
	}

	// The cached selection view embeds the complete flag.
	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, "cbcs:selection:*"); err != nil {
			s.logger.Warn("failed to invalidate selection cache", zap.Error(err))
		}
	}

	s.logger.Info("cycle finalized",
		zap.String("cycle_id", cycleID),
		zap.String("actor", actorID),
		zap.Int("assigned", assigned),
		zap.Int("unassigned", unassigned),
		zap.Duration("duration", duration))

	return result, nil
}

// HandleJob processes a queued finalization job. Cycles already finalized by
// an earlier run or by hand are skipped without error.
func (s *FinalizationService) HandleJob(ctx context.Context, job jobs.Job) error {
	cycleID, ok := job.Payload.(string)
	if !ok || cycleID == "" {
		s.logger.Error("finalize job with invalid payload", zap.String("job_id", job.ID))
		return nil
	}

	cycle, err := s.cycles.FindByID(ctx, cycleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("finalize job for unknown cycle", zap.String("cycle_id", cycleID))
			return nil
		}
		return fmt.Errorf("load cycle %s: %w", cycleID, err)
	}
	if cycle.Complete {
		s.logger.Info("cycle already finalized, skipping job", zap.String("cycle_id", cycleID))
		return nil
	}

	if _, err := s.Finalize(ctx, cycleID, SystemActor); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrLockBusy.Code {
			s.logger.Info("finalization already running, dropping job", zap.String("cycle_id", cycleID))
			return nil
		}
		return fmt.Errorf("finalize cycle %s: %w", cycleID, err)
	}
	return nil
}
