package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/college-cbcs-api/internal/dto"
	"github.com/noah-isme/college-cbcs-api/internal/models"
	appErrors "github.com/noah-isme/college-cbcs-api/pkg/errors"
	"github.com/noah-isme/college-cbcs-api/pkg/jobs"
	"github.com/noah-isme/college-cbcs-api/pkg/locks"
)

// JobTypeFinalize identifies queued finalization jobs. The payload is the
// cycle ID.
const JobTypeFinalize = "cbcs.finalize"

type submissionCycleRepository interface {
	FindDetailByID(ctx context.Context, id string) (*models.CycleDetail, error)
}

type preferenceRepository interface {
	HasSubmission(ctx context.Context, studentID, cycleID string) (bool, error)
	CreateBatch(ctx context.Context, prefs []models.StudentPreference) error
	CountDistinctStudents(ctx context.Context, cycleID string) (int, error)
}

type lockRegistry interface {
	Acquire(ctx context.Context, key string, wait time.Duration) (func(), error)
}

type finalizeEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// SubmissionConfig tunes the submission workflow.
type SubmissionConfig struct {
	LockWait time.Duration
}

// SubmissionService accepts students' one-time ranked elective choices and
// triggers finalization once the last expected student has submitted.
type SubmissionService struct {
	cycles    submissionCycleRepository
	prefs     preferenceRepository
	locks     lockRegistry
	queue     finalizeEnqueuer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    SubmissionConfig
}

// NewSubmissionService constructs a SubmissionService.
func NewSubmissionService(cycles submissionCycleRepository, prefs preferenceRepository, registry lockRegistry, queue finalizeEnqueuer, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config SubmissionConfig) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.LockWait <= 0 {
		config.LockWait = 10 * time.Second
	}
	return &SubmissionService{cycles: cycles, prefs: prefs, locks: registry, queue: queue, metrics: metrics, validator: validate, logger: logger, config: config}
}

// Submit records a student's full ranked choice list for a cycle. Submissions
// are write-once: a second attempt for the same (student, cycle) pair is
// rejected regardless of content. The whole list is accepted or rejected as a
// unit.
func (s *SubmissionService) Submit(ctx context.Context, req dto.SubmitPreferencesRequest) (*dto.SubmitPreferencesResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		s.metrics.ObserveSubmission("invalid")
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	// Serialise concurrent submits from the same student so only one can pass
	// the write-once check.
	lockKey := fmt.Sprintf("cbcs:submit:%s:%s", req.CycleID, req.StudentID)
	release, err := s.locks.Acquire(ctx, lockKey, s.config.LockWait)
	if err != nil {
		s.metrics.ObserveSubmission("lock_busy")
		if errors.Is(err, locks.ErrTimeout) {
			return nil, appErrors.Clone(appErrors.ErrLockBusy, "a submission for this student is already in progress")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire submission lock")
	}
	defer release()

	detail, err := s.cycles.FindDetailByID(ctx, req.CycleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.ObserveSubmission("invalid")
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cycle not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cycle")
	}

	if err := s.validateSelections(detail, req.Selections); err != nil {
		s.metrics.ObserveSubmission("invalid")
		return nil, err
	}

	submitted, err := s.prefs.HasSubmission(ctx, req.StudentID, req.CycleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check previous submission")
	}
	if submitted {
		s.metrics.ObserveSubmission("duplicate")
		return nil, appErrors.Clone(appErrors.ErrConflict, "choices already submitted; submission is final")
	}

	prefs := make([]models.StudentPreference, len(req.Selections))
	for i, sel := range req.Selections {
		prefs[i] = models.StudentPreference{
			StudentID: req.StudentID,
			CycleID:   req.CycleID,
			CourseID:  sel.CourseID,
			SectionID: sel.SectionID,
			StaffID:   sel.StaffID,
			Rank:      i + 1,
		}
	}

	if err := s.prefs.CreateBatch(ctx, prefs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record preferences")
	}

	s.metrics.ObserveSubmission("accepted")
	s.logger.Info("preferences submitted",
		zap.String("student_id", req.StudentID),
		zap.String("cycle_id", req.CycleID),
		zap.Int("choices", len(prefs)))

	// The submission is already durable; finalization triggering must never
	// fail it.
	s.maybeTriggerFinalize(ctx, &detail.CBCSCycle)

	return &dto.SubmitPreferencesResponse{
		StudentID: req.StudentID,
		CycleID:   req.CycleID,
		Choices:   len(prefs),
		Message:   "choices recorded; submission is final",
	}, nil
}

func (s *SubmissionService) validateSelections(detail *models.CycleDetail, selections []dto.SelectionRequest) error {
	type sectionKey struct{ sectionID, staffID string }
	registry := make(map[string]map[sectionKey]bool, len(detail.Subjects))
	for _, subject := range detail.Subjects {
		pairs := make(map[sectionKey]bool, len(subject.Sections))
		for _, sec := range subject.Sections {
			pairs[sectionKey{sec.SectionID, sec.StaffID}] = true
		}
		registry[subject.CourseID] = pairs
	}

	seen := make(map[string]bool, len(selections))
	for i, sel := range selections {
		if seen[sel.CourseID] {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("course %s appears more than once", sel.CourseID))
		}
		seen[sel.CourseID] = true

		pairs, ok := registry[sel.CourseID]
		if !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("choice %d: course %s is not offered in this cycle", i+1, sel.CourseID))
		}
		if !pairs[sectionKey{sel.SectionID, sel.StaffID}] {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("choice %d: section %s is not offered for course %s", i+1, sel.SectionID, sel.CourseID))
		}
	}
	return nil
}

// maybeTriggerFinalize enqueues a finalization job once every expected
// student has submitted. Enqueue failures are logged, never surfaced: the
// cycle can still be finalized manually.
func (s *SubmissionService) maybeTriggerFinalize(ctx context.Context, cycle *models.CBCSCycle) {
	if cycle.Complete || cycle.ExpectedStudents <= 0 {
		return
	}

	count, err := s.prefs.CountDistinctStudents(ctx, cycle.ID)
	if err != nil {
		s.logger.Warn("failed to count submitters for completion check",
			zap.String("cycle_id", cycle.ID), zap.Error(err))
		return
	}
	if count < cycle.ExpectedStudents {
		return
	}

	job := jobs.Job{ID: uuid.NewString(), Type: JobTypeFinalize, Payload: cycle.ID}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Error("failed to enqueue finalization",
			zap.String("cycle_id", cycle.ID), zap.Error(err))
		return
	}
	s.logger.Info("all students submitted, finalization queued",
		zap.String("cycle_id", cycle.ID),
		zap.Int("submitted", count),
		zap.Int("expected", cycle.ExpectedStudents))
}
