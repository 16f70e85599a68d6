package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/college-cbcs-api/internal/dto"
	"github.com/noah-isme/college-cbcs-api/internal/models"
	appErrors "github.com/noah-isme/college-cbcs-api/pkg/errors"
)

type cycleRepository interface {
	Create(ctx context.Context, cycle *models.CBCSCycle, subjects []models.SubjectDetail) error
	List(ctx context.Context, filter models.CycleFilter) ([]models.CBCSCycle, int, error)
	FindByID(ctx context.Context, id string) (*models.CBCSCycle, error)
	FindDetailByID(ctx context.Context, id string) (*models.CycleDetail, error)
	FindActive(ctx context.Context, batchID, deptID, semesterID string) (*models.CBCSCycle, error)
}

type submissionCounter interface {
	CountDistinctStudents(ctx context.Context, cycleID string) (int, error)
}

type selectionCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CycleService manages CBCS cycles and their capacity registries.
type CycleService struct {
	repo      cycleRepository
	prefs     submissionCounter
	cache     selectionCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewCycleService constructs a CycleService.
func NewCycleService(repo cycleRepository, prefs submissionCounter, cache selectionCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *CycleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &CycleService{repo: repo, prefs: prefs, cache: cache, metrics: metrics, validator: validate, logger: logger, cacheTTL: cacheTTL}
}

func selectionCacheKey(batchID, deptID, semesterID string) string {
	return fmt.Sprintf("cbcs:selection:%s:%s:%s", batchID, deptID, semesterID)
}

// Create opens a new allocation cycle. Seats are distributed evenly across a
// subject's sections up front; any remainder goes one seat at a time to the
// earliest sections in submitted order.
func (s *CycleService) Create(ctx context.Context, req dto.CreateCycleRequest, actorID string) (*models.CycleDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cycle payload")
	}

	allocationType := req.AllocationType
	if allocationType == "" {
		allocationType = "PREFERENCE"
	}

	cycle := &models.CBCSCycle{
		BatchID:          req.BatchID,
		DeptID:           req.DeptID,
		SemesterID:       req.SemesterID,
		ExpectedStudents: req.ExpectedStudents,
		AllocationType:   allocationType,
		Active:           true,
		CreatedBy:        actorID,
	}

	subjects := make([]models.SubjectDetail, len(req.Subjects))
	for i, sub := range req.Subjects {
		expected := sub.ExpectedStudents
		if expected <= 0 {
			expected = req.ExpectedStudents
		}
		base := expected / len(sub.Sections)
		remainder := expected % len(sub.Sections)

		sections := make([]models.SectionCapacity, len(sub.Sections))
		for j, sec := range sub.Sections {
			capacity := base
			if j < remainder {
				capacity++
			}
			sections[j] = models.SectionCapacity{
				SectionID:   sec.SectionID,
				StaffID:     sec.StaffID,
				MaxCapacity: capacity,
			}
		}

		subjects[i] = models.SubjectDetail{
			ElectiveSubject: models.ElectiveSubject{
				CourseID:    sub.CourseID,
				CourseCode:  sub.CourseCode,
				CourseTitle: sub.CourseTitle,
				BucketName:  sub.BucketName,
				Credits:     sub.Credits,
			},
			Sections: sections,
		}
	}

	if err := s.repo.Create(ctx, cycle, subjects); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create cycle")
	}

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, selectionCacheKey(cycle.BatchID, cycle.DeptID, cycle.SemesterID)); err != nil {
			s.logger.Warn("failed to invalidate selection cache", zap.Error(err))
		}
	}

	s.logger.Info("cycle created",
		zap.String("cycle_id", cycle.ID),
		zap.String("batch_id", cycle.BatchID),
		zap.Int("subjects", len(subjects)))

	return &models.CycleDetail{CBCSCycle: *cycle, Subjects: subjects}, nil
}

// List returns cycles matching the filter with pagination metadata.
func (s *CycleService) List(ctx context.Context, filter models.CycleFilter) ([]models.CBCSCycle, *models.Pagination, error) {
	cycles, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cycles")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return cycles, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a cycle with its full capacity registry.
func (s *CycleService) Get(ctx context.Context, id string) (*models.CycleDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cycle not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cycle")
	}
	return detail, nil
}

// ActiveSelection returns the selection view for the active cycle of a
// (batch, dept, semester) scope. Every student in the batch hits this during
// the choice window, so the view is served from cache when possible.
func (s *CycleService) ActiveSelection(ctx context.Context, batchID, deptID, semesterID string) (*models.CycleDetail, error) {
	if batchID == "" || deptID == "" || semesterID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "batch_id, dept_id and semester_id are required")
	}

	key := selectionCacheKey(batchID, deptID, semesterID)
	if s.cache != nil {
		var cached models.CycleDetail
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("selection cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	cycle, err := s.repo.FindActive(ctx, batchID, deptID, semesterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active cycle for this scope")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active cycle")
	}

	detail, err := s.repo.FindDetailByID(ctx, cycle.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cycle registry")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, detail, s.cacheTTL); err != nil {
			s.logger.Warn("selection cache write failed", zap.Error(err))
		}
	}
	return detail, nil
}

// Progress reports how many distinct students have submitted against the
// expected total.
func (s *CycleService) Progress(ctx context.Context, cycleID string) (*models.CycleProgress, error) {
	cycle, err := s.repo.FindByID(ctx, cycleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cycle not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cycle")
	}

	submitted, err := s.prefs.CountDistinctStudents(ctx, cycleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count submissions")
	}

	return &models.CycleProgress{
		CycleID:   cycle.ID,
		Submitted: submitted,
		Expected:  cycle.ExpectedStudents,
		Complete:  cycle.Complete,
	}, nil
}
