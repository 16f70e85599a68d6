package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-cbcs-api/internal/models"
	"github.com/noah-isme/college-cbcs-api/internal/repository"
	appErrors "github.com/noah-isme/college-cbcs-api/pkg/errors"
	"github.com/noah-isme/college-cbcs-api/pkg/jobs"
	"github.com/noah-isme/college-cbcs-api/pkg/locks"
)

type mockAllocationRepo struct {
	result *models.FinalizeResult
	err    error
	runs   []string
}

func (m *mockAllocationRepo) FinalizeCycle(ctx context.Context, cycleID, actorID string, lockTimeout time.Duration) (*models.FinalizeResult, error) {
	m.runs = append(m.runs, actorID)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockFinalizationCycles struct {
	cycle *models.CBCSCycle
}

func (m *mockFinalizationCycles) FindByID(ctx context.Context, id string) (*models.CBCSCycle, error) {
	if m.cycle == nil || m.cycle.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.cycle, nil
}

func newFinalizationService(allocations *mockAllocationRepo, cycles *mockFinalizationCycles) *FinalizationService {
	return NewFinalizationService(allocations, cycles, locks.NewRegistry(), nil, nil, nil, FinalizationConfig{LockWait: 100 * time.Millisecond})
}

func TestFinalizeReturnsResult(t *testing.T) {
	allocations := &mockAllocationRepo{result: &models.FinalizeResult{
		CycleID:     "cycle-1",
		FinalizedBy: "admin-1",
		Courses: []models.CourseAllocationSummary{
			{CourseID: "course-1", CourseCode: "CS501", Assigned: 3, Unassigned: []string{"s4"}},
			{CourseID: "course-2", CourseCode: "CS502", Skipped: true},
		},
	}}
	svc := newFinalizationService(allocations, &mockFinalizationCycles{})

	result, err := svc.Finalize(context.Background(), "cycle-1", "admin-1")
	require.NoError(t, err)
	assert.Len(t, result.Courses, 2)
	assert.Equal(t, []string{"admin-1"}, allocations.runs)
}

func TestFinalizeMapsMissingSections(t *testing.T) {
	allocations := &mockAllocationRepo{err: fmt.Errorf("course course-1: %w", repository.ErrNoSections)}
	svc := newFinalizationService(allocations, &mockFinalizationCycles{})

	_, err := svc.Finalize(context.Background(), "cycle-1", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConfiguration.Code, appErrors.FromError(err).Code)
}

func TestFinalizeMapsUnknownCycle(t *testing.T) {
	allocations := &mockAllocationRepo{err: sql.ErrNoRows}
	svc := newFinalizationService(allocations, &mockFinalizationCycles{})

	_, err := svc.Finalize(context.Background(), "cycle-1", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestFinalizeLockBusy(t *testing.T) {
	registry := locks.NewRegistry()
	svc := NewFinalizationService(&mockAllocationRepo{}, &mockFinalizationCycles{}, registry, nil, nil, nil, FinalizationConfig{LockWait: 20 * time.Millisecond})

	release, err := registry.Acquire(context.Background(), "cbcs:finalize:cycle-1", time.Second)
	require.NoError(t, err)
	defer release()

	_, err = svc.Finalize(context.Background(), "cycle-1", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLockBusy.Code, appErrors.FromError(err).Code)
}

func TestHandleJobRunsPendingCycle(t *testing.T) {
	allocations := &mockAllocationRepo{result: &models.FinalizeResult{CycleID: "cycle-1"}}
	cycles := &mockFinalizationCycles{cycle: &models.CBCSCycle{ID: "cycle-1"}}
	svc := newFinalizationService(allocations, cycles)

	err := svc.HandleJob(context.Background(), jobs.Job{ID: "job-1", Type: JobTypeFinalize, Payload: "cycle-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{SystemActor}, allocations.runs)
}

func TestHandleJobSkipsCompleteCycle(t *testing.T) {
	allocations := &mockAllocationRepo{}
	cycles := &mockFinalizationCycles{cycle: &models.CBCSCycle{ID: "cycle-1", Complete: true}}
	svc := newFinalizationService(allocations, cycles)

	err := svc.HandleJob(context.Background(), jobs.Job{ID: "job-1", Type: JobTypeFinalize, Payload: "cycle-1"})
	require.NoError(t, err)
	assert.Empty(t, allocations.runs)
}

func TestHandleJobInvalidPayload(t *testing.T) {
	allocations := &mockAllocationRepo{}
	svc := newFinalizationService(allocations, &mockFinalizationCycles{})

	require.NoError(t, svc.HandleJob(context.Background(), jobs.Job{ID: "job-1", Type: JobTypeFinalize, Payload: 42}))
	assert.Empty(t, allocations.runs)
}

func TestHandleJobUnknownCycle(t *testing.T) {
	allocations := &mockAllocationRepo{}
	svc := newFinalizationService(allocations, &mockFinalizationCycles{})

	require.NoError(t, svc.HandleJob(context.Background(), jobs.Job{ID: "job-1", Type: JobTypeFinalize, Payload: "missing"}))
	assert.Empty(t, allocations.runs)
}
