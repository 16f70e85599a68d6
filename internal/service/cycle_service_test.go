package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-cbcs-api/internal/dto"
	"github.com/noah-isme/college-cbcs-api/internal/models"
	appErrors "github.com/noah-isme/college-cbcs-api/pkg/errors"
)

type mockCycleRepo struct {
	created        *models.CBCSCycle
	createdSubs    []models.SubjectDetail
	cycles         map[string]*models.CBCSCycle
	details        map[string]*models.CycleDetail
	active         *models.CBCSCycle
	detailRequests int
}

func (m *mockCycleRepo) Create(ctx context.Context, cycle *models.CBCSCycle, subjects []models.SubjectDetail) error {
	cycle.ID = "cycle-new"
	m.created = cycle
	m.createdSubs = subjects
	return nil
}

func (m *mockCycleRepo) List(ctx context.Context, filter models.CycleFilter) ([]models.CBCSCycle, int, error) {
	var out []models.CBCSCycle
	for _, c := range m.cycles {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *mockCycleRepo) FindByID(ctx context.Context, id string) (*models.CBCSCycle, error) {
	if c, ok := m.cycles[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCycleRepo) FindDetailByID(ctx context.Context, id string) (*models.CycleDetail, error) {
	m.detailRequests++
	if d, ok := m.details[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCycleRepo) FindActive(ctx context.Context, batchID, deptID, semesterID string) (*models.CBCSCycle, error) {
	if m.active == nil {
		return nil, sql.ErrNoRows
	}
	return m.active, nil
}

type mockCounter struct {
	count int
}

func (m *mockCounter) CountDistinctStudents(ctx context.Context, cycleID string) (int, error) {
	return m.count, nil
}

type mockCache struct {
	store map[string][]byte
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.store == nil {
		m.store = make(map[string][]byte)
	}
	m.store[key] = raw
	return nil
}

func (m *mockCache) DeleteByPattern(ctx context.Context, pattern string) error {
	delete(m.store, pattern)
	return nil
}

func newCycleService(repo *mockCycleRepo, counter *mockCounter, cache *mockCache) *CycleService {
	return NewCycleService(repo, counter, cache, nil, nil, nil, time.Minute)
}

func TestCreateCycleDistributesSeatsEvenly(t *testing.T) {
	repo := &mockCycleRepo{}
	svc := newCycleService(repo, &mockCounter{}, &mockCache{})

	req := dto.CreateCycleRequest{
		BatchID:          "batch-2026",
		DeptID:           "dept-cse",
		SemesterID:       "sem-5",
		ExpectedStudents: 120,
		Subjects: []dto.CreateSubjectRequest{
			{
				CourseID: "course-1", CourseCode: "CS501", CourseTitle: "Distributed Systems",
				Sections: []dto.CreateSectionRequest{
					{SectionID: "sec-a", StaffID: "staff-1"},
					{SectionID: "sec-b", StaffID: "staff-2"},
				},
			},
			{
				CourseID: "course-2", CourseCode: "CS502", CourseTitle: "Compilers",
				ExpectedStudents: 7,
				Sections: []dto.CreateSectionRequest{
					{SectionID: "sec-a", StaffID: "staff-3"},
					{SectionID: "sec-b", StaffID: "staff-4"},
					{SectionID: "sec-c", StaffID: "staff-5"},
				},
			},
		},
	}

	detail, err := svc.Create(context.Background(), req, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "cycle-new", detail.ID)
	assert.True(t, repo.created.Active)

	// 120 over two sections splits clean
	assert.Equal(t, 60, repo.createdSubs[0].Sections[0].MaxCapacity)
	assert.Equal(t, 60, repo.createdSubs[0].Sections[1].MaxCapacity)

	// 7 over three sections: remainder seats go to the earliest sections
	assert.Equal(t, 3, repo.createdSubs[1].Sections[0].MaxCapacity)
	assert.Equal(t, 2, repo.createdSubs[1].Sections[1].MaxCapacity)
	assert.Equal(t, 2, repo.createdSubs[1].Sections[2].MaxCapacity)
}

func TestCreateCycleRequiresSubjects(t *testing.T) {
	svc := newCycleService(&mockCycleRepo{}, &mockCounter{}, &mockCache{})

	_, err := svc.Create(context.Background(), dto.CreateCycleRequest{BatchID: "b", DeptID: "d", SemesterID: "s"}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGetCycleNotFound(t *testing.T) {
	svc := newCycleService(&mockCycleRepo{}, &mockCounter{}, &mockCache{})

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestActiveSelectionCachesView(t *testing.T) {
	detail := &models.CycleDetail{
		CBCSCycle: models.CBCSCycle{ID: "cycle-1", BatchID: "batch-2026", DeptID: "dept-cse", SemesterID: "sem-5", Active: true},
		Subjects: []models.SubjectDetail{{
			ElectiveSubject: models.ElectiveSubject{CourseID: "course-1", CourseCode: "CS501"},
			Sections:        []models.SectionCapacity{{SectionID: "sec-a", StaffID: "staff-1", MaxCapacity: 60}},
		}},
	}
	repo := &mockCycleRepo{
		active:  &detail.CBCSCycle,
		details: map[string]*models.CycleDetail{"cycle-1": detail},
	}
	cache := &mockCache{}
	svc := newCycleService(repo, &mockCounter{}, cache)

	first, err := svc.ActiveSelection(context.Background(), "batch-2026", "dept-cse", "sem-5")
	require.NoError(t, err)
	assert.Equal(t, "cycle-1", first.ID)
	assert.Equal(t, 1, repo.detailRequests)

	second, err := svc.ActiveSelection(context.Background(), "batch-2026", "dept-cse", "sem-5")
	require.NoError(t, err)
	assert.Equal(t, "cycle-1", second.ID)
	assert.Equal(t, 1, repo.detailRequests, "second read must come from cache")
}

func TestActiveSelectionNoActiveCycle(t *testing.T) {
	svc := newCycleService(&mockCycleRepo{}, &mockCounter{}, &mockCache{})

	_, err := svc.ActiveSelection(context.Background(), "batch-2026", "dept-cse", "sem-5")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestProgressReportsSubmissionState(t *testing.T) {
	repo := &mockCycleRepo{cycles: map[string]*models.CBCSCycle{
		"cycle-1": {ID: "cycle-1", ExpectedStudents: 120},
	}}
	svc := newCycleService(repo, &mockCounter{count: 45}, &mockCache{})

	progress, err := svc.Progress(context.Background(), "cycle-1")
	require.NoError(t, err)
	assert.Equal(t, 45, progress.Submitted)
	assert.Equal(t, 120, progress.Expected)
	assert.False(t, progress.Complete)
}
