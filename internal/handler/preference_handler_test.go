package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-cbcs-api/internal/dto"
	"github.com/noah-isme/college-cbcs-api/internal/middleware"
	"github.com/noah-isme/college-cbcs-api/internal/models"
	"github.com/noah-isme/college-cbcs-api/internal/service"
	"github.com/noah-isme/college-cbcs-api/pkg/jobs"
	"github.com/noah-isme/college-cbcs-api/pkg/locks"
)

type fakeCycleDetailRepo struct {
	detail *models.CycleDetail
}

func (f *fakeCycleDetailRepo) FindDetailByID(ctx context.Context, id string) (*models.CycleDetail, error) {
	if f.detail == nil || f.detail.ID != id {
		return nil, sql.ErrNoRows
	}
	return f.detail, nil
}

type fakePrefRepo struct {
	created []models.StudentPreference
}

func (f *fakePrefRepo) HasSubmission(ctx context.Context, studentID, cycleID string) (bool, error) {
	return false, nil
}

func (f *fakePrefRepo) CreateBatch(ctx context.Context, prefs []models.StudentPreference) error {
	f.created = append(f.created, prefs...)
	return nil
}

func (f *fakePrefRepo) CountDistinctStudents(ctx context.Context, cycleID string) (int, error) {
	return len(f.created), nil
}

type fakeQueue struct{}

func (f *fakeQueue) Enqueue(job jobs.Job) error { return nil }

func newPreferenceHandler(prefs *fakePrefRepo) *PreferenceHandler {
	detail := &models.CycleDetail{
		CBCSCycle: models.CBCSCycle{ID: "cycle-1", ExpectedStudents: 10},
		Subjects: []models.SubjectDetail{{
			ElectiveSubject: models.ElectiveSubject{CourseID: "course-1", CourseCode: "CS501"},
			Sections:        []models.SectionCapacity{{SectionID: "sec-a", StaffID: "staff-1", MaxCapacity: 60}},
		}},
	}
	svc := service.NewSubmissionService(&fakeCycleDetailRepo{detail: detail}, prefs, locks.NewRegistry(), &fakeQueue{}, nil, nil, nil, service.SubmissionConfig{LockWait: time.Second})
	return NewPreferenceHandler(svc)
}

func submitRequest(t *testing.T, handler *PreferenceHandler, claims *models.JWTClaims, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/cbcs/preferences", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}

	handler.Submit(c)
	return rec
}

func TestPreferenceHandlerSubmitSuccess(t *testing.T) {
	prefs := &fakePrefRepo{}
	handler := newPreferenceHandler(prefs)

	req := dto.SubmitPreferencesRequest{
		StudentID:  "stu-1",
		CycleID:    "cycle-1",
		Selections: []dto.SelectionRequest{{CourseID: "course-1", SectionID: "sec-a", StaffID: "staff-1"}},
	}
	claims := &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}

	rec := submitRequest(t, handler, claims, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, prefs.created, 1)
}

func TestPreferenceHandlerStudentCannotSubmitForOthers(t *testing.T) {
	prefs := &fakePrefRepo{}
	handler := newPreferenceHandler(prefs)

	req := dto.SubmitPreferencesRequest{
		StudentID:  "stu-2",
		CycleID:    "cycle-1",
		Selections: []dto.SelectionRequest{{CourseID: "course-1", SectionID: "sec-a", StaffID: "staff-1"}},
	}
	claims := &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}

	rec := submitRequest(t, handler, claims, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, prefs.created)
}

func TestPreferenceHandlerAdminMaySubmitOnBehalf(t *testing.T) {
	prefs := &fakePrefRepo{}
	handler := newPreferenceHandler(prefs)

	req := dto.SubmitPreferencesRequest{
		StudentID:  "stu-2",
		CycleID:    "cycle-1",
		Selections: []dto.SelectionRequest{{CourseID: "course-1", SectionID: "sec-a", StaffID: "staff-1"}},
	}
	claims := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}

	rec := submitRequest(t, handler, claims, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestPreferenceHandlerRejectsMalformedBody(t *testing.T) {
	handler := newPreferenceHandler(&fakePrefRepo{})

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/cbcs/preferences", bytes.NewReader([]byte("{broken")))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Submit(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
