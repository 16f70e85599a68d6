package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-cbcs-api/internal/models"
	appErrors "github.com/noah-isme/college-cbcs-api/pkg/errors"
)

type mockEnrollmentReader struct {
	byCourse map[string][]models.FinalEnrollment
}

func (m *mockEnrollmentReader) ListByCourse(ctx context.Context, courseID string) ([]models.FinalEnrollment, error) {
	return m.byCourse[courseID], nil
}

func rosterFixture() (*mockCycleRepo, *mockEnrollmentReader) {
	detail := &models.CycleDetail{
		CBCSCycle: models.CBCSCycle{ID: "cycle-1", Complete: true},
		Subjects: []models.SubjectDetail{{
			ElectiveSubject: models.ElectiveSubject{CourseID: "course-1", CourseCode: "CS501", CourseTitle: "Distributed Systems"},
			Sections: []models.SectionCapacity{
				{SectionID: "sec-a", StaffID: "staff-1", MaxCapacity: 2},
				{SectionID: "sec-b", StaffID: "staff-2", MaxCapacity: 1},
			},
		}},
	}
	cycles := &mockCycleRepo{details: map[string]*models.CycleDetail{"cycle-1": detail}}
	enrollments := &mockEnrollmentReader{byCourse: map[string][]models.FinalEnrollment{
		"course-1": {
			{StudentID: "s1", CourseID: "course-1", SectionID: "sec-a"},
			{StudentID: "s2", CourseID: "course-1", SectionID: "sec-a"},
			{StudentID: "s3", CourseID: "course-1", SectionID: "sec-b"},
		},
	}}
	return cycles, enrollments
}

func TestAllocationsGroupsBySection(t *testing.T) {
	cycles, enrollments := rosterFixture()
	svc := NewRosterService(cycles, enrollments, nil, nil, nil)

	result, err := svc.Allocations(context.Background(), "cycle-1")
	require.NoError(t, err)
	assert.True(t, result.Complete)
	require.Len(t, result.Courses, 1)

	course := result.Courses[0]
	require.Len(t, course.Sections, 2)
	assert.Equal(t, []string{"s1", "s2"}, course.Sections[0].Students)
	assert.Equal(t, []string{"s3"}, course.Sections[1].Students)
	assert.Equal(t, 2, course.Sections[0].Capacity)
}

func TestAllocationsUnknownCycle(t *testing.T) {
	svc := NewRosterService(&mockCycleRepo{}, &mockEnrollmentReader{}, nil, nil, nil)

	_, err := svc.Allocations(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportCSV(t *testing.T) {
	cycles, enrollments := rosterFixture()
	svc := NewRosterService(cycles, enrollments, nil, nil, nil)

	payload, contentType, filename, err := svc.Export(context.Background(), "cycle-1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Equal(t, "allocations-cycle-1.csv", filename)

	body := string(payload)
	assert.True(t, strings.HasPrefix(body, "Course Code,Course Title,Section,Staff,Student"))
	assert.Contains(t, body, "CS501,Distributed Systems,sec-a,staff-1,s1")
	assert.Contains(t, body, "CS501,Distributed Systems,sec-b,staff-2,s3")
}

func TestExportPDF(t *testing.T) {
	cycles, enrollments := rosterFixture()
	svc := NewRosterService(cycles, enrollments, nil, nil, nil)

	payload, contentType, filename, err := svc.Export(context.Background(), "cycle-1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.Equal(t, "allocations-cycle-1.pdf", filename)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestExportUnsupportedFormat(t *testing.T) {
	cycles, enrollments := rosterFixture()
	svc := NewRosterService(cycles, enrollments, nil, nil, nil)

	_, _, _, err := svc.Export(context.Background(), "cycle-1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
