package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func expectFinalizeCycleHeader(mock sqlmock.Sqlmock, cycleID string) {
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET LOCAL lock_timeout")).WillReturnResult(sqlmock.NewResult(0, 0))

	cycleRows := sqlmock.NewRows([]string{"id", "batch_id", "dept_id", "semester_id", "expected_students", "allocation_type", "complete", "active", "created_by", "created_at", "updated_by", "updated_at"}).
		AddRow(cycleID, "batch-2026", "dept-cse", "sem-5", 4, "PREFERENCE", false, true, "admin-1", time.Now(), nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM cbcs_cycles WHERE id = $1")).WithArgs(cycleID).WillReturnRows(cycleRows)
}

func TestAllocationRepositoryFinalizeCycleWorkedExample(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	expectFinalizeCycleHeader(mock, "cycle-1")

	subjectRows := sqlmock.NewRows([]string{"id", "course_id", "course_code"}).
		AddRow("subj-1", "course-1", "CS501")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, course_code FROM elective_subjects WHERE cycle_id = $1 ORDER BY position ASC")).
		WithArgs("cycle-1").WillReturnRows(subjectRows)

	// A(cap 2), B(cap 1); S1→A, S2→A, S3→A, S4→B.
	sectionRows := sqlmock.NewRows([]string{"id", "subject_id", "section_id", "staff_id", "max_capacity", "position"}).
		AddRow("cap-1", "subj-1", "sec-a", "staff-1", 2, 0).
		AddRow("cap-2", "subj-1", "sec-b", "staff-2", 1, 1)
	mock.ExpectQuery(regexp.QuoteMeta("FROM section_capacities WHERE subject_id = $1 ORDER BY position ASC")).
		WithArgs("subj-1").WillReturnRows(sectionRows)

	now := time.Now()
	prefRows := sqlmock.NewRows([]string{"id", "student_id", "cycle_id", "course_id", "section_id", "staff_id", "rank", "created_at"}).
		AddRow("p1", "s1", "cycle-1", "course-1", "sec-a", "staff-1", 1, now).
		AddRow("p2", "s2", "cycle-1", "course-1", "sec-a", "staff-1", 1, now).
		AddRow("p3", "s3", "cycle-1", "course-1", "sec-a", "staff-1", 1, now).
		AddRow("p4", "s4", "cycle-1", "course-1", "sec-b", "staff-2", 1, now)
	mock.ExpectQuery(`(?s)FROM student_preferences WHERE cycle_id = \$1 AND course_id = \$2`).
		WithArgs("cycle-1", "course-1").WillReturnRows(prefRows)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM final_enrollments WHERE course_id = $1")).
		WithArgs("course-1").WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO final_enrollments")).
		WithArgs(sqlmock.AnyArg(), "s1", "course-1", "sec-a", "admin-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO final_enrollments")).
		WithArgs(sqlmock.AnyArg(), "s2", "course-1", "sec-a", "admin-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO final_enrollments")).
		WithArgs(sqlmock.AnyArg(), "s3", "course-1", "sec-b", "admin-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE cbcs_cycles SET complete = TRUE")).
		WithArgs("cycle-1", "admin-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.FinalizeCycle(context.Background(), "cycle-1", "admin-1", 2*time.Minute)
	require.NoError(t, err)
	require.Len(t, result.Courses, 1)
	require.Equal(t, 3, result.Courses[0].Assigned)
	require.Equal(t, []string{"s4"}, result.Courses[0].Unassigned)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryFinalizeCycleSkipsCourseWithoutPreferences(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	expectFinalizeCycleHeader(mock, "cycle-1")

	subjectRows := sqlmock.NewRows([]string{"id", "course_id", "course_code"}).
		AddRow("subj-1", "course-1", "CS501")
	mock.ExpectQuery(regexp.QuoteMeta("FROM elective_subjects WHERE cycle_id = $1 ORDER BY position ASC")).
		WithArgs("cycle-1").WillReturnRows(subjectRows)

	sectionRows := sqlmock.NewRows([]string{"id", "subject_id", "section_id", "staff_id", "max_capacity", "position"}).
		AddRow("cap-1", "subj-1", "sec-a", "staff-1", 2, 0)
	mock.ExpectQuery(regexp.QuoteMeta("FROM section_capacities WHERE subject_id = $1 ORDER BY position ASC")).
		WithArgs("subj-1").WillReturnRows(sectionRows)

	mock.ExpectQuery(`(?s)FROM student_preferences WHERE cycle_id = \$1 AND course_id = \$2`).
		WithArgs("cycle-1", "course-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "cycle_id", "course_id", "section_id", "staff_id", "rank", "created_at"}))

	// no delete, no inserts: the course is skipped entirely
	mock.ExpectExec(regexp.QuoteMeta("UPDATE cbcs_cycles SET complete = TRUE")).
		WithArgs("cycle-1", "admin-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.FinalizeCycle(context.Background(), "cycle-1", "admin-1", time.Minute)
	require.NoError(t, err)
	require.True(t, result.Courses[0].Skipped)
	require.Zero(t, result.Courses[0].Assigned)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryFinalizeCycleFailsWithoutSections(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	expectFinalizeCycleHeader(mock, "cycle-1")

	subjectRows := sqlmock.NewRows([]string{"id", "course_id", "course_code"}).
		AddRow("subj-1", "course-1", "CS501")
	mock.ExpectQuery(regexp.QuoteMeta("FROM elective_subjects WHERE cycle_id = $1 ORDER BY position ASC")).
		WithArgs("cycle-1").WillReturnRows(subjectRows)

	mock.ExpectQuery(regexp.QuoteMeta("FROM section_capacities WHERE subject_id = $1 ORDER BY position ASC")).
		WithArgs("subj-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "subject_id", "section_id", "staff_id", "max_capacity", "position"}))
	mock.ExpectRollback()

	_, err := repo.FinalizeCycle(context.Background(), "cycle-1", "admin-1", time.Minute)
	require.ErrorIs(t, err, ErrNoSections)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryListByCourse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "course_id", "section_id", "created_by", "created_at"}).
		AddRow("fe-1", "s1", "course-1", "sec-a", "admin-1", time.Now()).
		AddRow("fe-2", "s2", "course-1", "sec-a", "admin-1", time.Now())
	mock.ExpectQuery(`(?s)FROM final_enrollments WHERE course_id = \$1 ORDER BY section_id ASC, student_id ASC`).
		WithArgs("course-1").WillReturnRows(rows)

	enrollments, err := repo.ListByCourse(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, enrollments, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}
