package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-cbcs-api/internal/allocation"
	"github.com/noah-isme/college-cbcs-api/internal/models"
)

// ErrNoSections marks a subject with no configured sections at finalization
// time. Capacity configuration is a prerequisite, so this aborts the run.
var ErrNoSections = errors.New("subject has no configured sections")

// AllocationRepository owns the finalization transaction and final
// enrollment reads.
type AllocationRepository struct {
	db *sqlx.DB
}

// NewAllocationRepository constructs the repository.
func NewAllocationRepository(db *sqlx.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

type finalizeSubject struct {
	ID         string `db:"id"`
	CourseID   string `db:"course_id"`
	CourseCode string `db:"course_code"`
}

// FinalizeCycle runs the allocation engine for every subject of the cycle
// inside one transaction: any failure rolls back every subject's writes and
// leaves the cycle pending. Final enrollments are fully replaced per course,
// so re-running with unchanged preferences yields the same end state.
func (r *AllocationRepository) FinalizeCycle(ctx context.Context, cycleID, actorID string, lockTimeout time.Duration) (*models.FinalizeResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin finalize: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// The run touches many rows across subjects; give it more headroom than
	// the per-request default.
	if lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("extend lock timeout: %w", err)
		}
	}

	var cycle models.CBCSCycle
	const cycleQuery = `SELECT id, batch_id, dept_id, semester_id, expected_students, allocation_type, complete, active, created_by, created_at, updated_by, updated_at FROM cbcs_cycles WHERE id = $1`
	if err := tx.GetContext(ctx, &cycle, cycleQuery, cycleID); err != nil {
		return nil, err
	}

	var subjects []finalizeSubject
	const subjectsQuery = `SELECT id, course_id, course_code FROM elective_subjects WHERE cycle_id = $1 ORDER BY position ASC`
	if err := tx.SelectContext(ctx, &subjects, subjectsQuery, cycleID); err != nil {
		return nil, fmt.Errorf("load cycle subjects: %w", err)
	}

	now := time.Now().UTC()
	result := &models.FinalizeResult{CycleID: cycleID, FinalizedBy: actorID, FinalizedAt: now}

	for _, subject := range subjects {
		summary, err := r.finalizeSubject(ctx, tx, cycleID, subject, actorID, now)
		if err != nil {
			return nil, err
		}
		result.Courses = append(result.Courses, *summary)
	}

	const completeQuery = `UPDATE cbcs_cycles SET complete = TRUE, updated_by = $2, updated_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, completeQuery, cycleID, actorID, now); err != nil {
		return nil, fmt.Errorf("mark cycle complete: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit finalize: %w", err)
	}
	return result, nil
}

func (r *AllocationRepository) finalizeSubject(ctx context.Context, tx *sqlx.Tx, cycleID string, subject finalizeSubject, actorID string, now time.Time) (*models.CourseAllocationSummary, error) {
	summary := &models.CourseAllocationSummary{CourseID: subject.CourseID, CourseCode: subject.CourseCode}

	var sections []models.SectionCapacity
	const sectionsQuery = `SELECT id, subject_id, section_id, staff_id, max_capacity, position FROM section_capacities WHERE subject_id = $1 ORDER BY position ASC`
	if err := tx.SelectContext(ctx, &sections, sectionsQuery, subject.ID); err != nil {
		return nil, fmt.Errorf("load sections for course %s: %w", subject.CourseID, err)
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("course %s: %w", subject.CourseID, ErrNoSections)
	}

	var prefs []models.StudentPreference
	const prefsQuery = `SELECT id, student_id, cycle_id, course_id, section_id, staff_id, rank, created_at
        FROM student_preferences WHERE cycle_id = $1 AND course_id = $2
        ORDER BY rank ASC, created_at ASC, id ASC`
	if err := tx.SelectContext(ctx, &prefs, prefsQuery, cycleID, subject.CourseID); err != nil {
		return nil, fmt.Errorf("load preferences for course %s: %w", subject.CourseID, err)
	}
	if len(prefs) == 0 {
		summary.Skipped = true
		return summary, nil
	}

	// full replace, never an incremental merge
	const deleteQuery = `DELETE FROM final_enrollments WHERE course_id = $1`
	if _, err := tx.ExecContext(ctx, deleteQuery, subject.CourseID); err != nil {
		return nil, fmt.Errorf("clear enrollments for course %s: %w", subject.CourseID, err)
	}

	engineSections := make([]allocation.Section, len(sections))
	for i, s := range sections {
		engineSections[i] = allocation.Section{SectionID: s.SectionID, StaffID: s.StaffID, Capacity: s.MaxCapacity}
	}
	enginePrefs := make([]allocation.Preference, len(prefs))
	for i, p := range prefs {
		enginePrefs[i] = allocation.Preference{StudentID: p.StudentID, SectionID: p.SectionID, StaffID: p.StaffID, Rank: p.Rank}
	}

	outcome := allocation.Allocate(enginePrefs, engineSections)

	const insertQuery = `INSERT INTO final_enrollments (id, student_id, course_id, section_id, created_by, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	for _, assignment := range outcome.Assignments {
		if _, err := tx.ExecContext(ctx, insertQuery, uuid.NewString(), assignment.StudentID, subject.CourseID, assignment.SectionID, actorID, now); err != nil {
			return nil, fmt.Errorf("insert enrollment for course %s: %w", subject.CourseID, err)
		}
	}

	summary.Assigned = len(outcome.Assignments)
	summary.Unassigned = outcome.Unassigned
	return summary, nil
}

// ListByCourse returns the final enrollments of one course.
func (r *AllocationRepository) ListByCourse(ctx context.Context, courseID string) ([]models.FinalEnrollment, error) {
	const query = `SELECT id, student_id, course_id, section_id, created_by, created_at
        FROM final_enrollments WHERE course_id = $1 ORDER BY section_id ASC, student_id ASC`
	var enrollments []models.FinalEnrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, courseID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}
