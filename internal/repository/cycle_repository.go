package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-cbcs-api/internal/models"
)

// CycleRepository persists CBCS cycles with their subjects and section
// capacities (the capacity registry).
type CycleRepository struct {
	db *sqlx.DB
}

// NewCycleRepository constructs the repository.
func NewCycleRepository(db *sqlx.DB) *CycleRepository {
	return &CycleRepository{db: db}
}

// Create inserts the cycle aggregate in a single transaction. Subject and
// section positions record the administrator-supplied order; capacity reads
// later preserve it.
func (r *CycleRepository) Create(ctx context.Context, cycle *models.CBCSCycle, subjects []models.SubjectDetail) error {
	if cycle.ID == "" {
		cycle.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if cycle.CreatedAt.IsZero() {
		cycle.CreatedAt = now
	}
	cycle.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create cycle: %w", err)
	}

	const cycleQuery = `INSERT INTO cbcs_cycles (id, batch_id, dept_id, semester_id, expected_students, allocation_type, complete, active, created_by, created_at, updated_by, updated_at)
        VALUES (:id, :batch_id, :dept_id, :semester_id, :expected_students, :allocation_type, :complete, :active, :created_by, :created_at, :updated_by, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, cycleQuery, cycle); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert cycle: %w", err)
	}

	const subjectQuery = `INSERT INTO elective_subjects (id, cycle_id, course_id, course_code, course_title, bucket_name, credits, position)
        VALUES (:id, :cycle_id, :course_id, :course_code, :course_title, :bucket_name, :credits, :position)`
	const sectionQuery = `INSERT INTO section_capacities (id, subject_id, section_id, staff_id, max_capacity, position)
        VALUES (:id, :subject_id, :section_id, :staff_id, :max_capacity, :position)`

	for i := range subjects {
		subject := &subjects[i]
		if subject.ID == "" {
			subject.ID = uuid.NewString()
		}
		subject.CycleID = cycle.ID
		subject.Position = i
		if _, err := tx.NamedExecContext(ctx, subjectQuery, subject.ElectiveSubject); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("insert subject %s: %w", subject.CourseID, err)
		}
		for j := range subject.Sections {
			section := &subject.Sections[j]
			if section.ID == "" {
				section.ID = uuid.NewString()
			}
			section.SubjectID = subject.ID
			section.Position = j
			if _, err := tx.NamedExecContext(ctx, sectionQuery, section); err != nil {
				tx.Rollback() //nolint:errcheck
				return fmt.Errorf("insert section %s for subject %s: %w", section.SectionID, subject.CourseID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create cycle: %w", err)
	}
	return nil
}

// List returns cycles filtered by the provided criteria, newest first.
func (r *CycleRepository) List(ctx context.Context, filter models.CycleFilter) ([]models.CBCSCycle, int, error) {
	base := "FROM cbcs_cycles"
	var conditions []string
	var args []interface{}

	if filter.BatchID != "" {
		conditions = append(conditions, fmt.Sprintf("batch_id = $%d", len(args)+1))
		args = append(args, filter.BatchID)
	}
	if filter.DeptID != "" {
		conditions = append(conditions, fmt.Sprintf("dept_id = $%d", len(args)+1))
		args = append(args, filter.DeptID)
	}
	if filter.SemesterID != "" {
		conditions = append(conditions, fmt.Sprintf("semester_id = $%d", len(args)+1))
		args = append(args, filter.SemesterID)
	}
	if filter.Complete != nil {
		conditions = append(conditions, fmt.Sprintf("complete = $%d", len(args)+1))
		args = append(args, *filter.Complete)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, batch_id, dept_id, semester_id, expected_students, allocation_type, complete, active, created_by, created_at, updated_by, updated_at
        %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var cycles []models.CBCSCycle
	if err := r.db.SelectContext(ctx, &cycles, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list cycles: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count cycles: %w", err)
	}
	return cycles, total, nil
}

// FindByID returns a cycle by its ID.
func (r *CycleRepository) FindByID(ctx context.Context, id string) (*models.CBCSCycle, error) {
	const query = `SELECT id, batch_id, dept_id, semester_id, expected_students, allocation_type, complete, active, created_by, created_at, updated_by, updated_at FROM cbcs_cycles WHERE id = $1`
	var cycle models.CBCSCycle
	if err := r.db.GetContext(ctx, &cycle, query, id); err != nil {
		return nil, err
	}
	return &cycle, nil
}

// FindDetailByID returns a cycle with its full capacity registry.
func (r *CycleRepository) FindDetailByID(ctx context.Context, id string) (*models.CycleDetail, error) {
	cycle, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &models.CycleDetail{CBCSCycle: *cycle}

	const subjectQuery = `SELECT id, cycle_id, course_id, course_code, course_title, bucket_name, credits, position FROM elective_subjects WHERE cycle_id = $1 ORDER BY position ASC`
	var subjects []models.ElectiveSubject
	if err := r.db.SelectContext(ctx, &subjects, subjectQuery, id); err != nil {
		return nil, fmt.Errorf("list cycle subjects: %w", err)
	}

	const sectionQuery = `SELECT id, subject_id, section_id, staff_id, max_capacity, position FROM section_capacities WHERE subject_id = $1 ORDER BY position ASC`
	for _, subject := range subjects {
		var sections []models.SectionCapacity
		if err := r.db.SelectContext(ctx, &sections, sectionQuery, subject.ID); err != nil {
			return nil, fmt.Errorf("list subject sections: %w", err)
		}
		detail.Subjects = append(detail.Subjects, models.SubjectDetail{ElectiveSubject: subject, Sections: sections})
	}
	return detail, nil
}

// FindActive returns the active cycle for a (batch, dept, semester) scope.
func (r *CycleRepository) FindActive(ctx context.Context, batchID, deptID, semesterID string) (*models.CBCSCycle, error) {
	const query = `SELECT id, batch_id, dept_id, semester_id, expected_students, allocation_type, complete, active, created_by, created_at, updated_by, updated_at
        FROM cbcs_cycles WHERE batch_id = $1 AND dept_id = $2 AND semester_id = $3 AND active = TRUE
        ORDER BY created_at DESC LIMIT 1`
	var cycle models.CBCSCycle
	if err := r.db.GetContext(ctx, &cycle, query, batchID, deptID, semesterID); err != nil {
		return nil, err
	}
	return &cycle, nil
}
