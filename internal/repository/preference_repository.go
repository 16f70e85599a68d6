package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-cbcs-api/internal/models"
)

// PreferenceRepository persists students' ranked elective choices.
type PreferenceRepository struct {
	db *sqlx.DB
}

// NewPreferenceRepository constructs the repository.
func NewPreferenceRepository(db *sqlx.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// HasSubmission reports whether the student already has any preference row
// for the cycle. Submissions are write-once.
func (r *PreferenceRepository) HasSubmission(ctx context.Context, studentID, cycleID string) (bool, error) {
	const query = `SELECT 1 FROM student_preferences WHERE student_id = $1 AND cycle_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, cycleID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check submission: %w", err)
	}
	return true, nil
}

// CreateBatch inserts the full ranked choice list in a single transaction,
// preserving the caller-supplied rank order. Any failure rolls the whole
// batch back.
func (r *PreferenceRepository) CreateBatch(ctx context.Context, prefs []models.StudentPreference) error {
	if len(prefs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin preference batch: %w", err)
	}
	const query = `INSERT INTO student_preferences (id, student_id, cycle_id, course_id, section_id, staff_id, rank, created_at)
        VALUES (:id, :student_id, :cycle_id, :course_id, :section_id, :staff_id, :rank, :created_at)`
	now := time.Now().UTC()
	for i := range prefs {
		if prefs[i].ID == "" {
			prefs[i].ID = uuid.NewString()
		}
		if prefs[i].CreatedAt.IsZero() {
			prefs[i].CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, query, prefs[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("insert preference rank %d: %w", prefs[i].Rank, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit preference batch: %w", err)
	}
	return nil
}

// CountDistinctStudents counts students with at least one preference row for
// the cycle; the completion tracker compares it against the expected total.
func (r *PreferenceRepository) CountDistinctStudents(ctx context.Context, cycleID string) (int, error) {
	const query = `SELECT COUNT(DISTINCT student_id) FROM student_preferences WHERE cycle_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, cycleID); err != nil {
		return 0, fmt.Errorf("count submitters: %w", err)
	}
	return count, nil
}

// ListByCourse returns the cycle's preferences for one course in rank order.
// The ordering is load-bearing: the allocation engine's determinism depends
// on it.
func (r *PreferenceRepository) ListByCourse(ctx context.Context, cycleID, courseID string) ([]models.StudentPreference, error) {
	const query = `SELECT id, student_id, cycle_id, course_id, section_id, staff_id, rank, created_at
        FROM student_preferences WHERE cycle_id = $1 AND course_id = $2
        ORDER BY rank ASC, created_at ASC, id ASC`
	var prefs []models.StudentPreference
	if err := r.db.SelectContext(ctx, &prefs, query, cycleID, courseID); err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	return prefs, nil
}
