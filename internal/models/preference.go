package models

import "time"

// StudentPreference is one ranked (course, section, staff) choice submitted
// by a student for a cycle. Rows are write-once: a student with any row for
// a cycle cannot submit again.
type StudentPreference struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	CycleID   string    `db:"cycle_id" json:"cycle_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	SectionID string    `db:"section_id" json:"section_id"`
	StaffID   string    `db:"staff_id" json:"staff_id"`
	Rank      int       `db:"rank" json:"rank"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
