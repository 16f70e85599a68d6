package models

import "time"

// FinalEnrollment is the authoritative student→section assignment for a
// course, produced only by finalization. Rows for a course are fully
// replaced on each run.
type FinalEnrollment struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	SectionID string    `db:"section_id" json:"section_id"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CourseAllocationSummary describes the outcome of allocating one course.
type CourseAllocationSummary struct {
	CourseID   string   `json:"course_id"`
	CourseCode string   `json:"course_code"`
	Assigned   int      `json:"assigned"`
	Unassigned []string `json:"unassigned,omitempty"`
	Skipped    bool     `json:"skipped"`
}

// FinalizeResult summarises a completed finalization run.
type FinalizeResult struct {
	CycleID     string                    `json:"cycle_id"`
	FinalizedBy string                    `json:"finalized_by"`
	FinalizedAt time.Time                 `json:"finalized_at"`
	Courses     []CourseAllocationSummary `json:"courses"`
}

// SectionRoster groups assigned students under a section of a course.
type SectionRoster struct {
	SectionID string   `json:"section_id"`
	StaffID   string   `json:"staff_id"`
	Capacity  int      `json:"capacity"`
	Students  []string `json:"students"`
}

// CourseRoster is the final allocation of one course, grouped by section.
type CourseRoster struct {
	CourseID    string          `json:"course_id"`
	CourseCode  string          `json:"course_code"`
	CourseTitle string          `json:"course_title"`
	Sections    []SectionRoster `json:"sections"`
}
