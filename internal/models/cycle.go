package models

import "time"

// CBCSCycle is one elective-allocation round for a (batch, department,
// semester). It is the root aggregate: subjects, capacities, preferences and
// final enrollments all hang off it.
type CBCSCycle struct {
	ID               string    `db:"id" json:"id"`
	BatchID          string    `db:"batch_id" json:"batch_id"`
	DeptID           string    `db:"dept_id" json:"dept_id"`
	SemesterID       string    `db:"semester_id" json:"semester_id"`
	ExpectedStudents int       `db:"expected_students" json:"expected_students"`
	AllocationType   string    `db:"allocation_type" json:"allocation_type"`
	Complete         bool      `db:"complete" json:"complete"`
	Active           bool      `db:"active" json:"active"`
	CreatedBy        string    `db:"created_by" json:"created_by"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedBy        *string   `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// ElectiveSubject is one elective course offered within a cycle.
type ElectiveSubject struct {
	ID          string `db:"id" json:"id"`
	CycleID     string `db:"cycle_id" json:"cycle_id"`
	CourseID    string `db:"course_id" json:"course_id"`
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseTitle string `db:"course_title" json:"course_title"`
	BucketName  string `db:"bucket_name" json:"bucket_name"`
	Credits     int    `db:"credits" json:"credits"`
	Position    int    `db:"position" json:"-"`
}

// SectionCapacity maps a (subject, section, staff) triple to a seat budget.
// Position preserves administrator-supplied ordering; the allocation engine
// depends on it for deterministic tie-breaking.
type SectionCapacity struct {
	ID          string `db:"id" json:"id"`
	SubjectID   string `db:"subject_id" json:"subject_id"`
	SectionID   string `db:"section_id" json:"section_id"`
	StaffID     string `db:"staff_id" json:"staff_id"`
	MaxCapacity int    `db:"max_capacity" json:"max_capacity"`
	Position    int    `db:"position" json:"-"`
}

// SubjectDetail embeds the configured sections of a subject.
type SubjectDetail struct {
	ElectiveSubject
	Sections []SectionCapacity `json:"sections"`
}

// CycleDetail is a cycle with its full capacity registry.
type CycleDetail struct {
	CBCSCycle
	Subjects []SubjectDetail `json:"subjects"`
}

// CycleFilter provides filters for listing cycles.
type CycleFilter struct {
	BatchID    string
	DeptID     string
	SemesterID string
	Complete   *bool
	Page       int
	PageSize   int
}

// CycleProgress reports submission completeness for a cycle.
type CycleProgress struct {
	CycleID   string `json:"cycle_id"`
	Submitted int    `json:"submitted"`
	Expected  int    `json:"expected"`
	Complete  bool   `json:"complete"`
}
