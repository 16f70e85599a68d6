package dto

import "github.com/noah-isme/college-cbcs-api/internal/models"

// CreateSectionRequest defines one section/staff pairing for a subject.
type CreateSectionRequest struct {
	SectionID string `json:"section_id" validate:"required"`
	StaffID   string `json:"staff_id" validate:"required"`
}

// CreateSubjectRequest defines one elective subject within a cycle.
type CreateSubjectRequest struct {
	CourseID         string                 `json:"course_id" validate:"required"`
	CourseCode       string                 `json:"course_code" validate:"required"`
	CourseTitle      string                 `json:"course_title" validate:"required"`
	BucketName       string                 `json:"bucket_name"`
	Credits          int                    `json:"credits" validate:"gte=0"`
	ExpectedStudents int                    `json:"expected_students" validate:"gte=0"`
	Sections         []CreateSectionRequest `json:"sections" validate:"required,min=1,dive"`
}

// CreateCycleRequest defines a new CBCS cycle with its capacity registry.
type CreateCycleRequest struct {
	BatchID          string                 `json:"batch_id" validate:"required"`
	DeptID           string                 `json:"dept_id" validate:"required"`
	SemesterID       string                 `json:"semester_id" validate:"required"`
	ExpectedStudents int                    `json:"expected_students" validate:"gte=0"`
	AllocationType   string                 `json:"allocation_type"`
	Subjects         []CreateSubjectRequest `json:"subjects" validate:"required,min=1,dive"`
}

// SelectionRequest is one ranked choice in a preference submission. Rank is
// implied by position in the submitted list.
type SelectionRequest struct {
	CourseID  string `json:"course_id" validate:"required"`
	SectionID string `json:"section_id" validate:"required"`
	StaffID   string `json:"staff_id" validate:"required"`
}

// SubmitPreferencesRequest is a student's one-time ranked submission for a
// cycle. The whole batch is accepted or rejected as a unit.
type SubmitPreferencesRequest struct {
	StudentID  string             `json:"student_id" validate:"required"`
	CycleID    string             `json:"cycle_id" validate:"required"`
	Selections []SelectionRequest `json:"selections" validate:"required,min=1,dive"`
}

// SubmitPreferencesResponse acknowledges an accepted submission.
type SubmitPreferencesResponse struct {
	StudentID string `json:"student_id"`
	CycleID   string `json:"cycle_id"`
	Choices   int    `json:"choices"`
	Message   string `json:"message"`
}

// CycleAllocations is the full post-finalization roster of a cycle.
type CycleAllocations struct {
	CycleID  string                `json:"cycle_id"`
	Complete bool                  `json:"complete"`
	Courses  []models.CourseRoster `json:"courses"`
}
