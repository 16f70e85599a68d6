package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/college-cbcs-api/internal/dto"
	"github.com/noah-isme/college-cbcs-api/internal/models"
	appErrors "github.com/noah-isme/college-cbcs-api/pkg/errors"
	"github.com/noah-isme/college-cbcs-api/pkg/export"
)

type rosterCycleRepository interface {
	FindDetailByID(ctx context.Context, id string) (*models.CycleDetail, error)
}

type enrollmentReader interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.FinalEnrollment, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// RosterService reads finalized allocations grouped by course and section,
// and renders downloadable exports.
type RosterService struct {
	cycles      rosterCycleRepository
	enrollments enrollmentReader
	csv         csvRenderer
	pdf         pdfRenderer
	logger      *zap.Logger
}

// NewRosterService constructs a RosterService.
func NewRosterService(cycles rosterCycleRepository, enrollments enrollmentReader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &RosterService{cycles: cycles, enrollments: enrollments, csv: csv, pdf: pdf, logger: logger}
}

// Allocations returns the cycle's final rosters, courses and sections in
// registry order.
func (s *RosterService) Allocations(ctx context.Context, cycleID string) (*dto.CycleAllocations, error) {
	detail, err := s.cycles.FindDetailByID(ctx, cycleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cycle not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cycle")
	}

	result := &dto.CycleAllocations{CycleID: detail.ID, Complete: detail.Complete}
	for _, subject := range detail.Subjects {
		enrollments, err := s.enrollments.ListByCourse(ctx, subject.CourseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
		}

		roster := models.CourseRoster{
			CourseID:    subject.CourseID,
			CourseCode:  subject.CourseCode,
			CourseTitle: subject.CourseTitle,
			Sections:    make([]models.SectionRoster, len(subject.Sections)),
		}
		index := make(map[string]int, len(subject.Sections))
		for i, sec := range subject.Sections {
			roster.Sections[i] = models.SectionRoster{SectionID: sec.SectionID, StaffID: sec.StaffID, Capacity: sec.MaxCapacity}
			index[sec.SectionID] = i
		}
		for _, e := range enrollments {
			i, ok := index[e.SectionID]
			if !ok {
				s.logger.Warn("enrollment references unknown section",
					zap.String("course_id", subject.CourseID),
					zap.String("section_id", e.SectionID))
				continue
			}
			roster.Sections[i].Students = append(roster.Sections[i].Students, e.StudentID)
		}
		result.Courses = append(result.Courses, roster)
	}
	return result, nil
}

// Export renders the cycle's rosters as CSV or PDF. It returns the payload,
// content type and suggested filename.
func (s *RosterService) Export(ctx context.Context, cycleID, format string) ([]byte, string, string, error) {
	allocations, err := s.Allocations(ctx, cycleID)
	if err != nil {
		return nil, "", "", err
	}

	headers := []string{"Course Code", "Course Title", "Section", "Staff", "Student"}
	dataset := export.Dataset{Headers: headers}
	for _, course := range allocations.Courses {
		for _, section := range course.Sections {
			for _, student := range section.Students {
				dataset.Rows = append(dataset.Rows, map[string]string{
					"Course Code":  course.CourseCode,
					"Course Title": course.CourseTitle,
					"Section":      section.SectionID,
					"Staff":        section.StaffID,
					"Student":      student,
				})
			}
		}
	}

	switch format {
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", fmt.Sprintf("allocations-%s.csv", cycleID), nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, "Elective Allocations")
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", fmt.Sprintf("allocations-%s.pdf", cycleID), nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}
