package dto

import (
	"time"

	"github.com/noah-isme/sis-rollover-api/internal/models"
)

// CreateEnrollmentRequest opens a new enrollment row for a student.
type CreateEnrollmentRequest struct {
	StudentID      string     `json:"student_id" validate:"required"`
	AcademicYearID string     `json:"academic_year_id" validate:"required"`
	SchoolID       string     `json:"school_id" validate:"required"`
	EnrollmentCode string     `json:"enrollment_code" validate:"required"`
	GradeLevelID   *string    `json:"grade_level_id,omitempty"`
	SectionID      *string    `json:"section_id,omitempty"`
	StartDate      *time.Time `json:"start_date,omitempty"`
}

// UpdateEnrollmentRequest patches the still-open enrollment row. Closed rows
// are immutable; history corrections happen by creating new rows.
type UpdateEnrollmentRequest struct {
	GradeLevelID  *string `json:"grade_level_id,omitempty"`
	SectionID     *string `json:"section_id,omitempty"`
	RolloverNotes *string `json:"rollover_notes,omitempty"`
}

// SetStudentRolloverStatusRequest is a manual per-student override. It wins
// unconditionally over the computed outcome until execution.
type SetStudentRolloverStatusRequest struct {
	Status      string  `json:"status" validate:"required"`
	NextGradeID *string `json:"next_grade_id,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// BulkRolloverStatusRequest applies one status to every open enrollment
// matching the filter. An empty filter targets the whole active cohort.
type BulkRolloverStatusRequest struct {
	SchoolID       string                    `json:"school_id" validate:"required"`
	AcademicYearID string                    `json:"academic_year_id" validate:"required"`
	Status         string                    `json:"status" validate:"required"`
	NextGradeID    *string                   `json:"next_grade_id,omitempty"`
	Filters        models.BulkRolloverFilter `json:"filters"`
}

// BulkRolloverStatusResponse reports affected rows.
type BulkRolloverStatusResponse struct {
	UpdatedCount int64 `json:"updated_count"`
}

// CreateAcademicYearRequest registers a new year for a school.
type CreateAcademicYearRequest struct {
	SchoolID  string     `json:"school_id" validate:"required"`
	Name      string     `json:"name" validate:"required"`
	StartDate time.Time  `json:"start_date" validate:"required"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	IsNext    bool       `json:"is_next"`
}
