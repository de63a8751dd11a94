package models

import "time"

// MarkingPeriodType distinguishes the grading calendar granularity.
type MarkingPeriodType string

const (
	PeriodFullYear MarkingPeriodType = "FULL_YEAR"
	PeriodSemester MarkingPeriodType = "SEMESTER"
	PeriodQuarter  MarkingPeriodType = "QUARTER"
	PeriodProgress MarkingPeriodType = "PROGRESS"
)

// MarkingPeriod is one slice of a year's grading calendar.
type MarkingPeriod struct {
	ID             string            `db:"id" json:"id"`
	SchoolID       string            `db:"school_id" json:"school_id"`
	AcademicYearID string            `db:"academic_year_id" json:"academic_year_id"`
	Name           string            `db:"name" json:"name"`
	Type           MarkingPeriodType `db:"type" json:"type"`
	SortOrder      int               `db:"sort_order" json:"sort_order"`
	StartDate      time.Time         `db:"start_date" json:"start_date"`
	EndDate        time.Time         `db:"end_date" json:"end_date"`
}

// TeacherAssignment links a teacher to a section for one academic year.
type TeacherAssignment struct {
	ID             string    `db:"id" json:"id"`
	SchoolID       string    `db:"school_id" json:"school_id"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	TeacherID      string    `db:"teacher_id" json:"teacher_id"`
	SectionID      string    `db:"section_id" json:"section_id"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
