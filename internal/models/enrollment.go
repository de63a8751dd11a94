package models

import (
	"fmt"
	"strings"
	"time"
)

// EnrollmentCode classifies why an enrollment record was created.
type EnrollmentCode string

// Closed set of enrollment codes; unknown literals are rejected, never coerced.
const (
	CodeAdmission   EnrollmentCode = "ADMISSION"
	CodePromotion   EnrollmentCode = "PROMOTION"
	CodeRetention   EnrollmentCode = "RETENTION"
	CodeTransferIn  EnrollmentCode = "TRANSFER_IN"
	CodeTransferOut EnrollmentCode = "TRANSFER_OUT"
	CodeDrop        EnrollmentCode = "DROP"
	CodeGraduate    EnrollmentCode = "GRADUATE"
	CodeReAdmission EnrollmentCode = "RE_ADMISSION"
)

// AllEnrollmentCodes lists every known code in reporting order.
var AllEnrollmentCodes = []EnrollmentCode{
	CodeAdmission,
	CodePromotion,
	CodeRetention,
	CodeTransferIn,
	CodeTransferOut,
	CodeDrop,
	CodeGraduate,
	CodeReAdmission,
}

// ParseEnrollmentCode validates a code literal.
func ParseEnrollmentCode(raw string) (EnrollmentCode, error) {
	code := EnrollmentCode(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range AllEnrollmentCodes {
		if code == known {
			return code, nil
		}
	}
	return "", fmt.Errorf("unknown enrollment code %q", raw)
}

// RolloverStatus is the per-student outcome state for a year's rollover.
type RolloverStatus string

// pending is the initial state; the rest are terminal for the year.
const (
	RolloverPending     RolloverStatus = "pending"
	RolloverPromoted    RolloverStatus = "promoted"
	RolloverRetained    RolloverStatus = "retained"
	RolloverGraduated   RolloverStatus = "graduated"
	RolloverDropped     RolloverStatus = "dropped"
	RolloverTransferred RolloverStatus = "transferred"
)

// AllRolloverStatuses lists every state in reporting order.
var AllRolloverStatuses = []RolloverStatus{
	RolloverPending,
	RolloverPromoted,
	RolloverRetained,
	RolloverGraduated,
	RolloverDropped,
	RolloverTransferred,
}

// ParseRolloverStatus validates a status literal.
func ParseRolloverStatus(raw string) (RolloverStatus, error) {
	status := RolloverStatus(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range AllRolloverStatuses {
		if status == known {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown rollover status %q", raw)
}

// Terminal reports whether the status ends the student's chain, meaning no
// next-year enrollment row is created during execution.
func (s RolloverStatus) Terminal() bool {
	switch s {
	case RolloverGraduated, RolloverDropped, RolloverTransferred:
		return true
	}
	return false
}

// StudentEnrollment is one temporally-scoped placement of a student. At most
// one row exists per (student, academic year); across all years at most one
// row per student has a NULL end_date (the open enrollment).
type StudentEnrollment struct {
	ID             string         `db:"id" json:"id"`
	StudentID      string         `db:"student_id" json:"student_id"`
	AcademicYearID string         `db:"academic_year_id" json:"academic_year_id"`
	SchoolID       string         `db:"school_id" json:"school_id"`
	GradeLevelID   *string        `db:"grade_level_id" json:"grade_level_id,omitempty"`
	SectionID      *string        `db:"section_id" json:"section_id,omitempty"`
	EnrollmentCode EnrollmentCode `db:"enrollment_code" json:"enrollment_code"`
	StartDate      time.Time      `db:"start_date" json:"start_date"`
	EndDate        *time.Time     `db:"end_date" json:"end_date,omitempty"`
	NextGradeID    *string        `db:"next_grade_id" json:"next_grade_id,omitempty"`
	RolloverStatus RolloverStatus `db:"rollover_status" json:"rollover_status"`
	RolloverNotes  *string        `db:"rollover_notes" json:"rollover_notes,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// Open reports whether the enrollment is the student's active placement.
func (e *StudentEnrollment) Open() bool {
	return e != nil && e.EndDate == nil
}

// EnrollmentDetail enriches StudentEnrollment with roster context.
type EnrollmentDetail struct {
	StudentEnrollment
	StudentNumber string `db:"student_number" json:"student_number"`
	StudentName   string `db:"student_name" json:"student_name"`
	GradeName     string `db:"grade_name" json:"grade_name"`
	SectionName   string `db:"section_name" json:"section_name"`
	YearName      string `db:"year_name" json:"year_name"`
}

// BulkRolloverFilter narrows a bulk status override. Present fields compose
// with AND; an empty filter matches the whole active cohort.
type BulkRolloverFilter struct {
	GradeLevelID string   `json:"grade_level_id,omitempty"`
	SectionID    string   `json:"section_id,omitempty"`
	StudentIDs   []string `json:"student_ids,omitempty"`
}

// RolloverStatusRow is the by-status listing projection.
type RolloverStatusRow struct {
	StudentID      string         `db:"student_id" json:"student_id"`
	StudentNumber  string         `db:"student_number" json:"student_number"`
	GradeName      string         `db:"grade_name" json:"grade_name"`
	SectionName    string         `db:"section_name" json:"section_name"`
	RolloverStatus RolloverStatus `db:"rollover_status" json:"rollover_status"`
}

// GradeCount is a per-grade bucket in statistics.
type GradeCount struct {
	GradeLevelID string `db:"grade_level_id" json:"grade_level_id"`
	GradeName    string `db:"grade_name" json:"grade_name"`
	Count        int    `db:"count" json:"count"`
}

// EnrollmentStatistics is the group-by report for one (school, year). Code and
// status maps are zero-filled for every known literal so consumers never
// branch on missing keys.
type EnrollmentStatistics struct {
	AcademicYearID   string                 `json:"academic_year_id"`
	SchoolID         string                 `json:"school_id"`
	TotalActive      int                    `json:"total_active"`
	ByGrade          []GradeCount           `json:"by_grade"`
	ByCode           map[EnrollmentCode]int `json:"by_code"`
	ByRolloverStatus map[RolloverStatus]int `json:"by_rollover_status"`
}

// NewEnrollmentStatistics returns a zero-filled statistics shell.
func NewEnrollmentStatistics(schoolID, yearID string) *EnrollmentStatistics {
	stats := &EnrollmentStatistics{
		AcademicYearID:   yearID,
		SchoolID:         schoolID,
		ByGrade:          []GradeCount{},
		ByCode:           make(map[EnrollmentCode]int, len(AllEnrollmentCodes)),
		ByRolloverStatus: make(map[RolloverStatus]int, len(AllRolloverStatuses)),
	}
	for _, code := range AllEnrollmentCodes {
		stats.ByCode[code] = 0
	}
	for _, status := range AllRolloverStatuses {
		stats.ByRolloverStatus[status] = 0
	}
	return stats
}
