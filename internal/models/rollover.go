package models

import "time"

// RolloverPreview is the read-only forecast returned before execution.
type RolloverPreview struct {
	SchoolID                 string                 `json:"school_id"`
	CurrentYearID            string                 `json:"current_year_id"`
	NextYearID               string                 `json:"next_year_id"`
	ActiveEnrollments        int                    `json:"active_enrollments"`
	StatusBreakdown          map[RolloverStatus]int `json:"status_breakdown"`
	GraduatingCount          int                    `json:"graduating_count"`
	MarkingPeriodsCurrent    int                    `json:"marking_periods_current"`
	MarkingPeriodsNext       int                    `json:"marking_periods_next"`
	ActiveTeacherAssignments int                    `json:"active_teacher_assignments"`
	GeneratedAt              time.Time              `json:"generated_at"`
}

// RolloverPrerequisiteCheck is the validation gate result. Warnings never
// block execution; a non-empty ErrorMessage does.
type RolloverPrerequisiteCheck struct {
	IsValid      bool     `json:"is_valid"`
	ErrorMessage string   `json:"error_message,omitempty"`
	Warnings     []string `json:"warnings"`
}

// RolloverOptions selects the optional copy-forward steps.
type RolloverOptions struct {
	MarkingPeriods bool `json:"marking_periods"`
	Teachers       bool `json:"teachers"`
}

// RolloverResult aggregates the outcome of one execution.
type RolloverResult struct {
	Success     bool     `json:"success"`
	Error       string   `json:"error,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
	Processed   int      `json:"processed"`
	Promoted    int      `json:"promoted"`
	Retained    int      `json:"retained"`
	Graduated   int      `json:"graduated"`
	Dropped     int      `json:"dropped"`
	Transferred int      `json:"transferred"`
	DurationMs  int64    `json:"duration_ms"`
}

// Tally increments the counter matching the student's final status.
func (r *RolloverResult) Tally(status RolloverStatus) {
	r.Processed++
	switch status {
	case RolloverPromoted:
		r.Promoted++
	case RolloverRetained:
		r.Retained++
	case RolloverGraduated:
		r.Graduated++
	case RolloverDropped:
		r.Dropped++
	case RolloverTransferred:
		r.Transferred++
	}
}

// StudentOutcome is one student's resolved rollover decision inside a plan.
type StudentOutcome struct {
	EnrollmentID string
	StudentID    string
	Status       RolloverStatus
	// NextGradeID and Code are set only when a next-year row will be created.
	NextGradeID *string
	SectionID   *string
	Code        EnrollmentCode
	Notes       *string
}

// RolloverPlan is the fully-resolved batch handed to the executor. The plan is
// computed outside the transaction; applying it is all-or-nothing.
type RolloverPlan struct {
	SchoolID      string
	CurrentYearID string
	NextYearID    string
	CloseDate     time.Time
	NextStartDate time.Time
	Outcomes      []StudentOutcome
	Options       RolloverOptions
}
