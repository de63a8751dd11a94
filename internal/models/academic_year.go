package models

import "time"

// AcademicYear is a school-scoped year window. Per school at most one row has
// IsCurrent set and at most one has IsNext set; both pointers are flipped
// transactionally, never derived from dates.
type AcademicYear struct {
	ID        string     `db:"id" json:"id"`
	SchoolID  string     `db:"school_id" json:"school_id"`
	Name      string     `db:"name" json:"name"`
	StartDate time.Time  `db:"start_date" json:"start_date"`
	EndDate   *time.Time `db:"end_date" json:"end_date,omitempty"`
	IsCurrent bool       `db:"is_current" json:"is_current"`
	IsNext    bool       `db:"is_next" json:"is_next"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// AcademicYearFilter narrows year listings.
type AcademicYearFilter struct {
	SchoolID  string
	IsCurrent *bool
	IsNext    *bool
}
