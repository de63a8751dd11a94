package models

// GradeLevel is a node in the grade progression graph. NextGradeID points at
// the successor grade; a nil successor marks a terminal (graduating) grade.
// IsTerminal flags an intended graduation point; a grade with no successor
// and no flag is surfaced as a warning during the prerequisite check.
type GradeLevel struct {
	ID          string  `db:"id" json:"id"`
	SchoolID    string  `db:"school_id" json:"school_id"`
	Name        string  `db:"name" json:"name"`
	OrderIndex  int     `db:"order_index" json:"order_index"`
	NextGradeID *string `db:"next_grade_id" json:"next_grade_id,omitempty"`
	IsTerminal  bool    `db:"is_terminal" json:"is_terminal"`
	Active      bool    `db:"active" json:"active"`
}

// GradeProgressionItem is the API projection of a grade graph node.
type GradeProgressionItem struct {
	GradeLevelID string  `json:"grade_level_id"`
	Name         string  `json:"name"`
	OrderIndex   int     `json:"order_index"`
	NextGradeID  *string `json:"next_grade_id,omitempty"`
	IsTerminal   bool    `json:"is_terminal"`
}
