package dto

import "github.com/noah-isme/sis-rollover-api/internal/models"

// RolloverRequest identifies the year pair a rollover operation targets.
// Preview and check take exactly this shape; execute adds options.
type RolloverRequest struct {
	SchoolID      string `json:"school_id" validate:"required"`
	CurrentYearID string `json:"current_year_id" validate:"required"`
	NextYearID    string `json:"next_year_id" validate:"required"`
}

// ExecuteRolloverRequest triggers the transactional batch mutation.
type ExecuteRolloverRequest struct {
	RolloverRequest
	Options *models.RolloverOptions `json:"options,omitempty"`
}
