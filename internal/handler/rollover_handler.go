package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sis-rollover-api/internal/dto"
	"github.com/noah-isme/sis-rollover-api/internal/service"
	appErrors "github.com/noah-isme/sis-rollover-api/pkg/errors"
	"github.com/noah-isme/sis-rollover-api/pkg/response"
)

// RolloverHandler exposes the preview, check and execute workflow.
type RolloverHandler struct {
	rollover *service.RolloverService
}

// NewRolloverHandler constructs RolloverHandler.
func NewRolloverHandler(rollover *service.RolloverService) *RolloverHandler {
	return &RolloverHandler{rollover: rollover}
}

// Preview godoc
// @Summary Preview rollover outcomes
// @Description Read-only forecast of the rollover; no rows are created or modified.
// @Tags Rollover
// @Accept json
// @Produce json
// @Param payload body dto.RolloverRequest true "Year pair"
// @Success 200 {object} response.Envelope
// @Router /rollover/preview [post]
func (h *RolloverHandler) Preview(c *gin.Context) {
	var req dto.RolloverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil && claims.SchoolID != "" && claims.SchoolID != req.SchoolID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "token is not scoped to this school"))
		return
	}
	preview, err := h.rollover.Preview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}

// Check godoc
// @Summary Check rollover prerequisites
// @Description Runs the validation gate. Warnings never block; a non-empty error_message does.
// @Tags Rollover
// @Accept json
// @Produce json
// @Param payload body dto.RolloverRequest true "Year pair"
// @Success 200 {object} response.Envelope
// @Router /rollover/check [post]
func (h *RolloverHandler) Check(c *gin.Context) {
	var req dto.RolloverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil && claims.SchoolID != "" && claims.SchoolID != req.SchoolID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "token is not scoped to this school"))
		return
	}
	check, err := h.rollover.Check(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, check, nil)
}

// Execute godoc
// @Summary Execute the rollover batch
// @Description Re-runs the prerequisite check and applies the batch atomically. A failed gate yields 400 with success=false; a duplicate execution yields 409.
// @Tags Rollover
// @Accept json
// @Produce json
// @Param payload body dto.ExecuteRolloverRequest true "Year pair and options"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /rollover/execute [post]
func (h *RolloverHandler) Execute(c *gin.Context) {
	var req dto.ExecuteRolloverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil && claims.SchoolID != "" && claims.SchoolID != req.SchoolID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "token is not scoped to this school"))
		return
	}
	result, err := h.rollover.Execute(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.Success {
		response.JSON(c, http.StatusBadRequest, result, nil)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
