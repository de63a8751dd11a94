package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sis-rollover-api/internal/service"
	appErrors "github.com/noah-isme/sis-rollover-api/pkg/errors"
	"github.com/noah-isme/sis-rollover-api/pkg/response"
)

// GradeHandler exposes the grade progression graph.
type GradeHandler struct {
	progression *service.ProgressionService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(progression *service.ProgressionService) *GradeHandler {
	return &GradeHandler{progression: progression}
}

// Progression godoc
// @Summary Grade progression graph
// @Description Active grades in progression order with successor pointers and terminal flags. A misconfigured graph yields 409.
// @Tags Grades
// @Produce json
// @Param school_id query string true "School ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /grades/progression [get]
func (h *GradeHandler) Progression(c *gin.Context) {
	schoolID := c.Query("school_id")
	if schoolID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "school_id is required"))
		return
	}
	graph, err := h.progression.BuildGraph(c.Request.Context(), schoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, graph.Items(), nil)
}
