package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sis-rollover-api/internal/service"
	appErrors "github.com/noah-isme/sis-rollover-api/pkg/errors"
	"github.com/noah-isme/sis-rollover-api/pkg/response"
)

// ExportHandler streams rendered statistics reports.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Statistics godoc
// @Summary Download the enrollment statistics report
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param school_id query string true "School ID"
// @Param academic_year_id query string true "Academic year ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /enrollment/statistics/export [get]
func (h *ExportHandler) Statistics(c *gin.Context) {
	schoolID := c.Query("school_id")
	yearID := c.Query("academic_year_id")
	if schoolID == "" || yearID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "school_id and academic_year_id are required"))
		return
	}
	format := c.DefaultQuery("format", "csv")

	payload, filename, contentType, err := h.exports.StatisticsReport(c.Request.Context(), schoolID, yearID, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
