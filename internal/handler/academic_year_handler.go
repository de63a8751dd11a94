package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sis-rollover-api/internal/dto"
	"github.com/noah-isme/sis-rollover-api/internal/models"
	"github.com/noah-isme/sis-rollover-api/internal/service"
	appErrors "github.com/noah-isme/sis-rollover-api/pkg/errors"
	"github.com/noah-isme/sis-rollover-api/pkg/response"
)

// AcademicYearHandler exposes academic year management endpoints.
type AcademicYearHandler struct {
	years *service.AcademicYearService
}

// NewAcademicYearHandler constructs AcademicYearHandler.
func NewAcademicYearHandler(years *service.AcademicYearService) *AcademicYearHandler {
	return &AcademicYearHandler{years: years}
}

// List godoc
// @Summary List academic years
// @Tags AcademicYears
// @Produce json
// @Param school_id query string true "School ID"
// @Param is_current query bool false "Filter by current flag"
// @Param is_next query bool false "Filter by next flag"
// @Success 200 {object} response.Envelope
// @Router /academic-years [get]
func (h *AcademicYearHandler) List(c *gin.Context) {
	filter := models.AcademicYearFilter{SchoolID: c.Query("school_id")}
	if raw := c.Query("is_current"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			filter.IsCurrent = &value
		}
	}
	if raw := c.Query("is_next"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			filter.IsNext = &value
		}
	}
	years, err := h.years.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, years, nil)
}

// Create godoc
// @Summary Create an academic year
// @Tags AcademicYears
// @Accept json
// @Produce json
// @Param payload body dto.CreateAcademicYearRequest true "Year payload"
// @Success 201 {object} response.Envelope
// @Router /academic-years [post]
func (h *AcademicYearHandler) Create(c *gin.Context) {
	var req dto.CreateAcademicYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	year, err := h.years.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, year)
}

// SetCurrent godoc
// @Summary Point the school's current-year flag at this year
// @Tags AcademicYears
// @Produce json
// @Param id path string true "Academic year ID"
// @Param school_id query string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{id}/set-current [put]
func (h *AcademicYearHandler) SetCurrent(c *gin.Context) {
	schoolID := c.Query("school_id")
	if schoolID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "school_id is required"))
		return
	}
	year, err := h.years.SetCurrent(c.Request.Context(), schoolID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// SetNext godoc
// @Summary Point the school's next-year flag at this year
// @Tags AcademicYears
// @Produce json
// @Param id path string true "Academic year ID"
// @Param school_id query string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{id}/set-next [put]
func (h *AcademicYearHandler) SetNext(c *gin.Context) {
	schoolID := c.Query("school_id")
	if schoolID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "school_id is required"))
		return
	}
	year, err := h.years.SetNext(c.Request.Context(), schoolID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}
