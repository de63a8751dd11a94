package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sis-rollover-api/internal/dto"
	"github.com/noah-isme/sis-rollover-api/internal/service"
	appErrors "github.com/noah-isme/sis-rollover-api/pkg/errors"
	"github.com/noah-isme/sis-rollover-api/pkg/response"
)

// EnrollmentHandler exposes enrollment lifecycle endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Current godoc
// @Summary Get the student's open enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollment/student/{id}/current [get]
func (h *EnrollmentHandler) Current(c *gin.Context) {
	detail, err := h.enrollments.Current(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// History godoc
// @Summary Get the student's enrollment history
// @Tags Enrollments
// @Produce json
// @Param id path string true "Student ID"
// @Param include_current query bool false "Include the open enrollment"
// @Success 200 {object} response.Envelope
// @Router /enrollment/student/{id}/history [get]
func (h *EnrollmentHandler) History(c *gin.Context) {
	includeCurrent, _ := strconv.ParseBool(c.DefaultQuery("include_current", "false"))
	history, err := h.enrollments.History(c.Request.Context(), c.Param("id"), includeCurrent)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// Create godoc
// @Summary Create an enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body dto.CreateEnrollmentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollment [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req dto.CreateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.enrollments.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Update godoc
// @Summary Patch the open enrollment row
// @Description Closed rows are immutable; only the still-open row accepts patches.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body dto.UpdateEnrollmentRequest true "Patch payload"
// @Success 200 {object} response.Envelope
// @Router /enrollment/{id} [patch]
func (h *EnrollmentHandler) Update(c *gin.Context) {
	var req dto.UpdateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.enrollments.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// SetRolloverStatus godoc
// @Summary Override the student's rollover status
// @Description Manual overrides win unconditionally over the computed outcome until execution.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.SetStudentRolloverStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /enrollment/student/{id}/rollover-status [patch]
func (h *EnrollmentHandler) SetRolloverStatus(c *gin.Context) {
	var req dto.SetStudentRolloverStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.enrollments.SetRolloverStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// BulkSetRolloverStatus godoc
// @Summary Override the rollover status for a cohort
// @Description Filters compose with AND; an empty filter matches the whole active cohort.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body dto.BulkRolloverStatusRequest true "Bulk status payload"
// @Success 200 {object} response.Envelope
// @Router /enrollment/bulk-rollover-status [patch]
func (h *EnrollmentHandler) BulkSetRolloverStatus(c *gin.Context) {
	var req dto.BulkRolloverStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil && claims.SchoolID != "" && claims.SchoolID != req.SchoolID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "token is not scoped to this school"))
		return
	}
	updated, err := h.enrollments.BulkSetRolloverStatus(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.BulkRolloverStatusResponse{UpdatedCount: updated}, nil)
}

// Statistics godoc
// @Summary Enrollment statistics for one year
// @Tags Enrollments
// @Produce json
// @Param school_id query string true "School ID"
// @Param academic_year_id query string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /enrollment/statistics [get]
func (h *EnrollmentHandler) Statistics(c *gin.Context) {
	schoolID := c.Query("school_id")
	yearID := c.Query("academic_year_id")
	if schoolID == "" || yearID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "school_id and academic_year_id are required"))
		return
	}
	stats, err := h.enrollments.Statistics(c.Request.Context(), schoolID, yearID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// ByStatus godoc
// @Summary List open enrollments by rollover status
// @Tags Enrollments
// @Produce json
// @Param school_id query string true "School ID"
// @Param academic_year_id query string true "Academic year ID"
// @Param status query string false "Rollover status filter"
// @Success 200 {object} response.Envelope
// @Router /enrollment/by-status [get]
func (h *EnrollmentHandler) ByStatus(c *gin.Context) {
	schoolID := c.Query("school_id")
	yearID := c.Query("academic_year_id")
	if schoolID == "" || yearID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "school_id and academic_year_id are required"))
		return
	}
	rows, err := h.enrollments.ListByStatus(c.Request.Context(), schoolID, yearID, c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
