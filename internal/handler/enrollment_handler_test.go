package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-rollover-api/internal/dto"
	"github.com/noah-isme/sis-rollover-api/internal/models"
	"github.com/noah-isme/sis-rollover-api/internal/service"
)

func newEnrollmentHandlerFixture() *EnrollmentHandler {
	svc := service.NewEnrollmentService(nil, nil, nil, nil, zap.NewNop(), 0)
	return NewEnrollmentHandler(svc)
}

func TestEnrollmentHandlerCreateInvalidPayload(t *testing.T) {
	handler := newEnrollmentHandlerFixture()

	recorder := postJSON(t, handler.Create, `{"student_id":`, nil)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestEnrollmentHandlerBulkForeignSchoolForbidden(t *testing.T) {
	handler := newEnrollmentHandlerFixture()

	recorder := postJSON(t, handler.BulkSetRolloverStatus, dto.BulkRolloverStatusRequest{
		SchoolID: "sch-1", AcademicYearID: "y25", Status: "retained",
	}, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin, SchoolID: "sch-2"})

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d body: %s", recorder.Code, recorder.Body.String())
	}
}

func TestEnrollmentHandlerStatisticsRequiresParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEnrollmentHandlerFixture()

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/enrollment/statistics?school_id=sch-1", nil)

	handler.Statistics(c)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestEnrollmentHandlerByStatusRequiresParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEnrollmentHandlerFixture()

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/enrollment/by-status", nil)

	handler.ByStatus(c)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}
