package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-rollover-api/internal/dto"
	"github.com/noah-isme/sis-rollover-api/internal/middleware"
	"github.com/noah-isme/sis-rollover-api/internal/models"
	"github.com/noah-isme/sis-rollover-api/internal/service"
)

type stubRolloverRepo struct {
	active []models.StudentEnrollment
	rolled int
}

func (s *stubRolloverRepo) ListActiveByYear(ctx context.Context, schoolID, yearID string) ([]models.StudentEnrollment, error) {
	return s.active, nil
}

func (s *stubRolloverRepo) CountAlreadyRolled(ctx context.Context, schoolID, currentYearID, nextYearID string) (int, error) {
	return s.rolled, nil
}

func (s *stubRolloverRepo) StatusBreakdown(ctx context.Context, schoolID, yearID string) (map[models.RolloverStatus]int, error) {
	return map[models.RolloverStatus]int{models.RolloverPending: len(s.active)}, nil
}

type stubYearStore map[string]*models.AcademicYear

func (s stubYearStore) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	if year, ok := s[id]; ok {
		copied := *year
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

type stubPeriodCount int

func (s stubPeriodCount) CountByYear(ctx context.Context, schoolID, yearID string) (int, error) {
	return int(s), nil
}

type stubAssignmentCount int

func (s stubAssignmentCount) CountActiveByYear(ctx context.Context, schoolID, yearID string) (int, error) {
	return int(s), nil
}

type stubGradeStore []models.GradeLevel

func (s stubGradeStore) ListActiveBySchool(ctx context.Context, schoolID string) ([]models.GradeLevel, error) {
	return s, nil
}

type stubApplier struct {
	calls int
	err   error
}

func (s *stubApplier) ApplyPlan(ctx context.Context, plan *models.RolloverPlan) error {
	s.calls++
	return s.err
}

func gradePtr(s string) *string { return &s }

func newRolloverHandlerFixture(years stubYearStore, applier *stubApplier) *RolloverHandler {
	grades := stubGradeStore{
		{ID: "g10", SchoolID: "sch-1", Name: "Grade 10", OrderIndex: 1, NextGradeID: gradePtr("g11"), Active: true},
		{ID: "g11", SchoolID: "sch-1", Name: "Grade 11", OrderIndex: 2, IsTerminal: true, Active: true},
	}
	repo := &stubRolloverRepo{active: []models.StudentEnrollment{
		{ID: "enr-1", StudentID: "stu-1", SchoolID: "sch-1", AcademicYearID: "y25",
			GradeLevelID: gradePtr("g10"), EnrollmentCode: models.CodeAdmission, RolloverStatus: models.RolloverPending},
	}}
	progression := service.NewProgressionService(grades, zap.NewNop())
	svc := service.NewRolloverService(repo, years, stubPeriodCount(2), stubAssignmentCount(3),
		progression, applier, nil, nil, nil, zap.NewNop(), 0.10, time.Minute)
	return NewRolloverHandler(svc)
}

func validYearPair() stubYearStore {
	return stubYearStore{
		"y25": {ID: "y25", SchoolID: "sch-1", Name: "2025-2026", StartDate: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), IsCurrent: true},
		"y26": {ID: "y26", SchoolID: "sch-1", Name: "2026-2027", StartDate: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), IsNext: true},
	}
}

func postJSON(t *testing.T, handlerFunc gin.HandlerFunc, payload interface{}, claims *models.JWTClaims) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var body bytes.Buffer
	switch v := payload.(type) {
	case string:
		body.WriteString(v)
	default:
		if err := json.NewEncoder(&body).Encode(v); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodPost, "/", &body)
	c.Request.Header.Set("Content-Type", "application/json")
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}

	handlerFunc(c)
	return recorder
}

func TestRolloverHandlerPreview(t *testing.T) {
	handler := newRolloverHandlerFixture(validYearPair(), &stubApplier{})

	recorder := postJSON(t, handler.Preview, dto.RolloverRequest{
		SchoolID: "sch-1", CurrentYearID: "y25", NextYearID: "y26",
	}, nil)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body: %s", recorder.Code, recorder.Body.String())
	}
	if !strings.Contains(recorder.Body.String(), `"active_enrollments":1`) {
		t.Fatalf("preview body missing counts: %s", recorder.Body.String())
	}
}

func TestRolloverHandlerPreviewForeignSchoolForbidden(t *testing.T) {
	handler := newRolloverHandlerFixture(validYearPair(), &stubApplier{})

	recorder := postJSON(t, handler.Preview, dto.RolloverRequest{
		SchoolID: "sch-1", CurrentYearID: "y25", NextYearID: "y26",
	}, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin, SchoolID: "sch-2"})

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d body: %s", recorder.Code, recorder.Body.String())
	}
}

func TestRolloverHandlerCheckForeignSchoolForbidden(t *testing.T) {
	handler := newRolloverHandlerFixture(validYearPair(), &stubApplier{})

	recorder := postJSON(t, handler.Check, dto.RolloverRequest{
		SchoolID: "sch-1", CurrentYearID: "y25", NextYearID: "y26",
	}, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin, SchoolID: "sch-2"})

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d body: %s", recorder.Code, recorder.Body.String())
	}
}

func TestRolloverHandlerExecuteInvalidPayload(t *testing.T) {
	handler := newRolloverHandlerFixture(validYearPair(), &stubApplier{})

	recorder := postJSON(t, handler.Execute, `{"school_id":`, nil)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRolloverHandlerExecuteForeignSchoolForbidden(t *testing.T) {
	applier := &stubApplier{}
	handler := newRolloverHandlerFixture(validYearPair(), applier)

	recorder := postJSON(t, handler.Execute, dto.ExecuteRolloverRequest{
		RolloverRequest: dto.RolloverRequest{SchoolID: "sch-1", CurrentYearID: "y25", NextYearID: "y26"},
	}, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin, SchoolID: "sch-2"})

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d body: %s", recorder.Code, recorder.Body.String())
	}
	if applier.calls != 0 {
		t.Fatalf("plan applier should not run on scope rejection")
	}
}

func TestRolloverHandlerExecuteFailedGateReturns400(t *testing.T) {
	years := validYearPair()
	years["y26"].StartDate = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	applier := &stubApplier{}
	handler := newRolloverHandlerFixture(years, applier)

	recorder := postJSON(t, handler.Execute, dto.ExecuteRolloverRequest{
		RolloverRequest: dto.RolloverRequest{SchoolID: "sch-1", CurrentYearID: "y25", NextYearID: "y26"},
	}, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin, SchoolID: "sch-1"})

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d body: %s", recorder.Code, recorder.Body.String())
	}
	if !strings.Contains(recorder.Body.String(), `"success":false`) {
		t.Fatalf("expected failed result body: %s", recorder.Body.String())
	}
	if applier.calls != 0 {
		t.Fatalf("plan applier should not run on a failed gate")
	}
}

func TestRolloverHandlerExecuteAppliesPlan(t *testing.T) {
	applier := &stubApplier{}
	handler := newRolloverHandlerFixture(validYearPair(), applier)

	recorder := postJSON(t, handler.Execute, dto.ExecuteRolloverRequest{
		RolloverRequest: dto.RolloverRequest{SchoolID: "sch-1", CurrentYearID: "y25", NextYearID: "y26"},
	}, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin, SchoolID: "sch-1"})

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body: %s", recorder.Code, recorder.Body.String())
	}
	if applier.calls != 1 {
		t.Fatalf("expected one plan application, got %d", applier.calls)
	}
	if !strings.Contains(recorder.Body.String(), `"promoted":1`) {
		t.Fatalf("expected promotion tally: %s", recorder.Body.String())
	}
}
