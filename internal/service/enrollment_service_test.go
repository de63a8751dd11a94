package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-rollover-api/internal/dto"
	"github.com/noah-isme/sis-rollover-api/internal/models"
	appErrors "github.com/noah-isme/sis-rollover-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	rows        map[string]models.StudentEnrollment
	openByStud  map[string]string
	yearRows    map[string]bool
	created     *models.StudentEnrollment
	bulkCount   int64
	bulkFilter  models.BulkRolloverFilter
	bulkStatus  models.RolloverStatus
	statusSet   map[string]models.RolloverStatus
	stats       *models.EnrollmentStatistics
	byStatus    []models.RolloverStatusRow
	lastListing *models.RolloverStatus
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.StudentEnrollment, error) {
	if e, ok := m.rows[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if e, ok := m.rows[id]; ok {
		return &models.EnrollmentDetail{StudentEnrollment: e}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindOpenByStudent(ctx context.Context, studentID string) (*models.EnrollmentDetail, error) {
	if id, ok := m.openByStud[studentID]; ok {
		return m.FindDetailByID(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) ListHistoryByStudent(ctx context.Context, studentID string, includeCurrent bool) ([]models.EnrollmentDetail, error) {
	var history []models.EnrollmentDetail
	for _, e := range m.rows {
		if e.StudentID != studentID {
			continue
		}
		if !includeCurrent && e.EndDate == nil {
			continue
		}
		history = append(history, models.EnrollmentDetail{StudentEnrollment: e})
	}
	return history, nil
}

func (m *mockEnrollmentRepo) HasRowForYear(ctx context.Context, studentID, yearID string) (bool, error) {
	return m.yearRows[studentID+":"+yearID], nil
}

func (m *mockEnrollmentRepo) HasOpenEnrollment(ctx context.Context, studentID string) (bool, error) {
	_, ok := m.openByStud[studentID]
	return ok, nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.StudentEnrollment) error {
	if m.rows == nil {
		m.rows = make(map[string]models.StudentEnrollment)
	}
	if enrollment.ID == "" {
		enrollment.ID = "new-enrollment"
	}
	m.rows[enrollment.ID] = *enrollment
	m.created = enrollment
	return nil
}

func (m *mockEnrollmentRepo) UpdateOpenRow(ctx context.Context, id string, gradeLevelID, sectionID, notes *string) error {
	e, ok := m.rows[id]
	if !ok || e.EndDate != nil {
		return sql.ErrNoRows
	}
	if gradeLevelID != nil {
		e.GradeLevelID = gradeLevelID
	}
	if sectionID != nil {
		e.SectionID = sectionID
	}
	if notes != nil {
		e.RolloverNotes = notes
	}
	m.rows[id] = e
	return nil
}

func (m *mockEnrollmentRepo) SetRolloverStatus(ctx context.Context, id string, status models.RolloverStatus, nextGradeID, notes *string) error {
	e, ok := m.rows[id]
	if !ok || e.EndDate != nil {
		return sql.ErrNoRows
	}
	if m.statusSet == nil {
		m.statusSet = make(map[string]models.RolloverStatus)
	}
	m.statusSet[id] = status
	e.RolloverStatus = status
	e.NextGradeID = nextGradeID
	m.rows[id] = e
	return nil
}

func (m *mockEnrollmentRepo) BulkSetRolloverStatus(ctx context.Context, schoolID, yearID string, filter models.BulkRolloverFilter, status models.RolloverStatus, nextGradeID *string) (int64, error) {
	m.bulkFilter = filter
	m.bulkStatus = status
	return m.bulkCount, nil
}

func (m *mockEnrollmentRepo) Statistics(ctx context.Context, schoolID, yearID string) (*models.EnrollmentStatistics, error) {
	if m.stats != nil {
		return m.stats, nil
	}
	return models.NewEnrollmentStatistics(schoolID, yearID), nil
}

func (m *mockEnrollmentRepo) ListByStatus(ctx context.Context, schoolID, yearID string, status *models.RolloverStatus) ([]models.RolloverStatusRow, error) {
	m.lastListing = status
	return m.byStatus, nil
}

func newEnrollmentFixture(repo *mockEnrollmentRepo) *EnrollmentService {
	years := &mockYearReader{years: map[string]*models.AcademicYear{
		"y26": {ID: "y26", SchoolID: "sch-1", Name: "2026-2027", StartDate: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)},
	}}
	return NewEnrollmentService(repo, years, nil, validator.New(), zap.NewNop(), time.Minute)
}

func TestEnrollmentServiceCreate(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentFixture(repo)

	detail, err := svc.Create(context.Background(), dto.CreateEnrollmentRequest{
		StudentID: "s1", AcademicYearID: "y26", SchoolID: "sch-1", EnrollmentCode: "ADMISSION",
	})
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Equal(t, models.CodeAdmission, repo.created.EnrollmentCode)
	assert.Equal(t, models.RolloverPending, repo.created.RolloverStatus)
	assert.Nil(t, detail.EndDate)
}

func TestEnrollmentServiceCreateUnknownCode(t *testing.T) {
	svc := newEnrollmentFixture(&mockEnrollmentRepo{})

	_, err := svc.Create(context.Background(), dto.CreateEnrollmentRequest{
		StudentID: "s1", AcademicYearID: "y26", SchoolID: "sch-1", EnrollmentCode: "SOMETHING_ELSE",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestEnrollmentServiceCreateDuplicateYear(t *testing.T) {
	repo := &mockEnrollmentRepo{yearRows: map[string]bool{"s1:y26": true}}
	svc := newEnrollmentFixture(repo)

	_, err := svc.Create(context.Background(), dto.CreateEnrollmentRequest{
		StudentID: "s1", AcademicYearID: "y26", SchoolID: "sch-1", EnrollmentCode: "ADMISSION",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestEnrollmentServiceCreateSecondOpenRow(t *testing.T) {
	repo := &mockEnrollmentRepo{
		rows:       map[string]models.StudentEnrollment{"e1": {ID: "e1", StudentID: "s1"}},
		openByStud: map[string]string{"s1": "e1"},
	}
	svc := newEnrollmentFixture(repo)

	_, err := svc.Create(context.Background(), dto.CreateEnrollmentRequest{
		StudentID: "s1", AcademicYearID: "y26", SchoolID: "sch-1", EnrollmentCode: "TRANSFER_IN",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestEnrollmentServiceUpdateClosedRowRejected(t *testing.T) {
	closed := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	repo := &mockEnrollmentRepo{rows: map[string]models.StudentEnrollment{
		"e1": {ID: "e1", StudentID: "s1", SchoolID: "sch-1", EndDate: &closed},
	}}
	svc := newEnrollmentFixture(repo)

	_, err := svc.Update(context.Background(), "e1", dto.UpdateEnrollmentRequest{RolloverNotes: strPtr("note")})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestEnrollmentServiceSetRolloverStatus(t *testing.T) {
	repo := &mockEnrollmentRepo{
		rows:       map[string]models.StudentEnrollment{"e1": {ID: "e1", StudentID: "s1", SchoolID: "sch-1", RolloverStatus: models.RolloverPending}},
		openByStud: map[string]string{"s1": "e1"},
	}
	svc := newEnrollmentFixture(repo)

	detail, err := svc.SetRolloverStatus(context.Background(), "s1", dto.SetStudentRolloverStatusRequest{
		Status: "retained", Notes: strPtr("held back per parent request"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.RolloverRetained, detail.RolloverStatus)
	assert.Equal(t, models.RolloverRetained, repo.statusSet["e1"])
}

func TestEnrollmentServiceSetRolloverStatusUnknown(t *testing.T) {
	svc := newEnrollmentFixture(&mockEnrollmentRepo{})

	_, err := svc.SetRolloverStatus(context.Background(), "s1", dto.SetStudentRolloverStatusRequest{Status: "held"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestEnrollmentServiceBulkSetRolloverStatus(t *testing.T) {
	repo := &mockEnrollmentRepo{bulkCount: 12}
	svc := newEnrollmentFixture(repo)

	updated, err := svc.BulkSetRolloverStatus(context.Background(), dto.BulkRolloverStatusRequest{
		SchoolID: "sch-1", AcademicYearID: "y26", Status: "retained",
		Filters: models.BulkRolloverFilter{SectionID: "sec-a"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), updated)
	assert.Equal(t, "sec-a", repo.bulkFilter.SectionID)
	assert.Equal(t, models.RolloverRetained, repo.bulkStatus)
}

func TestEnrollmentServiceStatisticsZeroFilled(t *testing.T) {
	svc := newEnrollmentFixture(&mockEnrollmentRepo{})

	stats, err := svc.Statistics(context.Background(), "sch-1", "y26")
	require.NoError(t, err)
	assert.Len(t, stats.ByCode, len(models.AllEnrollmentCodes))
	assert.Len(t, stats.ByRolloverStatus, len(models.AllRolloverStatuses))
	assert.Equal(t, 0, stats.ByCode[models.CodeGraduate])
	assert.Equal(t, 0, stats.ByRolloverStatus[models.RolloverDropped])
}

func TestEnrollmentServiceListByStatusParsesFilter(t *testing.T) {
	repo := &mockEnrollmentRepo{byStatus: []models.RolloverStatusRow{{StudentID: "s1", RolloverStatus: models.RolloverPending}}}
	svc := newEnrollmentFixture(repo)

	rows, err := svc.ListByStatus(context.Background(), "sch-1", "y26", "pending")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, repo.lastListing)
	assert.Equal(t, models.RolloverPending, *repo.lastListing)

	_, err = svc.ListByStatus(context.Background(), "sch-1", "y26", "bogus")
	require.Error(t, err)
}

func TestEnrollmentServiceCurrentNotFound(t *testing.T) {
	svc := newEnrollmentFixture(&mockEnrollmentRepo{})

	_, err := svc.Current(context.Background(), "s1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
