package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sis-rollover-api/internal/models"
	appErrors "github.com/noah-isme/sis-rollover-api/pkg/errors"
)

func promotionPlan() *models.RolloverPlan {
	g11 := "g11"
	return &models.RolloverPlan{
		SchoolID:      "sch-1",
		CurrentYearID: "y25",
		NextYearID:    "y26",
		CloseDate:     time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
		NextStartDate: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		Outcomes: []models.StudentOutcome{
			{EnrollmentID: "enr-1", StudentID: "stu-1", Status: models.RolloverPromoted, NextGradeID: &g11, Code: models.CodePromotion},
			{EnrollmentID: "enr-2", StudentID: "stu-2", Status: models.RolloverGraduated, Code: models.CodeGraduate},
		},
	}
}

func expectPlanRecheck(mock sqlmock.Sqlmock, active int, rolledIDs ...string) {
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM student_enrollments")).
		WithArgs("sch-1", "y25").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(active))
	rolled := sqlmock.NewRows([]string{"student_id"})
	for _, id := range rolledIDs {
		rolled.AddRow(id)
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT cur.student_id FROM student_enrollments cur")).
		WithArgs("sch-1", "y25", "y26").
		WillReturnRows(rolled)
}

func expectPointerAdvance(mock sqlmock.Sqlmock) {
	mock.ExpectExec(regexp.QuoteMeta("SET is_current = FALSE")).
		WithArgs(sqlmock.AnyArg(), "sch-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET is_current = TRUE, is_next = FALSE")).
		WithArgs(sqlmock.AnyArg(), "y26", "sch-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestRolloverRepositoryApplyPlan(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRolloverRepository(db, 500)
	plan := promotionPlan()

	mock.ExpectBegin()
	expectPlanRecheck(mock, 2)

	// One close per outcome, then a single chunked insert for the one
	// non-terminal outcome; graduates get no next-year row.
	mock.ExpectExec(regexp.QuoteMeta("SET end_date = $2")).
		WithArgs("enr-1", plan.CloseDate, models.RolloverPromoted, plan.Outcomes[0].NextGradeID, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET end_date = $2")).
		WithArgs("enr-2", plan.CloseDate, models.RolloverGraduated, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_enrollments")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	expectPointerAdvance(mock)
	mock.ExpectCommit()

	err := repo.ApplyPlan(context.Background(), plan)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRolloverRepositoryApplyPlanConflictOnFullCoverage(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRolloverRepository(db, 500)
	plan := promotionPlan()

	mock.ExpectBegin()
	expectPlanRecheck(mock, 2, "stu-1", "stu-2")
	mock.ExpectRollback()

	err := repo.ApplyPlan(context.Background(), plan)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrRolloverInProgress.Code, appErr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRolloverRepositoryApplyPlanSkipsAlreadyRolledStudents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRolloverRepository(db, 500)
	plan := promotionPlan()

	// stu-1 was placed into the next year ahead of the rollover. The batch
	// still closes both current rows, but no INSERT is expected: the promoted
	// student keeps the row they already hold and the graduate gets none.
	mock.ExpectBegin()
	expectPlanRecheck(mock, 2, "stu-1")

	mock.ExpectExec(regexp.QuoteMeta("SET end_date = $2")).
		WithArgs("enr-1", plan.CloseDate, models.RolloverPromoted, plan.Outcomes[0].NextGradeID, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET end_date = $2")).
		WithArgs("enr-2", plan.CloseDate, models.RolloverGraduated, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	expectPointerAdvance(mock)
	mock.ExpectCommit()

	err := repo.ApplyPlan(context.Background(), plan)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRolloverRepositoryApplyPlanCopiesMarkingPeriods(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRolloverRepository(db, 500)

	plan := promotionPlan()
	plan.Outcomes = plan.Outcomes[1:2]
	plan.Options = models.RolloverOptions{MarkingPeriods: true}

	mock.ExpectBegin()
	expectPlanRecheck(mock, 1)
	mock.ExpectExec(regexp.QuoteMeta("SET end_date = $2")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	periodStart := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM marking_periods WHERE school_id = $1 AND academic_year_id = $2 ORDER BY sort_order ASC")).
		WithArgs("sch-1", "y25").
		WillReturnRows(sqlmock.NewRows([]string{"id", "school_id", "academic_year_id", "name", "type", "sort_order", "start_date", "end_date"}).
			AddRow("mp-1", "sch-1", "y25", "Semester 1", "semester", 1, periodStart, periodStart.AddDate(0, 5, 0)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM marking_periods WHERE school_id = $1 AND academic_year_id = $2")).
		WithArgs("sch-1", "y26").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO marking_periods")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	expectPointerAdvance(mock)
	mock.ExpectCommit()

	err := repo.ApplyPlan(context.Background(), plan)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRolloverRepositoryApplyPlanCopiesTeacherAssignments(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRolloverRepository(db, 500)

	plan := promotionPlan()
	plan.Outcomes = plan.Outcomes[1:2]
	plan.Options = models.RolloverOptions{Teachers: true}

	mock.ExpectBegin()
	expectPlanRecheck(mock, 1)
	mock.ExpectExec(regexp.QuoteMeta("SET end_date = $2")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM teacher_assignments WHERE school_id = $1 AND academic_year_id = $2 AND active = TRUE")).
		WithArgs("sch-1", "y25").
		WillReturnRows(sqlmock.NewRows([]string{"id", "school_id", "academic_year_id", "teacher_id", "section_id", "active", "created_at"}).
			AddRow("ta-1", "sch-1", "y25", "tch-1", "sec-a", true, now).
			AddRow("ta-2", "sch-1", "y25", "tch-2", "sec-b", true, now))

	// Each copy is an INSERT ... WHERE NOT EXISTS; a pair the next year
	// already holds simply affects zero rows.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO teacher_assignments")).
		WithArgs(sqlmock.AnyArg(), "sch-1", "y26", "tch-1", "sec-a", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO teacher_assignments")).
		WithArgs(sqlmock.AnyArg(), "sch-1", "y26", "tch-2", "sec-b", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	expectPointerAdvance(mock)
	mock.ExpectCommit()

	err := repo.ApplyPlan(context.Background(), plan)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
