package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sis-rollover-api/internal/models"
)

func TestAcademicYearRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	now := time.Now()
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "school_id", "name", "start_date", "end_date", "is_current", "is_next", "created_at", "updated_at"}).
		AddRow("y25", "sch-1", "2025-2026", start, nil, true, false, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM academic_years WHERE id = $1")).
		WithArgs("y25").
		WillReturnRows(rows)

	year, err := repo.FindByID(context.Background(), "y25")
	require.NoError(t, err)
	require.Equal(t, "2025-2026", year.Name)
	require.True(t, year.IsCurrent)
	require.Nil(t, year.EndDate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositoryListFiltersCurrent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "school_id", "name", "start_date", "end_date", "is_current", "is_next", "created_at", "updated_at"}).
		AddRow("y25", "sch-1", "2025-2026", now, nil, true, false, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE school_id = $1 AND is_current = $2 ORDER BY start_date DESC")).
		WithArgs("sch-1", true).
		WillReturnRows(rows)

	isCurrent := true
	years, err := repo.List(context.Background(), models.AcademicYearFilter{SchoolID: "sch-1", IsCurrent: &isCurrent})
	require.NoError(t, err)
	require.Len(t, years, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositorySetCurrentTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET is_current = FALSE")).
		WithArgs(sqlmock.AnyArg(), "sch-1", "y26").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET is_current = TRUE, is_next = FALSE")).
		WithArgs(sqlmock.AnyArg(), "y26", "sch-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SetCurrent(context.Background(), "sch-1", "y26")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositorySetCurrentRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET is_current = FALSE")).
		WithArgs(sqlmock.AnyArg(), "sch-1", "y26").
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := repo.SetCurrent(context.Background(), "sch-1", "y26")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositorySetNextTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET is_next = FALSE")).
		WithArgs(sqlmock.AnyArg(), "sch-1", "y27").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET is_next = TRUE")).
		WithArgs(sqlmock.AnyArg(), "y27", "sch-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SetNext(context.Background(), "sch-1", "y27")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
