package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/sekolahku/psb-api/internal/models"
)

func newOfferingRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestClassOfferingRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newOfferingRepoMock(t)
	defer cleanup()
	repo := NewClassOfferingRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "academic_year", "level", "time_slot", "capacity", "created_at", "updated_at"}).
		AddRow("class-1", "1A", "2026/2027", "1", "MORNING", 30, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, academic_year, level, time_slot, capacity, created_at, updated_at FROM class_offerings WHERE id = $1")).
		WithArgs("class-1").
		WillReturnRows(rows)

	offering, err := repo.FindByID(context.Background(), "class-1")
	require.NoError(t, err)
	require.Equal(t, "1A", offering.Name)
	require.Equal(t, 30, offering.Capacity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassOfferingRepositoryListWithOccupancy(t *testing.T) {
	db, mock, cleanup := newOfferingRepoMock(t)
	defer cleanup()
	repo := NewClassOfferingRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "academic_year", "level", "time_slot", "capacity", "created_at", "updated_at", "confirmed_count", "available_spots"}).
		AddRow("class-1", "1A", "2026/2027", "1", "MORNING", 30, now, now, 12, 18).
		AddRow("class-2", "1B", "2026/2027", "1", "AFTERNOON", 20, now, now, 20, 0)
	mock.ExpectQuery(`(?s)SELECT o\.id.*LEFT JOIN.*WHERE o\.academic_year = \$1.*ORDER BY o\.name ASC`).
		WithArgs("2026/2027").
		WillReturnRows(rows)

	availability, err := repo.ListWithOccupancy(context.Background(), "2026/2027")
	require.NoError(t, err)
	require.Len(t, availability, 2)
	require.Equal(t, 18, availability[0].AvailableSpots)
	require.Equal(t, 0, availability[1].AvailableSpots)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassOfferingRepositoryUpdateCapacityGuardedAccepts(t *testing.T) {
	db, mock, cleanup := newOfferingRepoMock(t)
	defer cleanup()
	repo := NewClassOfferingRepository(db)

	mock.ExpectExec(`(?s)UPDATE class_offerings SET capacity = \$2.*AND \$2 >= \(SELECT COUNT\(\*\) FROM students WHERE class_offering_id = \$1 AND status = 'CONFIRMED'\)`).
		WithArgs("class-1", 25, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.UpdateCapacityGuarded(context.Background(), "class-1", 25)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassOfferingRepositoryUpdateCapacityGuardedRejects(t *testing.T) {
	db, mock, cleanup := newOfferingRepoMock(t)
	defer cleanup()
	repo := NewClassOfferingRepository(db)

	// The conditional update touches no row when the new capacity is below
	// the confirmed occupancy.
	mock.ExpectExec(`(?s)UPDATE class_offerings SET capacity = \$2`).
		WithArgs("class-1", 5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.UpdateCapacityGuarded(context.Background(), "class-1", 5)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassOfferingRepositoryListFiltersByYear(t *testing.T) {
	db, mock, cleanup := newOfferingRepoMock(t)
	defer cleanup()
	repo := NewClassOfferingRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "academic_year", "level", "time_slot", "capacity", "created_at", "updated_at"}).
		AddRow("class-1", "1A", "2026/2027", "1", "MORNING", 30, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, academic_year, level, time_slot, capacity, created_at, updated_at FROM class_offerings WHERE 1=1 AND academic_year = $1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("2026/2027").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM class_offerings WHERE 1=1 AND academic_year = $1")).
		WithArgs("2026/2027").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	offerings, total, err := repo.List(context.Background(), models.ClassOfferingFilter{AcademicYear: "2026/2027"})
	require.NoError(t, err)
	require.Len(t, offerings, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassOfferingRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newOfferingRepoMock(t)
	defer cleanup()
	repo := NewClassOfferingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM class_offerings WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
