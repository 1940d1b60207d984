package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolahku/psb-api/internal/models"
	appErrors "github.com/sekolahku/psb-api/pkg/errors"
)

type attendanceKey struct {
	studentID string
	date      string
}

type mockAttendanceRepo struct {
	rows map[attendanceKey]*models.Attendance
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{rows: make(map[attendanceKey]*models.Attendance)}
}

func (m *mockAttendanceRepo) Upsert(ctx context.Context, att *models.Attendance) error {
	key := attendanceKey{studentID: att.StudentID, date: att.Date.Format("2006-01-02")}
	att.ID = "att-" + key.date
	copied := *att
	m.rows[key] = &copied
	return nil
}

func (m *mockAttendanceRepo) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	out := make([]models.AttendanceRecord, 0, len(m.rows))
	for _, att := range m.rows {
		out = append(out, models.AttendanceRecord{Attendance: *att})
	}
	return out, len(out), nil
}

type mockAttendanceStudents struct {
	students map[string]*models.Student
}

func (m *mockAttendanceStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	student, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return student, nil
}

func newAttendanceFixture() (*AttendanceService, *mockAttendanceRepo) {
	repo := newMockAttendanceRepo()
	students := &mockAttendanceStudents{students: map[string]*models.Student{
		"student-1": {ID: "student-1", Status: models.RegistrationStatusConfirmed},
	}}
	return NewAttendanceService(repo, students, nil, nil), repo
}

func TestRecordAttendance(t *testing.T) {
	svc, _ := newAttendanceFixture()

	att, err := svc.Record(context.Background(), RecordAttendanceRequest{
		StudentID: "student-1",
		Date:      "2026-08-28",
		Status:    "PRESENT",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPresent, att.Status)
	assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), att.Date)
}

func TestRecordAttendanceSameDayOverwrites(t *testing.T) {
	svc, repo := newAttendanceFixture()

	_, err := svc.Record(context.Background(), RecordAttendanceRequest{
		StudentID: "student-1",
		Date:      "2026-08-28",
		Status:    "PRESENT",
	})
	require.NoError(t, err)

	_, err = svc.Record(context.Background(), RecordAttendanceRequest{
		StudentID: "student-1",
		Date:      "2026-08-28",
		Status:    "SICK",
	})
	require.NoError(t, err)

	require.Len(t, repo.rows, 1)
	stored := repo.rows[attendanceKey{studentID: "student-1", date: "2026-08-28"}]
	assert.Equal(t, models.AttendanceStatusSick, stored.Status)
}

func TestRecordAttendanceInvalidStatus(t *testing.T) {
	svc, repo := newAttendanceFixture()

	_, err := svc.Record(context.Background(), RecordAttendanceRequest{
		StudentID: "student-1",
		Date:      "2026-08-28",
		Status:    "LATE",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "invalid attendance status", appErr.Message)
	assert.Empty(t, repo.rows)
}

func TestRecordAttendanceBadDate(t *testing.T) {
	svc, _ := newAttendanceFixture()

	_, err := svc.Record(context.Background(), RecordAttendanceRequest{
		StudentID: "student-1",
		Date:      "28/08/2026",
		Status:    "PRESENT",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRecordAttendanceUnknownStudent(t *testing.T) {
	svc, _ := newAttendanceFixture()

	_, err := svc.Record(context.Background(), RecordAttendanceRequest{
		StudentID: "missing",
		Date:      "2026-08-28",
		Status:    "PRESENT",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
