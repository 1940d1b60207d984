package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolahku/psb-api/internal/models"
	appErrors "github.com/sekolahku/psb-api/pkg/errors"
)

type gradeKey struct {
	studentID string
	subject   string
	term      string
}

type mockGradeRepo struct {
	rows map[gradeKey]*models.Grade
}

func newMockGradeRepo() *mockGradeRepo {
	return &mockGradeRepo{rows: make(map[gradeKey]*models.Grade)}
}

func (m *mockGradeRepo) Upsert(ctx context.Context, grade *models.Grade) error {
	key := gradeKey{studentID: grade.StudentID, subject: grade.Subject, term: grade.Term}
	grade.ID = "grade-" + grade.Subject
	copied := *grade
	m.rows[key] = &copied
	return nil
}

func (m *mockGradeRepo) List(ctx context.Context, filter models.GradeFilter) ([]models.GradeRecord, int, error) {
	out := make([]models.GradeRecord, 0, len(m.rows))
	for _, grade := range m.rows {
		out = append(out, models.GradeRecord{Grade: *grade})
	}
	return out, len(out), nil
}

type mockGradeStudents struct {
	students map[string]*models.Student
}

func (m *mockGradeStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	student, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return student, nil
}

func newGradeFixture() (*GradeService, *mockGradeRepo) {
	repo := newMockGradeRepo()
	students := &mockGradeStudents{students: map[string]*models.Student{
		"student-1": {ID: "student-1", Status: models.RegistrationStatusConfirmed},
	}}
	return NewGradeService(repo, students, nil, nil), repo
}

func TestRecordGrade(t *testing.T) {
	svc, _ := newGradeFixture()

	grade, err := svc.Record(context.Background(), RecordGradeRequest{
		StudentID: "student-1",
		Subject:   "Matematika",
		Term:      "2026-1",
		Score:     87.5,
	})
	require.NoError(t, err)
	assert.Equal(t, 87.5, grade.Score)
}

func TestRecordGradeUpsertsSameKey(t *testing.T) {
	svc, repo := newGradeFixture()

	req := RecordGradeRequest{StudentID: "student-1", Subject: "Matematika", Term: "2026-1", Score: 70}
	_, err := svc.Record(context.Background(), req)
	require.NoError(t, err)

	req.Score = 92
	_, err = svc.Record(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, repo.rows, 1)
	stored := repo.rows[gradeKey{studentID: "student-1", subject: "Matematika", term: "2026-1"}]
	assert.Equal(t, float64(92), stored.Score)
}

func TestRecordGradeScoreBounds(t *testing.T) {
	svc, repo := newGradeFixture()

	_, err := svc.Record(context.Background(), RecordGradeRequest{
		StudentID: "student-1",
		Subject:   "Matematika",
		Term:      "2026-1",
		Score:     101,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Record(context.Background(), RecordGradeRequest{
		StudentID: "student-1",
		Subject:   "Matematika",
		Term:      "2026-1",
		Score:     -1,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.rows)
}

func TestRecordGradeZeroScoreAllowed(t *testing.T) {
	svc, _ := newGradeFixture()

	grade, err := svc.Record(context.Background(), RecordGradeRequest{
		StudentID: "student-1",
		Subject:   "Matematika",
		Term:      "2026-1",
		Score:     0,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(0), grade.Score)
}

func TestRecordGradeUnknownStudent(t *testing.T) {
	svc, _ := newGradeFixture()

	_, err := svc.Record(context.Background(), RecordGradeRequest{
		StudentID: "missing",
		Subject:   "Matematika",
		Term:      "2026-1",
		Score:     80,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
