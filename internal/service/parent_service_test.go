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

type mockParentRepo struct {
	parents  map[string]*models.Parent
	students map[string]int
}

func newMockParentRepo() *mockParentRepo {
	return &mockParentRepo{parents: make(map[string]*models.Parent), students: make(map[string]int)}
}

func (m *mockParentRepo) List(ctx context.Context, filter models.ParentFilter) ([]models.Parent, int, error) {
	out := make([]models.Parent, 0, len(m.parents))
	for _, p := range m.parents {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockParentRepo) FindByID(ctx context.Context, id string) (*models.Parent, error) {
	parent, ok := m.parents[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *parent
	return &copied, nil
}

func (m *mockParentRepo) CountStudents(ctx context.Context, parentID string) (int, error) {
	return m.students[parentID], nil
}

func (m *mockParentRepo) Update(ctx context.Context, parent *models.Parent) error {
	if _, ok := m.parents[parent.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *parent
	m.parents[parent.ID] = &copied
	return nil
}

func (m *mockParentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.parents[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.parents, id)
	return nil
}

func newParentFixture() (*ParentService, *mockParentRepo) {
	repo := newMockParentRepo()
	repo.parents["parent-1"] = &models.Parent{
		ID:       "parent-1",
		FullName: "Siti Santoso",
		Phone:    "081234567890",
	}
	return NewParentService(repo, nil, nil), repo
}

func TestUpdateParent(t *testing.T) {
	svc, repo := newParentFixture()

	parent, err := svc.Update(context.Background(), "parent-1", UpdateParentRequest{
		FullName: "Siti Rahayu",
		Phone:    "081298765432",
		Email:    "siti@example.com",
		Address:  "Jl. Melati 5",
	})
	require.NoError(t, err)
	assert.Equal(t, "Siti Rahayu", parent.FullName)
	assert.Equal(t, "siti@example.com", repo.parents["parent-1"].Email)
}

func TestUpdateParentRejectsBadEmail(t *testing.T) {
	svc, _ := newParentFixture()

	_, err := svc.Update(context.Background(), "parent-1", UpdateParentRequest{
		FullName: "Siti Rahayu",
		Phone:    "081298765432",
		Email:    "not-an-email",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateParentNotFound(t *testing.T) {
	svc, _ := newParentFixture()

	_, err := svc.Update(context.Background(), "missing", UpdateParentRequest{
		FullName: "Siti Rahayu",
		Phone:    "081298765432",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDeleteParentWithStudentsRejected(t *testing.T) {
	svc, repo := newParentFixture()
	repo.students["parent-1"] = 2

	err := svc.Delete(context.Background(), "parent-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "parent still has registered students", appErr.Message)
	assert.Contains(t, repo.parents, "parent-1")
}

func TestDeleteParentWithoutStudents(t *testing.T) {
	svc, repo := newParentFixture()

	err := svc.Delete(context.Background(), "parent-1")
	require.NoError(t, err)
	assert.Empty(t, repo.parents)
}
