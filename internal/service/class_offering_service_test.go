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

type mockOfferingRepo struct {
	offerings map[string]*models.ClassOffering
	confirmed map[string]int
	students  map[string]int
	occupancy []models.ClassAvailability
	occCalls  int
}

func newMockOfferingRepo() *mockOfferingRepo {
	return &mockOfferingRepo{
		offerings: make(map[string]*models.ClassOffering),
		confirmed: make(map[string]int),
		students:  make(map[string]int),
	}
}

func (m *mockOfferingRepo) List(ctx context.Context, filter models.ClassOfferingFilter) ([]models.ClassOffering, int, error) {
	out := make([]models.ClassOffering, 0, len(m.offerings))
	for _, o := range m.offerings {
		out = append(out, *o)
	}
	return out, len(out), nil
}

func (m *mockOfferingRepo) FindByID(ctx context.Context, id string) (*models.ClassOffering, error) {
	offering, ok := m.offerings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *offering
	return &copied, nil
}

func (m *mockOfferingRepo) ListWithOccupancy(ctx context.Context, academicYear string) ([]models.ClassAvailability, error) {
	m.occCalls++
	return m.occupancy, nil
}

func (m *mockOfferingRepo) CountConfirmed(ctx context.Context, offeringID string) (int, error) {
	return m.confirmed[offeringID], nil
}

func (m *mockOfferingRepo) CountStudents(ctx context.Context, offeringID string) (int, error) {
	return m.students[offeringID], nil
}

func (m *mockOfferingRepo) Create(ctx context.Context, offering *models.ClassOffering) error {
	offering.ID = "class-new"
	copied := *offering
	m.offerings[offering.ID] = &copied
	return nil
}

func (m *mockOfferingRepo) Update(ctx context.Context, offering *models.ClassOffering) error {
	if _, ok := m.offerings[offering.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *offering
	m.offerings[offering.ID] = &copied
	return nil
}

func (m *mockOfferingRepo) UpdateCapacityGuarded(ctx context.Context, id string, capacity int) (bool, error) {
	offering, ok := m.offerings[id]
	if !ok {
		return false, nil
	}
	if capacity < m.confirmed[id] {
		return false, nil
	}
	offering.Capacity = capacity
	return true, nil
}

func (m *mockOfferingRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.offerings[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.offerings, id)
	return nil
}

type mockAvailabilityCache struct {
	snapshots   map[string][]models.ClassAvailability
	invalidated []string
}

func newMockAvailabilityCache() *mockAvailabilityCache {
	return &mockAvailabilityCache{snapshots: make(map[string][]models.ClassAvailability)}
}

func (m *mockAvailabilityCache) Get(ctx context.Context, academicYear string) ([]models.ClassAvailability, bool) {
	snapshot, ok := m.snapshots[academicYear]
	return snapshot, ok
}

func (m *mockAvailabilityCache) Set(ctx context.Context, academicYear string, snapshot []models.ClassAvailability) {
	m.snapshots[academicYear] = snapshot
}

func (m *mockAvailabilityCache) Invalidate(ctx context.Context, academicYear string) {
	delete(m.snapshots, academicYear)
	m.invalidated = append(m.invalidated, academicYear)
}

func newOfferingFixture() (*ClassOfferingService, *mockOfferingRepo, *mockAvailabilityCache) {
	repo := newMockOfferingRepo()
	cache := newMockAvailabilityCache()
	return NewClassOfferingService(repo, cache, nil, nil), repo, cache
}

func availability(id, name string, capacity, confirmed int) models.ClassAvailability {
	return models.ClassAvailability{
		ClassOffering:  models.ClassOffering{ID: id, Name: name, AcademicYear: "2026/2027", Capacity: capacity},
		ConfirmedCount: confirmed,
		AvailableSpots: capacity - confirmed,
	}
}

func TestListAvailableRequiresAcademicYear(t *testing.T) {
	svc, _, _ := newOfferingFixture()

	_, err := svc.ListAvailable(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestListAvailableFiltersFullOfferings(t *testing.T) {
	svc, repo, _ := newOfferingFixture()
	repo.occupancy = []models.ClassAvailability{
		availability("class-1", "1A", 30, 12),
		availability("class-2", "1B", 20, 20),
		availability("class-3", "1C", 25, 24),
	}

	available, err := svc.ListAvailable(context.Background(), "2026/2027")
	require.NoError(t, err)
	require.Len(t, available, 2)
	assert.Equal(t, "class-1", available[0].ID)
	assert.Equal(t, "class-3", available[1].ID)
	assert.Equal(t, 18, available[0].AvailableSpots)
}

func TestListAvailableUsesCachedSnapshot(t *testing.T) {
	svc, repo, cache := newOfferingFixture()
	repo.occupancy = []models.ClassAvailability{availability("class-1", "1A", 30, 0)}

	_, err := svc.ListAvailable(context.Background(), "2026/2027")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.occCalls)

	// Second read comes from the cache, not the repository.
	_, err = svc.ListAvailable(context.Background(), "2026/2027")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.occCalls)
	assert.Contains(t, cache.snapshots, "2026/2027")
}

func TestCreateOfferingValidatesCapacity(t *testing.T) {
	svc, _, _ := newOfferingFixture()

	_, err := svc.Create(context.Background(), CreateClassOfferingRequest{
		Name:         "1A",
		AcademicYear: "2026/2027",
		Capacity:     0,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateOfferingInvalidatesAvailability(t *testing.T) {
	svc, _, cache := newOfferingFixture()

	offering, err := svc.Create(context.Background(), CreateClassOfferingRequest{
		Name:         "1A",
		AcademicYear: "2026/2027",
		Level:        "1",
		Capacity:     30,
	})
	require.NoError(t, err)
	assert.Equal(t, "class-new", offering.ID)
	assert.Contains(t, cache.invalidated, "2026/2027")
}

func TestUpdateCapacityBelowConfirmedRejected(t *testing.T) {
	svc, repo, _ := newOfferingFixture()
	repo.offerings["class-1"] = &models.ClassOffering{ID: "class-1", Name: "1A", AcademicYear: "2026/2027", Capacity: 30}
	repo.confirmed["class-1"] = 25

	_, err := svc.UpdateCapacity(context.Background(), "class-1", UpdateCapacityRequest{Capacity: 20})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "capacity cannot drop below confirmed enrollments", appErr.Message)
	assert.Equal(t, 30, repo.offerings["class-1"].Capacity)
}

func TestUpdateCapacityAtConfirmedSucceeds(t *testing.T) {
	svc, repo, cache := newOfferingFixture()
	repo.offerings["class-1"] = &models.ClassOffering{ID: "class-1", Name: "1A", AcademicYear: "2026/2027", Capacity: 30}
	repo.confirmed["class-1"] = 25

	offering, err := svc.UpdateCapacity(context.Background(), "class-1", UpdateCapacityRequest{Capacity: 25})
	require.NoError(t, err)
	assert.Equal(t, 25, offering.Capacity)
	assert.Contains(t, cache.invalidated, "2026/2027")
}

func TestUpdateCapacityUnknownOffering(t *testing.T) {
	svc, _, _ := newOfferingFixture()

	_, err := svc.UpdateCapacity(context.Background(), "missing", UpdateCapacityRequest{Capacity: 10})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDeleteOfferingWithStudentsRejected(t *testing.T) {
	svc, repo, _ := newOfferingFixture()
	repo.offerings["class-1"] = &models.ClassOffering{ID: "class-1", AcademicYear: "2026/2027", Capacity: 30}
	repo.students["class-1"] = 3

	err := svc.Delete(context.Background(), "class-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Contains(t, repo.offerings, "class-1")
}

func TestDeleteEmptyOffering(t *testing.T) {
	svc, repo, cache := newOfferingFixture()
	repo.offerings["class-1"] = &models.ClassOffering{ID: "class-1", AcademicYear: "2026/2027", Capacity: 30}

	err := svc.Delete(context.Background(), "class-1")
	require.NoError(t, err)
	assert.NotContains(t, repo.offerings, "class-1")
	assert.Contains(t, cache.invalidated, "2026/2027")
}

func TestUpdateOfferingAcrossAcademicYears(t *testing.T) {
	svc, repo, cache := newOfferingFixture()
	repo.offerings["class-1"] = &models.ClassOffering{ID: "class-1", Name: "1A", AcademicYear: "2026/2027", Capacity: 30}

	offering, err := svc.Update(context.Background(), "class-1", UpdateClassOfferingRequest{
		Name:         "1A Pagi",
		AcademicYear: "2027/2028",
	})
	require.NoError(t, err)
	assert.Equal(t, "1A Pagi", offering.Name)
	// Both the old and the new year snapshots are stale.
	assert.Contains(t, cache.invalidated, "2026/2027")
	assert.Contains(t, cache.invalidated, "2027/2028")
}
