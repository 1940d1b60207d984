package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolahku/psb-api/internal/models"
	"github.com/sekolahku/psb-api/internal/repository"
	appErrors "github.com/sekolahku/psb-api/pkg/errors"
)

type mockRegistrationRepo struct {
	mu       sync.Mutex
	students map[string]*models.Student
	capacity int
	nextID   int
}

func newMockRegistrationRepo(capacity int) *mockRegistrationRepo {
	return &mockRegistrationRepo{students: make(map[string]*models.Student), capacity: capacity}
}

func (m *mockRegistrationRepo) addPending(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[id] = &models.Student{
		ID:           id,
		FullName:     "Student " + id,
		AcademicYear: "2026/2027",
		Status:       models.RegistrationStatusPending,
	}
}

func (m *mockRegistrationRepo) Register(ctx context.Context, student *models.Student, parent *models.Parent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	student.ID = fmt.Sprintf("student-%d", m.nextID)
	student.Status = models.RegistrationStatusPending
	copied := *student
	m.students[student.ID] = &copied
	return nil
}

func (m *mockRegistrationRepo) ConfirmSeat(ctx context.Context, studentID string) (repository.ConfirmOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	student, ok := m.students[studentID]
	if !ok {
		return repository.ConfirmNotFound, nil
	}
	switch student.Status {
	case models.RegistrationStatusConfirmed:
		return repository.ConfirmAlreadyConfirmed, nil
	case models.RegistrationStatusCancelled:
		return repository.ConfirmCancelled, nil
	}
	confirmed := 0
	for _, s := range m.students {
		if s.Status == models.RegistrationStatusConfirmed {
			confirmed++
		}
	}
	if confirmed >= m.capacity {
		return repository.ConfirmClassFull, nil
	}
	now := time.Now()
	student.Status = models.RegistrationStatusConfirmed
	student.ConfirmedAt = &now
	return repository.ConfirmOK, nil
}

func (m *mockRegistrationRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	student, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *student
	return &copied, nil
}

func (m *mockRegistrationRepo) FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	student, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.StudentDetail{Student: *student, ParentName: "Guardian", ParentPhone: "0800"}, nil
}

func (m *mockRegistrationRepo) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	student, ok := m.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	student.Status = status
	return nil
}

func (m *mockRegistrationRepo) Expel(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.students, id)
	return nil
}

type mockOfferingReader struct {
	offerings map[string]*models.ClassOffering
}

func (m *mockOfferingReader) FindByID(ctx context.Context, id string) (*models.ClassOffering, error) {
	offering, ok := m.offerings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return offering, nil
}

type mockInvalidator struct {
	mu    sync.Mutex
	years []string
}

func (m *mockInvalidator) Invalidate(ctx context.Context, academicYear string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.years = append(m.years, academicYear)
}

type mockRegistrationMetrics struct {
	mu        sync.Mutex
	confirmed int
	rejected  map[string]int
}

func (m *mockRegistrationMetrics) RegistrationConfirmed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmed++
}

func (m *mockRegistrationMetrics) RegistrationRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rejected == nil {
		m.rejected = make(map[string]int)
	}
	m.rejected[reason]++
}

func newRegistrationFixture(capacity int) (*RegistrationService, *mockRegistrationRepo, *mockInvalidator, *mockRegistrationMetrics) {
	repo := newMockRegistrationRepo(capacity)
	offerings := &mockOfferingReader{offerings: map[string]*models.ClassOffering{
		"class-1": {ID: "class-1", Name: "1A", AcademicYear: "2026/2027", Capacity: capacity},
	}}
	cache := &mockInvalidator{}
	metrics := &mockRegistrationMetrics{}
	svc := NewRegistrationService(repo, offerings, cache, metrics, nil, nil)
	return svc, repo, cache, metrics
}

func validRegisterRequest() RegisterStudentRequest {
	return RegisterStudentRequest{
		FullName:        "Budi Santoso",
		Gender:          "M",
		BirthDate:       "2019-04-12",
		AcademicYear:    "2026/2027",
		ClassOfferingID: "class-1",
		ParentName:      "Siti Santoso",
		ParentPhone:     "081234567890",
	}
}

func TestRegisterCreatesPendingStudent(t *testing.T) {
	svc, _, _, _ := newRegistrationFixture(30)

	detail, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusPending, detail.Status)
	assert.NotEmpty(t, detail.ID)
	assert.Nil(t, detail.ConfirmedAt)
}

func TestRegisterValidatesPayload(t *testing.T) {
	svc, repo, _, _ := newRegistrationFixture(30)

	req := validRegisterRequest()
	req.Gender = "X"
	_, err := svc.Register(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.students)
}

func TestRegisterRejectsMalformedBirthDate(t *testing.T) {
	svc, repo, _, _ := newRegistrationFixture(30)

	req := validRegisterRequest()
	req.BirthDate = "12-04-2019"
	_, err := svc.Register(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.students)
}

func TestRegisterUnknownOffering(t *testing.T) {
	svc, _, _, _ := newRegistrationFixture(30)

	req := validRegisterRequest()
	req.ClassOfferingID = "missing"
	_, err := svc.Register(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestConfirmTransitionsToConfirmed(t *testing.T) {
	svc, repo, cache, metrics := newRegistrationFixture(5)
	repo.addPending("student-1")

	detail, err := svc.Confirm(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusConfirmed, detail.Status)
	assert.NotNil(t, detail.ConfirmedAt)
	assert.Equal(t, 1, metrics.confirmed)
	assert.Equal(t, []string{"2026/2027"}, cache.years)
}

func TestConfirmNotFound(t *testing.T) {
	svc, _, _, metrics := newRegistrationFixture(5)

	_, err := svc.Confirm(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 1, metrics.rejected["not_found"])
}

func TestConfirmAlreadyConfirmed(t *testing.T) {
	svc, repo, _, metrics := newRegistrationFixture(5)
	repo.addPending("student-1")

	_, err := svc.Confirm(context.Background(), "student-1")
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), "student-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 1, metrics.rejected["already_confirmed"])
}

func TestConfirmCancelledRegistration(t *testing.T) {
	svc, repo, _, metrics := newRegistrationFixture(5)
	repo.addPending("student-1")
	repo.students["student-1"].Status = models.RegistrationStatusCancelled

	_, err := svc.Confirm(context.Background(), "student-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 1, metrics.rejected["cancelled"])
}

func TestConfirmClassFull(t *testing.T) {
	svc, repo, _, metrics := newRegistrationFixture(1)
	repo.addPending("student-1")
	repo.addPending("student-2")

	_, err := svc.Confirm(context.Background(), "student-1")
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), "student-2")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrClassFull.Code, appErr.Code)
	assert.Equal(t, "class is now full", appErr.Message)
	assert.Equal(t, 1, metrics.rejected["class_full"])
}

// With more concurrent confirms than seats, exactly capacity of them may
// win and the rest must see a class-full conflict.
func TestConfirmConcurrentLastSeats(t *testing.T) {
	const capacity = 3
	const contenders = 10

	svc, repo, _, metrics := newRegistrationFixture(capacity)
	ids := make([]string, 0, contenders)
	for i := 0; i < contenders; i++ {
		id := fmt.Sprintf("student-%d", i)
		repo.addPending(id)
		ids = append(ids, id)
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = svc.Confirm(context.Background(), id)
		}(i, id)
	}
	wg.Wait()

	winners := 0
	full := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		if appErrors.FromError(err).Code == appErrors.ErrClassFull.Code {
			full++
		}
	}
	assert.Equal(t, capacity, winners)
	assert.Equal(t, contenders-capacity, full)
	assert.Equal(t, capacity, metrics.confirmed)
}

func TestCancelFreesSeatForNextConfirm(t *testing.T) {
	svc, repo, _, _ := newRegistrationFixture(2)
	repo.addPending("a")
	repo.addPending("b")
	repo.addPending("c")

	_, err := svc.Confirm(context.Background(), "a")
	require.NoError(t, err)
	_, err = svc.Confirm(context.Background(), "b")
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), "c")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrClassFull.Code, appErrors.FromError(err).Code)

	detail, err := svc.Cancel(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusCancelled, detail.Status)

	detail, err = svc.Confirm(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusConfirmed, detail.Status)
}

func TestCancelAlreadyCancelled(t *testing.T) {
	svc, repo, _, _ := newRegistrationFixture(5)
	repo.addPending("student-1")
	repo.students["student-1"].Status = models.RegistrationStatusCancelled

	_, err := svc.Cancel(context.Background(), "student-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCancelNotFound(t *testing.T) {
	svc, _, _, _ := newRegistrationFixture(5)

	_, err := svc.Cancel(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExpelRemovesStudent(t *testing.T) {
	svc, repo, cache, _ := newRegistrationFixture(5)
	repo.addPending("student-1")

	actor := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	err := svc.Expel(context.Background(), "student-1", actor)
	require.NoError(t, err)
	assert.Empty(t, repo.students)
	assert.Contains(t, cache.years, "2026/2027")

	err = svc.Expel(context.Background(), "student-1", actor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGetNotFound(t *testing.T) {
	svc, _, _, _ := newRegistrationFixture(5)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
