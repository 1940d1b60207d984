package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sekolahku/psb-api/internal/models"
	appErrors "github.com/sekolahku/psb-api/pkg/errors"
)

type classOfferingRepository interface {
	List(ctx context.Context, filter models.ClassOfferingFilter) ([]models.ClassOffering, int, error)
	FindByID(ctx context.Context, id string) (*models.ClassOffering, error)
	ListWithOccupancy(ctx context.Context, academicYear string) ([]models.ClassAvailability, error)
	CountConfirmed(ctx context.Context, offeringID string) (int, error)
	CountStudents(ctx context.Context, offeringID string) (int, error)
	Create(ctx context.Context, offering *models.ClassOffering) error
	Update(ctx context.Context, offering *models.ClassOffering) error
	UpdateCapacityGuarded(ctx context.Context, id string, capacity int) (bool, error)
	Delete(ctx context.Context, id string) error
}

type availabilityCache interface {
	Get(ctx context.Context, academicYear string) ([]models.ClassAvailability, bool)
	Set(ctx context.Context, academicYear string, snapshot []models.ClassAvailability)
	Invalidate(ctx context.Context, academicYear string)
}

// CreateClassOfferingRequest describes a new offering payload.
type CreateClassOfferingRequest struct {
	Name         string `json:"name" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required"`
	Level        string `json:"level"`
	TimeSlot     string `json:"time_slot"`
	Capacity     int    `json:"capacity" validate:"required,min=1"`
}

// UpdateClassOfferingRequest describes descriptive updates.
type UpdateClassOfferingRequest struct {
	Name         string `json:"name" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required"`
	Level        string `json:"level"`
	TimeSlot     string `json:"time_slot"`
}

// UpdateCapacityRequest carries the new seat capacity.
type UpdateCapacityRequest struct {
	Capacity int `json:"capacity" validate:"required,min=1"`
}

// ClassOfferingService manages offerings and their derived availability.
type ClassOfferingService struct {
	repo      classOfferingRepository
	cache     availabilityCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassOfferingService constructs ClassOfferingService.
func NewClassOfferingService(repo classOfferingRepository, cache availabilityCache, validate *validator.Validate, logger *zap.Logger) *ClassOfferingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassOfferingService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns offerings with pagination metadata.
func (s *ClassOfferingService) List(ctx context.Context, filter models.ClassOfferingFilter) ([]models.ClassOffering, *models.Pagination, error) {
	offerings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class offerings")
	}
	return offerings, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one offering.
func (s *ClassOfferingService) Get(ctx context.Context, id string) (*models.ClassOffering, error) {
	offering, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class offering")
	}
	return offering, nil
}

// ListAvailable returns offerings in the academic year that still have at
// least one free seat. Availability is capacity minus confirmed occupancy,
// derived at read time; full offerings are filtered out, never mutated.
func (s *ClassOfferingService) ListAvailable(ctx context.Context, academicYear string) ([]models.ClassAvailability, error) {
	if academicYear == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academic_year is required")
	}

	snapshot, ok := s.cache.Get(ctx, academicYear)
	if !ok {
		var err error
		snapshot, err = s.repo.ListWithOccupancy(ctx, academicYear)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute availability")
		}
		s.cache.Set(ctx, academicYear, snapshot)
	}

	available := make([]models.ClassAvailability, 0, len(snapshot))
	for _, entry := range snapshot {
		if entry.AvailableSpots > 0 {
			available = append(available, entry)
		}
	}
	return available, nil
}

// Create persists a new offering.
func (s *ClassOfferingService) Create(ctx context.Context, req CreateClassOfferingRequest) (*models.ClassOffering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class offering payload")
	}
	offering := &models.ClassOffering{
		Name:         req.Name,
		AcademicYear: req.AcademicYear,
		Level:        req.Level,
		TimeSlot:     req.TimeSlot,
		Capacity:     req.Capacity,
	}
	if err := s.repo.Create(ctx, offering); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class offering")
	}
	s.cache.Invalidate(ctx, offering.AcademicYear)
	return offering, nil
}

// Update changes descriptive fields. Capacity goes through UpdateCapacity.
func (s *ClassOfferingService) Update(ctx context.Context, id string, req UpdateClassOfferingRequest) (*models.ClassOffering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class offering payload")
	}
	offering, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	previousYear := offering.AcademicYear
	offering.Name = req.Name
	offering.AcademicYear = req.AcademicYear
	offering.Level = req.Level
	offering.TimeSlot = req.TimeSlot

	if err := s.repo.Update(ctx, offering); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class offering")
	}
	s.cache.Invalidate(ctx, previousYear)
	if offering.AcademicYear != previousYear {
		s.cache.Invalidate(ctx, offering.AcademicYear)
	}
	return offering, nil
}

// UpdateCapacity changes the seat capacity. The write is guarded in SQL:
// it only lands while the new capacity still covers the current confirmed
// occupancy, otherwise the caller gets a conflict.
func (s *ClassOfferingService) UpdateCapacity(ctx context.Context, id string, req UpdateCapacityRequest) (*models.ClassOffering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid capacity payload")
	}
	offering, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.UpdateCapacityGuarded(ctx, id, req.Capacity)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update capacity")
	}
	if !ok {
		confirmed, countErr := s.repo.CountConfirmed(ctx, id)
		if countErr != nil {
			return nil, appErrors.Wrap(countErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update capacity")
		}
		s.logger.Info("capacity reduction rejected",
			zap.String("class_offering_id", id),
			zap.Int("requested", req.Capacity),
			zap.Int("confirmed", confirmed))
		return nil, appErrors.Clone(appErrors.ErrConflict, "capacity cannot drop below confirmed enrollments")
	}

	offering.Capacity = req.Capacity
	s.cache.Invalidate(ctx, offering.AcademicYear)
	return offering, nil
}

// Delete removes an offering unless any student still references it,
// whatever that student's status.
func (s *ClassOfferingService) Delete(ctx context.Context, id string) error {
	offering, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	count, err := s.repo.CountStudents(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check referencing students")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "class offering still has registered students")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class offering not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class offering")
	}
	s.cache.Invalidate(ctx, offering.AcademicYear)
	return nil
}
