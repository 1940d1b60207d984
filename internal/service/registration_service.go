package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sekolahku/psb-api/internal/models"
	"github.com/sekolahku/psb-api/internal/repository"
	appErrors "github.com/sekolahku/psb-api/pkg/errors"
)

type registrationRepository interface {
	Register(ctx context.Context, student *models.Student, parent *models.Parent) error
	ConfirmSeat(ctx context.Context, studentID string) (repository.ConfirmOutcome, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error)
	UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error
	Expel(ctx context.Context, id string) error
}

type offeringReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassOffering, error)
}

type availabilityInvalidator interface {
	Invalidate(ctx context.Context, academicYear string)
}

type registrationMetrics interface {
	RegistrationConfirmed()
	RegistrationRejected(reason string)
}

// RegisterStudentRequest describes a new registration payload. The
// guardian is matched by phone and created on the fly when unknown.
type RegisterStudentRequest struct {
	FullName        string `json:"full_name" validate:"required"`
	Gender          string `json:"gender" validate:"required,oneof=M F"`
	BirthDate       string `json:"birth_date" validate:"required,datetime=2006-01-02"`
	AcademicYear    string `json:"academic_year" validate:"required"`
	ClassOfferingID string `json:"class_offering_id" validate:"required"`
	ParentName      string `json:"parent_name" validate:"required"`
	ParentPhone     string `json:"parent_phone" validate:"required"`
	ParentEmail     string `json:"parent_email" validate:"omitempty,email"`
	ParentAddress   string `json:"parent_address"`
}

// RegistrationService orchestrates the admission workflow: register as
// PENDING, confirm against capacity, cancel, and expel.
type RegistrationService struct {
	repo      registrationRepository
	offerings offeringReader
	cache     availabilityInvalidator
	metrics   registrationMetrics
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRegistrationService constructs RegistrationService.
func NewRegistrationService(repo registrationRepository, offerings offeringReader, cache availabilityInvalidator, metrics registrationMetrics, validate *validator.Validate, logger *zap.Logger) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{repo: repo, offerings: offerings, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Register creates a PENDING student referencing the offering. Capacity is
// not checked here: the pending pool may exceed seats and is only bounded
// at confirmation time.
func (s *RegistrationService) Register(ctx context.Context, req RegisterStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	offering, err := s.offerings.FindByID(ctx, req.ClassOfferingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class offering")
	}

	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid birth date")
	}

	student := &models.Student{
		FullName:        req.FullName,
		Gender:          req.Gender,
		BirthDate:       birthDate,
		AcademicYear:    req.AcademicYear,
		ClassOfferingID: &offering.ID,
	}
	parent := &models.Parent{
		FullName: req.ParentName,
		Phone:    req.ParentPhone,
		Email:    req.ParentEmail,
		Address:  req.ParentAddress,
	}

	if err := s.repo.Register(ctx, student, parent); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create registration")
	}

	s.logger.Info("registration created",
		zap.String("student_id", student.ID),
		zap.String("class_offering_id", offering.ID),
		zap.String("academic_year", req.AcademicYear))

	detail, err := s.repo.FindDetailByID(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration detail")
	}
	return detail, nil
}

// Confirm transitions a PENDING student to CONFIRMED. The seat check and
// the status write happen under the offering row lock, so concurrent
// confirms for the last seat serialize: exactly one wins, the rest get
// a conflict.
func (s *RegistrationService) Confirm(ctx context.Context, studentID string) (*models.StudentDetail, error) {
	outcome, err := s.repo.ConfirmSeat(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm registration")
	}

	switch outcome {
	case repository.ConfirmNotFound:
		if s.metrics != nil {
			s.metrics.RegistrationRejected("not_found")
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	case repository.ConfirmAlreadyConfirmed:
		if s.metrics != nil {
			s.metrics.RegistrationRejected("already_confirmed")
		}
		return nil, appErrors.Clone(appErrors.ErrConflict, "registration already confirmed")
	case repository.ConfirmCancelled:
		if s.metrics != nil {
			s.metrics.RegistrationRejected("cancelled")
		}
		return nil, appErrors.Clone(appErrors.ErrConflict, "registration is cancelled")
	case repository.ConfirmClassFull:
		if s.metrics != nil {
			s.metrics.RegistrationRejected("class_full")
		}
		return nil, appErrors.Clone(appErrors.ErrClassFull, "class is now full")
	}

	if s.metrics != nil {
		s.metrics.RegistrationConfirmed()
	}

	detail, err := s.repo.FindDetailByID(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration detail")
	}

	s.logger.Info("registration confirmed", zap.String("student_id", studentID))
	s.invalidateAvailability(ctx, detail.AcademicYear)
	return detail, nil
}

// Cancel moves a registration to CANCELLED. A confirmed seat is freed on
// the next occupancy computation; nobody is promoted from the pending pool.
func (s *RegistrationService) Cancel(ctx context.Context, studentID string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Status == models.RegistrationStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "registration already cancelled")
	}

	if err := s.repo.UpdateStatus(ctx, studentID, models.RegistrationStatusCancelled); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel registration")
	}

	s.logger.Info("registration cancelled",
		zap.String("student_id", studentID),
		zap.String("previous_status", string(student.Status)))
	s.invalidateAvailability(ctx, student.AcademicYear)

	detail, err := s.repo.FindDetailByID(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration detail")
	}
	return detail, nil
}

// Expel destructively removes a student and every dependent record
// (flags, payments) in one transaction. Irreversible; the only audit
// trail is the process log.
func (s *RegistrationService) Expel(ctx context.Context, studentID string, actor *models.JWTClaims) error {
	student, err := s.repo.FindDetailByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if err := s.repo.Expel(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expel student")
	}

	actorID := ""
	if actor != nil {
		actorID = actor.UserID
	}
	s.logger.Warn("student expelled",
		zap.String("student_id", studentID),
		zap.String("student_name", student.FullName),
		zap.String("status", string(student.Status)),
		zap.String("actor_id", actorID))
	s.invalidateAvailability(ctx, student.AcademicYear)
	return nil
}

// Get returns a single registration with guardian and class context.
func (s *RegistrationService) Get(ctx context.Context, studentID string) (*models.StudentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return detail, nil
}

func (s *RegistrationService) invalidateAvailability(ctx context.Context, academicYear string) {
	if s.cache == nil || academicYear == "" {
		return
	}
	s.cache.Invalidate(ctx, academicYear)
}
