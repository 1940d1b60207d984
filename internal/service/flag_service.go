package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sekolahku/psb-api/internal/models"
	appErrors "github.com/sekolahku/psb-api/pkg/errors"
)

type flagRepository interface {
	Create(ctx context.Context, flag *models.StudentFlag) error
	FindByID(ctx context.Context, id string) (*models.StudentFlag, error)
	Resolve(ctx context.Context, id string, resolvedAt time.Time) error
	ListByStudent(ctx context.Context, studentID string, activeOnly bool) ([]models.StudentFlag, error)
}

type flagStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// CreateFlagRequest raises a flag on a student record.
type CreateFlagRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// FlagService manages staff-raised flags on student records. Flags never
// block payments or confirmation on their own; they are advisory.
type FlagService struct {
	repo      flagRepository
	students  flagStudentReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFlagService constructs FlagService.
func NewFlagService(repo flagRepository, students flagStudentReader, validate *validator.Validate, logger *zap.Logger) *FlagService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlagService{repo: repo, students: students, validator: validate, logger: logger}
}

// Create raises a new active flag on the student.
func (s *FlagService) Create(ctx context.Context, studentID string, req CreateFlagRequest) (*models.StudentFlag, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid flag payload")
	}

	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	flag := &models.StudentFlag{StudentID: studentID, Reason: req.Reason}
	if err := s.repo.Create(ctx, flag); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create flag")
	}

	s.logger.Info("student flagged",
		zap.String("student_id", studentID),
		zap.String("flag_id", flag.ID),
		zap.String("reason", req.Reason))
	return flag, nil
}

// Resolve deactivates an active flag. Resolving an already resolved flag
// is a conflict, not a no-op, so staff notice double handling.
func (s *FlagService) Resolve(ctx context.Context, id string) (*models.StudentFlag, error) {
	flag, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "flag not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load flag")
	}
	if !flag.Active {
		return nil, appErrors.Clone(appErrors.ErrConflict, "flag already resolved")
	}

	resolvedAt := time.Now().UTC()
	if err := s.repo.Resolve(ctx, id, resolvedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "flag already resolved")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve flag")
	}

	flag.Active = false
	flag.ResolvedAt = &resolvedAt
	s.logger.Info("flag resolved", zap.String("flag_id", id), zap.String("student_id", flag.StudentID))
	return flag, nil
}

// ListByStudent returns the student's flags, newest first.
func (s *FlagService) ListByStudent(ctx context.Context, studentID string, activeOnly bool) ([]models.StudentFlag, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	flags, err := s.repo.ListByStudent(ctx, studentID, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list flags")
	}
	return flags, nil
}
