package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sekolahku/psb-api/internal/models"
	"github.com/sekolahku/psb-api/pkg/export"
	appErrors "github.com/sekolahku/psb-api/pkg/errors"
)

type studentListRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

var studentExportHeaders = []string{
	"full_name", "gender", "birth_date", "status",
	"academic_year", "class_name", "parent_name", "parent_phone", "registered_at",
}

// StudentService serves the student roster: filtered listings and CSV
// export. Mutations go through RegistrationService.
type StudentService struct {
	repo     studentListRepository
	exporter datasetRenderer
	logger   *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentListRepository, exporter datasetRenderer, logger *zap.Logger) *StudentService {
	if exporter == nil {
		exporter = export.NewCSVExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, exporter: exporter, logger: logger}
}

// List returns students with guardian and class context, paginated.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// ExportCSV renders every student matching the filter, ignoring
// pagination, as a CSV document.
func (s *StudentService) ExportCSV(ctx context.Context, filter models.StudentFilter) ([]byte, string, error) {
	filter.Page = 1
	filter.PageSize = -1 // negative size disables the limit

	students, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students for export")
	}

	rows := make([]map[string]string, 0, len(students))
	for _, st := range students {
		className := ""
		if st.ClassName != nil {
			className = *st.ClassName
		}
		rows = append(rows, map[string]string{
			"full_name":     st.FullName,
			"gender":        st.Gender,
			"birth_date":    st.BirthDate.Format("2006-01-02"),
			"status":        string(st.Status),
			"academic_year": st.AcademicYear,
			"class_name":    className,
			"parent_name":   st.ParentName,
			"parent_phone":  st.ParentPhone,
			"registered_at": st.CreatedAt.Format(time.RFC3339),
		})
	}

	data, err := s.exporter.Render(export.Dataset{Headers: studentExportHeaders, Rows: rows})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := "students-" + time.Now().Format("20060102-150405") + ".csv"
	s.logger.Info("student roster exported", zap.Int("rows", len(rows)), zap.String("filename", filename))
	return data, filename, nil
}
