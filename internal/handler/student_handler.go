package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sekolahku/psb-api/internal/models"
	"github.com/sekolahku/psb-api/internal/service"
	appErrors "github.com/sekolahku/psb-api/pkg/errors"
	"github.com/sekolahku/psb-api/pkg/response"
)

// StudentHandler exposes roster and flag endpoints.
type StudentHandler struct {
	students      *service.StudentService
	registrations *service.RegistrationService
	flags         *service.FlagService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students *service.StudentService, registrations *service.RegistrationService, flags *service.FlagService) *StudentHandler {
	return &StudentHandler{students: students, registrations: registrations, flags: flags}
}

func studentFilterFromQuery(c *gin.Context) models.StudentFilter {
	var filter models.StudentFilter
	filter.Search = c.Query("search")
	filter.Status = models.RegistrationStatus(strings.ToUpper(c.Query("status")))
	filter.ClassOfferingID = c.Query("class_offering_id")
	filter.AcademicYear = c.Query("academic_year")
	if from, err := time.Parse("2006-01-02", c.Query("registered_from")); err == nil {
		filter.RegisteredFrom = &from
	}
	if to, err := time.Parse("2006-01-02", c.Query("registered_to")); err == nil {
		filter.RegisteredTo = &to
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Match student or guardian name"
// @Param status query string false "Registration status"
// @Param class_offering_id query string false "Filter by class offering"
// @Param academic_year query string false "Filter by academic year"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	students, pagination, err := h.students.List(c.Request.Context(), studentFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Export godoc
// @Summary Export the filtered roster as CSV
// @Tags Students
// @Produce text/csv
// @Success 200 {string} string "CSV content"
// @Security BearerAuth
// @Router /students/export [get]
func (h *StudentHandler) Export(c *gin.Context) {
	data, filename, err := h.students.ExportCSV(c.Request.Context(), studentFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", data)
}

// Get godoc
// @Summary Get a student with guardian and class context
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.registrations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// ListFlags godoc
// @Summary List flags on a student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Param active query bool false "Only active flags"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id}/flags [get]
func (h *StudentHandler) ListFlags(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active", "false"))
	flags, err := h.flags.ListByStudent(c.Request.Context(), c.Param("id"), activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, flags, nil)
}

// CreateFlag godoc
// @Summary Raise a flag on a student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.CreateFlagRequest true "Flag payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id}/flags [post]
func (h *StudentHandler) CreateFlag(c *gin.Context) {
	var req service.CreateFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	flag, err := h.flags.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, flag)
}

// ResolveFlag godoc
// @Summary Resolve an active flag
// @Tags Students
// @Produce json
// @Param id path string true "Flag ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Flag already resolved"
// @Security BearerAuth
// @Router /flags/{id}/resolve [put]
func (h *StudentHandler) ResolveFlag(c *gin.Context) {
	flag, err := h.flags.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, flag, nil)
}
