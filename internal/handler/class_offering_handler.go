package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sekolahku/psb-api/internal/models"
	"github.com/sekolahku/psb-api/internal/service"
	appErrors "github.com/sekolahku/psb-api/pkg/errors"
	"github.com/sekolahku/psb-api/pkg/response"
)

// ClassOfferingHandler exposes class offering endpoints.
type ClassOfferingHandler struct {
	offerings *service.ClassOfferingService
}

// NewClassOfferingHandler constructs ClassOfferingHandler.
func NewClassOfferingHandler(offerings *service.ClassOfferingService) *ClassOfferingHandler {
	return &ClassOfferingHandler{offerings: offerings}
}

// List godoc
// @Summary List class offerings
// @Tags Classes
// @Produce json
// @Param academic_year query string false "Filter by academic year"
// @Param level query string false "Filter by level"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /classes [get]
func (h *ClassOfferingHandler) List(c *gin.Context) {
	var filter models.ClassOfferingFilter
	filter.AcademicYear = c.Query("academic_year")
	filter.Level = c.Query("level")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	offerings, pagination, err := h.offerings.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offerings, pagination)
}

// Available godoc
// @Summary List offerings with at least one free seat
// @Tags Classes
// @Produce json
// @Param academic_year query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /classes/available [get]
func (h *ClassOfferingHandler) Available(c *gin.Context) {
	offerings, err := h.offerings.ListAvailable(c.Request.Context(), c.Query("academic_year"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offerings, nil)
}

// Get godoc
// @Summary Get a class offering
// @Tags Classes
// @Produce json
// @Param id path string true "Class offering ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id} [get]
func (h *ClassOfferingHandler) Get(c *gin.Context) {
	offering, err := h.offerings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offering, nil)
}

// Create godoc
// @Summary Create a class offering
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body service.CreateClassOfferingRequest true "Class offering payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /classes [post]
func (h *ClassOfferingHandler) Create(c *gin.Context) {
	var req service.CreateClassOfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	offering, err := h.offerings.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, offering)
}

// Update godoc
// @Summary Update class offering details
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class offering ID"
// @Param payload body service.UpdateClassOfferingRequest true "Class offering payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id} [put]
func (h *ClassOfferingHandler) Update(c *gin.Context) {
	var req service.UpdateClassOfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	offering, err := h.offerings.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offering, nil)
}

// UpdateCapacity godoc
// @Summary Change the seat capacity of an offering
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class offering ID"
// @Param payload body service.UpdateCapacityRequest true "Capacity payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Capacity below confirmed enrollments"
// @Security BearerAuth
// @Router /classes/{id}/capacity [put]
func (h *ClassOfferingHandler) UpdateCapacity(c *gin.Context) {
	var req service.UpdateCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	offering, err := h.offerings.UpdateCapacity(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offering, nil)
}

// Delete godoc
// @Summary Delete a class offering
// @Tags Classes
// @Produce json
// @Param id path string true "Class offering ID"
// @Success 204 "No Content"
// @Failure 409 {object} response.Envelope "Students still reference the offering"
// @Security BearerAuth
// @Router /classes/{id} [delete]
func (h *ClassOfferingHandler) Delete(c *gin.Context) {
	if err := h.offerings.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
