package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stp-api/internal/models"
	"github.com/noah-isme/stp-api/internal/service"
	appErrors "github.com/noah-isme/stp-api/pkg/errors"
	"github.com/noah-isme/stp-api/pkg/response"
)

// AssignmentHandler exposes assignment endpoints for dispatchers and drivers.
type AssignmentHandler struct {
	assignments *service.AssignmentService
	exports     *service.ExportService
	status      *service.StatusService
}

// NewAssignmentHandler constructs AssignmentHandler.
func NewAssignmentHandler(assignments *service.AssignmentService, exports *service.ExportService, status *service.StatusService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments, exports: exports, status: status}
}

// Create godoc
// @Summary Assign students to a driver or subdriver
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body service.CreateAssignmentsRequest true "Assignment batch"
// @Success 201 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateAssignmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	created, err := h.assignments.CreateBatch(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.status.InvalidateStats(c.Request.Context())
	response.Created(c, created)
}

// List godoc
// @Summary List assignments
// @Tags Assignments
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param driverId query string false "Filter by driver"
// @Param subdriverId query string false "Filter by subdriver"
// @Param status query string false "Lifecycle status"
// @Param date query string false "Travel date"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	var filter models.AssignmentFilter
	filter.StudentID = c.Query("studentId")
	filter.DriverID = c.Query("driverId")
	filter.SubdriverID = c.Query("subdriverId")
	filter.Date = strings.TrimSpace(c.Query("date"))
	if status := c.Query("status"); status != "" {
		s := models.AssignmentStatus(status)
		filter.Status = &s
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	assignments, pagination, err := h.assignments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, pagination)
}

// Get godoc
// @Summary Get assignment detail
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) Get(c *gin.Context) {
	assignment, err := h.assignments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Update godoc
// @Summary Update assignment status or notes
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body service.UpdateAssignmentRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [put]
func (h *AssignmentHandler) Update(c *gin.Context) {
	var req service.UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assignment, err := h.assignments.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.status.InvalidateStats(c.Request.Context())
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Cancel godoc
// @Summary Cancel an assignment and free the student
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 204
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.assignments.Cancel(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	h.status.InvalidateStats(c.Request.Context())
	response.NoContent(c)
}

// Mine godoc
// @Summary List the caller's active assignments
// @Tags Assignments
// @Produce json
// @Param date query string false "Travel date"
// @Success 200 {object} response.Envelope
// @Router /driver/assignments [get]
func (h *AssignmentHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	assignments, err := h.assignments.ListForActor(c.Request.Context(), claims.UserID, strings.TrimSpace(c.Query("date")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// CompletePickup godoc
// @Summary Mark the caller's assignment as picked up
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /driver/assignments/{id}/pickup [put]
func (h *AssignmentHandler) CompletePickup(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	assignment, err := h.assignments.CompletePickup(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.status.InvalidateStats(c.Request.Context())
	response.JSON(c, http.StatusOK, assignment, nil)
}

// CompleteDelivery godoc
// @Summary Mark the caller's assignment as delivered
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /driver/assignments/{id}/delivery [put]
func (h *AssignmentHandler) CompleteDelivery(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	assignment, err := h.assignments.CompleteDelivery(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.status.InvalidateStats(c.Request.Context())
	response.JSON(c, http.StatusOK, assignment, nil)
}

// ManifestFor godoc
// @Summary Export a driver's assignments as CSV or PDF
// @Tags Assignments
// @Produce text/csv
// @Produce application/pdf
// @Param driver_id query string true "Driver or subdriver user ID"
// @Param date query string false "Travel date"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /assignments/export [get]
func (h *AssignmentHandler) ManifestFor(c *gin.Context) {
	driverID := strings.TrimSpace(c.Query("driver_id"))
	if driverID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "driver_id query parameter is required"))
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.exports.DriverManifest(c.Request.Context(), driverID, strings.TrimSpace(c.Query("date")), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, result.Filename, result.ContentType, result.Payload)
}

// Manifest godoc
// @Summary Export the caller's assignments as CSV or PDF
// @Tags Assignments
// @Produce text/csv
// @Produce application/pdf
// @Param date query string false "Travel date"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /driver/assignments/export [get]
func (h *AssignmentHandler) Manifest(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.exports.DriverManifest(c.Request.Context(), claims.UserID, strings.TrimSpace(c.Query("date")), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, result.Filename, result.ContentType, result.Payload)
}
