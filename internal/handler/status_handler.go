package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stp-api/internal/middleware"
	"github.com/noah-isme/stp-api/internal/models"
	"github.com/noah-isme/stp-api/internal/service"
	appErrors "github.com/noah-isme/stp-api/pkg/errors"
	"github.com/noah-isme/stp-api/pkg/response"
)

// StatusHandler exposes the derived status dashboard.
type StatusHandler struct {
	status  *service.StatusService
	exports *service.ExportService
}

// NewStatusHandler constructs StatusHandler.
func NewStatusHandler(status *service.StatusService, exports *service.ExportService) *StatusHandler {
	return &StatusHandler{status: status, exports: exports}
}

// List godoc
// @Summary List per-student derived statuses
// @Tags Status
// @Produce json
// @Param date query string false "Travel date"
// @Param schoolId query string false "Filter by school"
// @Param search query string false "Search by name, number or flight"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /status [get]
func (h *StatusHandler) List(c *gin.Context) {
	filter, err := h.filterFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	statuses, pagination, err := h.status.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, statuses, pagination)
}

// Stats godoc
// @Summary Aggregate status counts for a travel date
// @Tags Status
// @Produce json
// @Param date query string false "Travel date"
// @Param schoolId query string false "Filter by school"
// @Success 200 {object} response.Envelope
// @Router /status/stats [get]
func (h *StatusHandler) Stats(c *gin.Context) {
	filter, err := h.filterFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	stats, fromCache, err := h.status.Stats(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, fromCache)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export the day status report as CSV or PDF
// @Tags Status
// @Produce text/csv
// @Produce application/pdf
// @Param date query string false "Travel date"
// @Param schoolId query string false "Filter by school"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /status/export [get]
func (h *StatusHandler) Export(c *gin.Context) {
	filter, err := h.filterFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.exports.DayStatusReport(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, result.Filename, result.ContentType, result.Payload)
}

// filterFromRequest builds the status filter. School accounts only ever see
// their own school, whatever the query says.
func (h *StatusHandler) filterFromRequest(c *gin.Context) (models.StatusFilter, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return models.StatusFilter{}, appErrors.ErrUnauthorized
	}
	var filter models.StatusFilter
	filter.Date = strings.TrimSpace(c.Query("date"))
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.SchoolID = c.Query("schoolId")
	if claims.Role == models.RoleSchool {
		if claims.SchoolID == nil || *claims.SchoolID == "" {
			return models.StatusFilter{}, appErrors.Clone(appErrors.ErrForbidden, "school account has no linked school")
		}
		filter.SchoolID = *claims.SchoolID
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}
	return filter, nil
}
