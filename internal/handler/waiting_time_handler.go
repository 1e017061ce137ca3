package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stp-api/internal/service"
	appErrors "github.com/noah-isme/stp-api/pkg/errors"
	"github.com/noah-isme/stp-api/pkg/response"
)

// WaitingTimeHandler exposes greeter waiting-time endpoints.
type WaitingTimeHandler struct {
	waitingTimes *service.WaitingTimeService
	status       *service.StatusService
}

// NewWaitingTimeHandler constructs WaitingTimeHandler.
func NewWaitingTimeHandler(waitingTimes *service.WaitingTimeService, status *service.StatusService) *WaitingTimeHandler {
	return &WaitingTimeHandler{waitingTimes: waitingTimes, status: status}
}

// Record godoc
// @Summary Record or update a student's waiting time
// @Tags WaitingTimes
// @Accept json
// @Produce json
// @Param payload body service.RecordWaitingTimeRequest true "Waiting time payload"
// @Success 200 {object} response.Envelope
// @Router /waiting-times [post]
func (h *WaitingTimeHandler) Record(c *gin.Context) {
	var req service.RecordWaitingTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.waitingTimes.Record(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.status.InvalidateStats(c.Request.Context())
	response.JSON(c, http.StatusOK, entry, nil)
}

// MarkPickedUp godoc
// @Summary Mark a waiting student as picked up
// @Tags WaitingTimes
// @Accept json
// @Produce json
// @Param payload body handler.markPickedUpRequest true "Student and travel date"
// @Success 200 {object} response.Envelope
// @Router /waiting-times/pickup [post]
func (h *WaitingTimeHandler) MarkPickedUp(c *gin.Context) {
	var req markPickedUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.waitingTimes.MarkPickedUp(c.Request.Context(), req.StudentID, req.TravelDate)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.status.InvalidateStats(c.Request.Context())
	response.JSON(c, http.StatusOK, entry, nil)
}

// Get godoc
// @Summary Get a waiting-time entry
// @Tags WaitingTimes
// @Produce json
// @Param id path string true "Waiting time ID"
// @Success 200 {object} response.Envelope
// @Router /waiting-times/{id} [get]
func (h *WaitingTimeHandler) Get(c *gin.Context) {
	entry, err := h.waitingTimes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// ListByDate godoc
// @Summary List waiting-time entries for a travel date
// @Tags WaitingTimes
// @Produce json
// @Param date query string true "Travel date"
// @Success 200 {object} response.Envelope
// @Router /waiting-times [get]
func (h *WaitingTimeHandler) ListByDate(c *gin.Context) {
	date := strings.TrimSpace(c.Query("date"))
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date query parameter is required"))
		return
	}
	entries, err := h.waitingTimes.ListByDate(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

type markPickedUpRequest struct {
	StudentID  string `json:"student_id" binding:"required"`
	TravelDate string `json:"travel_date" binding:"required"`
}
