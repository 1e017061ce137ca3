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

// AbsentFeedbackHandler exposes absence feedback endpoints.
type AbsentFeedbackHandler struct {
	feedback *service.AbsentFeedbackService
}

// NewAbsentFeedbackHandler constructs AbsentFeedbackHandler.
func NewAbsentFeedbackHandler(feedback *service.AbsentFeedbackService) *AbsentFeedbackHandler {
	return &AbsentFeedbackHandler{feedback: feedback}
}

// Submit godoc
// @Summary Submit or edit absence feedback for a student
// @Tags AbsentFeedback
// @Accept json
// @Produce json
// @Param payload body service.SubmitFeedbackRequest true "Feedback payload"
// @Success 200 {object} response.Envelope
// @Router /absent-feedback [post]
func (h *AbsentFeedbackHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	feedback, err := h.feedback.Submit(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, feedback, nil)
}

// Review godoc
// @Summary Review submitted absence feedback
// @Tags AbsentFeedback
// @Accept json
// @Produce json
// @Param id path string true "Feedback ID"
// @Param payload body service.ReviewFeedbackRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Router /absent-feedback/{id}/review [put]
func (h *AbsentFeedbackHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.ReviewFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	feedback, err := h.feedback.Review(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, feedback, nil)
}

// Get godoc
// @Summary Get an absence feedback entry
// @Tags AbsentFeedback
// @Produce json
// @Param id path string true "Feedback ID"
// @Success 200 {object} response.Envelope
// @Router /absent-feedback/{id} [get]
func (h *AbsentFeedbackHandler) Get(c *gin.Context) {
	feedback, err := h.feedback.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, feedback, nil)
}

// List godoc
// @Summary List absence feedback
// @Tags AbsentFeedback
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param date query string false "Travel date"
// @Param type query string false "Feedback type"
// @Param status query string false "Review status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /absent-feedback [get]
func (h *AbsentFeedbackHandler) List(c *gin.Context) {
	var filter models.AbsentFeedbackFilter
	filter.StudentID = c.Query("studentId")
	filter.Date = strings.TrimSpace(c.Query("date"))
	if feedbackType := c.Query("type"); feedbackType != "" {
		t := models.FeedbackType(feedbackType)
		filter.Type = &t
	}
	if status := c.Query("status"); status != "" {
		s := models.FeedbackReviewStatus(status)
		filter.Status = &s
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	feedback, pagination, err := h.feedback.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, feedback, pagination)
}
