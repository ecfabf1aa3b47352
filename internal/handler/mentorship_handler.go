package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-collab-api/internal/middleware"
	"github.com/noah-isme/campus-collab-api/internal/models"
	"github.com/noah-isme/campus-collab-api/internal/service"
	appErrors "github.com/noah-isme/campus-collab-api/pkg/errors"
	"github.com/noah-isme/campus-collab-api/pkg/response"
)

// MentorshipHandler wires HTTP endpoints to mentor discovery and session
// booking.
type MentorshipHandler struct {
	mentorship  *service.MentorshipService
	suggestions *service.SuggestionService
}

// NewMentorshipHandler creates a new handler.
func NewMentorshipHandler(mentorship *service.MentorshipService, suggestions *service.SuggestionService) *MentorshipHandler {
	return &MentorshipHandler{mentorship: mentorship, suggestions: suggestions}
}

// ListMentors godoc
// @Summary List mentors
// @Description Mentor directory with search and rating sort
// @Tags Mentorship
// @Produce json
// @Param search query string false "Search over name and expertise"
// @Param sort query string false "name or rating"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /mentors [get]
func (h *MentorshipHandler) ListMentors(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.MentorFilter{
		Search:   c.Query("search"),
		SortBy:   c.Query("sort"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}

	mentors, err := h.suggestions.ListMentors(c.Request.Context(), claims.Actor(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, mentors, nil, middleware.ExtractMeta(c))
}

// Slots godoc
// @Summary List bookable slots
// @Description Declared weekly slots minus those held by live session requests
// @Tags Mentorship
// @Produce json
// @Param id path string true "Mentor ID"
// @Success 200 {object} response.Envelope
// @Router /mentors/{id}/slots [get]
func (h *MentorshipHandler) Slots(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	slots, err := h.mentorship.Availability(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, slots, nil)
}

type bookSessionRequest struct {
	Title       string `json:"title" binding:"required"`
	SessionType string `json:"session_type"`
	Message     string `json:"message"`
	DayOfWeek   *int   `json:"day_of_week" binding:"required"`
	TimeLabel   string `json:"time_label" binding:"required"`
}

// Book godoc
// @Summary Book a mentorship session
// @Description Request a session in one of the mentor's open slots
// @Tags Mentorship
// @Accept json
// @Produce json
// @Param id path string true "Mentor ID"
// @Param payload body bookSessionRequest true "Session request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /mentors/{id}/sessions [post]
func (h *MentorshipHandler) Book(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req bookSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	detail, err := h.mentorship.Book(c.Request.Context(), claims.Actor(), service.BookSessionInput{
		MentorID:     c.Param("id"),
		SessionTitle: req.Title,
		SessionType:  req.SessionType,
		Message:      req.Message,
		DayOfWeek:    req.DayOfWeek,
		TimeLabel:    req.TimeLabel,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, detail)
}

// Accept godoc
// @Summary Accept session request
// @Tags Mentorship
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/accept [put]
func (h *MentorshipHandler) Accept(c *gin.Context) {
	h.respond(c, models.DecisionAccept)
}

// Reject godoc
// @Summary Reject session request
// @Tags Mentorship
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/reject [put]
func (h *MentorshipHandler) Reject(c *gin.Context) {
	h.respond(c, models.DecisionReject)
}

func (h *MentorshipHandler) respond(c *gin.Context, decision models.RequestDecision) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.mentorship.Respond(c.Request.Context(), claims.Actor(), c.Param("id"), decision)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Withdraw godoc
// @Summary Withdraw session request
// @Tags Mentorship
// @Produce json
// @Param id path string true "Request ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id} [delete]
func (h *MentorshipHandler) Withdraw(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.mentorship.Withdraw(c.Request.Context(), claims.Actor(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Incoming godoc
// @Summary List incoming session requests
// @Tags Mentorship
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sessions/incoming [get]
func (h *MentorshipHandler) Incoming(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	list, err := h.mentorship.ListIncoming(c.Request.Context(), claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, list, nil)
}

// Outgoing godoc
// @Summary List own session requests
// @Tags Mentorship
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sessions/outgoing [get]
func (h *MentorshipHandler) Outgoing(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	list, err := h.mentorship.ListOutgoing(c.Request.Context(), claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, list, nil)
}
