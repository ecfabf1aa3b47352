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

// ConnectionHandler wires HTTP endpoints to the peer connection workflow.
type ConnectionHandler struct {
	connections *service.ConnectionService
	suggestions *service.SuggestionService
}

// NewConnectionHandler creates a new handler.
func NewConnectionHandler(connections *service.ConnectionService, suggestions *service.SuggestionService) *ConnectionHandler {
	return &ConnectionHandler{connections: connections, suggestions: suggestions}
}

type sendConnectionRequest struct {
	TargetUserID string `json:"target_user_id" binding:"required"`
	Message      string `json:"message"`
}

// Send godoc
// @Summary Send connection request
// @Description Send a connection request to another user in the same college
// @Tags Connections
// @Accept json
// @Produce json
// @Param payload body sendConnectionRequest true "Connection request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /connections/requests [post]
func (h *ConnectionHandler) Send(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req sendConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	detail, err := h.connections.Send(c.Request.Context(), claims.Actor(), req.TargetUserID, req.Message)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, detail)
}

// Accept godoc
// @Summary Accept connection request
// @Tags Connections
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /connections/requests/{id}/accept [put]
func (h *ConnectionHandler) Accept(c *gin.Context) {
	h.respond(c, models.DecisionAccept)
}

// Reject godoc
// @Summary Reject connection request
// @Tags Connections
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /connections/requests/{id}/reject [put]
func (h *ConnectionHandler) Reject(c *gin.Context) {
	h.respond(c, models.DecisionReject)
}

func (h *ConnectionHandler) respond(c *gin.Context, decision models.RequestDecision) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.connections.Respond(c.Request.Context(), claims.Actor(), c.Param("id"), decision)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Withdraw godoc
// @Summary Withdraw connection request
// @Description Delete a pending outgoing connection request
// @Tags Connections
// @Produce json
// @Param id path string true "Request ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /connections/requests/{id} [delete]
func (h *ConnectionHandler) Withdraw(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.connections.Withdraw(c.Request.Context(), claims.Actor(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Remove godoc
// @Summary Remove connection
// @Description Dissolve an accepted connection; either party may remove it
// @Tags Connections
// @Produce json
// @Param id path string true "Connection ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /connections/{id} [delete]
func (h *ConnectionHandler) Remove(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.connections.Remove(c.Request.Context(), claims.Actor(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// List godoc
// @Summary List connections
// @Description List the caller's accepted connections
// @Tags Connections
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /connections [get]
func (h *ConnectionHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	list, err := h.connections.ListConnections(c.Request.Context(), claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, list, nil)
}

// Incoming godoc
// @Summary List incoming connection requests
// @Tags Connections
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /connections/requests/incoming [get]
func (h *ConnectionHandler) Incoming(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	list, err := h.connections.ListIncoming(c.Request.Context(), claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, list, nil)
}

// Outgoing godoc
// @Summary List outgoing connection requests
// @Tags Connections
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /connections/requests/outgoing [get]
func (h *ConnectionHandler) Outgoing(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	list, err := h.connections.ListOutgoing(c.Request.Context(), claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, list, nil)
}

// Suggestions godoc
// @Summary Suggest connections
// @Description Rank visible users by mutual connection count
// @Tags Connections
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /connections/suggestions [get]
func (h *ConnectionHandler) Suggestions(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	list, err := h.suggestions.Suggest(c.Request.Context(), claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, list, nil, middleware.ExtractMeta(c))
}
