package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-collab-api/internal/models"
	"github.com/noah-isme/campus-collab-api/internal/service"
	appErrors "github.com/noah-isme/campus-collab-api/pkg/errors"
	"github.com/noah-isme/campus-collab-api/pkg/response"
)

// ProjectHandler wires HTTP endpoints to the project join workflow.
type ProjectHandler struct {
	service *service.ProjectService
}

// NewProjectHandler creates a new handler.
func NewProjectHandler(svc *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{service: svc}
}

type joinProjectRequest struct {
	Message string `json:"message" binding:"required"`
	Skills  string `json:"skills"`
}

// Apply godoc
// @Summary Request to join a project
// @Description Students apply to an open project in their college
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body joinProjectRequest true "Join request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /projects/{id}/join-requests [post]
func (h *ProjectHandler) Apply(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req joinProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	detail, err := h.service.Apply(c.Request.Context(), claims.Actor(), c.Param("id"), req.Message, req.Skills)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, detail)
}

// Approve godoc
// @Summary Approve join request
// @Description Project lead approves; requester becomes a member
// @Tags Projects
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /join-requests/{id}/approve [put]
func (h *ProjectHandler) Approve(c *gin.Context) {
	h.respond(c, models.DecisionAccept)
}

// Reject godoc
// @Summary Reject join request
// @Tags Projects
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /join-requests/{id}/reject [put]
func (h *ProjectHandler) Reject(c *gin.Context) {
	h.respond(c, models.DecisionReject)
}

func (h *ProjectHandler) respond(c *gin.Context, decision models.RequestDecision) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.service.Respond(c.Request.Context(), claims.Actor(), c.Param("id"), decision)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Withdraw godoc
// @Summary Withdraw join request
// @Tags Projects
// @Produce json
// @Param id path string true "Request ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /join-requests/{id} [delete]
func (h *ProjectHandler) Withdraw(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Withdraw(c.Request.Context(), claims.Actor(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Incoming godoc
// @Summary List join requests for led projects
// @Tags Projects
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /join-requests/incoming [get]
func (h *ProjectHandler) Incoming(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	list, err := h.service.ListIncoming(c.Request.Context(), claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, list, nil)
}

// Outgoing godoc
// @Summary List own join requests
// @Tags Projects
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /join-requests/outgoing [get]
func (h *ProjectHandler) Outgoing(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	list, err := h.service.ListOutgoing(c.Request.Context(), claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, list, nil)
}

// Members godoc
// @Summary List project members
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /projects/{id}/members [get]
func (h *ProjectHandler) Members(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	members, err := h.service.Members(c.Request.Context(), claims.Actor(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, members, nil)
}
