package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-collab-api/internal/models"
	"github.com/noah-isme/campus-collab-api/internal/service"
	appErrors "github.com/noah-isme/campus-collab-api/pkg/errors"
	"github.com/noah-isme/campus-collab-api/pkg/response"
)

// ExportHandler serves admin downloads of the request ledger.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler creates a new handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// RequestHistory godoc
// @Summary Export request history
// @Description Download the collaboration request history as CSV or PDF
// @Tags Admin
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Param kind query string false "Request kind filter"
// @Param status query string false "Status filter"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/requests/export [get]
func (h *ExportHandler) RequestHistory(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.RequestFilter{
		Kind:     models.RequestKind(c.Query("kind")),
		Status:   models.RequestStatus(c.Query("status")),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 1000),
	}

	result, err := h.service.RequestHistory(c.Request.Context(), claims.Actor(), filter, service.ExportFormat(c.DefaultQuery("format", "csv")))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
