package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-collab-api/internal/models"
	appErrors "github.com/noah-isme/campus-collab-api/pkg/errors"
	"github.com/noah-isme/campus-collab-api/pkg/export"
)

type historyReader interface {
	ListHistory(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFormat selects the rendered file type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult carries a rendered document and its HTTP metadata.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the collaboration request history for administrators
// as a downloadable CSV or PDF. Rendering is synchronous; the result streams
// straight back on the request that asked for it.
type ExportService struct {
	history historyReader
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(history historyReader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{history: history, csv: csv, pdf: pdf, logger: logger}
}

var historyHeaders = []string{"ID", "Kind", "Requester", "Target", "Status", "Day", "Time", "Created At", "Responded At"}

// RequestHistory renders the filtered request ledger in the requested format.
func (s *ExportService) RequestHistory(ctx context.Context, actor models.Actor, filter models.RequestFilter, format ExportFormat) (*ExportResult, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports require the administrator role")
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown request kind")
	}
	if filter.PageSize <= 0 || filter.PageSize > 5000 {
		filter.PageSize = 1000
	}
	if filter.Page < 1 {
		filter.Page = 1
	}

	rows, err := s.history.ListHistory(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request history")
	}

	dataset := export.Dataset{Headers: historyHeaders, Rows: make([]map[string]string, 0, len(rows))}
	for _, row := range rows {
		day := ""
		if row.DayOfWeek != nil {
			day = strconv.Itoa(*row.DayOfWeek)
		}
		responded := ""
		if row.RespondedAt != nil {
			responded = row.RespondedAt.UTC().Format(time.RFC3339)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"ID":           row.ID,
			"Kind":         string(row.Kind),
			"Requester":    row.RequesterName,
			"Target":       row.TargetName,
			"Status":       string(row.Status),
			"Day":          day,
			"Time":         row.TimeLabel,
			"Created At":   row.CreatedAt.UTC().Format(time.RFC3339),
			"Responded At": responded,
		})
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	switch strings.ToLower(string(format)) {
	case string(ExportFormatCSV), "":
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("request-history-%s.csv", stamp),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case string(ExportFormatPDF):
		data, err := s.pdf.Render(dataset, "Collaboration Request History")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("request-history-%s.pdf", stamp),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}
