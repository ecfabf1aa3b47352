package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-collab-api/internal/models"
	appErrors "github.com/noah-isme/campus-collab-api/pkg/errors"
)

type mockHistoryReader struct {
	rows       []models.RequestDetail
	lastFilter models.RequestFilter
}

func (m *mockHistoryReader) ListHistory(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, error) {
	m.lastFilter = filter
	return m.rows, nil
}

func historyRow(id string, kind models.RequestKind, status models.RequestStatus) models.RequestDetail {
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return models.RequestDetail{
		CollaborationRequest: models.CollaborationRequest{
			ID: id, Kind: kind, RequesterID: "u1", TargetID: "u2",
			CollegeID: "college-1", Status: status, CreatedAt: created, UpdatedAt: created,
		},
		RequesterName: "Alice",
		TargetName:    "Bob",
	}
}

func adminActor() models.Actor {
	return models.Actor{ID: "a1", Role: models.RoleAdmin, CollegeID: "college-1"}
}

func TestExportRequiresAdmin(t *testing.T) {
	svc := NewExportService(&mockHistoryReader{}, nil, nil, nil)
	student := models.Actor{ID: "u1", Role: models.RoleStudent, CollegeID: "college-1"}

	_, err := svc.RequestHistory(context.Background(), student, models.RequestFilter{}, ExportFormatCSV)
	requireCode(t, err, appErrors.ErrForbidden.Code)
}

func TestExportRejectsUnknownKind(t *testing.T) {
	svc := NewExportService(&mockHistoryReader{}, nil, nil, nil)

	_, err := svc.RequestHistory(context.Background(), adminActor(), models.RequestFilter{Kind: "FRIENDSHIP"}, ExportFormatCSV)
	requireCode(t, err, appErrors.ErrValidation.Code)
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(&mockHistoryReader{}, nil, nil, nil)

	_, err := svc.RequestHistory(context.Background(), adminActor(), models.RequestFilter{}, "xlsx")
	requireCode(t, err, appErrors.ErrValidation.Code)
}

func TestExportRendersCSV(t *testing.T) {
	history := &mockHistoryReader{rows: []models.RequestDetail{
		historyRow("r1", models.KindConnection, models.StatusAccepted),
		historyRow("r2", models.KindProjectJoin, models.StatusPending),
	}}
	svc := NewExportService(history, nil, nil, nil)

	result, err := svc.RequestHistory(context.Background(), adminActor(), models.RequestFilter{PageSize: 0}, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasPrefix(result.Filename, "request-history-"))
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	body := string(result.Data)
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID,Kind,Requester,Target,Status,Day,Time,Created At,Responded At", lines[0])
	assert.Contains(t, lines[1], "r1,CONNECTION,Alice,Bob,ACCEPTED")
	assert.Contains(t, lines[2], "2026-03-01T09:30:00Z")

	// Unset page size falls back to the default window.
	assert.Equal(t, 1000, history.lastFilter.PageSize)
	assert.Equal(t, 1, history.lastFilter.Page)
}

func TestExportRendersPDF(t *testing.T) {
	history := &mockHistoryReader{rows: []models.RequestDetail{
		historyRow("r1", models.KindMentorshipSession, models.StatusRejected),
	}}
	svc := NewExportService(history, nil, nil, nil)

	result, err := svc.RequestHistory(context.Background(), adminActor(), models.RequestFilter{}, ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasSuffix(result.Filename, ".pdf"))
	assert.NotEmpty(t, result.Data)
}
