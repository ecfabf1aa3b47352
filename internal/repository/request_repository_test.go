package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-collab-api/internal/models"
	appErrors "github.com/noah-isme/campus-collab-api/pkg/errors"
)

func TestCreateRequest(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectExec("INSERT INTO collaboration_requests").WillReturnResult(sqlmock.NewResult(1, 1))

	request := &models.CollaborationRequest{
		Kind:        models.KindConnection,
		RequesterID: "u1",
		TargetID:    "u2",
		CollegeID:   "college-1",
	}
	err := repo.Create(context.Background(), request)
	require.NoError(t, err)
	assert.NotEmpty(t, request.ID)
	assert.Equal(t, models.StatusPending, request.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type recordingObserver struct {
	labels []string
}

func (o *recordingObserver) ObserveDBQuery(label string, _ time.Duration) {
	o.labels = append(o.labels, label)
}

func TestCreateRequestNotifiesObserver(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	obs := &recordingObserver{}
	repo := NewRequestRepository(db).WithObserver(obs)

	mock.ExpectExec("INSERT INTO collaboration_requests").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &models.CollaborationRequest{
		Kind:        models.KindConnection,
		RequesterID: "u1",
		TargetID:    "u2",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"create_request"}, obs.labels)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRequestPendingDuplicateConflict(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectExec("INSERT INTO collaboration_requests").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_requests_pending_triple"})

	err := repo.Create(context.Background(), &models.CollaborationRequest{
		Kind:        models.KindConnection,
		RequesterID: "u1",
		TargetID:    "u2",
	})
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrConflict.Code, typed.Code)
	assert.Equal(t, "request already pending", typed.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRequestSlotTakenConflict(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectExec("INSERT INTO collaboration_requests").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_requests_session_slot"})

	day := 2
	err := repo.Create(context.Background(), &models.CollaborationRequest{
		Kind:        models.KindMentorshipSession,
		RequesterID: "u1",
		TargetID:    "m1",
		DayOfWeek:   &day,
		TimeLabel:   "10:00",
	})
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrConflict.Code, typed.Code)
	assert.Equal(t, "slot no longer available", typed.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistsPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectQuery("SELECT 1 FROM collaboration_requests").
		WithArgs("u1", "u2", string(models.KindConnection), string(models.StatusPending)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsPending(context.Background(), "u1", "u2", models.KindConnection)
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery("SELECT 1 FROM collaboration_requests").
		WithArgs("u1", "u3", string(models.KindConnection), string(models.StatusPending)).
		WillReturnError(sql.ErrNoRows)

	exists, err = repo.ExistsPending(context.Background(), "u1", "u3", models.KindConnection)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusIfPendingWinsOnce(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectExec("UPDATE collaboration_requests SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))

	applied, err := repo.UpdateStatusIfPending(context.Background(), "r1", models.StatusAccepted)
	require.NoError(t, err)
	assert.True(t, applied)

	mock.ExpectExec("UPDATE collaboration_requests SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err = repo.UpdateStatusIfPending(context.Background(), "r1", models.StatusRejected)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveJoinRequestAcceptGrantsMembership(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE collaboration_requests SET status").
		WillReturnRows(sqlmock.NewRows([]string{"requester_id", "target_id"}).AddRow("u1", "p1"))
	mock.ExpectExec("INSERT INTO project_members").
		WithArgs("p1", "u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	applied, err := repo.ResolveJoinRequest(context.Background(), "r1", models.StatusAccepted)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveJoinRequestRejectSkipsMembership(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE collaboration_requests SET status").
		WillReturnRows(sqlmock.NewRows([]string{"requester_id", "target_id"}).AddRow("u1", "p1"))
	mock.ExpectCommit()

	applied, err := repo.ResolveJoinRequest(context.Background(), "r1", models.StatusRejected)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveJoinRequestAlreadyResolved(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE collaboration_requests SET status").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	applied, err := repo.ResolveJoinRequest(context.Background(), "r1", models.StatusAccepted)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteIfPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectExec("DELETE FROM collaboration_requests").
		WithArgs("r1", "u1", string(models.StatusPending)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	applied, err := repo.DeleteIfPending(context.Background(), "r1", "u1")
	require.NoError(t, err)
	assert.True(t, applied)

	mock.ExpectExec("DELETE FROM collaboration_requests").
		WithArgs("r1", "u1", string(models.StatusPending)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err = repo.DeleteIfPending(context.Background(), "r1", "u1")
	require.NoError(t, err)
	assert.False(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptedPeerIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	rows := sqlmock.NewRows([]string{"case"}).AddRow("u2").AddRow("u3")
	mock.ExpectQuery("SELECT CASE WHEN requester_id").
		WithArgs("u1", string(models.KindConnection), string(models.StatusAccepted)).
		WillReturnRows(rows)

	peers, err := repo.AcceptedPeerIDs(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u3"}, peers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupiedSlots(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	rows := sqlmock.NewRows([]string{"day_of_week", "time_label"}).AddRow(1, "10:00").AddRow(3, "14:00")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT day_of_week, time_label FROM collaboration_requests")).
		WithArgs(string(models.KindMentorshipSession), "m1", string(models.StatusPending), string(models.StatusAccepted)).
		WillReturnRows(rows)

	slots, err := repo.OccupiedSlots(context.Background(), "m1")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, models.SlotKey{DayOfWeek: 1, TimeLabel: "10:00"}, slots[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPendingForTarget(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "kind", "requester_id", "target_id", "college_id", "status", "message", "skills", "session_title", "session_type", "day_of_week", "time_label", "created_at", "updated_at", "responded_at", "requester_name", "target_name"}).
		AddRow("r1", string(models.KindConnection), "u1", "u2", "college-1", string(models.StatusPending), "hi", "", "", "", nil, "", now, now, nil, "Alice", "Bob")
	mock.ExpectQuery("SELECT r.id, r.kind").
		WithArgs("u2", string(models.KindConnection), string(models.StatusPending)).
		WillReturnRows(rows)

	list, err := repo.ListPendingForTarget(context.Background(), "u2", models.KindConnection)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Alice", list[0].RequesterName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
