package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-collab-api/internal/models"
	appErrors "github.com/noah-isme/campus-collab-api/pkg/errors"
)

// Partial unique index names defended by the collaboration_requests table.
// uq_requests_pending_triple covers (requester_id, target_id, kind) WHERE
// status = 'PENDING'; uq_requests_session_slot covers (target_id,
// day_of_week, time_label) WHERE kind = 'MENTORSHIP_SESSION' AND status IN
// ('PENDING','ACCEPTED'). They close the race window left by the service
// level pre-checks.
const (
	constraintPendingTriple = "uq_requests_pending_triple"
	constraintSessionSlot   = "uq_requests_session_slot"
)

// QueryObserver receives query timings for instrumentation.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// RequestRepository handles persistence of the collaboration request ledger.
type RequestRepository struct {
	db       *sqlx.DB
	observer QueryObserver
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// WithObserver attaches a query timing observer.
func (r *RequestRepository) WithObserver(o QueryObserver) *RequestRepository {
	r.observer = o
	return r
}

func (r *RequestRepository) observe(label string, start time.Time) {
	if r.observer != nil {
		r.observer.ObserveDBQuery(label, time.Since(start))
	}
}

const requestColumns = `id, kind, requester_id, target_id, college_id, status, message, skills, session_title, session_type, day_of_week, time_label, created_at, updated_at, responded_at`

// detailSelect joins display names: the target is a user for connections and
// sessions, a project for joins, so the name is coalesced across both.
const detailSelect = `SELECT r.id, r.kind, r.requester_id, r.target_id, r.college_id, r.status, r.message, r.skills,
        r.session_title, r.session_type, r.day_of_week, r.time_label, r.created_at, r.updated_at, r.responded_at,
        ru.full_name AS requester_name, COALESCE(tu.full_name, tp.title, '') AS target_name
        FROM collaboration_requests r
        JOIN users ru ON ru.id = r.requester_id
        LEFT JOIN users tu ON tu.id = r.target_id
        LEFT JOIN projects tp ON tp.id = r.target_id`

// Create inserts a new pending request. A concurrent duplicate or slot clash
// surfaces as a typed conflict from the unique indexes, never as a silent
// overwrite.
func (r *RequestRepository) Create(ctx context.Context, request *models.CollaborationRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = now
	if request.Status == "" {
		request.Status = models.StatusPending
	}

	const query = `INSERT INTO collaboration_requests (id, kind, requester_id, target_id, college_id, status, message, skills, session_title, session_type, day_of_week, time_label, created_at, updated_at)
        VALUES (:id, :kind, :requester_id, :target_id, :college_id, :status, :message, :skills, :session_title, :session_type, :day_of_week, :time_label, :created_at, :updated_at)`
	defer r.observe("create_request", time.Now())
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		if conflict := conflictError(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("create collaboration request: %w", err)
	}
	return nil
}

func conflictError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return nil
	}
	switch pqErr.Constraint {
	case constraintPendingTriple:
		return appErrors.Clone(appErrors.ErrConflict, "request already pending")
	case constraintSessionSlot:
		return appErrors.Clone(appErrors.ErrConflict, "slot no longer available")
	}
	return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "duplicate request")
}

// FindByID returns a request by its ID.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.CollaborationRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM collaboration_requests WHERE id = $1`, requestColumns)
	var request models.CollaborationRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// FindDetailByID returns a request with display names resolved.
func (r *RequestRepository) FindDetailByID(ctx context.Context, id string) (*models.RequestDetail, error) {
	query := detailSelect + ` WHERE r.id = $1`
	var detail models.RequestDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsPending checks for an active request over the same triple.
func (r *RequestRepository) ExistsPending(ctx context.Context, requesterID, targetID string, kind models.RequestKind) (bool, error) {
	const query = `SELECT 1 FROM collaboration_requests WHERE requester_id = $1 AND target_id = $2 AND kind = $3 AND status = $4 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, requesterID, targetID, kind, models.StatusPending); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check pending request: %w", err)
	}
	return true, nil
}

// UpdateStatusIfPending flips a pending request to a terminal status. Returns
// false when the row was already resolved or withdrawn, so concurrent
// responders cannot both win.
func (r *RequestRepository) UpdateStatusIfPending(ctx context.Context, id string, status models.RequestStatus) (bool, error) {
	const query = `UPDATE collaboration_requests SET status = $2, updated_at = $3, responded_at = $3 WHERE id = $1 AND status = $4`
	defer r.observe("update_request_status", time.Now())
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC(), models.StatusPending)
	if err != nil {
		return false, fmt.Errorf("update request status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update request status: %w", err)
	}
	return affected == 1, nil
}

// ResolveJoinRequest flips a pending project-join request and, on acceptance,
// grants membership in the same transaction.
func (r *RequestRepository) ResolveJoinRequest(ctx context.Context, id string, status models.RequestStatus) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin resolve join request: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	const update = `UPDATE collaboration_requests SET status = $2, updated_at = $3, responded_at = $3
        WHERE id = $1 AND kind = $4 AND status = $5
        RETURNING requester_id, target_id`
	var requesterID, projectID string
	err = tx.QueryRowxContext(ctx, update, id, status, now, models.KindProjectJoin, models.StatusPending).Scan(&requesterID, &projectID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("resolve join request: %w", err)
	}

	if status == models.StatusAccepted {
		const grant = `INSERT INTO project_members (project_id, user_id, joined_at) VALUES ($1, $2, $3) ON CONFLICT (project_id, user_id) DO NOTHING`
		if _, err := tx.ExecContext(ctx, grant, projectID, requesterID, now); err != nil {
			return false, fmt.Errorf("grant project membership: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit resolve join request: %w", err)
	}
	return true, nil
}

// DeleteIfPending withdraws a pending request owned by the requester.
func (r *RequestRepository) DeleteIfPending(ctx context.Context, id, requesterID string) (bool, error) {
	const query = `DELETE FROM collaboration_requests WHERE id = $1 AND requester_id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, id, requesterID, models.StatusPending)
	if err != nil {
		return false, fmt.Errorf("withdraw request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("withdraw request: %w", err)
	}
	return affected == 1, nil
}

// DeleteAcceptedConnection removes an accepted connection entirely,
// representing relationship teardown rather than a lifecycle transition.
func (r *RequestRepository) DeleteAcceptedConnection(ctx context.Context, id string) (bool, error) {
	const query = `DELETE FROM collaboration_requests WHERE id = $1 AND kind = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, id, models.KindConnection, models.StatusAccepted)
	if err != nil {
		return false, fmt.Errorf("remove connection: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove connection: %w", err)
	}
	return affected == 1, nil
}

// ListPendingForTarget returns the incoming projection for kinds whose
// responder is the target user (connections, mentorship sessions).
func (r *RequestRepository) ListPendingForTarget(ctx context.Context, targetID string, kind models.RequestKind) ([]models.RequestDetail, error) {
	query := detailSelect + ` WHERE r.target_id = $1 AND r.kind = $2 AND r.status = $3 ORDER BY r.created_at DESC`
	var requests []models.RequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, targetID, kind, models.StatusPending); err != nil {
		return nil, fmt.Errorf("list incoming requests: %w", err)
	}
	return requests, nil
}

// ListPendingForProjectLead returns pending join requests across every
// project the user leads.
func (r *RequestRepository) ListPendingForProjectLead(ctx context.Context, leadID string) ([]models.RequestDetail, error) {
	query := detailSelect + ` WHERE r.kind = $1 AND r.status = $2 AND tp.lead_id = $3 ORDER BY r.created_at DESC`
	var requests []models.RequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, models.KindProjectJoin, models.StatusPending, leadID); err != nil {
		return nil, fmt.Errorf("list lead incoming requests: %w", err)
	}
	return requests, nil
}

// ListPendingByRequester returns the outgoing projection.
func (r *RequestRepository) ListPendingByRequester(ctx context.Context, requesterID string, kind models.RequestKind) ([]models.RequestDetail, error) {
	query := detailSelect + ` WHERE r.requester_id = $1 AND r.kind = $2 AND r.status = $3 ORDER BY r.created_at DESC`
	var requests []models.RequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, requesterID, kind, models.StatusPending); err != nil {
		return nil, fmt.Errorf("list outgoing requests: %w", err)
	}
	return requests, nil
}

// ListAcceptedConnections returns accepted connections involving the user.
func (r *RequestRepository) ListAcceptedConnections(ctx context.Context, userID string) ([]models.RequestDetail, error) {
	query := detailSelect + ` WHERE r.kind = $1 AND r.status = $2 AND (r.requester_id = $3 OR r.target_id = $3) ORDER BY r.responded_at DESC`
	var requests []models.RequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, models.KindConnection, models.StatusAccepted, userID); err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	return requests, nil
}

// AcceptedPeerIDs returns the ids of users connected to the given user.
func (r *RequestRepository) AcceptedPeerIDs(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT CASE WHEN requester_id = $1 THEN target_id ELSE requester_id END
        FROM collaboration_requests
        WHERE kind = $2 AND status = $3 AND (requester_id = $1 OR target_id = $1)`
	var peers []string
	if err := r.db.SelectContext(ctx, &peers, query, userID, models.KindConnection, models.StatusAccepted); err != nil {
		return nil, fmt.Errorf("list accepted peers: %w", err)
	}
	return peers, nil
}

// PendingPeerIDs returns users with a pending connection request in either
// direction, used to exclude them from suggestions.
func (r *RequestRepository) PendingPeerIDs(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT CASE WHEN requester_id = $1 THEN target_id ELSE requester_id END
        FROM collaboration_requests
        WHERE kind = $2 AND status = $3 AND (requester_id = $1 OR target_id = $1)`
	var peers []string
	if err := r.db.SelectContext(ctx, &peers, query, userID, models.KindConnection, models.StatusPending); err != nil {
		return nil, fmt.Errorf("list pending peers: %w", err)
	}
	return peers, nil
}

// OccupiedSlots returns the (day, time) pairs consumed by non-terminal
// sessions for a mentor. Rejected and withdrawn sessions free their slot.
func (r *RequestRepository) OccupiedSlots(ctx context.Context, mentorID string) ([]models.SlotKey, error) {
	const query = `SELECT day_of_week, time_label FROM collaboration_requests
        WHERE kind = $1 AND target_id = $2 AND status IN ($3, $4) AND day_of_week IS NOT NULL`
	var slots []models.SlotKey
	if err := r.db.SelectContext(ctx, &slots, query, models.KindMentorshipSession, mentorID, models.StatusPending, models.StatusAccepted); err != nil {
		return nil, fmt.Errorf("list occupied slots: %w", err)
	}
	return slots, nil
}

// ListHistory returns ledger rows for the admin export.
func (r *RequestRepository) ListHistory(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, error) {
	query := detailSelect
	var conditions []string
	var args []interface{}

	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("r.kind = $%d", len(args)+1))
		args = append(args, filter.Kind)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.CollegeID != "" {
		conditions = append(conditions, fmt.Sprintf("r.college_id = $%d", len(args)+1))
		args = append(args, filter.CollegeID)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY r.created_at DESC"

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.PageSize, (page-1)*filter.PageSize)
	}

	defer r.observe("list_request_history", time.Now())
	var requests []models.RequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list request history: %w", err)
	}
	return requests, nil
}
