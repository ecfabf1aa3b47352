package models

import "time"

// RequestKind discriminates the collaboration workflows sharing the ledger.
type RequestKind string

const (
	KindConnection        RequestKind = "CONNECTION"
	KindProjectJoin       RequestKind = "PROJECT_JOIN"
	KindMentorshipSession RequestKind = "MENTORSHIP_SESSION"
)

// Valid reports whether the kind is one of the known discriminators.
func (k RequestKind) Valid() bool {
	switch k {
	case KindConnection, KindProjectJoin, KindMentorshipSession:
		return true
	}
	return false
}

// RequestStatus is the lifecycle state of a collaboration request. Withdrawal
// is modeled as deletion of the row, not a status.
type RequestStatus string

const (
	StatusPending  RequestStatus = "PENDING"
	StatusAccepted RequestStatus = "ACCEPTED"
	StatusRejected RequestStatus = "REJECTED"
)

// RequestDecision is the responder's verdict on a pending request.
type RequestDecision string

const (
	DecisionAccept RequestDecision = "ACCEPT"
	DecisionReject RequestDecision = "REJECT"
)

// Status returns the terminal status a decision resolves to.
func (d RequestDecision) Status() RequestStatus {
	if d == DecisionAccept {
		return StatusAccepted
	}
	return StatusRejected
}

// CollaborationRequest is the unified record behind connections, project join
// requests and mentorship session bookings. Target is a user for connections,
// a project for joins and a mentor for sessions. At most one PENDING row may
// exist per (requester, target, kind); the partial unique index
// uq_requests_pending_triple enforces it under concurrency.
type CollaborationRequest struct {
	ID          string        `db:"id" json:"id"`
	Kind        RequestKind   `db:"kind" json:"kind"`
	RequesterID string        `db:"requester_id" json:"requester_id"`
	TargetID    string        `db:"target_id" json:"target_id"`
	CollegeID   string        `db:"college_id" json:"college_id"`
	Status      RequestStatus `db:"status" json:"status"`

	Message string `db:"message" json:"message,omitempty"`
	Skills  string `db:"skills" json:"skills,omitempty"`

	SessionTitle string `db:"session_title" json:"session_title,omitempty"`
	SessionType  string `db:"session_type" json:"session_type,omitempty"`
	DayOfWeek    *int   `db:"day_of_week" json:"day_of_week,omitempty"`
	TimeLabel    string `db:"time_label" json:"time_label,omitempty"`

	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	RespondedAt *time.Time `db:"responded_at" json:"responded_at,omitempty"`
}

// RequestDetail joins display names for list views.
type RequestDetail struct {
	CollaborationRequest
	RequesterName string `db:"requester_name" json:"requester_name"`
	TargetName    string `db:"target_name" json:"target_name"`
}

// RequestFilter captures projection criteria for ledger reads.
type RequestFilter struct {
	Kind        RequestKind
	Status      RequestStatus
	RequesterID string
	TargetID    string
	CollegeID   string
	Page        int
	PageSize    int
}
