package models

import "time"

// ProjectStatus marks whether a project accepts join requests.
type ProjectStatus string

const (
	ProjectStatusOpen   ProjectStatus = "OPEN"
	ProjectStatusClosed ProjectStatus = "CLOSED"
)

// Project is a student project owned by its lead. Only the lead may answer
// join requests targeting the project.
type Project struct {
	ID          string        `db:"id" json:"id"`
	CollegeID   string        `db:"college_id" json:"college_id"`
	LeadID      string        `db:"lead_id" json:"lead_id"`
	Title       string        `db:"title" json:"title"`
	Description string        `db:"description" json:"description,omitempty"`
	Status      ProjectStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}

// ProjectMember records granted membership after an accepted join request.
type ProjectMember struct {
	ProjectID string    `db:"project_id" json:"project_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	JoinedAt  time.Time `db:"joined_at" json:"joined_at"`
}
