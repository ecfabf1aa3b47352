package models

import "time"

// AvailabilitySlot is a mentor's declared weekly slot. Owned by the profile
// feature; read-only input here.
type AvailabilitySlot struct {
	ID        string    `db:"id" json:"id"`
	MentorID  string    `db:"mentor_id" json:"mentor_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	TimeLabel string    `db:"time_label" json:"time_label"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SlotKey identifies a bookable (day, time) pair.
type SlotKey struct {
	DayOfWeek int    `db:"day_of_week" json:"day_of_week"`
	TimeLabel string `db:"time_label" json:"time_label"`
}

// MentorListing is a directory row with the aggregate session rating. Rating
// is nil when the mentor has no reviewed sessions; unrated mentors sort after
// rated ones.
type MentorListing struct {
	ID          string   `db:"id" json:"id"`
	FullName    string   `db:"full_name" json:"full_name"`
	CollegeID   string   `db:"college_id" json:"college_id"`
	Headline    string   `db:"headline" json:"headline,omitempty"`
	Expertise   string   `db:"expertise" json:"expertise,omitempty"`
	Rating      *float64 `db:"rating" json:"rating,omitempty"`
	RatingCount int      `db:"rating_count" json:"rating_count"`
}

// MentorFilter captures directory search criteria.
type MentorFilter struct {
	CollegeID string
	Search    string
	SortBy    string
	Page      int
	PageSize  int
}
