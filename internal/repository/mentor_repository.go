package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-collab-api/internal/models"
)

// MentorRepository reads mentor directory data: declared availability and
// aggregate session ratings. Both are owned by out-of-scope features and are
// read-only inputs here.
type MentorRepository struct {
	db *sqlx.DB
}

// NewMentorRepository constructs the repository.
func NewMentorRepository(db *sqlx.DB) *MentorRepository {
	return &MentorRepository{db: db}
}

// ListSlots returns a mentor's declared weekly availability.
func (r *MentorRepository) ListSlots(ctx context.Context, mentorID string) ([]models.AvailabilitySlot, error) {
	const query = `SELECT id, mentor_id, day_of_week, time_label, created_at FROM availability_slots
        WHERE mentor_id = $1 ORDER BY day_of_week ASC, time_label ASC`
	var slots []models.AvailabilitySlot
	if err := r.db.SelectContext(ctx, &slots, query, mentorID); err != nil {
		return nil, fmt.Errorf("list availability slots: %w", err)
	}
	return slots, nil
}

// ListMentors returns the mentor directory with mean session ratings. The
// rating is the arithmetic mean over session reviews; mentors without reviews
// carry a NULL rating and sort after rated ones.
func (r *MentorRepository) ListMentors(ctx context.Context, filter models.MentorFilter) ([]models.MentorListing, error) {
	base := `FROM users u
        LEFT JOIN session_reviews sr ON sr.mentor_id = u.id
        WHERE u.role = $1 AND u.active = TRUE`
	args := []interface{}{models.RoleMentor}

	if filter.CollegeID != "" {
		base += fmt.Sprintf(" AND u.college_id = $%d", len(args)+1)
		args = append(args, filter.CollegeID)
	}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND (LOWER(u.full_name) LIKE $%d OR LOWER(u.expertise) LIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	orderBy := "u.full_name ASC"
	if filter.SortBy == "rating" {
		orderBy = "rating DESC NULLS LAST, u.full_name ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT u.id, u.full_name, u.college_id, u.headline, u.expertise,
        AVG(sr.rating) AS rating, COUNT(sr.id) AS rating_count
        %s GROUP BY u.id, u.full_name, u.college_id, u.headline, u.expertise
        ORDER BY %s LIMIT %d OFFSET %d`, base, orderBy, size, offset)

	var mentors []models.MentorListing
	if err := r.db.SelectContext(ctx, &mentors, query, args...); err != nil {
		return nil, fmt.Errorf("list mentors: %w", err)
	}
	return mentors, nil
}
