package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-collab-api/internal/models"
)

// ProjectRepository reads projects and membership for the join workflow.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository constructs the repository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// FindByID returns a project by its ID.
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*models.Project, error) {
	const query = `SELECT id, college_id, lead_id, title, description, status, created_at FROM projects WHERE id = $1`
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		return nil, err
	}
	return &project, nil
}

// IsMember reports whether the user already belongs to the project.
func (r *ProjectRepository) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	const query = `SELECT 1 FROM project_members WHERE project_id = $1 AND user_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, projectID, userID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check project membership: %w", err)
	}
	return true, nil
}

// ListMembers returns granted memberships for a project.
func (r *ProjectRepository) ListMembers(ctx context.Context, projectID string) ([]models.ProjectMember, error) {
	const query = `SELECT project_id, user_id, joined_at FROM project_members WHERE project_id = $1 ORDER BY joined_at ASC`
	var members []models.ProjectMember
	if err := r.db.SelectContext(ctx, &members, query, projectID); err != nil {
		return nil, fmt.Errorf("list project members: %w", err)
	}
	return members, nil
}
