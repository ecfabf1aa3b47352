package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-collab-api/internal/models"
)

type mockDirectoryRepo struct {
	users      []models.User
	total      int
	lastFilter models.UserFilter
}

func (m *mockDirectoryRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.lastFilter = filter
	return m.users, m.total, nil
}

func TestUserListPinsNonAdminsToCollege(t *testing.T) {
	repo := &mockDirectoryRepo{users: []models.User{*studentUser("u2", "college-1", "Bob")}, total: 1}
	svc := NewUserService(repo, nil)
	actor := models.Actor{ID: "u1", Role: models.RoleStudent, CollegeID: "college-1"}

	users, pagination, err := svc.List(context.Background(), actor, models.UserFilter{CollegeID: "college-9", Page: 0, PageSize: 500})
	require.NoError(t, err)
	require.Len(t, users, 1)

	assert.Equal(t, "college-1", repo.lastFilter.CollegeID)
	require.NotNil(t, repo.lastFilter.Active)
	assert.True(t, *repo.lastFilter.Active)
	assert.Equal(t, 1, repo.lastFilter.Page)
	assert.Equal(t, 20, repo.lastFilter.PageSize)

	require.NotNil(t, pagination)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestUserListAdminKeepsFilter(t *testing.T) {
	repo := &mockDirectoryRepo{}
	svc := NewUserService(repo, nil)
	admin := models.Actor{ID: "a1", Role: models.RoleAdmin, CollegeID: "college-1"}
	inactive := false

	_, _, err := svc.List(context.Background(), admin, models.UserFilter{CollegeID: "college-2", Active: &inactive, Page: 2, PageSize: 50})
	require.NoError(t, err)

	assert.Equal(t, "college-2", repo.lastFilter.CollegeID)
	require.NotNil(t, repo.lastFilter.Active)
	assert.False(t, *repo.lastFilter.Active)
	assert.Equal(t, 2, repo.lastFilter.Page)
	assert.Equal(t, 50, repo.lastFilter.PageSize)
}
