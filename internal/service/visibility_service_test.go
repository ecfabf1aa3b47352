package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-collab-api/internal/models"
	appErrors "github.com/noah-isme/campus-collab-api/pkg/errors"
)

func TestVisibleCandidatesScopedToCollege(t *testing.T) {
	users := &mockUserReader{users: map[string]*models.User{
		"u1": studentUser("u1", "college-1", "Alice"),
		"u2": studentUser("u2", "college-1", "Bob"),
		"u3": studentUser("u3", "college-2", "Cara"),
	}}
	visibility := NewVisibilityService(users, nil)

	candidates, err := visibility.VisibleCandidates(context.Background(), actorFor(users.users["u1"]))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "u2", candidates[0].ID)
}

func TestVisibleCandidatesAdminSeesAllColleges(t *testing.T) {
	users := &mockUserReader{users: map[string]*models.User{
		"a1": {ID: "a1", FullName: "Root", Role: models.RoleAdmin, CollegeID: "college-1", Active: true},
		"u2": studentUser("u2", "college-1", "Bob"),
		"u3": studentUser("u3", "college-2", "Cara"),
	}}
	visibility := NewVisibilityService(users, nil)

	candidates, err := visibility.VisibleCandidates(context.Background(), actorFor(users.users["a1"]))
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
}

func TestInteractionTargetRules(t *testing.T) {
	users := &mockUserReader{users: map[string]*models.User{
		"u1": studentUser("u1", "college-1", "Alice"),
		"u2": studentUser("u2", "college-1", "Bob"),
		"u3": studentUser("u3", "college-2", "Cara"),
		"u4": {ID: "u4", FullName: "Dormant", Role: models.RoleStudent, CollegeID: "college-1", Active: false},
	}}
	visibility := NewVisibilityService(users, nil)
	actor := actorFor(users.users["u1"])

	tests := []struct {
		name     string
		targetID string
		wantCode string
	}{
		{"same college allowed", "u2", ""},
		{"self rejected", "u1", appErrors.ErrForbidden.Code},
		{"cross college rejected", "u3", appErrors.ErrForbidden.Code},
		{"inactive hidden as missing", "u4", appErrors.ErrNotFound.Code},
		{"unknown user", "nope", appErrors.ErrNotFound.Code},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := visibility.InteractionTarget(context.Background(), actor, tt.targetID)
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			var typed *appErrors.Error
			require.True(t, errors.As(err, &typed))
			assert.Equal(t, tt.wantCode, typed.Code)
		})
	}
}

func TestInteractionTargetAdminBypassesCollege(t *testing.T) {
	users := &mockUserReader{users: map[string]*models.User{
		"a1": {ID: "a1", FullName: "Root", Role: models.RoleAdmin, CollegeID: "college-1", Active: true},
		"u3": studentUser("u3", "college-2", "Cara"),
	}}
	visibility := NewVisibilityService(users, nil)

	target, err := visibility.InteractionTarget(context.Background(), actorFor(users.users["a1"]), "u3")
	require.NoError(t, err)
	assert.Equal(t, "u3", target.ID)
}
