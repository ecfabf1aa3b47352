package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-collab-api/internal/models"
	appErrors "github.com/noah-isme/campus-collab-api/pkg/errors"
)

type visibilityUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListVisibleCandidates(ctx context.Context, actor models.Actor) ([]models.User, error)
}

// VisibilityService decides who an actor may discover and interact with.
// Administrators see every college; everyone else is confined to their own
// and may never target themselves. The ledger never trusts caller-supplied
// visibility: every create passes through here first.
type VisibilityService struct {
	users  visibilityUserReader
	logger *zap.Logger
}

// NewVisibilityService constructs VisibilityService.
func NewVisibilityService(users visibilityUserReader, logger *zap.Logger) *VisibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VisibilityService{users: users, logger: logger}
}

// VisibleCandidates returns the users the actor is permitted to discover.
func (s *VisibilityService) VisibleCandidates(ctx context.Context, actor models.Actor) ([]models.User, error) {
	users, err := s.users.ListVisibleCandidates(ctx, actor)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list candidates")
	}
	return users, nil
}

// CanInteract applies the interaction rules against an already loaded target.
// Returns nil when interaction is allowed.
func (s *VisibilityService) CanInteract(actor models.Actor, target *models.User) error {
	if target == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	if actor.ID == target.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot send a request to yourself")
	}
	if !target.Active {
		return appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	if actor.IsAdmin() || target.Role == models.RoleAdmin {
		return nil
	}
	if actor.CollegeID != target.CollegeID {
		return appErrors.Clone(appErrors.ErrForbidden, "user is outside your college")
	}
	return nil
}

// InteractionTarget loads a target user and verifies the actor may interact
// with them.
func (s *VisibilityService) InteractionTarget(ctx context.Context, actor models.Actor, targetID string) (*models.User, error) {
	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if err := s.CanInteract(actor, target); err != nil {
		return nil, err
	}
	return target, nil
}
