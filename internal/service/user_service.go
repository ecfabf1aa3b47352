package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-collab-api/internal/models"
	appErrors "github.com/noah-isme/campus-collab-api/pkg/errors"
)

type directoryUserRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
}

// UserService serves the people directory: a paginated, searchable listing of
// accounts, confined to the caller's college unless the caller is an admin.
type UserService struct {
	users  directoryUserRepository
	logger *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(users directoryUserRepository, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, logger: logger}
}

// List returns the directory page visible to the actor. Non-admins are pinned
// to their own college and only see active accounts.
func (s *UserService) List(ctx context.Context, actor models.Actor, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if !actor.IsAdmin() {
		filter.CollegeID = actor.CollegeID
		active := true
		filter.Active = &active
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	pagination := &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	}
	return users, pagination, nil
}
