package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-collab-api/internal/models"
	appErrors "github.com/noah-isme/campus-collab-api/pkg/errors"
)

type ledgerRepository interface {
	Create(ctx context.Context, request *models.CollaborationRequest) error
	FindByID(ctx context.Context, id string) (*models.CollaborationRequest, error)
	FindDetailByID(ctx context.Context, id string) (*models.RequestDetail, error)
	ExistsPending(ctx context.Context, requesterID, targetID string, kind models.RequestKind) (bool, error)
	DeleteIfPending(ctx context.Context, id, requesterID string) (bool, error)
}

type peerCache interface {
	Delete(ctx context.Context, keys ...string) error
}

// CreateRequestInput carries the caller-supplied portion of a new request.
// Kind-specific fields are validated by the matching policy.
type CreateRequestInput struct {
	Kind     models.RequestKind `json:"kind" validate:"required"`
	TargetID string             `json:"target_id" validate:"required"`

	Message string `json:"message" validate:"max=500"`
	Skills  string `json:"skills" validate:"max=300"`

	SessionTitle string `json:"session_title" validate:"max=150"`
	SessionType  string `json:"session_type" validate:"max=50"`
	DayOfWeek    *int   `json:"day_of_week"`
	TimeLabel    string `json:"time_label" validate:"max=20"`
}

// KindPolicy supplies the kind-specific hooks of the ledger: authorization
// and preconditions at creation, responder identification, and how a
// decision is applied (the project-join policy grants membership in the same
// transaction as the status flip).
type KindPolicy interface {
	Kind() models.RequestKind
	Prepare(ctx context.Context, actor models.Actor, in CreateRequestInput) (*models.CollaborationRequest, error)
	ResponderAuthorized(ctx context.Context, actor models.Actor, request *models.CollaborationRequest) (bool, error)
	Resolve(ctx context.Context, request *models.CollaborationRequest, status models.RequestStatus) (bool, error)
}

// LedgerService is the generic collaboration request state machine shared by
// connections, project joins and mentorship bookings. All mutation is
// conditional on current state; the losing side of any race receives a
// typed conflict, never a double-applied record.
type LedgerService struct {
	repo      ledgerRepository
	cache     peerCache
	policies  map[models.RequestKind]KindPolicy
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLedgerService constructs the ledger with its per-kind policies.
func NewLedgerService(repo ledgerRepository, cache peerCache, validate *validator.Validate, logger *zap.Logger, policies ...KindPolicy) *LedgerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := make(map[models.RequestKind]KindPolicy, len(policies))
	for _, p := range policies {
		m[p.Kind()] = p
	}
	return &LedgerService{repo: repo, cache: cache, policies: m, validator: validate, logger: logger}
}

func (s *LedgerService) policy(kind models.RequestKind) (KindPolicy, error) {
	p, ok := s.policies[kind]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown request kind")
	}
	return p, nil
}

// Create opens a new pending request after the kind policy admits it. The
// duplicate pre-check keeps the common path friendly; the partial unique
// index re-validates it at commit time.
func (s *LedgerService) Create(ctx context.Context, actor models.Actor, in CreateRequestInput) (*models.RequestDetail, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}
	policy, err := s.policy(in.Kind)
	if err != nil {
		return nil, err
	}

	request, err := policy.Prepare(ctx, actor, in)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsPending(ctx, request.RequesterID, request.TargetID, request.Kind)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending requests")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "request already pending")
	}

	if err := s.repo.Create(ctx, request); err != nil {
		var typed *appErrors.Error
		if errors.As(err, &typed) {
			return nil, typed
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	s.invalidatePeers(ctx, request)

	detail, err := s.repo.FindDetailByID(ctx, request.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request detail")
	}
	return detail, nil
}

// Respond applies an accept/reject decision by the authorized responder. The
// transition is terminal; a second respond on the same request fails with
// INVALID_STATE no matter who calls.
func (s *LedgerService) Respond(ctx context.Context, actor models.Actor, requestID string, decision models.RequestDecision) (*models.RequestDetail, error) {
	if decision != models.DecisionAccept && decision != models.DecisionReject {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid decision")
	}

	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}

	policy, err := s.policy(request.Kind)
	if err != nil {
		return nil, err
	}

	authorized, err := policy.ResponderAuthorized(ctx, actor, request)
	if err != nil {
		return nil, err
	}
	if !authorized {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not authorized to respond to this request")
	}

	if request.Status != models.StatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "request already resolved")
	}

	applied, err := policy.Resolve(ctx, request, decision.Status())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve request")
	}
	if !applied {
		// Lost a race: either a concurrent responder resolved it or the
		// requester withdrew it between the read and the conditional update.
		if _, err := s.repo.FindByID(ctx, requestID); errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request was withdrawn")
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "request already resolved")
	}

	request.Status = decision.Status()
	s.invalidatePeers(ctx, request)

	detail, err := s.repo.FindDetailByID(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request detail")
	}
	return detail, nil
}

// Withdraw removes a pending request. Only the original requester may
// withdraw, and only while the request is still pending.
func (s *LedgerService) Withdraw(ctx context.Context, actor models.Actor, requestID string) error {
	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if request.RequesterID != actor.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the requester may withdraw")
	}
	if request.Status != models.StatusPending {
		return appErrors.Clone(appErrors.ErrInvalidState, "only pending requests can be withdrawn")
	}

	applied, err := s.repo.DeleteIfPending(ctx, requestID, actor.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to withdraw request")
	}
	if !applied {
		return appErrors.Clone(appErrors.ErrInvalidState, "request already resolved")
	}

	s.invalidatePeers(ctx, request)
	return nil
}

// invalidatePeers drops both parties' cached accepted-peer sets after a
// connection mutation. Suggestion ranking recomputes from the store on the
// next read; a failed invalidation only delays that by the cache TTL.
func (s *LedgerService) invalidatePeers(ctx context.Context, request *models.CollaborationRequest) {
	if s.cache == nil || request.Kind != models.KindConnection {
		return
	}
	if err := s.cache.Delete(ctx, peerCacheKey(request.RequesterID), peerCacheKey(request.TargetID)); err != nil {
		s.logger.Warn("failed to invalidate peer cache", zap.Error(err), zap.String("request_id", request.ID))
	}
}

func peerCacheKey(userID string) string {
	return "peers:" + userID
}
