package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-collab-api/internal/models"
	appErrors "github.com/noah-isme/campus-collab-api/pkg/errors"
)

type connectionRepository interface {
	ledgerRepository
	UpdateStatusIfPending(ctx context.Context, id string, status models.RequestStatus) (bool, error)
	DeleteAcceptedConnection(ctx context.Context, id string) (bool, error)
	ListPendingForTarget(ctx context.Context, targetID string, kind models.RequestKind) ([]models.RequestDetail, error)
	ListPendingByRequester(ctx context.Context, requesterID string, kind models.RequestKind) ([]models.RequestDetail, error)
	ListAcceptedConnections(ctx context.Context, userID string) ([]models.RequestDetail, error)
}

// connectionPolicy implements the ledger hooks for peer connections. The
// target of a connection is always a user, and only that user may respond.
type connectionPolicy struct {
	visibility *VisibilityService
	repo       connectionRepository
}

// NewConnectionPolicy builds the ledger policy for peer connections.
func NewConnectionPolicy(visibility *VisibilityService, repo connectionRepository) KindPolicy {
	return &connectionPolicy{visibility: visibility, repo: repo}
}

func (p *connectionPolicy) Kind() models.RequestKind { return models.KindConnection }

func (p *connectionPolicy) Prepare(ctx context.Context, actor models.Actor, in CreateRequestInput) (*models.CollaborationRequest, error) {
	target, err := p.visibility.InteractionTarget(ctx, actor, in.TargetID)
	if err != nil {
		return nil, err
	}
	return &models.CollaborationRequest{
		ID:          uuid.New().String(),
		Kind:        models.KindConnection,
		RequesterID: actor.ID,
		TargetID:    target.ID,
		CollegeID:   actor.CollegeID,
		Status:      models.StatusPending,
		Message:     in.Message,
	}, nil
}

func (p *connectionPolicy) ResponderAuthorized(_ context.Context, actor models.Actor, request *models.CollaborationRequest) (bool, error) {
	return actor.ID == request.TargetID, nil
}

func (p *connectionPolicy) Resolve(ctx context.Context, request *models.CollaborationRequest, status models.RequestStatus) (bool, error) {
	return p.repo.UpdateStatusIfPending(ctx, request.ID, status)
}

// ConnectionService exposes the peer connection workflow over the shared
// ledger: send, respond, withdraw, and removal of an established connection.
type ConnectionService struct {
	ledger *LedgerService
	repo   connectionRepository
	logger *zap.Logger
}

// NewConnectionService wires the connection facade around the ledger.
func NewConnectionService(ledger *LedgerService, repo connectionRepository, logger *zap.Logger) *ConnectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectionService{ledger: ledger, repo: repo, logger: logger}
}

// Send creates a pending connection request to another user.
func (s *ConnectionService) Send(ctx context.Context, actor models.Actor, targetID, message string) (*models.RequestDetail, error) {
	return s.ledger.Create(ctx, actor, CreateRequestInput{
		Kind:     models.KindConnection,
		TargetID: targetID,
		Message:  message,
	})
}

// Respond accepts or rejects an incoming connection request.
func (s *ConnectionService) Respond(ctx context.Context, actor models.Actor, requestID string, decision models.RequestDecision) (*models.RequestDetail, error) {
	return s.ledger.Respond(ctx, actor, requestID, decision)
}

// Withdraw deletes a pending outgoing connection request.
func (s *ConnectionService) Withdraw(ctx context.Context, actor models.Actor, requestID string) error {
	return s.ledger.Withdraw(ctx, actor, requestID)
}

// Remove dissolves an accepted connection. Either party may remove it; the
// record is deleted so a fresh request between the pair is allowed later.
func (s *ConnectionService) Remove(ctx context.Context, actor models.Actor, requestID string) error {
	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "connection not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load connection")
	}
	if request.Kind != models.KindConnection || request.Status != models.StatusAccepted {
		return appErrors.Clone(appErrors.ErrNotFound, "connection not found")
	}
	if actor.ID != request.RequesterID && actor.ID != request.TargetID {
		return appErrors.Clone(appErrors.ErrForbidden, "not a party to this connection")
	}

	applied, err := s.repo.DeleteAcceptedConnection(ctx, requestID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove connection")
	}
	if !applied {
		return appErrors.Clone(appErrors.ErrNotFound, "connection not found")
	}

	s.ledger.invalidatePeers(ctx, request)
	return nil
}

// ListIncoming returns pending connection requests addressed to the actor.
func (s *ConnectionService) ListIncoming(ctx context.Context, actor models.Actor) ([]models.RequestDetail, error) {
	list, err := s.repo.ListPendingForTarget(ctx, actor.ID, models.KindConnection)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list incoming requests")
	}
	return list, nil
}

// ListOutgoing returns the actor's own pending connection requests.
func (s *ConnectionService) ListOutgoing(ctx context.Context, actor models.Actor) ([]models.RequestDetail, error) {
	list, err := s.repo.ListPendingByRequester(ctx, actor.ID, models.KindConnection)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list outgoing requests")
	}
	return list, nil
}

// ListConnections returns the actor's accepted connections.
func (s *ConnectionService) ListConnections(ctx context.Context, actor models.Actor) ([]models.RequestDetail, error) {
	list, err := s.repo.ListAcceptedConnections(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list connections")
	}
	return list, nil
}
