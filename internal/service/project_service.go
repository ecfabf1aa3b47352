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

type projectReader interface {
	FindByID(ctx context.Context, id string) (*models.Project, error)
	IsMember(ctx context.Context, projectID, userID string) (bool, error)
	ListMembers(ctx context.Context, projectID string) ([]models.ProjectMember, error)
}

type joinRequestRepository interface {
	ledgerRepository
	ResolveJoinRequest(ctx context.Context, id string, status models.RequestStatus) (bool, error)
	ListPendingForProjectLead(ctx context.Context, leadID string) ([]models.RequestDetail, error)
	ListPendingByRequester(ctx context.Context, requesterID string, kind models.RequestKind) ([]models.RequestDetail, error)
}

// projectJoinPolicy implements the ledger hooks for project join requests.
// The target of a join request is the project itself; responses come from
// the project lead, and acceptance grants membership in the same
// transaction as the status flip.
type projectJoinPolicy struct {
	projects joinProjectReader
	requests joinRequestRepository
}

type joinProjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Project, error)
	IsMember(ctx context.Context, projectID, userID string) (bool, error)
}

// NewProjectJoinPolicy builds the ledger policy for project join requests.
func NewProjectJoinPolicy(projects joinProjectReader, requests joinRequestRepository) KindPolicy {
	return &projectJoinPolicy{projects: projects, requests: requests}
}

func (p *projectJoinPolicy) Kind() models.RequestKind { return models.KindProjectJoin }

func (p *projectJoinPolicy) Prepare(ctx context.Context, actor models.Actor, in CreateRequestInput) (*models.CollaborationRequest, error) {
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can request to join projects")
	}

	project, err := p.projects.FindByID(ctx, in.TargetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}
	if !actor.IsAdmin() && project.CollegeID != actor.CollegeID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "project is outside your college")
	}
	if project.LeadID == actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot request to join your own project")
	}
	if project.Status != models.ProjectStatusOpen {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "project is not open for members")
	}

	member, err := p.projects.IsMember(ctx, project.ID, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check project membership")
	}
	if member {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already a member of this project")
	}

	return &models.CollaborationRequest{
		ID:          uuid.New().String(),
		Kind:        models.KindProjectJoin,
		RequesterID: actor.ID,
		TargetID:    project.ID,
		CollegeID:   project.CollegeID,
		Status:      models.StatusPending,
		Message:     in.Message,
		Skills:      in.Skills,
	}, nil
}

func (p *projectJoinPolicy) ResponderAuthorized(ctx context.Context, actor models.Actor, request *models.CollaborationRequest) (bool, error) {
	project, err := p.projects.FindByID(ctx, request.TargetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}
	return actor.ID == project.LeadID, nil
}

func (p *projectJoinPolicy) Resolve(ctx context.Context, request *models.CollaborationRequest, status models.RequestStatus) (bool, error) {
	return p.requests.ResolveJoinRequest(ctx, request.ID, status)
}

// ProjectService exposes the project join workflow: students apply to open
// projects, project leads review the applications.
type ProjectService struct {
	ledger   *LedgerService
	projects projectReader
	requests joinRequestRepository
	logger   *zap.Logger
}

// NewProjectService wires the project join facade around the ledger.
func NewProjectService(ledger *LedgerService, projects projectReader, requests joinRequestRepository, logger *zap.Logger) *ProjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectService{ledger: ledger, projects: projects, requests: requests, logger: logger}
}

// Apply creates a pending join request against an open project.
func (s *ProjectService) Apply(ctx context.Context, actor models.Actor, projectID, message, skills string) (*models.RequestDetail, error) {
	return s.ledger.Create(ctx, actor, CreateRequestInput{
		Kind:     models.KindProjectJoin,
		TargetID: projectID,
		Message:  message,
		Skills:   skills,
	})
}

// Respond lets the project lead accept or reject a join request.
func (s *ProjectService) Respond(ctx context.Context, actor models.Actor, requestID string, decision models.RequestDecision) (*models.RequestDetail, error) {
	return s.ledger.Respond(ctx, actor, requestID, decision)
}

// Withdraw deletes a pending join request by its requester.
func (s *ProjectService) Withdraw(ctx context.Context, actor models.Actor, requestID string) error {
	return s.ledger.Withdraw(ctx, actor, requestID)
}

// ListIncoming returns pending join requests for projects the actor leads.
func (s *ProjectService) ListIncoming(ctx context.Context, actor models.Actor) ([]models.RequestDetail, error) {
	list, err := s.requests.ListPendingForProjectLead(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list join requests")
	}
	return list, nil
}

// ListOutgoing returns the actor's own pending join requests.
func (s *ProjectService) ListOutgoing(ctx context.Context, actor models.Actor) ([]models.RequestDetail, error) {
	list, err := s.requests.ListPendingByRequester(ctx, actor.ID, models.KindProjectJoin)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list join requests")
	}
	return list, nil
}

// Members returns the member roster of a project visible to the actor.
func (s *ProjectService) Members(ctx context.Context, actor models.Actor, projectID string) ([]models.ProjectMember, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}
	if !actor.IsAdmin() && project.CollegeID != actor.CollegeID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "project is outside your college")
	}
	members, err := s.projects.ListMembers(ctx, projectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list project members")
	}
	return members, nil
}
