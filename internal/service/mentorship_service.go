package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-collab-api/internal/models"
	appErrors "github.com/noah-isme/campus-collab-api/pkg/errors"
)

type sessionRequestRepository interface {
	ledgerRepository
	UpdateStatusIfPending(ctx context.Context, id string, status models.RequestStatus) (bool, error)
	ListPendingForTarget(ctx context.Context, targetID string, kind models.RequestKind) ([]models.RequestDetail, error)
	ListPendingByRequester(ctx context.Context, requesterID string, kind models.RequestKind) ([]models.RequestDetail, error)
}

// mentorshipPolicy implements the ledger hooks for session bookings. The
// target must hold the mentor role and the requested slot must still be
// bookable at creation time.
type mentorshipPolicy struct {
	visibility   *VisibilityService
	availability *AvailabilityService
	requests     sessionRequestRepository
}

// NewMentorshipPolicy builds the ledger policy for mentorship sessions.
func NewMentorshipPolicy(visibility *VisibilityService, availability *AvailabilityService, requests sessionRequestRepository) KindPolicy {
	return &mentorshipPolicy{visibility: visibility, availability: availability, requests: requests}
}

func (p *mentorshipPolicy) Kind() models.RequestKind { return models.KindMentorshipSession }

func (p *mentorshipPolicy) Prepare(ctx context.Context, actor models.Actor, in CreateRequestInput) (*models.CollaborationRequest, error) {
	if in.DayOfWeek == nil || in.TimeLabel == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session requests require a day and time slot")
	}
	if *in.DayOfWeek < 0 || *in.DayOfWeek > 6 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "day_of_week must be between 0 and 6")
	}

	target, err := p.visibility.InteractionTarget(ctx, actor, in.TargetID)
	if err != nil {
		return nil, err
	}
	if target.Role != models.RoleMentor {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target user is not a mentor")
	}

	key := models.SlotKey{DayOfWeek: *in.DayOfWeek, TimeLabel: in.TimeLabel}
	bookable, err := p.availability.IsBookable(ctx, target.ID, key)
	if err != nil {
		return nil, err
	}
	if !bookable {
		return nil, appErrors.Clone(appErrors.ErrConflict, "slot no longer available")
	}

	day := *in.DayOfWeek
	return &models.CollaborationRequest{
		ID:           uuid.New().String(),
		Kind:         models.KindMentorshipSession,
		RequesterID:  actor.ID,
		TargetID:     target.ID,
		CollegeID:    actor.CollegeID,
		Status:       models.StatusPending,
		Message:      in.Message,
		SessionTitle: in.SessionTitle,
		SessionType:  in.SessionType,
		DayOfWeek:    &day,
		TimeLabel:    in.TimeLabel,
	}, nil
}

func (p *mentorshipPolicy) ResponderAuthorized(_ context.Context, actor models.Actor, request *models.CollaborationRequest) (bool, error) {
	return actor.ID == request.TargetID, nil
}

func (p *mentorshipPolicy) Resolve(ctx context.Context, request *models.CollaborationRequest, status models.RequestStatus) (bool, error) {
	return p.requests.UpdateStatusIfPending(ctx, request.ID, status)
}

// MentorshipService exposes mentorship session booking over the shared
// ledger, plus mentor directory and availability reads.
type MentorshipService struct {
	ledger       *LedgerService
	requests     sessionRequestRepository
	availability *AvailabilityService
	logger       *zap.Logger
}

// NewMentorshipService wires the mentorship facade around the ledger.
func NewMentorshipService(ledger *LedgerService, requests sessionRequestRepository, availability *AvailabilityService, logger *zap.Logger) *MentorshipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MentorshipService{ledger: ledger, requests: requests, availability: availability, logger: logger}
}

// BookSessionInput is the payload for requesting a mentorship session.
type BookSessionInput struct {
	MentorID     string `json:"mentor_id" validate:"required"`
	SessionTitle string `json:"session_title" validate:"required,max=150"`
	SessionType  string `json:"session_type" validate:"max=50"`
	Message      string `json:"message" validate:"max=500"`
	DayOfWeek    *int   `json:"day_of_week" validate:"required"`
	TimeLabel    string `json:"time_label" validate:"required,max=20"`
}

// Book creates a pending session request against one of the mentor's open
// slots.
func (s *MentorshipService) Book(ctx context.Context, actor models.Actor, in BookSessionInput) (*models.RequestDetail, error) {
	return s.ledger.Create(ctx, actor, CreateRequestInput{
		Kind:         models.KindMentorshipSession,
		TargetID:     in.MentorID,
		Message:      in.Message,
		SessionTitle: in.SessionTitle,
		SessionType:  in.SessionType,
		DayOfWeek:    in.DayOfWeek,
		TimeLabel:    in.TimeLabel,
	})
}

// Respond lets the mentor accept or reject a session request.
func (s *MentorshipService) Respond(ctx context.Context, actor models.Actor, requestID string, decision models.RequestDecision) (*models.RequestDetail, error) {
	return s.ledger.Respond(ctx, actor, requestID, decision)
}

// Withdraw cancels a pending session request, freeing the slot.
func (s *MentorshipService) Withdraw(ctx context.Context, actor models.Actor, requestID string) error {
	return s.ledger.Withdraw(ctx, actor, requestID)
}

// ListIncoming returns pending session requests addressed to the mentor.
func (s *MentorshipService) ListIncoming(ctx context.Context, actor models.Actor) ([]models.RequestDetail, error) {
	list, err := s.requests.ListPendingForTarget(ctx, actor.ID, models.KindMentorshipSession)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list session requests")
	}
	return list, nil
}

// ListOutgoing returns the actor's own pending session requests.
func (s *MentorshipService) ListOutgoing(ctx context.Context, actor models.Actor) ([]models.RequestDetail, error) {
	list, err := s.requests.ListPendingByRequester(ctx, actor.ID, models.KindMentorshipSession)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list session requests")
	}
	return list, nil
}

// Availability returns the mentor's currently bookable slots.
func (s *MentorshipService) Availability(ctx context.Context, mentorID string) ([]models.AvailabilitySlot, error) {
	return s.availability.BookableSlots(ctx, mentorID)
}
