package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-collab-api/internal/models"
	appErrors "github.com/noah-isme/campus-collab-api/pkg/errors"
)

type slotReader interface {
	ListSlots(ctx context.Context, mentorID string) ([]models.AvailabilitySlot, error)
}

type occupancyReader interface {
	OccupiedSlots(ctx context.Context, mentorID string) ([]models.SlotKey, error)
}

// AvailabilityService computes a mentor's bookable schedule: the declared
// weekly slots minus those claimed by a pending or accepted session request.
// Rejected and withdrawn requests free their slot again.
type AvailabilityService struct {
	slots    slotReader
	requests occupancyReader
	logger   *zap.Logger
}

// NewAvailabilityService creates the availability resolver.
func NewAvailabilityService(slots slotReader, requests occupancyReader, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{slots: slots, requests: requests, logger: logger}
}

// BookableSlots returns the mentor's declared slots that no live session
// request currently occupies, in declaration order.
func (s *AvailabilityService) BookableSlots(ctx context.Context, mentorID string) ([]models.AvailabilitySlot, error) {
	declared, err := s.slots.ListSlots(ctx, mentorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	occupied, err := s.requests.OccupiedSlots(ctx, mentorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booked slots")
	}

	taken := make(map[models.SlotKey]struct{}, len(occupied))
	for _, key := range occupied {
		taken[key] = struct{}{}
	}

	bookable := make([]models.AvailabilitySlot, 0, len(declared))
	for _, slot := range declared {
		key := models.SlotKey{DayOfWeek: slot.DayOfWeek, TimeLabel: slot.TimeLabel}
		if _, ok := taken[key]; ok {
			continue
		}
		bookable = append(bookable, slot)
	}
	return bookable, nil
}

// IsBookable reports whether the given slot is declared by the mentor and
// not already claimed. It is a pre-check only; the storage layer enforces
// slot exclusivity when two bookings race.
func (s *AvailabilityService) IsBookable(ctx context.Context, mentorID string, key models.SlotKey) (bool, error) {
	bookable, err := s.BookableSlots(ctx, mentorID)
	if err != nil {
		return false, err
	}
	for _, slot := range bookable {
		if slot.DayOfWeek == key.DayOfWeek && slot.TimeLabel == key.TimeLabel {
			return true, nil
		}
	}
	return false, nil
}
