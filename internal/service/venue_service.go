package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openagora/agora-api/internal/dto"
	"github.com/openagora/agora-api/internal/models"
	appErrors "github.com/openagora/agora-api/pkg/errors"
)

type venueStore interface {
	ListByEvent(ctx context.Context, eventID string) ([]models.Venue, error)
	FindByID(ctx context.Context, id string) (*models.Venue, error)
	Create(ctx context.Context, venue *models.Venue) error
	Update(ctx context.Context, venue *models.Venue) error
	Delete(ctx context.Context, id string) error
}

type slotStore interface {
	ListByEvent(ctx context.Context, eventID string) ([]models.TimeSlot, error)
	FindByID(ctx context.Context, id string) (*models.TimeSlot, error)
	Create(ctx context.Context, slot *models.TimeSlot) error
	SetAvailability(ctx context.Context, id string, available bool) error
	Delete(ctx context.Context, id string) error
}

// VenueService manages venues and the time slot grid for an event.
type VenueService struct {
	venues    venueStore
	slots     slotStore
	events    sessionEventReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewVenueService wires venue dependencies.
func NewVenueService(venues venueStore, slots slotStore, events sessionEventReader, validate *validator.Validate, logger *zap.Logger) *VenueService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VenueService{venues: venues, slots: slots, events: events, validator: validate, logger: logger}
}

// ListVenues returns all venues for an event.
func (s *VenueService) ListVenues(ctx context.Context, eventID string) ([]models.Venue, error) {
	venues, err := s.venues.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list venues")
	}
	return venues, nil
}

// CreateVenue registers a room for an event.
func (s *VenueService) CreateVenue(ctx context.Context, req dto.CreateVenueRequest) (*models.Venue, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid venue payload")
	}
	if err := s.ensureEvent(ctx, req.EventID); err != nil {
		return nil, err
	}
	features, err := marshalTags(req.Features)
	if err != nil {
		return nil, err
	}
	venue := &models.Venue{
		EventID:  req.EventID,
		Name:     req.Name,
		Capacity: req.Capacity,
		Features: features,
	}
	if err := s.venues.Create(ctx, venue); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create venue")
	}
	return venue, nil
}

// UpdateVenue patches a venue.
func (s *VenueService) UpdateVenue(ctx context.Context, id string, req dto.UpdateVenueRequest) (*models.Venue, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid venue payload")
	}
	venue, err := s.venues.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "venue not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load venue")
	}
	if req.Name != nil {
		venue.Name = *req.Name
	}
	if req.Capacity != nil {
		venue.Capacity = *req.Capacity
	}
	if req.Features != nil {
		features, err := marshalTags(*req.Features)
		if err != nil {
			return nil, err
		}
		venue.Features = features
	}
	if err := s.venues.Update(ctx, venue); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update venue")
	}
	return venue, nil
}

// DeleteVenue removes a venue.
func (s *VenueService) DeleteVenue(ctx context.Context, id string) error {
	if err := s.venues.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete venue")
	}
	return nil
}

// ListSlots returns the time slot grid for an event.
func (s *VenueService) ListSlots(ctx context.Context, eventID string) ([]models.TimeSlot, error) {
	slots, err := s.slots.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list time slots")
	}
	return slots, nil
}

// CreateSlot adds a slot to the event grid.
func (s *VenueService) CreateSlot(ctx context.Context, req dto.CreateTimeSlotRequest) (*models.TimeSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot payload")
	}
	if err := s.ensureEvent(ctx, req.EventID); err != nil {
		return nil, err
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartAt)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startAt must be RFC 3339")
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndAt)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endAt must be RFC 3339")
	}
	if !endsAt.After(startsAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endAt must be after startAt")
	}

	slot := &models.TimeSlot{
		EventID:   req.EventID,
		StartsAt:  startsAt,
		EndsAt:    endsAt,
		Available: true,
	}
	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create time slot")
	}
	return slot, nil
}

// SetSlotAvailability toggles whether a slot can host sessions.
func (s *VenueService) SetSlotAvailability(ctx context.Context, id string, available bool) error {
	if _, err := s.slots.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slot")
	}
	if err := s.slots.SetAvailability(ctx, id, available); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set slot availability")
	}
	return nil
}

// DeleteSlot removes a slot.
func (s *VenueService) DeleteSlot(ctx context.Context, id string) error {
	if err := s.slots.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete time slot")
	}
	return nil
}

func (s *VenueService) ensureEvent(ctx context.Context, eventID string) error {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return nil
}
