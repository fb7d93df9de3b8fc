package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openagora/agora-api/internal/dto"
	"github.com/openagora/agora-api/internal/models"
	appErrors "github.com/openagora/agora-api/pkg/errors"
)

type eventStore interface {
	List(ctx context.Context) ([]models.Event, error)
	FindByID(ctx context.Context, id string) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	SetStatus(ctx context.Context, id string, status models.EventStatus) error
}

// eventTransitions lists the legal lifecycle moves for events.
var eventTransitions = map[models.EventStatus][]models.EventStatus{
	models.EventStatusDraft:     {models.EventStatusVoting, models.EventStatusArchived},
	models.EventStatusVoting:    {models.EventStatusScheduled, models.EventStatusArchived},
	models.EventStatusScheduled: {models.EventStatusLive, models.EventStatusVoting, models.EventStatusArchived},
	models.EventStatusLive:      {models.EventStatusArchived},
}

// EventService manages unconference events and their lifecycle.
type EventService struct {
	events    eventStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEventService wires event dependencies.
func NewEventService(events eventStore, validate *validator.Validate, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{events: events, validator: validate, logger: logger}
}

// List returns all events.
func (s *EventService) List(ctx context.Context) ([]models.Event, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	return events, nil
}

// Get loads one event.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

// Create opens a new event in DRAFT.
func (s *EventService) Create(ctx context.Context, req dto.CreateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsOn)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startsOn must be RFC 3339")
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsOn)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endsOn must be RFC 3339")
	}
	if !endsAt.After(startsAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endsOn must be after startsOn")
	}

	event := &models.Event{
		Name:        req.Name,
		Slug:        slugify(req.Name),
		Status:      models.EventStatusDraft,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		BudgetCents: req.BudgetCents,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	return event, nil
}

// Update patches event metadata.
func (s *EventService) Update(ctx context.Context, id string, req dto.UpdateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		event.Name = *req.Name
	}
	if req.BudgetCents != nil {
		event.BudgetCents = *req.BudgetCents
	}
	if err := s.events.Update(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	return event, nil
}

// Transition moves an event through its lifecycle.
func (s *EventService) Transition(ctx context.Context, id string, target models.EventStatus) (*models.Event, error) {
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	allowed := false
	for _, next := range eventTransitions[event.Status] {
		if next == target {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("cannot move event from %s to %s", event.Status, target))
	}
	if err := s.events.SetStatus(ctx, id, target); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event status")
	}
	event.Status = target
	return event, nil
}

func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
