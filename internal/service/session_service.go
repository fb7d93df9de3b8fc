package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/openagora/agora-api/internal/dto"
	"github.com/openagora/agora-api/internal/models"
	appErrors "github.com/openagora/agora-api/pkg/errors"
)

type sessionStore interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error)
	FindByID(ctx context.Context, id string) (*models.Session, error)
	Create(ctx context.Context, session *models.Session) error
	Update(ctx context.Context, session *models.Session) error
	SetStatus(ctx context.Context, id string, status models.SessionStatus) error
	Lock(ctx context.Context, id, venueID, timeSlotID string) error
	Unlock(ctx context.Context, id string) error
}

type sessionEventReader interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

type sessionVenueReader interface {
	FindByID(ctx context.Context, id string) (*models.Venue, error)
}

type sessionSlotReader interface {
	FindByID(ctx context.Context, id string) (*models.TimeSlot, error)
}

// sessionTransitions lists the legal lifecycle moves. SCHEDULED is only ever
// entered by a schedule apply, never through this map.
var sessionTransitions = map[models.SessionStatus][]models.SessionStatus{
	models.SessionStatusDraft:     {models.SessionStatusSubmitted},
	models.SessionStatusSubmitted: {models.SessionStatusApproved, models.SessionStatusRejected, models.SessionStatusDraft},
	models.SessionStatusApproved:  {models.SessionStatusRejected},
	models.SessionStatusRejected:  {models.SessionStatusSubmitted},
}

// SessionService manages session proposals and their lifecycle.
type SessionService struct {
	sessions  sessionStore
	events    sessionEventReader
	venues    sessionVenueReader
	slots     sessionSlotReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSessionService wires session dependencies.
func NewSessionService(
	sessions sessionStore,
	events sessionEventReader,
	venues sessionVenueReader,
	slots sessionSlotReader,
	validate *validator.Validate,
	logger *zap.Logger,
) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		sessions:  sessions,
		events:    events,
		venues:    venues,
		slots:     slots,
		validator: validate,
		logger:    logger,
	}
}

// List returns sessions matching the filter.
func (s *SessionService) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	sessions, total, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, total, nil
}

// Get loads one session.
func (s *SessionService) Get(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// Create registers a new proposal in DRAFT for the acting user.
func (s *SessionService) Create(ctx context.Context, req dto.CreateSessionRequest, proposerID string) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	event, err := s.events.FindByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if event.Status == models.EventStatusArchived {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "event is archived")
	}

	requirements, err := marshalTags(req.Requirements)
	if err != nil {
		return nil, err
	}
	session := &models.Session{
		EventID:      event.ID,
		ProposerID:   proposerID,
		Title:        req.Title,
		Abstract:     req.Abstract,
		Format:       models.SessionFormat(req.Format),
		Status:       models.SessionStatusDraft,
		Duration:     req.Duration,
		Requirements: requirements,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	return session, nil
}

// Update patches an unscheduled proposal. Only the proposer may edit, and
// only before approval.
func (s *SessionService) Update(ctx context.Context, id string, req dto.UpdateSessionRequest, actorID string, isOrganizer bool) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.ProposerID != actorID && !isOrganizer {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the proposer may edit this session")
	}
	if session.Status != models.SessionStatusDraft && session.Status != models.SessionStatusSubmitted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "session can no longer be edited")
	}

	if req.Title != nil {
		session.Title = *req.Title
	}
	if req.Abstract != nil {
		session.Abstract = *req.Abstract
	}
	if req.Format != nil {
		session.Format = models.SessionFormat(*req.Format)
	}
	if req.Duration != nil {
		session.Duration = *req.Duration
	}
	if req.Requirements != nil {
		requirements, err := marshalTags(req.Requirements)
		if err != nil {
			return nil, err
		}
		session.Requirements = requirements
	}

	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}
	return session, nil
}

// Transition moves a session through its lifecycle.
func (s *SessionService) Transition(ctx context.Context, id string, target models.SessionStatus) (*models.Session, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(session.Status, target) {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("cannot move session from %s to %s", session.Status, target))
	}
	if err := s.sessions.SetStatus(ctx, id, target); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session status")
	}
	session.Status = target
	return session, nil
}

// Lock pins a session to a fixed placement so the generator treats it as
// immovable ground truth.
func (s *SessionService) Lock(ctx context.Context, id string, req dto.LockSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lock payload")
	}
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusApproved && session.Status != models.SessionStatusScheduled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only approved sessions can be locked")
	}

	venue, err := s.venues.FindByID(ctx, req.VenueID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "venue not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load venue")
	}
	slot, err := s.slots.FindByID(ctx, req.TimeSlotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slot")
	}
	if venue.EventID != session.EventID || slot.EventID != session.EventID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "venue and time slot must belong to the session's event")
	}
	if session.Duration > slot.DurationMinutes() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session does not fit in the chosen time slot")
	}

	if err := s.sessions.Lock(ctx, id, req.VenueID, req.TimeSlotID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock session")
	}
	session.IsLocked = true
	session.VenueID = &venue.ID
	session.TimeSlotID = &slot.ID
	return session, nil
}

// Unlock releases a pinned session back to the generator.
func (s *SessionService) Unlock(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !session.IsLocked {
		return session, nil
	}
	if err := s.sessions.Unlock(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unlock session")
	}
	session.IsLocked = false
	return session, nil
}

func transitionAllowed(from, to models.SessionStatus) bool {
	for _, allowed := range sessionTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func marshalTags(tags []string) (types.JSONText, error) {
	if tags == nil {
		tags = []string{}
	}
	payload, err := json.Marshal(tags)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode tags")
	}
	return types.JSONText(payload), nil
}
