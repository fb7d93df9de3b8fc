package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openagora/agora-api/internal/dto"
	"github.com/openagora/agora-api/internal/models"
	appErrors "github.com/openagora/agora-api/pkg/errors"
)

type checkinStore interface {
	Create(ctx context.Context, checkin *models.Checkin) error
	Exists(ctx context.Context, sessionID, attendeeID string) (bool, error)
	SummaryByEvent(ctx context.Context, eventID string) ([]models.CheckinSummary, error)
}

type checkinSessionReader interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	ListSchedulable(ctx context.Context, eventID string) ([]models.Session, error)
}

type checkinVenueReader interface {
	FindByID(ctx context.Context, id string) (*models.Venue, error)
}

// CheckinService records attendance against applied schedule assignments.
type CheckinService struct {
	checkins  checkinStore
	sessions  checkinSessionReader
	venues    checkinVenueReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCheckinService wires check-in dependencies.
func NewCheckinService(checkins checkinStore, sessions checkinSessionReader, venues checkinVenueReader, validate *validator.Validate, logger *zap.Logger) *CheckinService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckinService{checkins: checkins, sessions: sessions, venues: venues, validator: validate, logger: logger}
}

// Checkin records one attendee entering one scheduled session. Duplicate
// check-ins are rejected.
func (s *CheckinService) Checkin(ctx context.Context, req dto.CheckinRequest, attendeeID string) (*models.Checkin, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid checkin payload")
	}
	session, err := s.sessions.FindByID(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.Status != models.SessionStatusScheduled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "session is not on the schedule")
	}

	exists, err := s.checkins.Exists(ctx, req.SessionID, attendeeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check attendance")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrAlreadyCheckedIn, "")
	}

	checkin := &models.Checkin{SessionID: req.SessionID, AttendeeID: attendeeID}
	if err := s.checkins.Create(ctx, checkin); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record checkin")
	}
	return checkin, nil
}

// Summary compares actual headcounts with the demand signal the schedule was
// built from.
func (s *CheckinService) Summary(ctx context.Context, eventID string) ([]dto.SessionAttendanceView, error) {
	if eventID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "eventId is required")
	}
	sessions, err := s.sessions.ListSchedulable(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}
	summaries, err := s.checkins.SummaryByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarize checkins")
	}
	counts := make(map[string]int, len(summaries))
	for _, summary := range summaries {
		counts[summary.SessionID] = summary.Count
	}

	views := make([]dto.SessionAttendanceView, 0, len(sessions))
	for _, session := range sessions {
		if session.Status != models.SessionStatusScheduled || session.VenueID == nil {
			continue
		}
		venue, err := s.venues.FindByID(ctx, *session.VenueID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load venue")
		}
		view := dto.SessionAttendanceView{
			SessionID: session.ID,
			Title:     session.Title,
			VenueID:   venue.ID,
			Capacity:  venue.Capacity,
			Predicted: session.TotalVoters,
			CheckedIn: counts[session.ID],
		}
		if venue.Capacity > 0 {
			view.FillRate = float64(view.CheckedIn) / float64(venue.Capacity)
		}
		view.Overcrowded = view.CheckedIn > venue.Capacity
		views = append(views, view)
	}
	return views, nil
}
