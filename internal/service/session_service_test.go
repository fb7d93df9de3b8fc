package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openagora/agora-api/internal/dto"
	"github.com/openagora/agora-api/internal/models"
	appErrors "github.com/openagora/agora-api/pkg/errors"
)

type mockSessionStore struct {
	sessions map[string]*models.Session
}

func (m *mockSessionStore) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	var out []models.Session
	for _, session := range m.sessions {
		out = append(out, *session)
	}
	return out, len(out), nil
}

func (m *mockSessionStore) FindByID(ctx context.Context, id string) (*models.Session, error) {
	session, ok := m.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *session
	return &copied, nil
}

func (m *mockSessionStore) Create(ctx context.Context, session *models.Session) error {
	if m.sessions == nil {
		m.sessions = make(map[string]*models.Session)
	}
	session.ID = "s-new"
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionStore) Update(ctx context.Context, session *models.Session) error {
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionStore) SetStatus(ctx context.Context, id string, status models.SessionStatus) error {
	m.sessions[id].Status = status
	return nil
}

func (m *mockSessionStore) Lock(ctx context.Context, id, venueID, timeSlotID string) error {
	session := m.sessions[id]
	session.IsLocked = true
	session.VenueID = &venueID
	session.TimeSlotID = &timeSlotID
	return nil
}

func (m *mockSessionStore) Unlock(ctx context.Context, id string) error {
	m.sessions[id].IsLocked = false
	return nil
}

type mockSessionEvents struct{ event *models.Event }

func (m *mockSessionEvents) FindByID(ctx context.Context, id string) (*models.Event, error) {
	return m.event, nil
}

type mockSessionVenues struct{ venue *models.Venue }

func (m *mockSessionVenues) FindByID(ctx context.Context, id string) (*models.Venue, error) {
	if m.venue == nil {
		return nil, sql.ErrNoRows
	}
	return m.venue, nil
}

type mockSessionSlots struct{ slot *models.TimeSlot }

func (m *mockSessionSlots) FindByID(ctx context.Context, id string) (*models.TimeSlot, error) {
	if m.slot == nil {
		return nil, sql.ErrNoRows
	}
	return m.slot, nil
}

func sessionFixture(status models.SessionStatus) (*SessionService, *mockSessionStore) {
	base := time.Date(2026, 9, 12, 9, 0, 0, 0, time.UTC)
	store := &mockSessionStore{sessions: map[string]*models.Session{
		"s1": {ID: "s1", EventID: "e1", ProposerID: "u1", Title: "Compost Basics", Status: status, Duration: 60, Requirements: []byte(`[]`)},
	}}
	svc := NewSessionService(
		store,
		&mockSessionEvents{event: &models.Event{ID: "e1", Status: models.EventStatusVoting}},
		&mockSessionVenues{venue: &models.Venue{ID: "v1", EventID: "e1", Capacity: 50}},
		&mockSessionSlots{slot: &models.TimeSlot{ID: "t1", EventID: "e1", StartsAt: base, EndsAt: base.Add(time.Hour), Available: true}},
		validator.New(),
		zap.NewNop(),
	)
	return svc, store
}

func TestCreateSessionStartsAsDraft(t *testing.T) {
	svc, store := sessionFixture(models.SessionStatusDraft)

	session, err := svc.Create(context.Background(), dto.CreateSessionRequest{
		EventID:  "e1",
		Title:    "Rainwater Harvesting",
		Format:   "WORKSHOP",
		Duration: 90,
	}, "u2")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusDraft, session.Status)
	assert.Equal(t, "u2", session.ProposerID)
	assert.Contains(t, store.sessions, session.ID)
}

func TestSessionTransitions(t *testing.T) {
	cases := []struct {
		name    string
		from    models.SessionStatus
		to      models.SessionStatus
		allowed bool
	}{
		{"draft submits", models.SessionStatusDraft, models.SessionStatusSubmitted, true},
		{"submitted approves", models.SessionStatusSubmitted, models.SessionStatusApproved, true},
		{"submitted rejects", models.SessionStatusSubmitted, models.SessionStatusRejected, true},
		{"rejected resubmits", models.SessionStatusRejected, models.SessionStatusSubmitted, true},
		{"draft cannot approve", models.SessionStatusDraft, models.SessionStatusApproved, false},
		{"scheduled is terminal here", models.SessionStatusScheduled, models.SessionStatusApproved, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := sessionFixture(tc.from)
			_, err := svc.Transition(context.Background(), "s1", tc.to)
			if tc.allowed {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
			}
		})
	}
}

func TestUpdateSessionOnlyByProposer(t *testing.T) {
	svc, _ := sessionFixture(models.SessionStatusDraft)
	title := "New Title"

	_, err := svc.Update(context.Background(), "s1", dto.UpdateSessionRequest{Title: &title}, "someone-else", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	session, err := svc.Update(context.Background(), "s1", dto.UpdateSessionRequest{Title: &title}, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, "New Title", session.Title)
}

func TestLockSessionValidatesFit(t *testing.T) {
	svc, store := sessionFixture(models.SessionStatusApproved)
	store.sessions["s1"].Duration = 90 // slot is only 60 minutes

	_, err := svc.Lock(context.Background(), "s1", dto.LockSessionRequest{VenueID: "v1", TimeSlotID: "t1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	store.sessions["s1"].Duration = 60
	session, err := svc.Lock(context.Background(), "s1", dto.LockSessionRequest{VenueID: "v1", TimeSlotID: "t1"})
	require.NoError(t, err)
	assert.True(t, session.IsLocked)
}

func TestLockRequiresApproval(t *testing.T) {
	svc, _ := sessionFixture(models.SessionStatusDraft)

	_, err := svc.Lock(context.Background(), "s1", dto.LockSessionRequest{VenueID: "v1", TimeSlotID: "t1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
