package service

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openagora/agora-api/internal/dto"
	"github.com/openagora/agora-api/internal/models"
	appErrors "github.com/openagora/agora-api/pkg/errors"
	"github.com/openagora/agora-api/pkg/storage"
)

type mockScheduleEvents struct {
	event       *models.Event
	statusSet   models.EventStatus
	statusSetTo string
}

func (m *mockScheduleEvents) FindByID(ctx context.Context, id string) (*models.Event, error) {
	return m.event, nil
}

func (m *mockScheduleEvents) SetStatusWithTx(ctx context.Context, tx *sqlx.Tx, id string, status models.EventStatus) error {
	m.statusSet = status
	m.statusSetTo = id
	return nil
}

type mockScheduleSessions struct {
	sessions []models.Session
	cleared  bool
	applied  map[string]string
}

func (m *mockScheduleSessions) ListSchedulable(ctx context.Context, eventID string) ([]models.Session, error) {
	return m.sessions, nil
}

func (m *mockScheduleSessions) ClearPlacementsWithTx(ctx context.Context, tx *sqlx.Tx, eventID string) error {
	m.cleared = true
	return nil
}

func (m *mockScheduleSessions) ApplyPlacementWithTx(ctx context.Context, tx *sqlx.Tx, sessionID, venueID, timeSlotID string) error {
	if m.applied == nil {
		m.applied = make(map[string]string)
	}
	m.applied[sessionID] = venueID + "/" + timeSlotID
	return nil
}

type mockScheduleVenues struct{ venues []models.Venue }

func (m *mockScheduleVenues) ListByEvent(ctx context.Context, eventID string) ([]models.Venue, error) {
	return m.venues, nil
}

type mockScheduleSlots struct{ slots []models.TimeSlot }

func (m *mockScheduleSlots) ListByEvent(ctx context.Context, eventID string) ([]models.TimeSlot, error) {
	return m.slots, nil
}

type mockScheduleOverlaps struct{ overlaps []models.VoterOverlap }

func (m *mockScheduleOverlaps) ListByEvent(ctx context.Context, eventID string) ([]models.VoterOverlap, error) {
	return m.overlaps, nil
}

type mockScheduleTallies struct{ tallies []models.SessionTally }

func (m *mockScheduleTallies) Tallies(ctx context.Context, eventID string) ([]models.SessionTally, error) {
	return m.tallies, nil
}

type mockRunStore struct {
	db        *sqlx.DB
	version   int
	run       *models.ScheduleRun
	stored    []models.ScheduleAssignment
	discarded bool
}

func (m *mockRunStore) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return m.db.BeginTxx(ctx, nil)
}

func (m *mockRunStore) NextVersion(ctx context.Context, eventID string) (int, error) {
	if m.version == 0 {
		m.version = 1
	}
	return m.version, nil
}

func (m *mockRunStore) CreateWithTx(ctx context.Context, tx *sqlx.Tx, run *models.ScheduleRun, assignments []models.ScheduleAssignment) error {
	run.ID = "run-1"
	m.run = run
	m.stored = assignments
	return nil
}

func (m *mockRunStore) MarkDiscardedWithTx(ctx context.Context, tx *sqlx.Tx, eventID string) error {
	m.discarded = true
	return nil
}

func (m *mockRunStore) ListByEvent(ctx context.Context, eventID string) ([]models.ScheduleRun, error) {
	if m.run == nil {
		return nil, nil
	}
	return []models.ScheduleRun{*m.run}, nil
}

func (m *mockRunStore) FindByID(ctx context.Context, id string) (*models.ScheduleRun, error) {
	return m.run, nil
}

func (m *mockRunStore) ListAssignments(ctx context.Context, runID string) ([]models.ScheduleAssignment, error) {
	return m.stored, nil
}

func scheduleFixture(t *testing.T) (*ScheduleService, *mockScheduleEvents, *mockScheduleSessions, *mockRunStore, func()) {
	t.Helper()
	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectBegin()
	mock.ExpectCommit()
	db := sqlx.NewDb(rawDB, "sqlmock")

	base := time.Date(2026, 9, 12, 9, 0, 0, 0, time.UTC)
	events := &mockScheduleEvents{event: &models.Event{ID: "e1", Status: models.EventStatusVoting}}
	sessions := &mockScheduleSessions{sessions: []models.Session{
		{ID: "s1", EventID: "e1", Title: "Compost Basics", Status: models.SessionStatusApproved, Duration: 60, Requirements: []byte(`[]`)},
		{ID: "s2", EventID: "e1", Title: "Seed Swaps", Status: models.SessionStatusApproved, Duration: 60, Requirements: []byte(`[]`)},
	}}
	venues := &mockScheduleVenues{venues: []models.Venue{
		{ID: "v1", EventID: "e1", Name: "Main Hall", Capacity: 80, Features: []byte(`[]`)},
	}}
	slots := &mockScheduleSlots{slots: []models.TimeSlot{
		{ID: "t1", EventID: "e1", StartsAt: base, EndsAt: base.Add(time.Hour), Available: true},
		{ID: "t2", EventID: "e1", StartsAt: base.Add(time.Hour), EndsAt: base.Add(2 * time.Hour), Available: true},
	}}
	overlaps := &mockScheduleOverlaps{}
	tallies := &mockScheduleTallies{tallies: []models.SessionTally{
		{SessionID: "s1", TotalVotes: 20, TotalVoters: 8},
		{SessionID: "s2", TotalVotes: 5, TotalVoters: 3},
	}}
	runs := &mockRunStore{db: db}

	svc := NewScheduleService(events, sessions, venues, slots, overlaps, tallies, runs, validator.New(), zap.NewNop(), ScheduleServiceConfig{})
	return svc, events, sessions, runs, func() { rawDB.Close() }
}

func TestGenerateScheduleBuildsProposal(t *testing.T) {
	svc, _, _, _, cleanup := scheduleFixture(t)
	defer cleanup()

	resp, err := svc.Generate(context.Background(), dto.GenerateScheduleRequest{EventID: "e1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ProposalID)
	assert.Len(t, resp.Assignments, 2)
	assert.Empty(t, resp.Unassigned)
	assert.Greater(t, resp.Score, 0.0)

	again, err := svc.GetProposal(resp.ProposalID)
	require.NoError(t, err)
	assert.Equal(t, resp.Assignments, again.Assignments)
}

func TestGenerateScheduleRejectsLockedEvent(t *testing.T) {
	svc, events, _, _, cleanup := scheduleFixture(t)
	defer cleanup()
	events.event.ScheduleLocked = true

	_, err := svc.Generate(context.Background(), dto.GenerateScheduleRequest{EventID: "e1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrScheduleLocked.Code, appErrors.FromError(err).Code)
}

func TestGenerateScheduleRequiresSessions(t *testing.T) {
	svc, _, sessions, _, cleanup := scheduleFixture(t)
	defer cleanup()
	sessions.sessions = nil

	_, err := svc.Generate(context.Background(), dto.GenerateScheduleRequest{EventID: "e1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestApplySchedulePersistsRun(t *testing.T) {
	svc, events, sessions, runs, cleanup := scheduleFixture(t)
	defer cleanup()

	resp, err := svc.Generate(context.Background(), dto.GenerateScheduleRequest{EventID: "e1"})
	require.NoError(t, err)

	run, err := svc.Apply(context.Background(), dto.ApplyScheduleRequest{ProposalID: resp.ProposalID})
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleRunStatusApplied, run.Status)
	assert.Equal(t, 1, run.Version)
	assert.True(t, sessions.cleared)
	assert.Len(t, sessions.applied, 2)
	assert.True(t, runs.discarded)
	assert.Equal(t, models.EventStatusScheduled, events.statusSet)

	// the proposal is consumed on apply
	_, err = svc.Apply(context.Background(), dto.ApplyScheduleRequest{ProposalID: resp.ProposalID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportLinkRoundTrip(t *testing.T) {
	svc, _, _, runs, cleanup := scheduleFixture(t)
	defer cleanup()

	runs.run = &models.ScheduleRun{ID: "run-1", EventID: "e1", Version: 1, Status: models.ScheduleRunStatusApplied}
	runs.stored = []models.ScheduleAssignment{
		{ScheduleRunID: "run-1", SessionID: "s1", VenueID: "v1", TimeSlotID: "t1"},
	}

	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	svc.AttachExportArchive(files, storage.NewSignedURLSigner("test-secret", time.Minute))

	link, err := svc.ExportLink(context.Background(), "run-1", "csv")
	require.NoError(t, err)
	require.NotEmpty(t, link.Token)

	payload, contentType, err := svc.OpenExport(link.Token)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, string(payload), "s1")

	_, _, err = svc.OpenExport(link.Token + "tampered")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestExportLinkRequiresArchive(t *testing.T) {
	svc, _, _, _, cleanup := scheduleFixture(t)
	defer cleanup()

	_, err := svc.ExportLink(context.Background(), "run-1", "csv")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestGenerateScheduleMergesTallies(t *testing.T) {
	svc, _, _, _, cleanup := scheduleFixture(t)
	defer cleanup()

	resp, err := svc.Generate(context.Background(), dto.GenerateScheduleRequest{EventID: "e1"})
	require.NoError(t, err)
	// both sessions fit, so the tally merge shows up in the metrics only
	assert.Equal(t, 2, resp.Metrics.TotalSessions)
	assert.Equal(t, 2, resp.Metrics.PlacedSessions)
}
