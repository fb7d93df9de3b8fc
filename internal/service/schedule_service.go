package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/openagora/agora-api/internal/dto"
	"github.com/openagora/agora-api/internal/models"
	"github.com/openagora/agora-api/internal/scheduler"
	appErrors "github.com/openagora/agora-api/pkg/errors"
	"github.com/openagora/agora-api/pkg/export"
)

type scheduleEventReader interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
	SetStatusWithTx(ctx context.Context, tx *sqlx.Tx, id string, status models.EventStatus) error
}

type scheduleSessionFeeder interface {
	ListSchedulable(ctx context.Context, eventID string) ([]models.Session, error)
	ClearPlacementsWithTx(ctx context.Context, tx *sqlx.Tx, eventID string) error
	ApplyPlacementWithTx(ctx context.Context, tx *sqlx.Tx, sessionID, venueID, timeSlotID string) error
}

type scheduleVenueFeeder interface {
	ListByEvent(ctx context.Context, eventID string) ([]models.Venue, error)
}

type scheduleSlotFeeder interface {
	ListByEvent(ctx context.Context, eventID string) ([]models.TimeSlot, error)
}

type scheduleOverlapFeeder interface {
	ListByEvent(ctx context.Context, eventID string) ([]models.VoterOverlap, error)
}

type scheduleTallyFeeder interface {
	Tallies(ctx context.Context, eventID string) ([]models.SessionTally, error)
}

type scheduleRunStore interface {
	BeginTx(ctx context.Context) (*sqlx.Tx, error)
	NextVersion(ctx context.Context, eventID string) (int, error)
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, run *models.ScheduleRun, assignments []models.ScheduleAssignment) error
	MarkDiscardedWithTx(ctx context.Context, tx *sqlx.Tx, eventID string) error
	ListByEvent(ctx context.Context, eventID string) ([]models.ScheduleRun, error)
	FindByID(ctx context.Context, id string) (*models.ScheduleRun, error)
	ListAssignments(ctx context.Context, runID string) ([]models.ScheduleAssignment, error)
}

type scheduleGenerator interface {
	Generate(in scheduler.Input) (*scheduler.Result, error)
}

type exportFileStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type exportTokenSigner interface {
	Generate(runID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (runID, relPath string, expiresAt time.Time, err error)
}

// ScheduleService orchestrates dry-run schedule generation and the
// transactional apply of a chosen proposal.
type ScheduleService struct {
	events      scheduleEventReader
	sessions    scheduleSessionFeeder
	venues      scheduleVenueFeeder
	slots       scheduleSlotFeeder
	overlaps    scheduleOverlapFeeder
	tallies     scheduleTallyFeeder
	runs        scheduleRunStore
	newGen      func(cfg scheduler.Config) scheduleGenerator
	validator   *validator.Validate
	logger      *zap.Logger
	store       *proposalStore
	defaultsCfg scheduler.Config
	files       exportFileStore
	signer      exportTokenSigner
}

// ScheduleServiceConfig governs proposal lifetime and generator defaults.
type ScheduleServiceConfig struct {
	ProposalTTL       time.Duration
	ConflictThreshold float64
	MaxIterations     int
	TargetScore       float64
}

// NewScheduleService wires schedule dependencies.
func NewScheduleService(
	events scheduleEventReader,
	sessions scheduleSessionFeeder,
	venues scheduleVenueFeeder,
	slots scheduleSlotFeeder,
	overlaps scheduleOverlapFeeder,
	tallies scheduleTallyFeeder,
	runs scheduleRunStore,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ScheduleServiceConfig,
) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	svc := &ScheduleService{
		events:    events,
		sessions:  sessions,
		venues:    venues,
		slots:     slots,
		overlaps:  overlaps,
		tallies:   tallies,
		runs:      runs,
		validator: validate,
		logger:    logger,
		store:     newProposalStore(cfg.ProposalTTL),
		defaultsCfg: scheduler.Config{
			ConflictThreshold: cfg.ConflictThreshold,
			MaxIterations:     cfg.MaxIterations,
			TargetScore:       cfg.TargetScore,
		},
	}
	svc.newGen = func(genCfg scheduler.Config) scheduleGenerator {
		return scheduler.New(genCfg, logger)
	}
	return svc
}

// Generate runs the generator against the event's current state. The result
// is cached as a proposal; nothing is persisted until Apply.
func (s *ScheduleService) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule generation payload")
	}

	event, err := s.loadEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if event.ScheduleLocked {
		return nil, appErrors.Clone(appErrors.ErrScheduleLocked, "")
	}

	input, err := s.buildInput(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	if len(input.Sessions) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "event has no approved sessions to schedule")
	}
	if len(input.Venues) == 0 || len(input.Slots) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "event needs at least one venue and one time slot")
	}

	cfg := s.defaultsCfg
	if req.ConflictThreshold > 0 {
		cfg.ConflictThreshold = req.ConflictThreshold
	}
	if req.MaxIterations > 0 {
		cfg.MaxIterations = req.MaxIterations
	}
	if req.TargetScore > 0 {
		cfg.TargetScore = req.TargetScore
	}

	result, err := s.newGen(cfg).Generate(*input)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	proposal := scheduleProposal{
		ProposalID:  uuid.NewString(),
		EventID:     event.ID,
		Result:      result,
		RequestedAt: time.Now().UTC(),
	}
	s.store.Save(proposal)

	return proposalResponse(proposal), nil
}

// Apply persists a cached proposal in one transaction: session placements,
// the versioned run record, and the event transition to SCHEDULED.
func (s *ScheduleService) Apply(ctx context.Context, req dto.ApplyScheduleRequest) (*models.ScheduleRun, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid apply schedule payload")
	}
	proposal, ok := s.store.Get(req.ProposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}

	event, err := s.loadEvent(ctx, proposal.EventID)
	if err != nil {
		return nil, err
	}
	if event.ScheduleLocked {
		return nil, appErrors.Clone(appErrors.ErrScheduleLocked, "")
	}

	version, err := s.runs.NextVersion(ctx, event.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to determine schedule version")
	}

	metaPayload := map[string]any{
		"metrics":    proposal.Result.Metrics,
		"warnings":   proposal.Result.Warnings,
		"unassigned": proposal.Result.Unassigned,
		"generated":  proposal.RequestedAt,
	}
	metaBytes, marshalErr := json.Marshal(metaPayload)
	if marshalErr != nil {
		return nil, appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule metadata")
	}

	run := &models.ScheduleRun{
		EventID: event.ID,
		Version: version,
		Status:  models.ScheduleRunStatusApplied,
		Score:   proposal.Result.Score,
		Meta:    types.JSONText(metaBytes),
	}
	assignments := make([]models.ScheduleAssignment, 0, len(proposal.Result.Assignments))
	for _, a := range proposal.Result.Assignments {
		assignments = append(assignments, models.ScheduleAssignment{
			SessionID:  a.SessionID,
			VenueID:    a.VenueID,
			TimeSlotID: a.TimeSlotID,
		})
	}

	tx, err := s.runs.BeginTx(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.sessions.ClearPlacementsWithTx(ctx, tx, event.ID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear previous placements")
		return nil, err
	}
	for _, a := range proposal.Result.Assignments {
		if err = s.sessions.ApplyPlacementWithTx(ctx, tx, a.SessionID, a.VenueID, a.TimeSlotID); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply placement")
			return nil, err
		}
	}
	if err = s.runs.MarkDiscardedWithTx(ctx, tx, event.ID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to retire previous runs")
		return nil, err
	}
	if err = s.runs.CreateWithTx(ctx, tx, run, assignments); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedule run")
		return nil, err
	}
	if err = s.events.SetStatusWithTx(ctx, tx, event.ID, models.EventStatusScheduled); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event status")
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule transaction")
		return nil, err
	}

	s.store.Delete(req.ProposalID)
	s.logger.Info("schedule applied",
		zap.String("event_id", event.ID),
		zap.Int("version", run.Version),
		zap.Float64("score", run.Score),
		zap.Int("assignments", len(assignments)),
	)
	return run, nil
}

// GetProposal re-reads a cached proposal, typically to inspect warnings
// before applying.
func (s *ScheduleService) GetProposal(proposalID string) (*dto.GenerateScheduleResponse, error) {
	proposal, ok := s.store.Get(proposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	return proposalResponse(proposal), nil
}

// ListRuns returns persisted runs for an event, newest first.
func (s *ScheduleService) ListRuns(ctx context.Context, query dto.ScheduleRunQuery) ([]models.ScheduleRun, error) {
	if query.EventID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "eventId is required")
	}
	runs, err := s.runs.ListByEvent(ctx, query.EventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule runs")
	}
	return runs, nil
}

// ExportRun renders a persisted run's assignments as CSV or PDF.
func (s *ScheduleService) ExportRun(ctx context.Context, runID, format string) ([]byte, string, error) {
	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "schedule run not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule run")
	}
	assignments, err := s.runs.ListAssignments(ctx, run.ID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule assignments")
	}

	dataset := export.Dataset{
		Headers: []string{"Session", "Venue", "Time Slot"},
		Rows:    make([]map[string]string, 0, len(assignments)),
	}
	for _, a := range assignments {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Session":   a.SessionID,
			"Venue":     a.VenueID,
			"Time Slot": a.TimeSlotID,
		})
	}

	switch format {
	case "pdf":
		payload, renderErr := export.NewPDFExporter().Render(dataset, fmt.Sprintf("Schedule v%d", run.Version))
		if renderErr != nil {
			return nil, "", appErrors.Wrap(renderErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule pdf")
		}
		return payload, "application/pdf", nil
	case "", "csv":
		payload, renderErr := export.NewCSVExporter().Render(dataset)
		if renderErr != nil {
			return nil, "", appErrors.Wrap(renderErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule csv")
		}
		return payload, "text/csv", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

// AttachExportArchive enables archived exports with signed download links.
func (s *ScheduleService) AttachExportArchive(files exportFileStore, signer exportTokenSigner) {
	s.files = files
	s.signer = signer
}

// ExportLink renders and archives the run, returning a signed token that can
// be redeemed without authentication until it expires.
func (s *ScheduleService) ExportLink(ctx context.Context, runID, format string) (*dto.ExportLinkResponse, error) {
	if s.files == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "export archive is not configured")
	}
	if format == "" {
		format = "csv"
	}
	payload, _, err := s.ExportRun(ctx, runID, format)
	if err != nil {
		return nil, err
	}
	filename := fmt.Sprintf("run-%s.%s", runID, format)
	if _, err := s.files.Save(filename, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive schedule export")
	}
	token, expiresAt, err := s.signer.Generate(runID, filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}
	return &dto.ExportLinkResponse{Token: token, ExpiresAt: expiresAt}, nil
}

// OpenExport redeems a signed export token and returns the archived payload.
func (s *ScheduleService) OpenExport(token string) ([]byte, string, error) {
	if s.files == nil || s.signer == nil {
		return nil, "", appErrors.Clone(appErrors.ErrPreconditionFailed, "export archive is not configured")
	}
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired export token")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}
	defer file.Close()
	payload, err := io.ReadAll(file)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read archived export")
	}
	contentType := "text/csv"
	if strings.HasSuffix(relPath, ".pdf") {
		contentType = "application/pdf"
	}
	return payload, contentType, nil
}

func (s *ScheduleService) loadEvent(ctx context.Context, eventID string) (*models.Event, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

// buildInput snapshots the event into the generator's input shape, merging
// fresh ballot tallies over the denormalized session counters.
func (s *ScheduleService) buildInput(ctx context.Context, eventID string) (*scheduler.Input, error) {
	sessions, err := s.sessions.ListSchedulable(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}
	venues, err := s.venues.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load venues")
	}
	slots, err := s.slots.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slots")
	}
	overlaps, err := s.overlaps.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load voter overlaps")
	}
	tallies, err := s.tallies.Tallies(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load vote tallies")
	}
	tallyBySession := make(map[string]models.SessionTally, len(tallies))
	for _, tally := range tallies {
		tallyBySession[tally.SessionID] = tally
	}

	input := &scheduler.Input{
		Sessions: make([]scheduler.Session, 0, len(sessions)),
		Venues:   make([]scheduler.Venue, 0, len(venues)),
		Slots:    make([]scheduler.TimeSlot, 0, len(slots)),
		Overlaps: make([]scheduler.Overlap, 0, len(overlaps)),
	}
	for _, session := range sessions {
		item := scheduler.Session{
			ID:           session.ID,
			Title:        session.Title,
			Duration:     session.Duration,
			IsLocked:     session.IsLocked,
			Requirements: session.RequirementTags(),
			TotalVotes:   session.TotalVotes,
			TotalVoters:  session.TotalVoters,
		}
		if session.VenueID != nil {
			item.VenueID = *session.VenueID
		}
		if session.TimeSlotID != nil {
			item.TimeSlotID = *session.TimeSlotID
		}
		if tally, ok := tallyBySession[session.ID]; ok {
			item.TotalVotes = tally.TotalVotes
			item.TotalVoters = tally.TotalVoters
		}
		input.Sessions = append(input.Sessions, item)
	}
	for _, venue := range venues {
		input.Venues = append(input.Venues, scheduler.Venue{
			ID:       venue.ID,
			Name:     venue.Name,
			Capacity: venue.Capacity,
			Features: venue.FeatureTags(),
		})
	}
	for _, slot := range slots {
		input.Slots = append(input.Slots, scheduler.TimeSlot{
			ID:        slot.ID,
			Start:     slot.StartsAt,
			End:       slot.EndsAt,
			Available: slot.Available,
		})
	}
	for _, overlap := range overlaps {
		input.Overlaps = append(input.Overlaps, scheduler.Overlap{
			SessionA:     overlap.SessionAID,
			SessionB:     overlap.SessionBID,
			Percent:      overlap.OverlapPercent,
			SharedVoters: overlap.SharedVoters,
		})
	}
	return input, nil
}

func proposalResponse(proposal scheduleProposal) *dto.GenerateScheduleResponse {
	result := proposal.Result
	resp := &dto.GenerateScheduleResponse{
		ProposalID:  proposal.ProposalID,
		Score:       result.Score,
		Assignments: make([]dto.AssignmentView, 0, len(result.Assignments)),
		Unassigned:  result.Unassigned,
		Warnings:    make([]dto.ScheduleWarningView, 0, len(result.Warnings)),
		Metrics: dto.ScheduleMetricsView{
			TotalSessions:   result.Metrics.TotalSessions,
			PlacedSessions:  result.Metrics.PlacedSessions,
			ConflictedPairs: result.Metrics.ConflictedPairs,
			Oversubscribed:  result.Metrics.Oversubscribed,
			Iterations:      result.Metrics.Iterations,
			MovesAccepted:   result.Metrics.MovesAccepted,
			MovesRejected:   result.Metrics.MovesRejected,
			GreedyScore:     result.Metrics.GreedyScore,
		},
		ElapsedMS: result.Elapsed.Milliseconds(),
	}
	for _, a := range result.Assignments {
		resp.Assignments = append(resp.Assignments, dto.AssignmentView{
			SessionID:  a.SessionID,
			VenueID:    a.VenueID,
			TimeSlotID: a.TimeSlotID,
		})
	}
	for _, w := range result.Warnings {
		resp.Warnings = append(resp.Warnings, dto.ScheduleWarningView{Type: w.Type, Message: w.Message, SessionID: w.SessionID})
	}
	return resp
}

// --- Proposal cache ---

type scheduleProposal struct {
	ProposalID  string
	EventID     string
	Result      *scheduler.Result
	RequestedAt time.Time
}

type proposalStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]scheduleProposal
}

func newProposalStore(ttl time.Duration) *proposalStore {
	return &proposalStore{
		ttl:   ttl,
		items: make(map[string]scheduleProposal),
	}
}

func (s *proposalStore) Save(proposal scheduleProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[proposal.ProposalID] = proposal
}

func (s *proposalStore) Get(id string) (scheduleProposal, bool) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return scheduleProposal{}, false
	}
	if time.Since(proposal.RequestedAt) > s.ttl {
		s.Delete(id)
		return scheduleProposal{}, false
	}
	return proposal, true
}

func (s *proposalStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}
