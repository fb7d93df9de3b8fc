package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openagora/agora-api/internal/dto"
	"github.com/openagora/agora-api/internal/models"
	appErrors "github.com/openagora/agora-api/pkg/errors"
	"github.com/openagora/agora-api/pkg/jobs"
)

type ballotStore interface {
	Upsert(ctx context.Context, ballot *models.Ballot) error
	Delete(ctx context.Context, sessionID, voterID string) error
	ListByVoter(ctx context.Context, eventID, voterID string) ([]models.Ballot, error)
	SpentCredits(ctx context.Context, eventID, voterID string) (int, error)
	Tallies(ctx context.Context, eventID string) ([]models.SessionTally, error)
}

type voteSessionReader interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	UpdateTally(ctx context.Context, sessionID string, totalVotes, totalVoters int) error
}

type voteEventReader interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

type tallyCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

type overlapEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// VoteService enforces the quadratic voting budget and keeps tallies and
// voter overlaps fresh.
type VoteService struct {
	ballots   ballotStore
	sessions  voteSessionReader
	events    voteEventReader
	cache     tallyCache
	queue     overlapEnqueuer
	validator *validator.Validate
	logger    *zap.Logger
	budget    int
	tallyTTL  time.Duration
}

// VoteServiceConfig governs voting behaviour.
type VoteServiceConfig struct {
	CreditBudget int
	TallyTTL     time.Duration
}

// OverlapJobType tags overlap recompute jobs on the background queue.
const OverlapJobType = "voter_overlap_recompute"

// NewVoteService wires voting dependencies.
func NewVoteService(
	ballots ballotStore,
	sessions voteSessionReader,
	events voteEventReader,
	cache tallyCache,
	queue overlapEnqueuer,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg VoteServiceConfig,
) *VoteService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CreditBudget <= 0 {
		cfg.CreditBudget = 100
	}
	if cfg.TallyTTL <= 0 {
		cfg.TallyTTL = 2 * time.Minute
	}
	return &VoteService{
		ballots:   ballots,
		sessions:  sessions,
		events:    events,
		cache:     cache,
		queue:     queue,
		validator: validate,
		logger:    logger,
		budget:    cfg.CreditBudget,
		tallyTTL:  cfg.TallyTTL,
	}
}

// Cast spends credits on a session. The cost of n votes is n*n; the voter's
// total cost across the event may never exceed the credit budget. Zero votes
// withdraws the ballot.
func (s *VoteService) Cast(ctx context.Context, req dto.CastBallotRequest, voterID string) (*dto.CreditSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid ballot payload")
	}

	event, err := s.events.FindByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if event.Status != models.EventStatusVoting {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "event is not accepting votes")
	}

	session, err := s.sessions.FindByID(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.EventID != event.ID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session does not belong to this event")
	}
	if session.Status != models.SessionStatusApproved && session.Status != models.SessionStatusSubmitted {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "session is not open for voting")
	}

	cost := req.Votes * req.Votes

	ballots, err := s.ballots.ListByVoter(ctx, event.ID, voterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load voter ballots")
	}
	spentElsewhere := 0
	for _, ballot := range ballots {
		if ballot.SessionID == req.SessionID {
			continue
		}
		spentElsewhere += ballot.Credits
	}
	if spentElsewhere+cost > s.budget {
		return nil, appErrors.Clone(appErrors.ErrVoteBudget,
			fmt.Sprintf("ballot costs %d credits but only %d remain", cost, s.budget-spentElsewhere))
	}

	if req.Votes == 0 {
		if err := s.ballots.Delete(ctx, req.SessionID, voterID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to withdraw ballot")
		}
	} else {
		ballot := &models.Ballot{
			EventID:   event.ID,
			SessionID: req.SessionID,
			VoterID:   voterID,
			Votes:     req.Votes,
			Credits:   cost,
		}
		if err := s.ballots.Upsert(ctx, ballot); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store ballot")
		}
	}

	s.refreshTally(ctx, event.ID, req.SessionID)
	s.invalidateTallyCache(ctx, event.ID)
	s.enqueueOverlapRecompute(event.ID)

	return s.Credits(ctx, event.ID, voterID)
}

// Credits reports a voter's budget position for an event.
func (s *VoteService) Credits(ctx context.Context, eventID, voterID string) (*dto.CreditSummary, error) {
	ballots, err := s.ballots.ListByVoter(ctx, eventID, voterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load voter ballots")
	}
	summary := &dto.CreditSummary{
		EventID: eventID,
		Budget:  s.budget,
		Ballots: make([]dto.BallotView, 0, len(ballots)),
	}
	for _, ballot := range ballots {
		summary.Spent += ballot.Credits
		summary.Ballots = append(summary.Ballots, dto.BallotView{
			SessionID: ballot.SessionID,
			Votes:     ballot.Votes,
			Credits:   ballot.Credits,
		})
	}
	summary.Remaining = s.budget - summary.Spent
	return summary, nil
}

// Tallies returns per-session demand for an event, served from cache when
// fresh. The second return reports whether the cache was hit.
func (s *VoteService) Tallies(ctx context.Context, eventID string) ([]dto.TallyView, bool, error) {
	cacheKey := tallyCacheKey(eventID)
	if s.cache != nil {
		var cached []dto.TallyView
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, true, nil
		}
	}

	tallies, err := s.ballots.Tallies(ctx, eventID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to tally ballots")
	}
	views := make([]dto.TallyView, 0, len(tallies))
	for _, tally := range tallies {
		views = append(views, dto.TallyView{
			SessionID:   tally.SessionID,
			TotalVotes:  tally.TotalVotes,
			TotalVoters: tally.TotalVoters,
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, views, s.tallyTTL); err != nil {
			s.logger.Warn("failed to cache vote tallies", zap.String("event_id", eventID), zap.Error(err))
		}
	}
	return views, false, nil
}

func (s *VoteService) refreshTally(ctx context.Context, eventID, sessionID string) {
	tallies, err := s.ballots.Tallies(ctx, eventID)
	if err != nil {
		s.logger.Warn("failed to refresh session tally", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	totalVotes, totalVoters := 0, 0
	for _, tally := range tallies {
		if tally.SessionID == sessionID {
			totalVotes, totalVoters = tally.TotalVotes, tally.TotalVoters
			break
		}
	}
	if err := s.sessions.UpdateTally(ctx, sessionID, totalVotes, totalVoters); err != nil {
		s.logger.Warn("failed to store session tally", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (s *VoteService) invalidateTallyCache(ctx context.Context, eventID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, tallyCacheKey(eventID)); err != nil {
		s.logger.Warn("failed to invalidate tally cache", zap.String("event_id", eventID), zap.Error(err))
	}
}

func (s *VoteService) enqueueOverlapRecompute(eventID string) {
	if s.queue == nil {
		return
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    OverlapJobType,
		Payload: eventID,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue overlap recompute", zap.String("event_id", eventID), zap.Error(err))
	}
}

func tallyCacheKey(eventID string) string {
	return "tally:" + eventID
}
