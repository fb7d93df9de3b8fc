package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openagora/agora-api/internal/dto"
	"github.com/openagora/agora-api/internal/models"
	appErrors "github.com/openagora/agora-api/pkg/errors"
	"github.com/openagora/agora-api/pkg/jobs"
)

type mockBallots struct {
	byKey map[string]models.Ballot // sessionID/voterID
}

func ballotKey(sessionID, voterID string) string { return sessionID + "/" + voterID }

func (m *mockBallots) Upsert(ctx context.Context, ballot *models.Ballot) error {
	if m.byKey == nil {
		m.byKey = make(map[string]models.Ballot)
	}
	m.byKey[ballotKey(ballot.SessionID, ballot.VoterID)] = *ballot
	return nil
}

func (m *mockBallots) Delete(ctx context.Context, sessionID, voterID string) error {
	delete(m.byKey, ballotKey(sessionID, voterID))
	return nil
}

func (m *mockBallots) ListByVoter(ctx context.Context, eventID, voterID string) ([]models.Ballot, error) {
	var out []models.Ballot
	for _, ballot := range m.byKey {
		if ballot.EventID == eventID && ballot.VoterID == voterID {
			out = append(out, ballot)
		}
	}
	return out, nil
}

func (m *mockBallots) SpentCredits(ctx context.Context, eventID, voterID string) (int, error) {
	spent := 0
	for _, ballot := range m.byKey {
		if ballot.EventID == eventID && ballot.VoterID == voterID {
			spent += ballot.Credits
		}
	}
	return spent, nil
}

func (m *mockBallots) Tallies(ctx context.Context, eventID string) ([]models.SessionTally, error) {
	votes := make(map[string]int)
	voters := make(map[string]int)
	for _, ballot := range m.byKey {
		if ballot.EventID != eventID {
			continue
		}
		votes[ballot.SessionID] += ballot.Votes
		voters[ballot.SessionID]++
	}
	var out []models.SessionTally
	for sessionID, total := range votes {
		out = append(out, models.SessionTally{SessionID: sessionID, TotalVotes: total, TotalVoters: voters[sessionID]})
	}
	return out, nil
}

type mockVoteSessions struct {
	sessions map[string]*models.Session
	tallies  map[string][2]int
}

func (m *mockVoteSessions) FindByID(ctx context.Context, id string) (*models.Session, error) {
	return m.sessions[id], nil
}

func (m *mockVoteSessions) UpdateTally(ctx context.Context, sessionID string, totalVotes, totalVoters int) error {
	if m.tallies == nil {
		m.tallies = make(map[string][2]int)
	}
	m.tallies[sessionID] = [2]int{totalVotes, totalVoters}
	return nil
}

type mockVoteEvents struct{ event *models.Event }

func (m *mockVoteEvents) FindByID(ctx context.Context, id string) (*models.Event, error) {
	return m.event, nil
}

type mockQueue struct{ jobs []jobs.Job }

func (m *mockQueue) Enqueue(job jobs.Job) error {
	m.jobs = append(m.jobs, job)
	return nil
}

type noopCache struct{}

func (noopCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	return false, nil
}
func (noopCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}
func (noopCache) Invalidate(ctx context.Context, pattern string) error { return nil }

func voteFixture() (*VoteService, *mockBallots, *mockVoteSessions, *mockQueue) {
	ballots := &mockBallots{}
	sessions := &mockVoteSessions{sessions: map[string]*models.Session{
		"s1": {ID: "s1", EventID: "e1", Status: models.SessionStatusApproved},
		"s2": {ID: "s2", EventID: "e1", Status: models.SessionStatusApproved},
	}}
	events := &mockVoteEvents{event: &models.Event{ID: "e1", Status: models.EventStatusVoting}}
	queue := &mockQueue{}
	svc := NewVoteService(ballots, sessions, events, noopCache{}, queue, validator.New(), zap.NewNop(), VoteServiceConfig{CreditBudget: 100})
	return svc, ballots, sessions, queue
}

func TestCastChargesQuadraticCost(t *testing.T) {
	svc, _, sessions, queue := voteFixture()

	summary, err := svc.Cast(context.Background(), dto.CastBallotRequest{EventID: "e1", SessionID: "s1", Votes: 3}, "u1")
	require.NoError(t, err)
	assert.Equal(t, 9, summary.Spent)
	assert.Equal(t, 91, summary.Remaining)
	assert.Equal(t, [2]int{3, 1}, sessions.tallies["s1"])
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, OverlapJobType, queue.jobs[0].Type)
}

func TestCastEnforcesBudget(t *testing.T) {
	svc, _, _, _ := voteFixture()

	_, err := svc.Cast(context.Background(), dto.CastBallotRequest{EventID: "e1", SessionID: "s1", Votes: 9}, "u1")
	require.NoError(t, err) // 81 credits

	_, err = svc.Cast(context.Background(), dto.CastBallotRequest{EventID: "e1", SessionID: "s2", Votes: 5}, "u1")
	require.Error(t, err) // 81 + 25 > 100
	assert.Equal(t, appErrors.ErrVoteBudget.Code, appErrors.FromError(err).Code)
}

func TestCastReplacesOwnBallot(t *testing.T) {
	svc, ballots, _, _ := voteFixture()

	_, err := svc.Cast(context.Background(), dto.CastBallotRequest{EventID: "e1", SessionID: "s1", Votes: 9}, "u1")
	require.NoError(t, err)

	// re-casting on the same session replaces the old cost instead of stacking
	summary, err := svc.Cast(context.Background(), dto.CastBallotRequest{EventID: "e1", SessionID: "s1", Votes: 10}, "u1")
	require.NoError(t, err)
	assert.Equal(t, 100, summary.Spent)
	assert.Equal(t, 10, ballots.byKey[ballotKey("s1", "u1")].Votes)
}

func TestCastZeroWithdraws(t *testing.T) {
	svc, ballots, _, _ := voteFixture()

	_, err := svc.Cast(context.Background(), dto.CastBallotRequest{EventID: "e1", SessionID: "s1", Votes: 4}, "u1")
	require.NoError(t, err)

	summary, err := svc.Cast(context.Background(), dto.CastBallotRequest{EventID: "e1", SessionID: "s1", Votes: 0}, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Spent)
	assert.Empty(t, ballots.byKey)
}

func TestCastRejectsClosedEvent(t *testing.T) {
	svc, _, _, _ := voteFixture()
	svc.events.(*mockVoteEvents).event.Status = models.EventStatusScheduled

	_, err := svc.Cast(context.Background(), dto.CastBallotRequest{EventID: "e1", SessionID: "s1", Votes: 1}, "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}
