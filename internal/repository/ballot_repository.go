package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openagora/agora-api/internal/models"
)

// BallotRepository provides persistence for quadratic-voting ballots.
type BallotRepository struct {
	db *sqlx.DB
}

// NewBallotRepository creates a new ballot repository.
func NewBallotRepository(db *sqlx.DB) *BallotRepository {
	return &BallotRepository{db: db}
}

// Upsert stores or replaces a voter's ballot for one session.
func (r *BallotRepository) Upsert(ctx context.Context, ballot *models.Ballot) error {
	if ballot.ID == "" {
		ballot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if ballot.CreatedAt.IsZero() {
		ballot.CreatedAt = now
	}
	ballot.UpdatedAt = now

	const query = `INSERT INTO ballots (id, event_id, session_id, voter_id, votes, credits, created_at, updated_at) VALUES (:id, :event_id, :session_id, :voter_id, :votes, :credits, :created_at, :updated_at) ON CONFLICT (session_id, voter_id) DO UPDATE SET votes = EXCLUDED.votes, credits = EXCLUDED.credits, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, ballot); err != nil {
		return fmt.Errorf("upsert ballot: %w", err)
	}
	return nil
}

// Delete withdraws a voter's ballot for one session.
func (r *BallotRepository) Delete(ctx context.Context, sessionID, voterID string) error {
	const query = `DELETE FROM ballots WHERE session_id = $1 AND voter_id = $2`
	if _, err := r.db.ExecContext(ctx, query, sessionID, voterID); err != nil {
		return fmt.Errorf("delete ballot: %w", err)
	}
	return nil
}

// ListByVoter returns a voter's ballots for an event.
func (r *BallotRepository) ListByVoter(ctx context.Context, eventID, voterID string) ([]models.Ballot, error) {
	const query = `SELECT id, event_id, session_id, voter_id, votes, credits, created_at, updated_at FROM ballots WHERE event_id = $1 AND voter_id = $2 ORDER BY session_id ASC`
	var ballots []models.Ballot
	if err := r.db.SelectContext(ctx, &ballots, query, eventID, voterID); err != nil {
		return nil, fmt.Errorf("list ballots by voter: %w", err)
	}
	return ballots, nil
}

// SpentCredits sums a voter's committed credits across an event.
func (r *BallotRepository) SpentCredits(ctx context.Context, eventID, voterID string) (int, error) {
	const query = `SELECT COALESCE(SUM(credits), 0) FROM ballots WHERE event_id = $1 AND voter_id = $2`
	var spent int
	if err := r.db.GetContext(ctx, &spent, query, eventID, voterID); err != nil {
		return 0, fmt.Errorf("sum spent credits: %w", err)
	}
	return spent, nil
}

// Tallies aggregates per-session vote totals for an event.
func (r *BallotRepository) Tallies(ctx context.Context, eventID string) ([]models.SessionTally, error) {
	const query = `SELECT session_id, COALESCE(SUM(votes), 0) AS total_votes, COUNT(DISTINCT voter_id) AS total_voters FROM ballots WHERE event_id = $1 GROUP BY session_id ORDER BY session_id ASC`
	var tallies []models.SessionTally
	if err := r.db.SelectContext(ctx, &tallies, query, eventID); err != nil {
		return nil, fmt.Errorf("tally ballots: %w", err)
	}
	return tallies, nil
}

// VoterSets returns, per session, the voters who spent at least one vote on
// it. The overlap job turns these sets into pairwise shared-audience rows.
func (r *BallotRepository) VoterSets(ctx context.Context, eventID string) (map[string][]string, error) {
	const query = `SELECT session_id, voter_id FROM ballots WHERE event_id = $1 AND votes > 0 ORDER BY session_id ASC, voter_id ASC`
	rows, err := r.db.QueryxContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("list voter sets: %w", err)
	}
	defer rows.Close()

	sets := make(map[string][]string)
	for rows.Next() {
		var sessionID, voterID string
		if err := rows.Scan(&sessionID, &voterID); err != nil {
			return nil, fmt.Errorf("scan voter set row: %w", err)
		}
		sets[sessionID] = append(sets[sessionID], voterID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voter sets: %w", err)
	}
	return sets, nil
}
