package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openagora/agora-api/internal/models"
)

// OverlapRepository provides persistence for precomputed voter overlaps.
type OverlapRepository struct {
	db *sqlx.DB
}

// NewOverlapRepository creates a new overlap repository.
func NewOverlapRepository(db *sqlx.DB) *OverlapRepository {
	return &OverlapRepository{db: db}
}

// ListByEvent returns all overlap rows for an event.
func (r *OverlapRepository) ListByEvent(ctx context.Context, eventID string) ([]models.VoterOverlap, error) {
	const query = `SELECT id, event_id, session_a_id, session_b_id, overlap_percent, shared_voters, computed_at FROM voter_overlaps WHERE event_id = $1 ORDER BY session_a_id ASC, session_b_id ASC`
	var overlaps []models.VoterOverlap
	if err := r.db.SelectContext(ctx, &overlaps, query, eventID); err != nil {
		return nil, fmt.Errorf("list voter overlaps: %w", err)
	}
	return overlaps, nil
}

// ReplaceForEvent swaps the overlap table contents for an event in one
// transaction, so readers never see a half-written recompute.
func (r *OverlapRepository) ReplaceForEvent(ctx context.Context, eventID string, overlaps []models.VoterOverlap) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin overlap replace: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM voter_overlaps WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("clear voter overlaps: %w", err)
	}

	now := time.Now().UTC()
	for i := range overlaps {
		row := overlaps[i]
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		if row.ComputedAt.IsZero() {
			row.ComputedAt = now
		}
		if _, err = sqlx.NamedExecContext(ctx, tx, `INSERT INTO voter_overlaps (id, event_id, session_a_id, session_b_id, overlap_percent, shared_voters, computed_at) VALUES (:id, :event_id, :session_a_id, :session_b_id, :overlap_percent, :shared_voters, :computed_at)`, &row); err != nil {
			return fmt.Errorf("insert voter overlap: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit overlap replace: %w", err)
	}
	return nil
}
