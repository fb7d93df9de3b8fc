package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openagora/agora-api/internal/models"
)

// CheckinRepository provides persistence for session check-ins.
type CheckinRepository struct {
	db *sqlx.DB
}

// NewCheckinRepository creates a new check-in repository.
func NewCheckinRepository(db *sqlx.DB) *CheckinRepository {
	return &CheckinRepository{db: db}
}

// Create records one attendee entering one session.
func (r *CheckinRepository) Create(ctx context.Context, checkin *models.Checkin) error {
	if checkin.ID == "" {
		checkin.ID = uuid.NewString()
	}
	if checkin.CheckedInAt.IsZero() {
		checkin.CheckedInAt = time.Now().UTC()
	}
	const query = `INSERT INTO checkins (id, session_id, attendee_id, checked_in_at) VALUES (:id, :session_id, :attendee_id, :checked_in_at)`
	if _, err := r.db.NamedExecContext(ctx, query, checkin); err != nil {
		return fmt.Errorf("create checkin: %w", err)
	}
	return nil
}

// Exists reports whether an attendee already checked in to a session.
func (r *CheckinRepository) Exists(ctx context.Context, sessionID, attendeeID string) (bool, error) {
	const query = `SELECT COUNT(*) FROM checkins WHERE session_id = $1 AND attendee_id = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, sessionID, attendeeID); err != nil {
		return false, fmt.Errorf("check existing checkin: %w", err)
	}
	return count > 0, nil
}

// SummaryByEvent returns per-session headcounts for an event.
func (r *CheckinRepository) SummaryByEvent(ctx context.Context, eventID string) ([]models.CheckinSummary, error) {
	const query = `SELECT c.session_id, COUNT(*) AS count FROM checkins c JOIN sessions s ON s.id = c.session_id WHERE s.event_id = $1 GROUP BY c.session_id ORDER BY c.session_id ASC`
	var summaries []models.CheckinSummary
	if err := r.db.SelectContext(ctx, &summaries, query, eventID); err != nil {
		return nil, fmt.Errorf("summarize checkins: %w", err)
	}
	return summaries, nil
}
