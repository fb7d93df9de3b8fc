package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openagora/agora-api/internal/models"
)

const sessionColumns = "id, event_id, proposer_id, title, abstract, format, status, duration_minutes, is_locked, venue_id, time_slot_id, requirements, total_votes, total_voters, created_at, updated_at"

// SessionRepository provides persistence for session proposals.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// List returns sessions with optional filtering and pagination.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	base := "FROM sessions WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.EventID != "" {
		conditions = append(conditions, fmt.Sprintf("event_id = $%d", len(args)+1))
		args = append(args, filter.EventID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.ProposerID != "" {
		conditions = append(conditions, fmt.Sprintf("proposer_id = $%d", len(args)+1))
		args = append(args, filter.ProposerID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(abstract) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	allowedSorts := map[string]bool{
		"title":       true,
		"status":      true,
		"total_votes": true,
		"created_at":  true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", sessionColumns, base, sortBy, order, size, offset)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	return sessions, total, nil
}

// FindByID loads a session by id.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE id = $1 LIMIT 1", sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find session by id: %w", err)
	}
	return &session, nil
}

// ListSchedulable returns the approved and already-scheduled sessions for an
// event, the pool the schedule generator draws from.
func (r *SessionRepository) ListSchedulable(ctx context.Context, eventID string) ([]models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE event_id = $1 AND status IN ($2, $3) ORDER BY id ASC", sessionColumns)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, eventID, models.SessionStatusApproved, models.SessionStatusScheduled); err != nil {
		return nil, fmt.Errorf("list schedulable sessions: %w", err)
	}
	return sessions, nil
}

// Create stores a new session proposal.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	const query = `INSERT INTO sessions (id, event_id, proposer_id, title, abstract, format, status, duration_minutes, is_locked, venue_id, time_slot_id, requirements, total_votes, total_voters, created_at, updated_at) VALUES (:id, :event_id, :proposer_id, :title, :abstract, :format, :status, :duration_minutes, :is_locked, :venue_id, :time_slot_id, :requirements, :total_votes, :total_voters, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Update modifies mutable session fields.
func (r *SessionRepository) Update(ctx context.Context, session *models.Session) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sessions SET title = :title, abstract = :abstract, format = :format, status = :status, duration_minutes = :duration_minutes, is_locked = :is_locked, venue_id = :venue_id, time_slot_id = :time_slot_id, requirements = :requirements, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// SetStatus transitions a session to a new lifecycle status.
func (r *SessionRepository) SetStatus(ctx context.Context, id string, status models.SessionStatus) error {
	const query = `UPDATE sessions SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("set session status: %w", err)
	}
	return nil
}

// Lock pins a session to a fixed venue and slot so the generator treats it
// as immovable.
func (r *SessionRepository) Lock(ctx context.Context, id, venueID, timeSlotID string) error {
	const query = `UPDATE sessions SET is_locked = TRUE, venue_id = $2, time_slot_id = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, venueID, timeSlotID, time.Now().UTC()); err != nil {
		return fmt.Errorf("lock session: %w", err)
	}
	return nil
}

// Unlock releases a pinned session back to the generator.
func (r *SessionRepository) Unlock(ctx context.Context, id string) error {
	const query = `UPDATE sessions SET is_locked = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("unlock session: %w", err)
	}
	return nil
}

// ApplyPlacementWithTx writes a generator placement inside an active
// transaction and marks the session scheduled.
func (r *SessionRepository) ApplyPlacementWithTx(ctx context.Context, tx *sqlx.Tx, sessionID, venueID, timeSlotID string) error {
	const query = `UPDATE sessions SET venue_id = $2, time_slot_id = $3, status = $4, updated_at = $5 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, sessionID, venueID, timeSlotID, models.SessionStatusScheduled, time.Now().UTC()); err != nil {
		return fmt.Errorf("apply session placement: %w", err)
	}
	return nil
}

// ClearPlacementsWithTx resets all unlocked placements for an event before a
// new schedule is applied.
func (r *SessionRepository) ClearPlacementsWithTx(ctx context.Context, tx *sqlx.Tx, eventID string) error {
	const query = `UPDATE sessions SET venue_id = NULL, time_slot_id = NULL, status = $2, updated_at = $3 WHERE event_id = $1 AND is_locked = FALSE AND status = $4`
	if _, err := tx.ExecContext(ctx, query, eventID, models.SessionStatusApproved, time.Now().UTC(), models.SessionStatusScheduled); err != nil {
		return fmt.Errorf("clear session placements: %w", err)
	}
	return nil
}

// UpdateTally refreshes the denormalized vote totals for one session.
func (r *SessionRepository) UpdateTally(ctx context.Context, sessionID string, totalVotes, totalVoters int) error {
	const query = `UPDATE sessions SET total_votes = $2, total_voters = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, sessionID, totalVotes, totalVoters, time.Now().UTC()); err != nil {
		return fmt.Errorf("update session tally: %w", err)
	}
	return nil
}
