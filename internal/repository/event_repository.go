package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openagora/agora-api/internal/models"
)

// EventRepository provides persistence for unconference events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// List returns all events ordered from newest to oldest.
func (r *EventRepository) List(ctx context.Context) ([]models.Event, error) {
	const query = `SELECT id, name, slug, status, starts_at, ends_at, schedule_locked, budget_cents, created_at, updated_at FROM events ORDER BY starts_at DESC`
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// FindByID loads an event by id.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	const query = `SELECT id, name, slug, status, starts_at, ends_at, schedule_locked, budget_cents, created_at, updated_at FROM events WHERE id = $1 LIMIT 1`
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find event by id: %w", err)
	}
	return &event, nil
}

// Create stores a new event record.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now

	const query = `INSERT INTO events (id, name, slug, status, starts_at, ends_at, schedule_locked, budget_cents, created_at, updated_at) VALUES (:id, :name, :slug, :status, :starts_at, :ends_at, :schedule_locked, :budget_cents, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update modifies mutable event fields.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE events SET name = :name, status = :status, starts_at = :starts_at, ends_at = :ends_at, schedule_locked = :schedule_locked, budget_cents = :budget_cents, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// SetStatus transitions an event to a new lifecycle status.
func (r *EventRepository) SetStatus(ctx context.Context, id string, status models.EventStatus) error {
	const query = `UPDATE events SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("set event status: %w", err)
	}
	return nil
}

// SetStatusWithTx transitions an event inside an active transaction.
func (r *EventRepository) SetStatusWithTx(ctx context.Context, tx *sqlx.Tx, id string, status models.EventStatus) error {
	const query = `UPDATE events SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("set event status: %w", err)
	}
	return nil
}

// SetScheduleLockedWithTx flips the schedule lock inside an active transaction.
func (r *EventRepository) SetScheduleLockedWithTx(ctx context.Context, tx *sqlx.Tx, id string, locked bool) error {
	const query = `UPDATE events SET schedule_locked = $2, updated_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, id, locked, time.Now().UTC()); err != nil {
		return fmt.Errorf("set event schedule lock: %w", err)
	}
	return nil
}
