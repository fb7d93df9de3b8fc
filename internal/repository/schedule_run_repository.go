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

// ScheduleRunRepository provides persistence for generator runs and their
// assignments.
type ScheduleRunRepository struct {
	db *sqlx.DB
}

// NewScheduleRunRepository creates a new schedule run repository.
func NewScheduleRunRepository(db *sqlx.DB) *ScheduleRunRepository {
	return &ScheduleRunRepository{db: db}
}

// BeginTx opens a transaction for an apply operation.
func (r *ScheduleRunRepository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin schedule tx: %w", err)
	}
	return tx, nil
}

// NextVersion returns the next run version for an event.
func (r *ScheduleRunRepository) NextVersion(ctx context.Context, eventID string) (int, error) {
	const query = `SELECT COALESCE(MAX(version), 0) + 1 FROM schedule_runs WHERE event_id = $1`
	var version int
	if err := r.db.GetContext(ctx, &version, query, eventID); err != nil {
		return 0, fmt.Errorf("next schedule version: %w", err)
	}
	return version, nil
}

// ListByEvent returns all runs for an event, newest first.
func (r *ScheduleRunRepository) ListByEvent(ctx context.Context, eventID string) ([]models.ScheduleRun, error) {
	const query = `SELECT id, event_id, version, status, score, meta, created_at, updated_at FROM schedule_runs WHERE event_id = $1 ORDER BY version DESC`
	var runs []models.ScheduleRun
	if err := r.db.SelectContext(ctx, &runs, query, eventID); err != nil {
		return nil, fmt.Errorf("list schedule runs: %w", err)
	}
	return runs, nil
}

// FindByID loads a run by id.
func (r *ScheduleRunRepository) FindByID(ctx context.Context, id string) (*models.ScheduleRun, error) {
	const query = `SELECT id, event_id, version, status, score, meta, created_at, updated_at FROM schedule_runs WHERE id = $1 LIMIT 1`
	var run models.ScheduleRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find schedule run by id: %w", err)
	}
	return &run, nil
}

// ListAssignments returns the placements stored with a run.
func (r *ScheduleRunRepository) ListAssignments(ctx context.Context, runID string) ([]models.ScheduleAssignment, error) {
	const query = `SELECT id, schedule_run_id, session_id, venue_id, time_slot_id, created_at FROM schedule_assignments WHERE schedule_run_id = $1 ORDER BY time_slot_id ASC, venue_id ASC, session_id ASC`
	var assignments []models.ScheduleAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, runID); err != nil {
		return nil, fmt.Errorf("list schedule assignments: %w", err)
	}
	return assignments, nil
}

// CreateWithTx stores a run and its assignments inside an active transaction.
func (r *ScheduleRunRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, run *models.ScheduleRun, assignments []models.ScheduleAssignment) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now

	const runQuery = `INSERT INTO schedule_runs (id, event_id, version, status, score, meta, created_at, updated_at) VALUES (:id, :event_id, :version, :status, :score, :meta, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, runQuery, run); err != nil {
		return fmt.Errorf("create schedule run: %w", err)
	}

	for i := range assignments {
		row := assignments[i]
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		row.ScheduleRunID = run.ID
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, tx, `INSERT INTO schedule_assignments (id, schedule_run_id, session_id, venue_id, time_slot_id, created_at) VALUES (:id, :schedule_run_id, :session_id, :venue_id, :time_slot_id, :created_at)`, &row); err != nil {
			return fmt.Errorf("create schedule assignment: %w", err)
		}
		assignments[i] = row
	}
	return nil
}

// MarkDiscardedWithTx retires earlier applied runs when a new one is applied.
func (r *ScheduleRunRepository) MarkDiscardedWithTx(ctx context.Context, tx *sqlx.Tx, eventID string) error {
	const query = `UPDATE schedule_runs SET status = $2, updated_at = $3 WHERE event_id = $1 AND status = $4`
	if _, err := tx.ExecContext(ctx, query, eventID, models.ScheduleRunStatusDiscarded, time.Now().UTC(), models.ScheduleRunStatusApplied); err != nil {
		return fmt.Errorf("discard previous schedule runs: %w", err)
	}
	return nil
}
