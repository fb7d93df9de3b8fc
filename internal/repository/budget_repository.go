package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openagora/agora-api/internal/models"
)

// BudgetRepository provides persistence for budget allocations.
type BudgetRepository struct {
	db *sqlx.DB
}

// NewBudgetRepository creates a new budget repository.
func NewBudgetRepository(db *sqlx.DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

// ListByEvent returns the stored allocations for an event.
func (r *BudgetRepository) ListByEvent(ctx context.Context, eventID string) ([]models.BudgetAllocation, error) {
	const query = `SELECT id, event_id, session_id, amount_cents, share, created_at FROM budget_allocations WHERE event_id = $1 ORDER BY amount_cents DESC, session_id ASC`
	var allocations []models.BudgetAllocation
	if err := r.db.SelectContext(ctx, &allocations, query, eventID); err != nil {
		return nil, fmt.Errorf("list budget allocations: %w", err)
	}
	return allocations, nil
}

// ReplaceForEvent swaps an event's allocations in one transaction so a rerun
// never leaves a mix of old and new grants.
func (r *BudgetRepository) ReplaceForEvent(ctx context.Context, eventID string, allocations []models.BudgetAllocation) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin budget replace: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM budget_allocations WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("clear budget allocations: %w", err)
	}

	now := time.Now().UTC()
	for i := range allocations {
		row := allocations[i]
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		if _, err = sqlx.NamedExecContext(ctx, tx, `INSERT INTO budget_allocations (id, event_id, session_id, amount_cents, share, created_at) VALUES (:id, :event_id, :session_id, :amount_cents, :share, :created_at)`, &row); err != nil {
			return fmt.Errorf("insert budget allocation: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit budget replace: %w", err)
	}
	return nil
}
