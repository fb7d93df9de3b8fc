package models

import "time"

// BudgetAllocation is one session's share of an event's budget, computed
// proportionally to vote weight with largest-remainder rounding so all
// allocations sum exactly to the event budget.
type BudgetAllocation struct {
	ID          string    `db:"id" json:"id"`
	EventID     string    `db:"event_id" json:"event_id"`
	SessionID   string    `db:"session_id" json:"session_id"`
	AmountCents int64     `db:"amount_cents" json:"amount_cents"`
	Share       float64   `db:"share" json:"share"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
