package models

import "time"

// EventStatus represents lifecycle phases for an unconference event.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "DRAFT"
	EventStatusVoting    EventStatus = "VOTING"
	EventStatusScheduled EventStatus = "SCHEDULED"
	EventStatusLive      EventStatus = "LIVE"
	EventStatusArchived  EventStatus = "ARCHIVED"
)

// Event is one unconference edition: the container for sessions, venues,
// time slots, ballots and budget.
type Event struct {
	ID             string      `db:"id" json:"id"`
	Name           string      `db:"name" json:"name"`
	Slug           string      `db:"slug" json:"slug"`
	Status         EventStatus `db:"status" json:"status"`
	StartsAt       time.Time   `db:"starts_at" json:"starts_at"`
	EndsAt         time.Time   `db:"ends_at" json:"ends_at"`
	ScheduleLocked bool        `db:"schedule_locked" json:"schedule_locked"`
	BudgetCents    int64       `db:"budget_cents" json:"budget_cents"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}
