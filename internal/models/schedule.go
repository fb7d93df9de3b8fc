package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ScheduleRunStatus represents lifecycle phases for persisted generator runs.
type ScheduleRunStatus string

const (
	ScheduleRunStatusDraft     ScheduleRunStatus = "DRAFT"
	ScheduleRunStatusApplied   ScheduleRunStatus = "APPLIED"
	ScheduleRunStatusDiscarded ScheduleRunStatus = "DISCARDED"
)

// ScheduleRun captures one versioned generator outcome for an event. Meta
// holds the generator's metrics and warnings as JSON.
type ScheduleRun struct {
	ID        string            `db:"id" json:"id"`
	EventID   string            `db:"event_id" json:"event_id"`
	Version   int               `db:"version" json:"version"`
	Status    ScheduleRunStatus `db:"status" json:"status"`
	Score     float64           `db:"score" json:"score"`
	Meta      types.JSONText    `db:"meta" json:"meta"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}

// ScheduleAssignment is one session placement inside a persisted run.
type ScheduleAssignment struct {
	ID            string    `db:"id" json:"id"`
	ScheduleRunID string    `db:"schedule_run_id" json:"schedule_run_id"`
	SessionID     string    `db:"session_id" json:"session_id"`
	VenueID       string    `db:"venue_id" json:"venue_id"`
	TimeSlotID    string    `db:"time_slot_id" json:"time_slot_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
