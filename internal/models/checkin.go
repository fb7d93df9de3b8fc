package models

import "time"

// Checkin records one attendee entering one scheduled session.
type Checkin struct {
	ID          string    `db:"id" json:"id"`
	SessionID   string    `db:"session_id" json:"session_id"`
	AttendeeID  string    `db:"attendee_id" json:"attendee_id"`
	CheckedInAt time.Time `db:"checked_in_at" json:"checked_in_at"`
}

// CheckinSummary aggregates attendance per session.
type CheckinSummary struct {
	SessionID string `db:"session_id" json:"session_id"`
	Count     int    `db:"count" json:"count"`
}
