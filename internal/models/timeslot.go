package models

import "time"

// TimeSlot is a fixed calendar interval that can host one session per venue.
type TimeSlot struct {
	ID        string    `db:"id" json:"id"`
	EventID   string    `db:"event_id" json:"event_id"`
	StartsAt  time.Time `db:"starts_at" json:"starts_at"`
	EndsAt    time.Time `db:"ends_at" json:"ends_at"`
	Available bool      `db:"available" json:"available"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DurationMinutes derives the slot length from its bounds.
func (t TimeSlot) DurationMinutes() int {
	return int(t.EndsAt.Sub(t.StartsAt) / time.Minute)
}
