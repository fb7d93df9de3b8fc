package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Venue is a physical room available during an event. Features holds tags
// like "projector" or "mic" as a JSON array.
type Venue struct {
	ID        string         `db:"id" json:"id"`
	EventID   string         `db:"event_id" json:"event_id"`
	Name      string         `db:"name" json:"name"`
	Capacity  int            `db:"capacity" json:"capacity"`
	Features  types.JSONText `db:"features" json:"features"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// FeatureTags decodes the JSON features column.
func (v Venue) FeatureTags() []string {
	if len(v.Features) == 0 {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(v.Features, &tags); err != nil {
		return nil
	}
	return tags
}
