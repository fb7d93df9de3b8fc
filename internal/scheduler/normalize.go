package scheduler

import (
	"fmt"
	"sort"

	appErrors "github.com/openagora/agora-api/pkg/errors"
)

// normalized holds canonicalized, indexed input for the later stages. All
// ordered slices exist so the pipeline never iterates a map where order could
// leak into the output.
type normalized struct {
	sessions map[string]Session
	venues   map[string]Venue
	slots    map[string]TimeSlot

	venueOrder []string // input order, used for tie-breaks
	venueIndex map[string]int
	slotOrder  []string // sorted by start then id
	slotIndex  map[string]int

	slotDuration  map[string]int
	venueFeatures map[string]map[string]struct{}

	locked   []Session // input order
	unlocked []Session // input order; greedy re-sorts by demand
}

func normalizeInput(in Input) (*normalized, error) {
	n := &normalized{
		sessions:      make(map[string]Session, len(in.Sessions)),
		venues:        make(map[string]Venue, len(in.Venues)),
		slots:         make(map[string]TimeSlot, len(in.Slots)),
		venueIndex:    make(map[string]int, len(in.Venues)),
		slotIndex:     make(map[string]int, len(in.Slots)),
		slotDuration:  make(map[string]int, len(in.Slots)),
		venueFeatures: make(map[string]map[string]struct{}, len(in.Venues)),
	}

	for _, venue := range in.Venues {
		if venue.ID == "" {
			return nil, integrityError("venue with empty id")
		}
		if _, dup := n.venues[venue.ID]; dup {
			return nil, integrityError(fmt.Sprintf("duplicate venue id %s", venue.ID))
		}
		if venue.Capacity < 1 {
			return nil, integrityError(fmt.Sprintf("venue %s has non-positive capacity", venue.ID))
		}
		n.venues[venue.ID] = venue
		n.venueIndex[venue.ID] = len(n.venueOrder)
		n.venueOrder = append(n.venueOrder, venue.ID)

		features := make(map[string]struct{}, len(venue.Features))
		for _, feature := range venue.Features {
			features[feature] = struct{}{}
		}
		n.venueFeatures[venue.ID] = features
	}

	for _, slot := range in.Slots {
		if slot.ID == "" {
			return nil, integrityError("time slot with empty id")
		}
		if _, dup := n.slots[slot.ID]; dup {
			return nil, integrityError(fmt.Sprintf("duplicate time slot id %s", slot.ID))
		}
		duration := slot.DurationMinutes()
		if duration <= 0 {
			return nil, integrityError(fmt.Sprintf("time slot %s has non-positive duration", slot.ID))
		}
		n.slots[slot.ID] = slot
		n.slotDuration[slot.ID] = duration
		n.slotOrder = append(n.slotOrder, slot.ID)
	}
	sort.Slice(n.slotOrder, func(i, j int) bool {
		a, b := n.slots[n.slotOrder[i]], n.slots[n.slotOrder[j]]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.ID < b.ID
	})
	for idx, id := range n.slotOrder {
		n.slotIndex[id] = idx
	}

	for _, session := range in.Sessions {
		if session.ID == "" {
			return nil, integrityError("session with empty id")
		}
		if _, dup := n.sessions[session.ID]; dup {
			return nil, integrityError(fmt.Sprintf("duplicate session id %s", session.ID))
		}
		if session.Duration <= 0 {
			return nil, integrityError(fmt.Sprintf("session %s has non-positive duration", session.ID))
		}
		if session.VenueID != "" {
			if _, ok := n.venues[session.VenueID]; !ok {
				return nil, integrityError(fmt.Sprintf("session %s references unknown venue %s", session.ID, session.VenueID))
			}
		}
		if session.TimeSlotID != "" {
			if _, ok := n.slots[session.TimeSlotID]; !ok {
				return nil, integrityError(fmt.Sprintf("session %s references unknown time slot %s", session.ID, session.TimeSlotID))
			}
		}
		if session.IsLocked {
			if session.VenueID == "" || session.TimeSlotID == "" {
				return nil, integrityError(fmt.Sprintf("locked session %s is missing its venue or time slot", session.ID))
			}
			if session.Duration > n.slotDuration[session.TimeSlotID] {
				return nil, integrityError(fmt.Sprintf("locked session %s does not fit its time slot %s", session.ID, session.TimeSlotID))
			}
			n.locked = append(n.locked, session)
		} else {
			n.unlocked = append(n.unlocked, session)
		}
		n.sessions[session.ID] = session
	}

	occupied := make(map[pairKey]string, len(n.locked))
	for _, session := range n.locked {
		key := pairKey{session.VenueID, session.TimeSlotID}
		if other, taken := occupied[key]; taken {
			return nil, integrityError(fmt.Sprintf("locked sessions %s and %s share venue %s slot %s", other, session.ID, session.VenueID, session.TimeSlotID))
		}
		occupied[key] = session.ID
	}

	return n, nil
}

// pairKey identifies one bookable (venue, time slot) cell.
type pairKey struct {
	VenueID string
	SlotID  string
}

func integrityError(message string) error {
	return appErrors.Clone(appErrors.ErrScheduleIntegrity, message)
}
