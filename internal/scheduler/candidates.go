package scheduler

import "fmt"

// candidate is one feasible (venue, time slot) cell for a session. Indexes are
// kept alongside the ids so tie-breaks stay cheap and deterministic.
type candidate struct {
	venueID  string
	slotID   string
	venueIdx int
	slotIdx  int
	slack    int // slot minutes left over beyond the session's duration
}

// enumerateCandidates computes the feasible cells for every unlocked session:
// the slot must be available and at least as long as the session, and the
// venue must offer every required feature. Sessions with no feasible cell are
// structurally unassignable; they are excluded from placement but never abort
// the run.
func enumerateCandidates(n *normalized) (map[string][]candidate, []Warning) {
	candidates := make(map[string][]candidate, len(n.unlocked))
	var warnings []Warning

	for _, session := range n.unlocked {
		var cells []candidate
		for venueIdx, venueID := range n.venueOrder {
			if !hasFeatures(n.venueFeatures[venueID], session.Requirements) {
				continue
			}
			for slotIdx, slotID := range n.slotOrder {
				slot := n.slots[slotID]
				if !slot.Available {
					continue
				}
				duration := n.slotDuration[slotID]
				if duration < session.Duration {
					continue
				}
				cells = append(cells, candidate{
					venueID:  venueID,
					slotID:   slotID,
					venueIdx: venueIdx,
					slotIdx:  slotIdx,
					slack:    duration - session.Duration,
				})
			}
		}
		if len(cells) == 0 {
			warnings = append(warnings, Warning{
				Type:      WarnUnassignable,
				Message:   fmt.Sprintf("session %s has no feasible venue/time slot", session.ID),
				SessionID: session.ID,
			})
			continue
		}
		candidates[session.ID] = cells
	}
	return candidates, warnings
}

func hasFeatures(offered map[string]struct{}, required []string) bool {
	for _, feature := range required {
		if _, ok := offered[feature]; !ok {
			return false
		}
	}
	return true
}
