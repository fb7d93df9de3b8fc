package scheduler

import "sort"

// placement records where a session currently sits.
type placement struct {
	venueID string
	slotID  string
}

// schedule is the mutable assignment state shared by the greedy constructor
// and the optimizer. At most one session may occupy a (venue, slot) cell.
type schedule struct {
	assigned map[string]placement
	occupied map[pairKey]string
	bySlot   map[string][]string // slot id -> session ids across all venues
}

func newSchedule() *schedule {
	return &schedule{
		assigned: make(map[string]placement),
		occupied: make(map[pairKey]string),
		bySlot:   make(map[string][]string),
	}
}

func (s *schedule) isFree(venueID, slotID string) bool {
	_, taken := s.occupied[pairKey{venueID, slotID}]
	return !taken
}

func (s *schedule) place(sessionID, venueID, slotID string) {
	s.assigned[sessionID] = placement{venueID: venueID, slotID: slotID}
	s.occupied[pairKey{venueID, slotID}] = sessionID
	s.bySlot[slotID] = append(s.bySlot[slotID], sessionID)
}

func (s *schedule) remove(sessionID string) {
	current, ok := s.assigned[sessionID]
	if !ok {
		return
	}
	delete(s.assigned, sessionID)
	delete(s.occupied, pairKey{current.venueID, current.slotID})
	peers := s.bySlot[current.slotID]
	for i, id := range peers {
		if id == sessionID {
			s.bySlot[current.slotID] = append(peers[:i], peers[i+1:]...)
			break
		}
	}
}

// concurrent returns the sessions sharing a slot, excluding the given one.
func (s *schedule) concurrent(slotID, exclude string) []string {
	peers := s.bySlot[slotID]
	result := make([]string, 0, len(peers))
	for _, id := range peers {
		if id != exclude {
			result = append(result, id)
		}
	}
	return result
}

func (s *schedule) clone() *schedule {
	copied := newSchedule()
	for id, pl := range s.assigned {
		copied.assigned[id] = pl
	}
	for key, id := range s.occupied {
		copied.occupied[key] = id
	}
	for slot, ids := range s.bySlot {
		copied.bySlot[slot] = append([]string(nil), ids...)
	}
	return copied
}

// buildGreedy constructs the initial feasible assignment: locked sessions are
// seeded first, then candidate-bearing unlocked sessions in descending demand
// order each take the cheapest still-free cell. Sessions no free cell can host
// land in the unassigned list; the run continues.
func buildGreedy(n *normalized, graph *conflictGraph, candidates map[string][]candidate, threshold float64) (*schedule, []string) {
	state := newSchedule()
	for _, session := range n.locked {
		state.place(session.ID, session.VenueID, session.TimeSlotID)
	}

	order := make([]Session, 0, len(n.unlocked))
	for _, session := range n.unlocked {
		if _, ok := candidates[session.ID]; ok {
			order = append(order, session)
		}
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.TotalVotes != b.TotalVotes {
			return a.TotalVotes > b.TotalVotes
		}
		if a.TotalVoters != b.TotalVoters {
			return a.TotalVoters > b.TotalVoters
		}
		return a.ID < b.ID
	})

	var unassigned []string
	for _, session := range order {
		best, found := pickCheapestCell(session, candidates[session.ID], state, n, graph, threshold)
		if !found {
			unassigned = append(unassigned, session.ID)
			continue
		}
		state.place(session.ID, best.venueID, best.slotID)
	}
	return state, unassigned
}

// pickCheapestCell scans a session's candidates in venue-then-slot order and
// keeps the first cell with the lowest immediate conflict cost. Cells that
// would co-schedule a hard-conflicting pair are never eligible.
func pickCheapestCell(session Session, cells []candidate, state *schedule, n *normalized, graph *conflictGraph, threshold float64) (candidate, bool) {
	var best candidate
	bestCost := 0.0
	found := false
	for _, cell := range cells {
		if !state.isFree(cell.venueID, cell.slotID) {
			continue
		}
		if !coexists(session.ID, cell.slotID, "", state, graph, threshold) {
			continue
		}
		cost := placementCost(session, cell, state, n, graph)
		if !found || cost < bestCost {
			best = cell
			bestCost = cost
			found = true
		}
	}
	return best, found
}

// placementCost sums the overlap weight against every session already in the
// same slot, any venue, then scales by an oversubscription penalty when
// expected attendance exceeds the venue's capacity.
func placementCost(session Session, cell candidate, state *schedule, n *normalized, graph *conflictGraph) float64 {
	var cost float64
	for _, peer := range state.concurrent(cell.slotID, session.ID) {
		cost += graph.weight(session.ID, peer)
	}
	capacity := n.venues[cell.venueID].Capacity
	if session.TotalVoters > capacity {
		over := float64(session.TotalVoters-capacity) / float64(capacity)
		cost = cost*(1+over) + over
	}
	return cost
}

// coexists reports whether the session may sit in the slot without meeting or
// exceeding the hard-conflict threshold against any concurrent session. The
// ignore argument lets swap evaluation exclude the counterpart session.
func coexists(sessionID, slotID, ignore string, state *schedule, graph *conflictGraph, threshold float64) bool {
	for _, peer := range state.concurrent(slotID, sessionID) {
		if peer == ignore {
			continue
		}
		if graph.weight(sessionID, peer) >= threshold {
			return false
		}
	}
	return true
}
