package scheduler

import "sort"

// Component weights for the composite score. Conflict avoidance dominates,
// capacity fit and coverage share the remainder.
const (
	conflictWeight = 0.5
	capacityWeight = 0.25
	coverageWeight = 0.25
)

// scorer evaluates candidate assignments against the conflict graph and the
// normalized input. eligible counts the sessions a perfect run would place:
// every locked session plus every unlocked one with a nonempty candidate set.
type scorer struct {
	n        *normalized
	graph    *conflictGraph
	mass     float64
	eligible int
}

func newScorer(n *normalized, graph *conflictGraph, candidates map[string][]candidate) *scorer {
	return &scorer{
		n:        n,
		graph:    graph,
		mass:     graph.totalMass(),
		eligible: len(n.locked) + len(candidates),
	}
}

// score computes the 0-100 composite quality of an assignment.
func (sc *scorer) score(state *schedule) float64 {
	conflict := sc.conflictScore(state)
	capacity := sc.capacityScore(state)
	coverage := sc.coverageScore(state)
	return conflictWeight*conflict + capacityWeight*capacity + coverageWeight*coverage
}

// conflictScore inverts the co-scheduled overlap mass: 100 when no overlapping
// pair shares a slot, 0 when every recorded pair does.
func (sc *scorer) conflictScore(state *schedule) float64 {
	if sc.mass <= 0 {
		return 100
	}
	var concurrent float64
	for _, slotID := range sc.n.slotOrder {
		peers := state.bySlot[slotID]
		for i := 0; i < len(peers); i++ {
			for j := i + 1; j < len(peers); j++ {
				concurrent += sc.graph.weight(peers[i], peers[j])
			}
		}
	}
	score := 100 * (1 - concurrent/sc.mass)
	if score < 0 {
		return 0
	}
	return score
}

// capacityScore averages a per-session fitness: oversubscribed sessions score
// capacity/attendance, grossly oversized venues score attendance-scaled waste,
// and well-matched placements score 1.
func (sc *scorer) capacityScore(state *schedule) float64 {
	if len(state.assigned) == 0 {
		return 100
	}
	ids := make([]string, 0, len(state.assigned))
	for id := range state.assigned {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var total float64
	for _, id := range ids {
		total += sc.capacityFitness(id, state.assigned[id])
	}
	return 100 * total / float64(len(ids))
}

func (sc *scorer) capacityFitness(sessionID string, pl placement) float64 {
	voters := sc.n.sessions[sessionID].TotalVoters
	if voters <= 0 {
		return 1
	}
	capacity := sc.n.venues[pl.venueID].Capacity
	if voters > capacity {
		return float64(capacity) / float64(voters)
	}
	if capacity > wasteFactor*voters {
		return float64(wasteFactor*voters) / float64(capacity)
	}
	return 1
}

func (sc *scorer) coverageScore(state *schedule) float64 {
	if sc.eligible == 0 {
		return 100
	}
	return 100 * float64(len(state.assigned)) / float64(sc.eligible)
}
