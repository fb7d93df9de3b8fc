package scheduler

import (
	"hash/fnv"
	"math/rand"
	"sort"
)

// optimizer runs bounded hill-climbing with sideways moves over the greedy
// assignment. It keeps a best-so-far snapshot after every improving move so a
// host-imposed timeout can stop the loop at any point and still read a usable
// schedule.
type optimizer struct {
	n          *normalized
	graph      *conflictGraph
	candidates map[string][]candidate
	cells      map[string]map[pairKey]struct{}
	sc         *scorer
	cfg        Config
	rng        *rand.Rand

	state   *schedule
	movable []string // unlocked candidate-bearing session ids, sorted

	current   float64
	best      *schedule
	bestScore float64

	iterations int
	accepted   int
	rejected   int
}

func newOptimizer(n *normalized, graph *conflictGraph, candidates map[string][]candidate, sc *scorer, cfg Config, state *schedule) *optimizer {
	movable := make([]string, 0, len(candidates))
	cells := make(map[string]map[pairKey]struct{}, len(candidates))
	for id, options := range candidates {
		movable = append(movable, id)
		set := make(map[pairKey]struct{}, len(options))
		for _, cell := range options {
			set[pairKey{cell.venueID, cell.slotID}] = struct{}{}
		}
		cells[id] = set
	}
	sort.Strings(movable)

	score := sc.score(state)
	return &optimizer{
		n:          n,
		graph:      graph,
		candidates: candidates,
		cells:      cells,
		sc:         sc,
		cfg:        cfg,
		rng:        rand.New(rand.NewSource(seedFrom(n))),
		state:      state,
		movable:    movable,
		current:    score,
		best:       state.clone(),
		bestScore:  score,
	}
}

// seedFrom hashes the input's identifiers so identical inputs replay the same
// move sequence. Wall-clock time never participates.
func seedFrom(n *normalized) int64 {
	h := fnv.New64a()
	ids := make([]string, 0, len(n.sessions))
	for id := range n.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	for _, id := range n.venueOrder {
		h.Write([]byte(id))
		h.Write([]byte{1})
	}
	for _, id := range n.slotOrder {
		h.Write([]byte(id))
		h.Write([]byte{2})
	}
	return int64(h.Sum64())
}

// run executes the improvement loop and returns the best assignment found.
func (o *optimizer) run() *schedule {
	stagnation := 0
	for o.iterations < o.cfg.MaxIterations {
		if o.bestScore >= o.cfg.TargetScore {
			break
		}
		if stagnation >= o.cfg.StagnationLimit {
			break
		}
		o.iterations++

		var improved bool
		if o.rng.Intn(2) == 0 {
			improved = o.tryRelocate()
		} else {
			improved = o.trySwap()
		}
		if improved {
			stagnation = 0
		} else {
			stagnation++
		}
	}
	return o.best
}

// tryRelocate moves one session (placed or currently unassigned) to a
// different free, eligible cell. Returns true when the move produced a new
// best score.
func (o *optimizer) tryRelocate() bool {
	if len(o.movable) == 0 {
		o.rejected++
		return false
	}
	sessionID := o.movable[o.rng.Intn(len(o.movable))]
	session := o.n.sessions[sessionID]

	previous, wasPlaced := o.state.assigned[sessionID]
	targets := o.freeCells(session, previous, wasPlaced)
	if len(targets) == 0 {
		o.rejected++
		return false
	}
	target := targets[o.rng.Intn(len(targets))]

	if wasPlaced {
		o.state.remove(sessionID)
	}
	o.state.place(sessionID, target.venueID, target.slotID)

	score := o.sc.score(o.state)
	if score+sidewaysTolerance < o.current {
		o.state.remove(sessionID)
		if wasPlaced {
			o.state.place(sessionID, previous.venueID, previous.slotID)
		}
		o.rejected++
		return false
	}
	o.accepted++
	o.current = score
	return o.noteBest()
}

// trySwap exchanges the cells of two placed, unlocked sessions when each
// remains individually eligible for the other's cell.
func (o *optimizer) trySwap() bool {
	placed := make([]string, 0, len(o.movable))
	for _, id := range o.movable {
		if _, ok := o.state.assigned[id]; ok {
			placed = append(placed, id)
		}
	}
	if len(placed) < 2 {
		o.rejected++
		return false
	}
	first := placed[o.rng.Intn(len(placed))]
	second := placed[o.rng.Intn(len(placed))]
	if first == second {
		o.rejected++
		return false
	}

	a, b := o.state.assigned[first], o.state.assigned[second]
	if !o.eligibleCell(first, b.venueID, b.slotID) || !o.eligibleCell(second, a.venueID, a.slotID) {
		o.rejected++
		return false
	}
	if !coexists(first, b.slotID, second, o.state, o.graph, o.cfg.ConflictThreshold) ||
		!coexists(second, a.slotID, first, o.state, o.graph, o.cfg.ConflictThreshold) {
		o.rejected++
		return false
	}

	o.state.remove(first)
	o.state.remove(second)
	o.state.place(first, b.venueID, b.slotID)
	o.state.place(second, a.venueID, a.slotID)

	score := o.sc.score(o.state)
	if score+sidewaysTolerance < o.current {
		o.state.remove(first)
		o.state.remove(second)
		o.state.place(first, a.venueID, a.slotID)
		o.state.place(second, b.venueID, b.slotID)
		o.rejected++
		return false
	}
	o.accepted++
	o.current = score
	return o.noteBest()
}

func (o *optimizer) freeCells(session Session, previous placement, wasPlaced bool) []candidate {
	options := o.candidates[session.ID]
	result := make([]candidate, 0, len(options))
	for _, cell := range options {
		if wasPlaced && cell.venueID == previous.venueID && cell.slotID == previous.slotID {
			continue
		}
		if !o.state.isFree(cell.venueID, cell.slotID) {
			continue
		}
		if !coexists(session.ID, cell.slotID, "", o.state, o.graph, o.cfg.ConflictThreshold) {
			continue
		}
		result = append(result, cell)
	}
	return result
}

func (o *optimizer) eligibleCell(sessionID, venueID, slotID string) bool {
	_, ok := o.cells[sessionID][pairKey{venueID, slotID}]
	return ok
}

func (o *optimizer) noteBest() bool {
	if o.current <= o.bestScore {
		return false
	}
	o.bestScore = o.current
	o.best = o.state.clone()
	return true
}
