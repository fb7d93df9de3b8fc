// Package scheduler contains the conflict-minimizing schedule generator for
// unconference events. It is a pure library: one Generate call consumes an
// immutable snapshot of sessions, venues, time slots and voter-overlap edges
// and returns a fresh result, performing no I/O and keeping no state between
// calls. Persistence, authorization and overlap computation live with the
// caller.
package scheduler

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Generator runs the scheduling pipeline with a fixed configuration. It is
// safe for concurrent use; every Generate call builds its own working state.
type Generator struct {
	cfg    Config
	logger *zap.Logger
}

// New constructs a Generator, filling config defaults.
func New(cfg Config, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{cfg: cfg.withDefaults(), logger: logger}
}

// Generate produces a conflict-minimizing, capacity-respecting assignment of
// sessions to (venue, time slot) cells. Integrity failures in the input return
// an error alongside a Result with Success=false; an incomplete schedule is a
// normal outcome with Success=true.
func (g *Generator) Generate(in Input) (*Result, error) {
	started := time.Now()

	n, err := normalizeInput(in)
	if err != nil {
		return &Result{Success: false, Reason: err.Error(), Elapsed: time.Since(started)}, err
	}

	graph, warnings := buildConflictGraph(in.Overlaps, n.sessions)
	for _, warning := range warnings {
		if warning.Type == WarnDuplicateOverlap {
			g.logger.Warn("duplicate voter overlap rows in scheduler input", zap.String("detail", warning.Message))
		}
	}

	candidates, candidateWarnings := enumerateCandidates(n)
	warnings = append(warnings, candidateWarnings...)

	state, _ := buildGreedy(n, graph, candidates, g.cfg.ConflictThreshold)
	sc := newScorer(n, graph, candidates)
	greedyScore := sc.score(state)

	opt := newOptimizer(n, graph, candidates, sc, g.cfg, state)
	best := opt.run()

	result := g.assemble(n, graph, candidates, best, warnings)
	result.Score = opt.bestScore
	result.Metrics.GreedyScore = greedyScore
	result.Metrics.Iterations = opt.iterations
	result.Metrics.MovesAccepted = opt.accepted
	result.Metrics.MovesRejected = opt.rejected
	result.Elapsed = time.Since(started)

	g.logger.Info("schedule generated",
		zap.Float64("score", result.Score),
		zap.Int("placed", result.Metrics.PlacedSessions),
		zap.Int("unassigned", len(result.Unassigned)),
		zap.Int("iterations", result.Metrics.Iterations),
		zap.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

func (g *Generator) assemble(n *normalized, graph *conflictGraph, candidates map[string][]candidate, best *schedule, warnings []Warning) *Result {
	assignments := make([]Assignment, 0, len(best.assigned))
	for sessionID, pl := range best.assigned {
		assignments = append(assignments, Assignment{
			SessionID:  sessionID,
			VenueID:    pl.venueID,
			TimeSlotID: pl.slotID,
		})
	}
	sort.Slice(assignments, func(i, j int) bool {
		a, b := assignments[i], assignments[j]
		if a.TimeSlotID != b.TimeSlotID {
			return n.slotIndex[a.TimeSlotID] < n.slotIndex[b.TimeSlotID]
		}
		if a.VenueID != b.VenueID {
			return n.venueIndex[a.VenueID] < n.venueIndex[b.VenueID]
		}
		return a.SessionID < b.SessionID
	})

	var unassigned []string
	for _, session := range n.unlocked {
		if _, placed := best.assigned[session.ID]; !placed {
			unassigned = append(unassigned, session.ID)
		}
	}
	sort.Strings(unassigned)

	for _, assignment := range assignments {
		session := n.sessions[assignment.SessionID]
		if session.IsLocked {
			continue
		}
		if slack := n.slotDuration[assignment.TimeSlotID] - session.Duration; slack > 0 {
			warnings = append(warnings, Warning{
				Type:      WarnUnderutilizedSlot,
				Message:   fmt.Sprintf("session %s leaves %d minutes of slot %s unused", session.ID, slack, assignment.TimeSlotID),
				SessionID: session.ID,
			})
		}
	}

	metrics := Metrics{
		TotalSessions:  len(n.sessions),
		PlacedSessions: len(best.assigned),
	}
	for _, slotID := range n.slotOrder {
		peers := best.bySlot[slotID]
		for i := 0; i < len(peers); i++ {
			for j := i + 1; j < len(peers); j++ {
				if graph.weight(peers[i], peers[j]) > 0 {
					metrics.ConflictedPairs++
				}
			}
		}
	}
	for _, assignment := range assignments {
		session := n.sessions[assignment.SessionID]
		if session.TotalVoters > n.venues[assignment.VenueID].Capacity {
			metrics.Oversubscribed++
		}
	}

	if warnings == nil {
		warnings = []Warning{}
	}
	if unassigned == nil {
		unassigned = []string{}
	}
	return &Result{
		Success:     true,
		Assignments: assignments,
		Metrics:     metrics,
		Warnings:    warnings,
		Unassigned:  unassigned,
	}
}
