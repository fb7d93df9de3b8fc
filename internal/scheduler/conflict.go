package scheduler

import "fmt"

// conflictGraph is the symmetric voter-overlap adjacency between sessions.
// Absent edges mean zero overlap.
type conflictGraph struct {
	edges map[string]map[string]float64
}

// buildConflictGraph canonicalizes overlap rows into a weighted undirected
// graph. Self pairs and rows naming unknown sessions are dropped, duplicate
// rows resolve last-write-wins; both anomalies surface as warnings rather than
// errors.
func buildConflictGraph(overlaps []Overlap, sessions map[string]Session) (*conflictGraph, []Warning) {
	graph := &conflictGraph{edges: make(map[string]map[string]float64)}
	var warnings []Warning
	duplicates := 0

	for _, row := range overlaps {
		if row.SessionA == row.SessionB {
			warnings = append(warnings, Warning{
				Type:      WarnUnknownOverlap,
				Message:   fmt.Sprintf("overlap row pairs session %s with itself", row.SessionA),
				SessionID: row.SessionA,
			})
			continue
		}
		if _, ok := sessions[row.SessionA]; !ok {
			warnings = append(warnings, Warning{
				Type:      WarnUnknownOverlap,
				Message:   fmt.Sprintf("overlap row references unknown session %s", row.SessionA),
				SessionID: row.SessionA,
			})
			continue
		}
		if _, ok := sessions[row.SessionB]; !ok {
			warnings = append(warnings, Warning{
				Type:      WarnUnknownOverlap,
				Message:   fmt.Sprintf("overlap row references unknown session %s", row.SessionB),
				SessionID: row.SessionB,
			})
			continue
		}

		percent := row.Percent
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		if graph.has(row.SessionA, row.SessionB) {
			duplicates++
		}
		graph.set(row.SessionA, row.SessionB, percent)
	}

	if duplicates > 0 {
		warnings = append(warnings, Warning{
			Type:    WarnDuplicateOverlap,
			Message: fmt.Sprintf("%d duplicate overlap rows resolved last-write-wins", duplicates),
		})
	}
	return graph, warnings
}

func (g *conflictGraph) has(a, b string) bool {
	_, ok := g.edges[a][b]
	return ok
}

func (g *conflictGraph) set(a, b string, percent float64) {
	if g.edges[a] == nil {
		g.edges[a] = make(map[string]float64)
	}
	if g.edges[b] == nil {
		g.edges[b] = make(map[string]float64)
	}
	g.edges[a][b] = percent
	g.edges[b][a] = percent
}

// weight returns the overlap percentage between two sessions, zero when the
// pair has no recorded edge.
func (g *conflictGraph) weight(a, b string) float64 {
	return g.edges[a][b]
}

// totalMass sums every distinct edge once. Used by the scorer to normalise
// conflict cost.
func (g *conflictGraph) totalMass() float64 {
	var mass float64
	for a, peers := range g.edges {
		for b, percent := range peers {
			if a < b {
				mass += percent
			}
		}
	}
	return mass
}
