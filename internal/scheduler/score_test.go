package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scorerFixture(t *testing.T, in Input) (*scorer, *normalized, *conflictGraph, map[string][]candidate) {
	t.Helper()
	n, err := normalizeInput(in)
	require.NoError(t, err)
	graph, _ := buildConflictGraph(in.Overlaps, n.sessions)
	candidates, _ := enumerateCandidates(n)
	return newScorer(n, graph, candidates), n, graph, candidates
}

func TestConflictScoreInvertsConcurrentOverlap(t *testing.T) {
	in := Input{
		Sessions: []Session{
			{ID: "a", Duration: 60},
			{ID: "b", Duration: 60},
		},
		Venues:   []Venue{{ID: "v1", Capacity: 10}, {ID: "v2", Capacity: 10}},
		Slots:    []TimeSlot{slotAt("t1", 0, 60), slotAt("t2", 60, 60)},
		Overlaps: []Overlap{{SessionA: "a", SessionB: "b", Percent: 40}},
	}
	sc, _, _, _ := scorerFixture(t, in)

	apart := newSchedule()
	apart.place("a", "v1", "t1")
	apart.place("b", "v1", "t2")
	assert.InDelta(t, 100, sc.conflictScore(apart), 1e-9)

	together := newSchedule()
	together.place("a", "v1", "t1")
	together.place("b", "v2", "t1")
	assert.InDelta(t, 0, sc.conflictScore(together), 1e-9)
}

func TestCapacityFitness(t *testing.T) {
	in := Input{
		Sessions: []Session{
			{ID: "popular", Duration: 60, TotalVoters: 50},
			{ID: "tiny", Duration: 60, TotalVoters: 5},
			{ID: "silent", Duration: 60},
		},
		Venues: []Venue{{ID: "small", Capacity: 25}, {ID: "huge", Capacity: 200}},
		Slots:  []TimeSlot{slotAt("t1", 0, 60), slotAt("t2", 60, 60), slotAt("t3", 120, 60)},
	}
	sc, _, _, _ := scorerFixture(t, in)

	assert.InDelta(t, 0.5, sc.capacityFitness("popular", placement{venueID: "small"}), 1e-9)
	assert.InDelta(t, 0.1, sc.capacityFitness("tiny", placement{venueID: "huge"}), 1e-9)
	assert.InDelta(t, 1.0, sc.capacityFitness("silent", placement{venueID: "huge"}), 1e-9)
	assert.InDelta(t, 1.0, sc.capacityFitness("popular", placement{venueID: "huge"}), 1e-9)
}

func TestCoverageScoreCountsLockedAndEligible(t *testing.T) {
	in := Input{
		Sessions: []Session{
			{ID: "locked", Duration: 60, IsLocked: true, VenueID: "v1", TimeSlotID: "t1"},
			{ID: "open", Duration: 60},
		},
		Venues: []Venue{{ID: "v1", Capacity: 10}},
		Slots:  []TimeSlot{slotAt("t1", 0, 60), slotAt("t2", 60, 60)},
	}
	sc, _, _, _ := scorerFixture(t, in)

	state := newSchedule()
	state.place("locked", "v1", "t1")
	assert.InDelta(t, 50, sc.coverageScore(state), 1e-9)

	state.place("open", "v1", "t2")
	assert.InDelta(t, 100, sc.coverageScore(state), 1e-9)
}

func TestSeedIgnoresInputOrder(t *testing.T) {
	in := denseFixture()
	n1, err := normalizeInput(in)
	require.NoError(t, err)

	shuffled := in
	shuffled.Sessions = append([]Session(nil), in.Sessions...)
	shuffled.Sessions[0], shuffled.Sessions[1] = shuffled.Sessions[1], shuffled.Sessions[0]
	n2, err := normalizeInput(shuffled)
	require.NoError(t, err)

	assert.Equal(t, seedFrom(n1), seedFrom(n2))
}
