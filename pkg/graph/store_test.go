/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: store_test.go
Description: Tests for the state graph store. Covers dedup, capacity, referential
integrity, concurrent insert-or-find, statistics, shortest paths and coverage.
*/

package graph_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/kleascm/akaylee-explorer/pkg/graph"
	"github.com/kleascm/akaylee-explorer/pkg/interfaces"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestStore(maxStates int) *graph.Store {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return graph.NewStore(maxStates, logger)
}

func obs(name string, actions ...interfaces.ActionDescriptor) *interfaces.Observation {
	return &interfaces.Observation{
		Location:              name,
		VisualFingerprint:     "visual-" + name,
		StructuralFingerprint: "structural-" + name,
		Actions:               actions,
		ActionSpaceSize:       len(actions),
	}
}

func action(kind interfaces.ActionKind, ref string) interfaces.ActionDescriptor {
	return interfaces.ActionDescriptor{Kind: kind, TargetRef: ref, Confidence: 1}
}

func mustInsert(t *testing.T, s *graph.Store, o *interfaces.Observation) string {
	t.Helper()
	id, _, err := s.InsertOrFind(o)
	require.NoError(t, err)
	return id
}

func mustLink(t *testing.T, s *graph.Store, from, to, ref string) {
	t.Helper()
	_, _, err := s.RecordTransition(from, to, interfaces.ActionLink, ref)
	require.NoError(t, err)
}

// TestInsertOrFind tests exact-fingerprint dedup and visit bookkeeping
func TestInsertOrFind(t *testing.T) {
	s := newTestStore(0)

	id, isNew, err := s.InsertOrFind(obs("home"))
	require.NoError(t, err)
	assert.True(t, isNew)

	again, isNew, err := s.InsertOrFind(obs("home"))
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, id, again)

	state, err := s.State(id)
	require.NoError(t, err)
	assert.Equal(t, 2, state.VisitCount)
	assert.False(t, state.LastVisitTime.Before(state.FirstVisitTime))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 0.5, s.HitRate())

	_, _, err = s.InsertOrFind(nil)
	assert.Error(t, err)
}

// TestMaxStates tests the capacity bound
func TestMaxStates(t *testing.T) {
	s := newTestStore(2)
	mustInsert(t, s, obs("a"))
	mustInsert(t, s, obs("b"))

	_, _, err := s.InsertOrFind(obs("c"))
	assert.ErrorIs(t, err, graph.ErrMaxStatesExceeded)

	// Existing states are still found at capacity
	_, isNew, err := s.InsertOrFind(obs("a"))
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, 2, s.Len())
}

// TestConcurrentInsertOrFind tests that racing explorers create exactly one state
func TestConcurrentInsertOrFind(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newTestStore(0)
	const workers = 32

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	ids := map[string]struct{}{}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, isNew, err := s.InsertOrFind(obs("shared"))
			assert.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			ids[id] = struct{}{}
			if isNew {
				created++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Len(t, ids, 1)
	assert.Equal(t, 1, s.Len())
}

// TestRecordTransition tests edge aggregation and referential integrity
func TestRecordTransition(t *testing.T) {
	s := newTestStore(0)
	home := mustInsert(t, s, obs("home"))
	page := mustInsert(t, s, obs("page"))

	edge, isNew, err := s.RecordTransition(home, page, interfaces.ActionLink, "#page")
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, 1, edge.Count)
	assert.False(t, edge.Reversible)

	edge, isNew, err = s.RecordTransition(home, page, interfaces.ActionLink, "#page")
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, 2, edge.Count)

	back, _, err := s.RecordTransition(page, home, interfaces.ActionLink, "#home")
	require.NoError(t, err)
	assert.True(t, back.Reversible)

	forward, ok := s.TransitionBetween(home, page)
	require.True(t, ok)
	assert.True(t, forward.Reversible)

	_, _, err = s.RecordTransition(home, "missing", interfaces.ActionLink, "#x")
	assert.ErrorIs(t, err, graph.ErrStateNotFound)
	_, _, err = s.RecordTransition("missing", home, interfaces.ActionLink, "#x")
	assert.ErrorIs(t, err, graph.ErrStateNotFound)

	assert.Len(t, s.Transitions(), 2)
	for _, tr := range s.Transitions() {
		_, err := s.State(tr.FromStateID)
		assert.NoError(t, err)
		_, err = s.State(tr.ToStateID)
		assert.NoError(t, err)
	}
}

// TestStatisticsTwoCycle tests cycle detection on A <-> B
func TestStatisticsTwoCycle(t *testing.T) {
	s := newTestStore(0)
	a := mustInsert(t, s, obs("a"))
	b := mustInsert(t, s, obs("b"))
	mustLink(t, s, a, b, "#b")
	mustLink(t, s, b, a, "#a")
	require.NoError(t, s.SetInitial(a))

	stats := s.Statistics()
	assert.Equal(t, 2, stats.TotalStates)
	assert.Equal(t, 2, stats.TotalTransitions)
	assert.GreaterOrEqual(t, stats.CycleCount, 1)
	assert.Equal(t, 1, stats.MaxDepth)
	assert.Equal(t, 1.0, stats.AverageBranchingFactor)
	assert.Zero(t, stats.UnreachableStates)
}

// TestStatisticsChain tests depth, self-loops and unreachable counting
func TestStatisticsChain(t *testing.T) {
	s := newTestStore(0)
	ids := make([]string, 4)
	for i, name := range []string{"s0", "s1", "s2", "s3"} {
		ids[i] = mustInsert(t, s, obs(name))
	}
	mustLink(t, s, ids[0], ids[1], "#1")
	mustLink(t, s, ids[1], ids[2], "#2")
	mustLink(t, s, ids[2], ids[3], "#3")
	mustLink(t, s, ids[2], ids[2], "#reload")

	orphan := mustInsert(t, s, obs("orphan"))
	require.NoError(t, s.MarkError(orphan, true))
	terminal, err := s.MarkTerminal(ids[3])
	require.NoError(t, err)
	assert.True(t, terminal)

	// Two states without incoming edges, so the first inserted wins
	assert.Equal(t, ids[0], s.InitialStateID())

	stats := s.Statistics()
	assert.Equal(t, 3, stats.MaxDepth)
	assert.Equal(t, 1, stats.CycleCount, "self-loop is one back edge")
	assert.Equal(t, 1, stats.UnreachableStates)
	assert.Equal(t, 1, stats.TerminalStates)
	assert.Equal(t, 1, stats.ErrorStates)
	assert.InDelta(t, 4.0/3.0, stats.AverageBranchingFactor, 1e-9)
}

// TestInitialStateSelection tests the zero-incoming rule and its fallback
func TestInitialStateSelection(t *testing.T) {
	s := newTestStore(0)
	assert.Equal(t, "", s.InitialStateID())

	a := mustInsert(t, s, obs("a"))
	b := mustInsert(t, s, obs("b"))
	mustLink(t, s, b, a, "#a")
	assert.Equal(t, b, s.InitialStateID(), "unique state without incoming edges")

	mustLink(t, s, a, b, "#b")
	assert.Equal(t, a, s.InitialStateID(), "falls back to the first inserted state")
}

// TestMarkTerminalClearedByTransition tests that recording an outgoing edge clears the flag
func TestMarkTerminalClearedByTransition(t *testing.T) {
	s := newTestStore(0)
	a := mustInsert(t, s, obs("a"))
	b := mustInsert(t, s, obs("b"))

	terminal, err := s.MarkTerminal(a)
	require.NoError(t, err)
	assert.True(t, terminal)

	mustLink(t, s, a, b, "#b")
	state, err := s.State(a)
	require.NoError(t, err)
	assert.False(t, state.IsTerminal)

	terminal, err = s.MarkTerminal(a)
	require.NoError(t, err)
	assert.False(t, terminal)
}

// TestShortestPath tests BFS paths and unreachable targets
func TestShortestPath(t *testing.T) {
	s := newTestStore(0)
	a := mustInsert(t, s, obs("a"))
	b := mustInsert(t, s, obs("b"))
	c := mustInsert(t, s, obs("c"))
	d := mustInsert(t, s, obs("d"))
	mustLink(t, s, a, b, "#b")
	mustLink(t, s, b, c, "#c")
	mustLink(t, s, a, c, "#c-direct")

	path, err := s.ShortestPath(a, c)
	require.NoError(t, err)
	assert.Equal(t, []string{a, c}, path)

	path, err = s.ShortestPath(a, a)
	require.NoError(t, err)
	assert.Equal(t, []string{a}, path)

	_, err = s.ShortestPath(c, a)
	assert.True(t, errors.Is(err, graph.ErrNoPath))

	_, err = s.ShortestPath(a, "missing")
	assert.ErrorIs(t, err, graph.ErrStateNotFound)

	_, err = s.ShortestPath(a, d)
	assert.ErrorIs(t, err, graph.ErrNoPath)

	steps, err := s.PathActions(a, c)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "#c-direct", steps[0].TargetRef)
}

// TestCoverage tests the explored/available ratio and the zero case
func TestCoverage(t *testing.T) {
	s := newTestStore(0)
	mustInsert(t, s, obs("empty"))
	assert.Equal(t, 0.0, s.Coverage())

	home := mustInsert(t, s, obs("home",
		action(interfaces.ActionLink, "#a"),
		action(interfaces.ActionLink, "#b"),
		action(interfaces.ActionButton, "#go"),
		action(interfaces.ActionInput, "#q"),
	))
	require.NoError(t, s.MarkExplored(home, action(interfaces.ActionLink, "#a")))
	assert.Equal(t, 0.25, s.Coverage())

	// Re-marking the same action does not double count
	require.NoError(t, s.MarkExplored(home, action(interfaces.ActionLink, "#a")))
	assert.Equal(t, 0.25, s.Coverage())

	require.NoError(t, s.RecordActionSpace(home, []interfaces.ActionDescriptor{
		action(interfaces.ActionLink, "#a"),
		action(interfaces.ActionScroll, "window"),
	}))
	assert.Equal(t, 0.2, s.Coverage())

	state, err := s.State(home)
	require.NoError(t, err)
	assert.Len(t, state.AvailableActions, 5)
	assert.Equal(t, []string{"link:#a"}, state.ExploredActions)

	assert.ErrorIs(t, s.MarkExplored("missing", action(interfaces.ActionLink, "#a")), graph.ErrStateNotFound)
}

// TestFindSimilarState tests the linear similarity scan
func TestFindSimilarState(t *testing.T) {
	s := newTestStore(0)
	a := mustInsert(t, s, obs("a"))
	mustInsert(t, s, obs("b"))

	sameLocation := func(candidate, o *interfaces.Observation) bool {
		return candidate.Location == o.Location
	}

	probe := obs("a")
	probe.VisualFingerprint = "changed"
	id, ok := s.FindSimilarState(probe, sameLocation)
	require.True(t, ok)
	assert.Equal(t, a, id)

	_, ok = s.FindSimilarState(obs("zzz"), sameLocation)
	assert.False(t, ok)

	_, ok = s.FindSimilarState(probe, nil)
	assert.False(t, ok)
}

// TestSnapshot tests that snapshots are detached copies
func TestSnapshot(t *testing.T) {
	s := newTestStore(0)
	a := mustInsert(t, s, obs("a"))
	b := mustInsert(t, s, obs("b"))
	mustLink(t, s, a, b, "#b")

	snap := s.Snapshot()
	assert.Equal(t, a, snap.InitialStateID)
	require.Len(t, snap.States, 2)
	require.Len(t, snap.Transitions, 1)
	assert.Equal(t, 2, snap.Statistics.TotalStates)

	snap.States[0].OutgoingEdgeIDs = nil
	state, err := s.State(a)
	require.NoError(t, err)
	assert.Len(t, state.OutgoingEdgeIDs, 1)
}
