/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: strategist_test.go
Description: Tests for the strategist and exploration policies. Covers frontier order,
attempt-dedup, scoring, guided preference, hybrid phases and runtime switching.
*/

package strategies_test

import (
	"sync"
	"testing"

	"github.com/kleascm/akaylee-explorer/pkg/interfaces"
	"github.com/kleascm/akaylee-explorer/pkg/strategies"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newStrategist(t *testing.T, name strategies.StrategyName) *strategies.Strategist {
	t.Helper()
	s, err := strategies.NewStrategist(name, strategies.Options{MaxDepth: 5, Seed: 42}, quietLogger())
	require.NoError(t, err)
	return s
}

func entry(id string, depth int, actions ...interfaces.ActionDescriptor) *strategies.FrontierEntry {
	return &strategies.FrontierEntry{
		StateID:     id,
		Depth:       depth,
		Observation: &interfaces.Observation{Actions: actions, ActionSpaceSize: len(actions)},
	}
}

func act(kind interfaces.ActionKind, ref string) interfaces.ActionDescriptor {
	return interfaces.ActionDescriptor{Kind: kind, TargetRef: ref, Confidence: 0.5, Visible: true, Enabled: true}
}

func fill(f *strategies.Frontier, entries ...*strategies.FrontierEntry) {
	for _, e := range entries {
		f.Push(e)
	}
}

func drain(s *strategies.Strategist, f *strategies.Frontier) []string {
	var order []string
	for !f.IsEmpty() {
		e, ok := s.SelectNextFrontier(f)
		if !ok {
			break
		}
		order = append(order, e.StateID)
	}
	return order
}

// TestParseStrategy tests policy name validation
func TestParseStrategy(t *testing.T) {
	for _, name := range strategies.AllStrategies {
		parsed, err := strategies.ParseStrategy(string(name))
		require.NoError(t, err)
		assert.Equal(t, name, parsed)
	}
	_, err := strategies.ParseStrategy("sideways")
	assert.Error(t, err)

	_, err = strategies.NewStrategist("sideways", strategies.Options{}, nil)
	assert.Error(t, err)
}

// TestFrontierOrder tests FIFO and LIFO removal
func TestFrontierOrder(t *testing.T) {
	bfs := newStrategist(t, strategies.BreadthFirst)
	f := strategies.NewFrontier()
	fill(f, entry("a", 0), entry("b", 1), entry("c", 1))
	assert.Equal(t, []string{"a", "b", "c"}, drain(bfs, f))

	dfs := newStrategist(t, strategies.DepthFirst)
	fill(f, entry("a", 0), entry("b", 1), entry("c", 1))
	assert.Equal(t, []string{"c", "b", "a"}, drain(dfs, f))

	_, ok := dfs.SelectNextFrontier(f)
	assert.False(t, ok)

	stats := f.GetStats()
	assert.Equal(t, int64(6), stats["insertions"])
	assert.Equal(t, int64(6), stats["removals"])
	assert.Equal(t, 3, stats["peak"])
}

// TestAttemptDedup tests that no (state, target) pair is handed out twice
func TestAttemptDedup(t *testing.T) {
	s := newStrategist(t, strategies.BreadthFirst)
	e := entry("home", 0, act(interfaces.ActionLink, "#a"), act(interfaces.ActionLink, "#b"))

	first, ok := s.SelectNextAction(e, e.Actions())
	require.True(t, ok)
	second, ok := s.SelectNextAction(e, e.Actions())
	require.True(t, ok)
	assert.NotEqual(t, first.TargetRef, second.TargetRef)

	_, ok = s.SelectNextAction(e, e.Actions())
	assert.False(t, ok, "exhausted")

	assert.True(t, s.Attempted("home", "#a"))
	assert.False(t, s.Attempted("other", "#a"))
	assert.Equal(t, 2, s.AttemptCount())
	assert.Equal(t, 0, s.Untried(e))

	// Same target from a different state is a fresh attempt
	other := entry("other", 1, act(interfaces.ActionLink, "#a"))
	_, ok = s.SelectNextAction(other, other.Actions())
	assert.True(t, ok)
}

// TestAttemptDedupDuplicateTargets tests duplicate targets within one enumeration
func TestAttemptDedupDuplicateTargets(t *testing.T) {
	s := newStrategist(t, strategies.BreadthFirst)
	e := entry("home", 0, act(interfaces.ActionButton, "#go"), act(interfaces.ActionHover, "#go"))

	_, ok := s.SelectNextAction(e, e.Actions())
	require.True(t, ok)
	_, ok = s.SelectNextAction(e, e.Actions())
	assert.False(t, ok)
}

// TestSharedLedger tests that strategists sharing a ledger split the actions of a
// state between them instead of each trying all of them
func TestSharedLedger(t *testing.T) {
	ledger := strategies.NewAttemptLedger()
	refs := []string{"#a", "#b", "#c", "#d", "#e", "#f", "#g", "#h"}
	var actions []interfaces.ActionDescriptor
	for _, ref := range refs {
		actions = append(actions, act(interfaces.ActionLink, ref))
	}

	const workers = 4
	var mu sync.Mutex
	handed := make(map[string]int)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		s, err := strategies.NewStrategist(strategies.RandomWalk, strategies.Options{Seed: int64(i + 1), Ledger: ledger}, quietLogger())
		require.NoError(t, err)

		wg.Add(1)
		go func() {
			defer wg.Done()
			e := entry("home", 0, actions...)
			for {
				a, ok := s.SelectNextAction(e, e.Actions())
				if !ok {
					return
				}
				mu.Lock()
				handed[a.TargetRef]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, handed, len(refs))
	for ref, n := range handed {
		assert.Equal(t, 1, n, ref)
	}
	assert.Equal(t, len(refs), ledger.Count())
	assert.True(t, ledger.Attempted("home", "#a"))

	assert.False(t, ledger.Claim("home", "#a"))
	assert.True(t, ledger.Claim("other", "#a"))
}

// TestPriorityScoring tests frontier and action scores
func TestPriorityScoring(t *testing.T) {
	form := entry("form", 1, act(interfaces.ActionInput, "#q"), act(interfaces.ActionSubmit, "#s"))
	nav := entry("nav", 1, act(interfaces.ActionLink, "#a"))
	broken := entry("broken", 1, act(interfaces.ActionLink, "#a"), act(interfaces.ActionLink, "#b"))
	broken.IsError = true

	assert.Equal(t, 2*10.0+4*5+20, strategies.FrontierScore(form, 5))
	assert.Equal(t, 10.0+4*5+15, strategies.FrontierScore(nav, 5))
	assert.Equal(t, 20.0+4*5+15-30, strategies.FrontierScore(broken, 5))

	s := newStrategist(t, strategies.PriorityBased)
	f := strategies.NewFrontier()
	fill(f, nav, broken, form)
	assert.Equal(t, []string{"form", "nav", "broken"}, drain(s, f))

	save := interfaces.ActionDescriptor{Kind: interfaces.ActionButton, TargetRef: "#save", Label: "Save", Confidence: 0.9, Visible: true, Enabled: true}
	del := interfaces.ActionDescriptor{Kind: interfaces.ActionButton, TargetRef: "#del", Label: "Delete", Confidence: 0.9, Visible: true, Enabled: true}
	assert.InDelta(t, 90+30+20+10+15+25, strategies.ActionScore(save), 1e-9)
	assert.InDelta(t, 90+30+20+10+15-20, strategies.ActionScore(del), 1e-9)

	e := entry("page", 0, del, save)
	chosen, ok := s.SelectNextAction(e, e.Actions())
	require.True(t, ok)
	assert.Equal(t, "#save", chosen.TargetRef)
}

// TestGuidedPolicy tests untried-count frontier choice and form-first actions
func TestGuidedPolicy(t *testing.T) {
	s := newStrategist(t, strategies.Guided)

	small := entry("small", 0, act(interfaces.ActionLink, "#a"))
	large := entry("large", 2, act(interfaces.ActionLink, "#a"), act(interfaces.ActionLink, "#b"), act(interfaces.ActionButton, "#c"))
	f := strategies.NewFrontier()
	fill(f, small, large)

	picked, ok := s.SelectNextFrontier(f)
	require.True(t, ok)
	assert.Equal(t, "large", picked.StateID)

	page := entry("page",
		0,
		act(interfaces.ActionLink, "#home"),
		act(interfaces.ActionSubmit, "#submit"),
		act(interfaces.ActionInput, "#name"),
	)
	var order []string
	for {
		a, ok := s.SelectNextAction(page, page.Actions())
		if !ok {
			break
		}
		order = append(order, a.TargetRef)
	}
	assert.Equal(t, []string{"#name", "#submit", "#home"}, order)
}

// TestHybridPhases tests the attempt-count phase switch
func TestHybridPhases(t *testing.T) {
	assert.Equal(t, strategies.BreadthFirst, strategies.PhaseFor(0))
	assert.Equal(t, strategies.BreadthFirst, strategies.PhaseFor(9))
	assert.Equal(t, strategies.PriorityBased, strategies.PhaseFor(10))
	assert.Equal(t, strategies.PriorityBased, strategies.PhaseFor(49))
	assert.Equal(t, strategies.RandomWalk, strategies.PhaseFor(50))

	s := newStrategist(t, strategies.Hybrid)
	low := entry("low", 0, act(interfaces.ActionLink, "#a"))
	high := entry("high", 0, act(interfaces.ActionInput, "#a"), act(interfaces.ActionLink, "#b"))

	// Breadth phase takes the oldest entry
	f := strategies.NewFrontier()
	fill(f, low, high)
	picked, _ := s.SelectNextFrontier(f)
	assert.Equal(t, "low", picked.StateID)

	// Burn ten attempts to reach the priority phase
	burn := make([]interfaces.ActionDescriptor, 10)
	for i := range burn {
		burn[i] = act(interfaces.ActionLink, string(rune('a'+i)))
	}
	filler := entry("filler", 0, burn...)
	for i := 0; i < 10; i++ {
		_, ok := s.SelectNextAction(filler, filler.Actions())
		require.True(t, ok)
	}
	fill(f, low)
	picked, _ = s.SelectNextFrontier(f)
	assert.Equal(t, "high", picked.StateID)
}

// TestRandomWalkDeterministicSeed tests seeded reproducibility
func TestRandomWalkDeterministicSeed(t *testing.T) {
	run := func() []string {
		s := newStrategist(t, strategies.RandomWalk)
		f := strategies.NewFrontier()
		for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
			f.Push(entry(id, 0))
		}
		return drain(s, f)
	}
	first := run()
	assert.Len(t, first, 6)
	assert.ElementsMatch(t, []string{"a", "b", "c", "d", "e", "f"}, first)
	assert.Equal(t, first, run())
}

// TestSetStrategy tests switching policy at runtime while keeping attempts
func TestSetStrategy(t *testing.T) {
	s := newStrategist(t, strategies.BreadthFirst)
	e := entry("home", 0, act(interfaces.ActionLink, "#a"))
	_, ok := s.SelectNextAction(e, e.Actions())
	require.True(t, ok)

	require.NoError(t, s.SetStrategy(strategies.DepthFirst))
	assert.Equal(t, strategies.DepthFirst, s.Strategy())
	assert.Equal(t, 1, s.AttemptCount())
	assert.True(t, s.Attempted("home", "#a"))

	assert.Error(t, s.SetStrategy("nope"))
	assert.Equal(t, strategies.DepthFirst, s.Strategy())
}
