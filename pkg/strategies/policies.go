/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: policies.go
Description: Exploration policy implementations: breadth-first, depth-first,
priority-based, random-walk, guided and the phase-switching hybrid.
*/

package strategies

import (
	"math/rand"
	"strings"

	"github.com/kleascm/akaylee-explorer/pkg/interfaces"
)

// breadthFirstPolicy takes the oldest entry and actions in enumeration order
type breadthFirstPolicy struct{}

func (p *breadthFirstPolicy) Name() StrategyName { return BreadthFirst }

func (p *breadthFirstPolicy) SelectFrontier(entries []*FrontierEntry, _ AttemptView) int {
	return 0
}

func (p *breadthFirstPolicy) SelectAction(_ *FrontierEntry, _ []interfaces.ActionDescriptor, _ AttemptView) int {
	return 0
}

// depthFirstPolicy takes the newest entry
type depthFirstPolicy struct{}

func (p *depthFirstPolicy) Name() StrategyName { return DepthFirst }

func (p *depthFirstPolicy) SelectFrontier(entries []*FrontierEntry, _ AttemptView) int {
	return len(entries) - 1
}

func (p *depthFirstPolicy) SelectAction(_ *FrontierEntry, _ []interfaces.ActionDescriptor, _ AttemptView) int {
	return 0
}

// priorityPolicy scores entries and actions and takes the highest. Ties go to the
// earliest candidate.
type priorityPolicy struct {
	maxDepth int
}

func (p *priorityPolicy) Name() StrategyName { return PriorityBased }

func (p *priorityPolicy) SelectFrontier(entries []*FrontierEntry, _ AttemptView) int {
	return argmax(len(entries), func(i int) float64 {
		return FrontierScore(entries[i], p.maxDepth)
	})
}

func (p *priorityPolicy) SelectAction(_ *FrontierEntry, candidates []interfaces.ActionDescriptor, _ AttemptView) int {
	return argmax(len(candidates), func(i int) float64 {
		return ActionScore(candidates[i])
	})
}

// randomWalkPolicy picks uniformly at random
type randomWalkPolicy struct {
	rng *rand.Rand
}

func (p *randomWalkPolicy) Name() StrategyName { return RandomWalk }

func (p *randomWalkPolicy) SelectFrontier(entries []*FrontierEntry, _ AttemptView) int {
	return p.rng.Intn(len(entries))
}

func (p *randomWalkPolicy) SelectAction(_ *FrontierEntry, candidates []interfaces.ActionDescriptor, _ AttemptView) int {
	return p.rng.Intn(len(candidates))
}

// guidedPolicy favours the entry with the most untried actions, and inside a state
// works through form inputs before navigation
type guidedPolicy struct{}

func (p *guidedPolicy) Name() StrategyName { return Guided }

func (p *guidedPolicy) SelectFrontier(entries []*FrontierEntry, view AttemptView) int {
	return argmax(len(entries), func(i int) float64 {
		return float64(untried(entries[i], view))
	})
}

func (p *guidedPolicy) SelectAction(_ *FrontierEntry, candidates []interfaces.ActionDescriptor, _ AttemptView) int {
	// Field entry before submission
	for _, kind := range []interfaces.ActionKind{interfaces.ActionInput, interfaces.ActionSelect, interfaces.ActionCheckbox, interfaces.ActionSubmit} {
		for i, a := range candidates {
			if a.Kind == kind {
				return i
			}
		}
	}
	for i, a := range candidates {
		if a.Kind.IsNavigationKind() {
			return i
		}
	}
	return 0
}

// hybridPolicy starts broad, narrows to scored exploration, then goes random
// to escape plateaus late in a run
type hybridPolicy struct {
	breadth  *breadthFirstPolicy
	priority *priorityPolicy
	random   *randomWalkPolicy
}

const (
	hybridBreadthPhase  = 10
	hybridPriorityPhase = 50
)

func newHybridPolicy(maxDepth int, rng *rand.Rand) *hybridPolicy {
	return &hybridPolicy{
		breadth:  &breadthFirstPolicy{},
		priority: &priorityPolicy{maxDepth: maxDepth},
		random:   &randomWalkPolicy{rng: rng},
	}
}

func (p *hybridPolicy) Name() StrategyName { return Hybrid }

func (p *hybridPolicy) phase(view AttemptView) Policy {
	switch n := view.AttemptCount(); {
	case n < hybridBreadthPhase:
		return p.breadth
	case n < hybridPriorityPhase:
		return p.priority
	default:
		return p.random
	}
}

func (p *hybridPolicy) SelectFrontier(entries []*FrontierEntry, view AttemptView) int {
	return p.phase(view).SelectFrontier(entries, view)
}

func (p *hybridPolicy) SelectAction(entry *FrontierEntry, candidates []interfaces.ActionDescriptor, view AttemptView) int {
	return p.phase(view).SelectAction(entry, candidates, view)
}

// PhaseFor returns the policy the hybrid strategy uses after attempts actions
func PhaseFor(attempts int) StrategyName {
	switch {
	case attempts < hybridBreadthPhase:
		return BreadthFirst
	case attempts < hybridPriorityPhase:
		return PriorityBased
	default:
		return RandomWalk
	}
}

var (
	importantKeywords = []string{"submit", "login", "next", "save", "search", "continue", "sign"}
	riskyKeywords     = []string{"delete", "remove", "logout", "cancel", "reset"}

	kindWeights = map[interfaces.ActionKind]float64{
		interfaces.ActionSubmit:   40,
		interfaces.ActionButton:   30,
		interfaces.ActionLink:     25,
		interfaces.ActionInput:    20,
		interfaces.ActionSelect:   20,
		interfaces.ActionCheckbox: 15,
		interfaces.ActionCustom:   10,
		interfaces.ActionScroll:   5,
		interfaces.ActionHover:    5,
	}
)

// FrontierScore rates a frontier entry:
// actionCount*10 + (maxDepth-depth)*5 + form 20 + navigation 15 - error 30
func FrontierScore(entry *FrontierEntry, maxDepth int) float64 {
	actions := entry.Actions()
	score := float64(len(actions))*10 + float64(maxDepth-entry.Depth)*5

	hasForm, hasNav := false, false
	for _, a := range actions {
		if a.Kind.IsFormKind() {
			hasForm = true
		}
		if a.Kind.IsNavigationKind() {
			hasNav = true
		}
	}
	if hasForm {
		score += 20
	}
	if hasNav {
		score += 15
	}
	if entry.IsError || (entry.Observation != nil && len(entry.Observation.ErrorSignals) > 0) {
		score -= 30
	}
	return score
}

// ActionScore rates a candidate action:
// confidence*100 + kind weight + visible 20 + enabled 10 + label 15 + important 25 - risky 20
func ActionScore(a interfaces.ActionDescriptor) float64 {
	score := a.Confidence*100 + kindWeights[a.Kind]
	if a.Visible {
		score += 20
	}
	if a.Enabled {
		score += 10
	}

	label := strings.ToLower(strings.TrimSpace(a.Label))
	if isMeaningfulLabel(label) {
		score += 15
	}
	text := label + " " + strings.ToLower(a.TargetRef)
	if containsAny(text, importantKeywords) {
		score += 25
	}
	if containsAny(text, riskyKeywords) {
		score -= 20
	}
	return score
}

func isMeaningfulLabel(label string) bool {
	if len(label) < 2 || len(label) > 100 {
		return false
	}
	for _, r := range label {
		if (r >= 'a' && r <= 'z') || r > 127 {
			return true
		}
	}
	return false
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func argmax(n int, score func(int) float64) int {
	best, bestScore := 0, 0.0
	for i := 0; i < n; i++ {
		s := score(i)
		if i == 0 || s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}
