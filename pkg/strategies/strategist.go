/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: strategist.go
Description: Exploration strategist. Wraps a pluggable Policy with attempt-dedup
through an AttemptLedger, so each (state, target) pair is tried at most once per
session, and allows the policy to be switched while a session runs.
*/

package strategies

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/kleascm/akaylee-explorer/pkg/interfaces"
	"github.com/sirupsen/logrus"
)

// StrategyName identifies an exploration policy
type StrategyName string

const (
	BreadthFirst  StrategyName = "breadth-first"
	DepthFirst    StrategyName = "depth-first"
	PriorityBased StrategyName = "priority-based"
	RandomWalk    StrategyName = "random-walk"
	Guided        StrategyName = "guided"
	Hybrid        StrategyName = "hybrid"
)

// AllStrategies lists every supported policy
var AllStrategies = []StrategyName{BreadthFirst, DepthFirst, PriorityBased, RandomWalk, Guided, Hybrid}

// ParseStrategy validates a policy name
func ParseStrategy(name string) (StrategyName, error) {
	for _, s := range AllStrategies {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown exploration strategy: %q", name)
}

// AttemptView exposes attempt bookkeeping to policies without letting them mutate it
type AttemptView interface {
	Attempted(stateID, targetRef string) bool
	AttemptCount() int
}

// Policy picks the next frontier entry and the next action. Both methods return an
// index into the slice they were given; candidates never include attempted actions.
type Policy interface {
	Name() StrategyName
	SelectFrontier(entries []*FrontierEntry, view AttemptView) int
	SelectAction(entry *FrontierEntry, candidates []interfaces.ActionDescriptor, view AttemptView) int
}

// Options configures a Strategist
type Options struct {
	MaxDepth int            // Used by priority scoring
	Seed     int64          // 0 means seed from the clock
	Ledger   *AttemptLedger // Shared attempt record, nil for a private one
}

// Strategist selects what to explore next for one explorer. Strategists that
// share a ledger never hand out the same (state, target) pair twice.
type Strategist struct {
	mu       sync.Mutex
	policy   Policy
	options  Options
	rng      *rand.Rand
	ledger   *AttemptLedger
	attempts int // Claims made by this strategist
	logger   *logrus.Logger
}

// NewStrategist creates a strategist running the named policy
func NewStrategist(name StrategyName, options Options, logger *logrus.Logger) (*Strategist, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	seed := options.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	ledger := options.Ledger
	if ledger == nil {
		ledger = NewAttemptLedger()
	}
	s := &Strategist{
		options: options,
		rng:     rand.New(rand.NewSource(seed)),
		ledger:  ledger,
		logger:  logger,
	}
	policy, err := s.newPolicy(name)
	if err != nil {
		return nil, err
	}
	s.policy = policy
	return s, nil
}

func (s *Strategist) newPolicy(name StrategyName) (Policy, error) {
	switch name {
	case BreadthFirst:
		return &breadthFirstPolicy{}, nil
	case DepthFirst:
		return &depthFirstPolicy{}, nil
	case PriorityBased:
		return &priorityPolicy{maxDepth: s.options.MaxDepth}, nil
	case RandomWalk:
		return &randomWalkPolicy{rng: s.rng}, nil
	case Guided:
		return &guidedPolicy{}, nil
	case Hybrid:
		return newHybridPolicy(s.options.MaxDepth, s.rng), nil
	default:
		return nil, fmt.Errorf("unknown exploration strategy: %q", name)
	}
}

// SetStrategy switches the active policy. Attempt history is kept.
func (s *Strategist) SetStrategy(name StrategyName) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	policy, err := s.newPolicy(name)
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"from": s.policy.Name(),
		"to":   name,
	}).Info("Switching exploration strategy")
	s.policy = policy
	return nil
}

// Strategy returns the active policy name
func (s *Strategist) Strategy() StrategyName {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy.Name()
}

// SelectNextFrontier removes and returns the entry the policy prefers
func (s *Strategist) SelectNextFrontier(frontier *Frontier) (*FrontierEntry, bool) {
	entries := frontier.Entries()
	if len(entries) == 0 {
		return nil, false
	}

	s.mu.Lock()
	idx := s.policy.SelectFrontier(entries, lockedView{s})
	s.mu.Unlock()

	if idx < 0 || idx >= len(entries) {
		idx = 0
	}
	entry := frontier.RemoveAt(idx)
	return entry, entry != nil
}

// SelectNextAction picks an untried action for the entry's state and claims it in
// the ledger. Returns false once every candidate has been claimed.
func (s *Strategist) SelectNextAction(entry *FrontierEntry, actions []interfaces.ActionDescriptor) (interfaces.ActionDescriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		candidates := make([]interfaces.ActionDescriptor, 0, len(actions))
		seen := make(map[string]struct{}, len(actions))
		for _, a := range actions {
			if s.ledger.Attempted(entry.StateID, a.TargetRef) {
				continue
			}
			if _, dup := seen[a.TargetRef]; dup {
				continue
			}
			seen[a.TargetRef] = struct{}{}
			candidates = append(candidates, a)
		}
		if len(candidates) == 0 {
			return interfaces.ActionDescriptor{}, false
		}

		idx := s.policy.SelectAction(entry, candidates, lockedView{s})
		if idx < 0 || idx >= len(candidates) {
			idx = 0
		}
		chosen := candidates[idx]

		// Another explorer may have claimed it since the candidates were built
		if s.ledger.Claim(entry.StateID, chosen.TargetRef) {
			s.attempts++
			return chosen, true
		}
	}
}

// Attempted reports whether targetRef was already tried from stateID
func (s *Strategist) Attempted(stateID, targetRef string) bool {
	return s.ledger.Attempted(stateID, targetRef)
}

// AttemptCount returns the number of actions this strategist handed out
func (s *Strategist) AttemptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Untried returns how many of the entry's known actions are still untried
func (s *Strategist) Untried(entry *FrontierEntry) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return untried(entry, lockedView{s})
}

// lockedView reads strategist state while the caller already holds s.mu
type lockedView struct {
	s *Strategist
}

func (v lockedView) Attempted(stateID, targetRef string) bool {
	return v.s.ledger.Attempted(stateID, targetRef)
}

func (v lockedView) AttemptCount() int {
	return v.s.attempts
}

func untried(entry *FrontierEntry, view AttemptView) int {
	n := 0
	for _, a := range entry.Actions() {
		if !view.Attempted(entry.StateID, a.TargetRef) {
			n++
		}
	}
	return n
}
