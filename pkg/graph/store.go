/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: store.go
Description: State graph store. Owns the node and edge maps plus the fingerprint index
and exposes atomic insert-or-find semantics so concurrent explorers never create duplicate
states. Every mutation runs under a single lock.
*/

package graph

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kleascm/akaylee-explorer/pkg/interfaces"
	"github.com/sirupsen/logrus"
)

type node struct {
	state     DiscoveredState
	available map[string]struct{}
	explored  map[string]struct{}
	seq       int // Insertion order
}

// Store holds the discovered states and transitions of one session
type Store struct {
	mu sync.RWMutex

	maxStates int
	logger    *logrus.Logger

	nodes     map[string]*node
	order     []string          // State ids in insertion order
	index     map[string]string // fingerprint -> state id
	edges     map[string]*Transition
	edgeOrder []string
	edgeIndex map[string]string // from|to|kind|targetRef -> edge id
	initialID string

	// Performance tracking
	lookups int64
	hits    int64
}

// NewStore creates an empty store. maxStates <= 0 means unbounded.
func NewStore(maxStates int, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Store{
		maxStates: maxStates,
		logger:    logger,
		nodes:     make(map[string]*node),
		index:     make(map[string]string),
		edges:     make(map[string]*Transition),
		edgeIndex: make(map[string]string),
	}
}

// InsertOrFind returns the id of the state matching obs, creating it on first sight.
// The lookup and insert happen in one critical section.
func (s *Store) InsertOrFind(obs *interfaces.Observation) (string, bool, error) {
	if obs == nil {
		return "", false, fmt.Errorf("failed to insert state: nil observation")
	}
	fp := obs.Fingerprint()
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lookups++
	if id, ok := s.index[fp]; ok {
		n := s.nodes[id]
		n.state.VisitCount++
		n.state.LastVisitTime = now
		s.hits++
		return id, false, nil
	}

	if s.maxStates > 0 && len(s.nodes) >= s.maxStates {
		return "", false, ErrMaxStatesExceeded
	}

	id := uuid.New().String()
	n := &node{
		state: DiscoveredState{
			ID:             id,
			Fingerprint:    fp,
			Observation:    obs,
			VisitCount:     1,
			FirstVisitTime: now,
			LastVisitTime:  now,
		},
		available: make(map[string]struct{}),
		explored:  make(map[string]struct{}),
		seq:       len(s.order),
	}
	for _, a := range obs.Actions {
		n.available[a.Identity()] = struct{}{}
	}
	s.nodes[id] = n
	s.order = append(s.order, id)
	s.index[fp] = id

	s.logger.WithFields(logrus.Fields{
		"state_id": id,
		"location": obs.Location,
		"actions":  obs.ActionSpaceSize,
	}).Debug("New state discovered")

	return id, true, nil
}

// Lookup returns the id of the state with obs's fingerprint without mutating anything
func (s *Store) Lookup(obs *interfaces.Observation) (string, bool) {
	fp := obs.Fingerprint()
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.index[fp]
	return id, ok
}

// Touch bumps the visit metadata of an existing state
func (s *Store) Touch(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("failed to touch state %s: %w", id, ErrStateNotFound)
	}
	n.state.VisitCount++
	n.state.LastVisitTime = time.Now()
	return nil
}

// RecordTransition records an edge, incrementing its count when the same
// (from, to, kind, targetRef) edge already exists. Unknown endpoints are rejected.
func (s *Store) RecordTransition(from, to string, kind interfaces.ActionKind, targetRef string) (*Transition, bool, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	fromNode, ok := s.nodes[from]
	if !ok {
		return nil, false, fmt.Errorf("failed to record transition from %s: %w", from, ErrStateNotFound)
	}
	toNode, ok := s.nodes[to]
	if !ok {
		return nil, false, fmt.Errorf("failed to record transition to %s: %w", to, ErrStateNotFound)
	}

	key := edgeKey(from, to, kind, targetRef)
	if id, ok := s.edgeIndex[key]; ok {
		edge := s.edges[id]
		edge.Count++
		edge.LastSeen = now
		copied := *edge
		return &copied, false, nil
	}

	edge := &Transition{
		ID:          uuid.New().String(),
		FromStateID: from,
		ToStateID:   to,
		ActionKind:  kind,
		TargetRef:   targetRef,
		Count:       1,
		FirstSeen:   now,
		LastSeen:    now,
	}

	// Reversible when any edge already leads back
	for _, outID := range toNode.state.OutgoingEdgeIDs {
		back := s.edges[outID]
		if back.ToStateID == from {
			edge.Reversible = true
			back.Reversible = true
		}
	}

	s.edges[edge.ID] = edge
	s.edgeOrder = append(s.edgeOrder, edge.ID)
	s.edgeIndex[key] = edge.ID
	fromNode.state.OutgoingEdgeIDs = append(fromNode.state.OutgoingEdgeIDs, edge.ID)
	fromNode.state.IsTerminal = false
	toNode.state.IncomingEdgeIDs = append(toNode.state.IncomingEdgeIDs, edge.ID)

	copied := *edge
	return &copied, true, nil
}

// TransitionBetween returns the first edge from -> to, if any
func (s *Store) TransitionBetween(from, to string) (*Transition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[from]
	if !ok {
		return nil, false
	}
	for _, id := range n.state.OutgoingEdgeIDs {
		if e := s.edges[id]; e.ToStateID == to {
			copied := *e
			return &copied, true
		}
	}
	return nil, false
}

// RecordActionSpace merges the enumerated action identities into the state's available set
func (s *Store) RecordActionSpace(id string, actions []interfaces.ActionDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("failed to record action space for %s: %w", id, ErrStateNotFound)
	}
	for _, a := range actions {
		n.available[a.Identity()] = struct{}{}
	}
	return nil
}

// MarkExplored records that action was executed from the state
func (s *Store) MarkExplored(id string, action interfaces.ActionDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("failed to mark action explored on %s: %w", id, ErrStateNotFound)
	}
	identity := action.Identity()
	n.explored[identity] = struct{}{}
	n.available[identity] = struct{}{}
	return nil
}

// MarkError flags a state as an error state
func (s *Store) MarkError(id string, isError bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("failed to mark error on %s: %w", id, ErrStateNotFound)
	}
	n.state.IsError = isError
	return nil
}

// MarkTerminal flags a state as terminal. Only states without outgoing edges qualify.
func (s *Store) MarkTerminal(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return false, fmt.Errorf("failed to mark terminal on %s: %w", id, ErrStateNotFound)
	}
	n.state.IsTerminal = len(n.state.OutgoingEdgeIDs) == 0
	return n.state.IsTerminal, nil
}

// SetInitial pins the initial state explicitly
func (s *Store) SetInitial(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[id]; !ok {
		return fmt.Errorf("failed to set initial state %s: %w", id, ErrStateNotFound)
	}
	s.initialID = id
	return nil
}

// InitialStateID returns the pinned initial state, else the unique state with no
// incoming edges, else the first inserted state
func (s *Store) InitialStateID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialLocked()
}

func (s *Store) initialLocked() string {
	if s.initialID != "" {
		return s.initialID
	}
	candidate := ""
	for _, id := range s.order {
		if len(s.nodes[id].state.IncomingEdgeIDs) == 0 {
			if candidate != "" {
				candidate = ""
				break
			}
			candidate = id
		}
	}
	if candidate != "" {
		return candidate
	}
	if len(s.order) > 0 {
		return s.order[0]
	}
	return ""
}

// Coverage returns Σ min(explored, available) / Σ available over all states, 0 when
// no actions were ever seen
func (s *Store) Coverage() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coverageLocked()
}

func (s *Store) coverageLocked() float64 {
	explored, available := 0, 0
	for _, n := range s.nodes {
		a := len(n.available)
		e := len(n.explored)
		if e > a {
			e = a
		}
		explored += e
		available += a
	}
	if available == 0 {
		return 0
	}
	return float64(explored) / float64(available)
}

// FindSimilarState scans every state for one the caller considers similar. O(states).
func (s *Store) FindSimilarState(obs *interfaces.Observation, similar SimilarityFunc) (string, bool) {
	if obs == nil || similar == nil {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.order {
		if similar(s.nodes[id].state.Observation, obs) {
			return id, true
		}
	}
	return "", false
}

// Len returns the number of states
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// State returns a copy of a state
func (s *Store) State(id string) (*DiscoveredState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("failed to get state %s: %w", id, ErrStateNotFound)
	}
	return n.snapshot(), nil
}

// States returns copies of all states in insertion order
func (s *Store) States() []*DiscoveredState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statesLocked()
}

func (s *Store) statesLocked() []*DiscoveredState {
	states := make([]*DiscoveredState, 0, len(s.order))
	for _, id := range s.order {
		states = append(states, s.nodes[id].snapshot())
	}
	return states
}

// Transitions returns copies of all transitions in creation order
func (s *Store) Transitions() []*Transition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transitionsLocked()
}

func (s *Store) transitionsLocked() []*Transition {
	transitions := make([]*Transition, 0, len(s.edgeOrder))
	for _, id := range s.edgeOrder {
		copied := *s.edges[id]
		transitions = append(transitions, &copied)
	}
	return transitions
}

// Snapshot returns a consistent copy of the graph with statistics and coverage
func (s *Store) Snapshot() *GraphSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &GraphSnapshot{
		InitialStateID: s.initialLocked(),
		States:         s.statesLocked(),
		Transitions:    s.transitionsLocked(),
		Statistics:     s.statisticsLocked(),
		Coverage:       s.coverageLocked(),
		CapturedAt:     time.Now(),
	}
}

// HitRate returns the fraction of InsertOrFind calls that matched an existing state
func (s *Store) HitRate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lookups == 0 {
		return 0
	}
	return float64(s.hits) / float64(s.lookups)
}

func (n *node) snapshot() *DiscoveredState {
	copied := n.state
	copied.IncomingEdgeIDs = append([]string(nil), n.state.IncomingEdgeIDs...)
	copied.OutgoingEdgeIDs = append([]string(nil), n.state.OutgoingEdgeIDs...)
	copied.AvailableActions = sortedKeys(n.available)
	copied.ExploredActions = sortedKeys(n.explored)
	return &copied
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func edgeKey(from, to string, kind interfaces.ActionKind, targetRef string) string {
	return from + "|" + to + "|" + string(kind) + "|" + targetRef
}
