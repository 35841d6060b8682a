/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types.go
Description: Node, edge and statistics types for the discovered state graph.
*/

package graph

import (
	"errors"
	"time"

	"github.com/kleascm/akaylee-explorer/pkg/interfaces"
)

var (
	// ErrStateNotFound is returned when an operation references an unknown state id
	ErrStateNotFound = errors.New("state not found")

	// ErrMaxStatesExceeded is returned when inserting a new state would exceed the capacity
	ErrMaxStatesExceeded = errors.New("maximum number of states exceeded")

	// ErrNoPath is returned by ShortestPath when the target is unreachable
	ErrNoPath = errors.New("no path between states")
)

// DiscoveredState is a unique node in the state graph
type DiscoveredState struct {
	ID               string                  `json:"id" msgpack:"id"`
	Fingerprint      string                  `json:"fingerprint" msgpack:"fingerprint"` // Combined visual+structural hash
	Observation      *interfaces.Observation `json:"observation" msgpack:"observation"` // Representative observation
	VisitCount       int                     `json:"visit_count" msgpack:"visit_count"`
	FirstVisitTime   time.Time               `json:"first_visit_time" msgpack:"first_visit_time"`
	LastVisitTime    time.Time               `json:"last_visit_time" msgpack:"last_visit_time"`
	IsTerminal       bool                    `json:"is_terminal" msgpack:"is_terminal"`
	IsError          bool                    `json:"is_error" msgpack:"is_error"`
	IncomingEdgeIDs  []string                `json:"incoming_edge_ids" msgpack:"incoming_edge_ids"`
	OutgoingEdgeIDs  []string                `json:"outgoing_edge_ids" msgpack:"outgoing_edge_ids"`
	AvailableActions []string                `json:"available_actions,omitempty" msgpack:"available_actions,omitempty"` // kind:targetRef identities seen
	ExploredActions  []string                `json:"explored_actions,omitempty" msgpack:"explored_actions,omitempty"`   // kind:targetRef identities executed
}

// Transition is a directed edge between two states
type Transition struct {
	ID          string                `json:"id" msgpack:"id"`
	FromStateID string                `json:"from_state_id" msgpack:"from_state_id"`
	ToStateID   string                `json:"to_state_id" msgpack:"to_state_id"`
	ActionKind  interfaces.ActionKind `json:"action_kind" msgpack:"action_kind"`
	TargetRef   string                `json:"target_ref" msgpack:"target_ref"`
	Count       int                   `json:"count" msgpack:"count"`
	Reversible  bool                  `json:"reversible" msgpack:"reversible"` // Some edge leads back
	FirstSeen   time.Time             `json:"first_seen" msgpack:"first_seen"`
	LastSeen    time.Time             `json:"last_seen" msgpack:"last_seen"`
}

// GraphStatistics summarises the shape of the graph. Computed on demand.
type GraphStatistics struct {
	TotalStates            int     `json:"total_states" msgpack:"total_states"`
	TotalTransitions       int     `json:"total_transitions" msgpack:"total_transitions"`
	MaxDepth               int     `json:"max_depth" msgpack:"max_depth"`
	AverageBranchingFactor float64 `json:"average_branching_factor" msgpack:"average_branching_factor"`
	CycleCount             int     `json:"cycle_count" msgpack:"cycle_count"`
	UnreachableStates      int     `json:"unreachable_states" msgpack:"unreachable_states"`
	TerminalStates         int     `json:"terminal_states" msgpack:"terminal_states"`
	ErrorStates            int     `json:"error_states" msgpack:"error_states"`
}

// GraphSnapshot is a consistent copy of the whole graph
type GraphSnapshot struct {
	InitialStateID string             `json:"initial_state_id" msgpack:"initial_state_id"`
	States         []*DiscoveredState `json:"states" msgpack:"states"`
	Transitions    []*Transition      `json:"transitions" msgpack:"transitions"`
	Statistics     GraphStatistics    `json:"statistics" msgpack:"statistics"`
	Coverage       float64            `json:"coverage" msgpack:"coverage"`
	CapturedAt     time.Time          `json:"captured_at" msgpack:"captured_at"`
}

// SimilarityFunc reports whether candidate is close enough to obs to be merged
type SimilarityFunc func(candidate, obs *interfaces.Observation) bool
