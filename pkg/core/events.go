/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: events.go
Description: Typed exploration events. Each variant carries EventMeta with a per-session
sequence number so observers can rely on ordering.
*/

package core

import (
	"time"

	"github.com/kleascm/akaylee-explorer/pkg/graph"
)

// EventType names an event variant
type EventType string

const (
	EventStateDiscovered      EventType = "state_discovered"
	EventTransitionFound      EventType = "transition_found"
	EventInteractionCompleted EventType = "interaction_completed"
	EventInteractionFailed    EventType = "interaction_failed"
	EventInteractionCancelled EventType = "interaction_cancelled"
	EventExplorationProgress  EventType = "exploration_progress"
	EventExplorationCompleted EventType = "exploration_completed"
	EventError                EventType = "error"
)

// EventMeta is common to every event
type EventMeta struct {
	SessionID string    `json:"session_id"`
	Sequence  uint64    `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
}

// Meta returns the event metadata
func (m EventMeta) Meta() EventMeta { return m }

// Event is implemented by every event variant
type Event interface {
	Type() EventType
	Meta() EventMeta
}

// StateDiscoveredEvent is emitted for every state reached by an action, new or not
type StateDiscoveredEvent struct {
	EventMeta
	State    *graph.DiscoveredState `json:"state"`
	IsNew    bool                   `json:"is_new"`
	Depth    int                    `json:"depth"`
	Explorer int                    `json:"explorer"`
}

func (StateDiscoveredEvent) Type() EventType { return EventStateDiscovered }

// TransitionFoundEvent is emitted whenever a transition is recorded
type TransitionFoundEvent struct {
	EventMeta
	Transition *graph.Transition `json:"transition"`
	IsNew      bool              `json:"is_new"`
}

func (TransitionFoundEvent) Type() EventType { return EventTransitionFound }

// InteractionCompletedEvent is emitted after a successful action
type InteractionCompletedEvent struct {
	EventMeta
	Interaction *Interaction `json:"interaction"`
}

func (InteractionCompletedEvent) Type() EventType { return EventInteractionCompleted }

// InteractionFailedEvent is emitted once per failed action
type InteractionFailedEvent struct {
	EventMeta
	Interaction *Interaction `json:"interaction"`
	Err         error        `json:"-"`
}

func (InteractionFailedEvent) Type() EventType { return EventInteractionFailed }

// InteractionCancelledEvent is emitted for an action cut short because the
// session stopped, for example when MaxDuration expires
type InteractionCancelledEvent struct {
	EventMeta
	Interaction *Interaction `json:"interaction"`
	Err         error        `json:"-"`
}

func (InteractionCancelledEvent) Type() EventType { return EventInteractionCancelled }

// ExplorationProgressEvent reports periodic progress
type ExplorationProgressEvent struct {
	EventMeta
	Discovered   int64 `json:"discovered"`
	Depth        int   `json:"depth"`
	FrontierSize int   `json:"frontier_size"`
	Explorer     int   `json:"explorer"`
}

func (ExplorationProgressEvent) Type() EventType { return EventExplorationProgress }

// ExplorationCompletedEvent is the last event of every session
type ExplorationCompletedEvent struct {
	EventMeta
	Status   SessionStatus   `json:"status"`
	Metrics  MetricsSnapshot `json:"metrics"`
	Coverage float64         `json:"coverage"`
}

func (ExplorationCompletedEvent) Type() EventType { return EventExplorationCompleted }

// ErrorEvent reports a recoverable or fatal error with context
type ErrorEvent struct {
	EventMeta
	Err     error  `json:"-"`
	Context string `json:"context"`
	Fatal   bool   `json:"fatal"`
}

func (ErrorEvent) Type() EventType { return EventError }

// withMeta stamps metadata onto an event value
func withMeta(ev Event, meta EventMeta) Event {
	switch e := ev.(type) {
	case StateDiscoveredEvent:
		e.EventMeta = meta
		return e
	case TransitionFoundEvent:
		e.EventMeta = meta
		return e
	case InteractionCompletedEvent:
		e.EventMeta = meta
		return e
	case InteractionFailedEvent:
		e.EventMeta = meta
		return e
	case InteractionCancelledEvent:
		e.EventMeta = meta
		return e
	case ExplorationProgressEvent:
		e.EventMeta = meta
		return e
	case ExplorationCompletedEvent:
		e.EventMeta = meta
		return e
	case ErrorEvent:
		e.EventMeta = meta
		return e
	default:
		return ev
	}
}
