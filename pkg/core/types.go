/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types.go
Description: Core types for the exploration engine: session lifecycle, live metrics,
interaction records and the discovery result returned to callers.
*/

package core

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kleascm/akaylee-explorer/pkg/graph"
	"github.com/kleascm/akaylee-explorer/pkg/interfaces"
)

var (
	// ErrAlreadyRunning is returned when Discover is called on a busy engine
	ErrAlreadyRunning = errors.New("exploration already running")

	// ErrInitialContext wraps failures to reach or observe the initial state
	ErrInitialContext = errors.New("initial context unreachable")
)

// SessionStatus is the lifecycle state of an exploration session
type SessionStatus string

const (
	StatusInitializing SessionStatus = "initializing"
	StatusExploring    SessionStatus = "exploring"
	StatusCompleted    SessionStatus = "completed"
	StatusFailed       SessionStatus = "failed"
	StatusTimeout      SessionStatus = "timeout"
)

// IsTerminal reports whether the status is absorbing
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusTimeout
}

// Session tracks one Discover call. Status only moves forward.
type Session struct {
	ID        string          `json:"id"`
	StartTime time.Time       `json:"start_time"`
	Config    *ExplorerConfig `json:"config"`
	Metrics   *Metrics        `json:"-"`

	mu      sync.RWMutex
	status  SessionStatus
	endTime time.Time
	err     error
}

func newSession(id string, config *ExplorerConfig) *Session {
	return &Session{
		ID:        id,
		StartTime: time.Now(),
		Config:    config,
		Metrics:   &Metrics{},
		status:    StatusInitializing,
	}
}

// Status returns the current status
func (s *Session) Status() SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// EndTime returns when the session reached a terminal status
func (s *Session) EndTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.endTime
}

// Err returns the error that failed the session, if any
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// transition moves the session forward. Terminal statuses are absorbing and
// exploring cannot be re-entered.
func (s *Session) transition(to SessionStatus, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.status
	switch {
	case from.IsTerminal():
		return fmt.Errorf("invalid session transition %s -> %s: session already finished", from, to)
	case to == StatusInitializing:
		return fmt.Errorf("invalid session transition %s -> %s", from, to)
	case to == StatusExploring && from != StatusInitializing:
		return fmt.Errorf("invalid session transition %s -> %s", from, to)
	}

	s.status = to
	if to.IsTerminal() {
		s.endTime = time.Now()
		s.err = err
	}
	return nil
}

// Metrics are live counters updated by every explorer
type Metrics struct {
	StatesDiscovered atomic.Int64
	TransitionsFound atomic.Int64
	ActionsPerformed atomic.Int64
	FailedActions    atomic.Int64
	CancelledActions atomic.Int64 // Interrupted by the end of the session
}

// MetricsSnapshot is a point-in-time copy of Metrics
type MetricsSnapshot struct {
	StatesDiscovered int64         `json:"states_discovered" msgpack:"states_discovered"`
	TransitionsFound int64         `json:"transitions_found" msgpack:"transitions_found"`
	ActionsPerformed int64         `json:"actions_performed" msgpack:"actions_performed"`
	FailedActions    int64         `json:"failed_actions" msgpack:"failed_actions"`
	CancelledActions int64         `json:"cancelled_actions" msgpack:"cancelled_actions"`
	Elapsed          time.Duration `json:"elapsed" msgpack:"elapsed"`
}

func (m *Metrics) snapshot(start time.Time) MetricsSnapshot {
	return MetricsSnapshot{
		StatesDiscovered: m.StatesDiscovered.Load(),
		TransitionsFound: m.TransitionsFound.Load(),
		ActionsPerformed: m.ActionsPerformed.Load(),
		FailedActions:    m.FailedActions.Load(),
		CancelledActions: m.CancelledActions.Load(),
		Elapsed:          time.Since(start),
	}
}

// Interaction records one executed action
type Interaction struct {
	ID          string                      `json:"id" msgpack:"id"`
	Explorer    int                         `json:"explorer" msgpack:"explorer"`
	FromStateID string                      `json:"from_state_id" msgpack:"from_state_id"`
	ToStateID   string                      `json:"to_state_id,omitempty" msgpack:"to_state_id,omitempty"` // Empty when the action failed
	Action      interfaces.ActionDescriptor `json:"action" msgpack:"action"`
	Success     bool                        `json:"success" msgpack:"success"`
	Cancelled   bool                        `json:"cancelled,omitempty" msgpack:"cancelled,omitempty"` // Cut short by the end of the session
	Error       string                      `json:"error,omitempty" msgpack:"error,omitempty"`
	Duration    time.Duration               `json:"duration" msgpack:"duration"`
	Timestamp   time.Time                   `json:"timestamp" msgpack:"timestamp"`
}

// DiscoveryResult is what a session discovered, complete or partial
type DiscoveryResult struct {
	SessionID       string                   `json:"session_id"`
	Status          SessionStatus            `json:"status"`
	Err             error                    `json:"-"`
	States          []*graph.DiscoveredState `json:"states"`
	Transitions     []*graph.Transition      `json:"transitions"`
	Interactions    []*Interaction           `json:"interactions"`
	InitialStateID  string                   `json:"initial_state_id"`
	Statistics      graph.GraphStatistics    `json:"statistics"`
	Coverage        float64                  `json:"coverage"`
	HitRate         float64                  `json:"hit_rate"` // Share of observations that matched a known state
	Metrics         MetricsSnapshot          `json:"metrics"`
	SerializedGraph []byte                   `json:"-"`
	GraphFormat     string                   `json:"graph_format"`
	StartTime       time.Time                `json:"start_time"`
	EndTime         time.Time                `json:"end_time"`
}

// Complete reports whether the session ended cleanly
func (r *DiscoveryResult) Complete() bool {
	return r.Status == StatusCompleted && r.Err == nil
}
