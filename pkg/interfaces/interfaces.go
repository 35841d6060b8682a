/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: interfaces.go
Description: Capability interfaces the exploration core consumes. Concrete substrates
(headless browsers, in-memory sandboxes) implement these; the core never touches a
substrate directly.
*/

package interfaces

import (
	"context"
	"time"
)

// LiveContext is an isolated execution context against the target (a browser tab,
// a sandbox cursor). Each explorer owns exactly one.
type LiveContext interface {
	ID() string
}

// ContextFactory creates and releases isolated execution contexts
type ContextFactory interface {
	NewContext(ctx context.Context, explorer int) (LiveContext, error)
	ReleaseContext(live LiveContext) error
}

// ActionSpaceProvider enumerates candidate actions for the live context
type ActionSpaceProvider interface {
	Enumerate(ctx context.Context, live LiveContext) ([]ActionDescriptor, error)
}

// ActionExecutor performs one action. payload is optional (typed text for inputs).
type ActionExecutor interface {
	Execute(ctx context.Context, live LiveContext, action ActionDescriptor, payload string) (ActionOutcome, error)
}

// ObservationCapturer snapshots the live context
type ObservationCapturer interface {
	Capture(ctx context.Context, live LiveContext) (*Observation, error)
}

// ContextRestorer re-establishes the external context (location, persisted key/values)
// of a previously observed state without replaying actions
type ContextRestorer interface {
	Restore(ctx context.Context, live LiveContext, target *Observation) error
}

// QuiescenceWaiter blocks until the target stops changing or the timeout elapses
type QuiescenceWaiter interface {
	Wait(ctx context.Context, live LiveContext, timeout time.Duration) error
}

// VisualDiffer is the optional pixel-diff capability used by the comparator.
// It returns a similarity in [0,1].
type VisualDiffer interface {
	Similarity(a, b *Observation) (float64, error)
}

// Target bundles every capability the engine needs from a substrate
type Target interface {
	ContextFactory
	ActionSpaceProvider
	ActionExecutor
	ObservationCapturer
	ContextRestorer
	QuiescenceWaiter
}
