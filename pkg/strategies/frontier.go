/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: frontier.go
Description: Frontier of discovered-but-not-fully-explored states. A thread-safe slice
with positional removal so every policy (FIFO, LIFO, scored, random) can pick any entry.
*/

package strategies

import (
	"sync"
	"time"

	"github.com/kleascm/akaylee-explorer/pkg/interfaces"
)

// FrontierEntry is a state waiting to have its actions explored
type FrontierEntry struct {
	StateID     string                  `json:"state_id"`
	Depth       int                     `json:"depth"`       // Distance from the initial state along the discovery path
	Observation *interfaces.Observation `json:"observation"` // Representative observation
	IsError     bool                    `json:"is_error"`
	EnqueuedAt  time.Time               `json:"enqueued_at"`
}

// Actions returns the action space known for the entry
func (e *FrontierEntry) Actions() []interfaces.ActionDescriptor {
	if e == nil || e.Observation == nil {
		return nil
	}
	return e.Observation.Actions
}

// Frontier holds pending entries in insertion order
type Frontier struct {
	mu      sync.RWMutex
	entries []*FrontierEntry

	// Performance tracking
	insertions int64
	removals   int64
	peak       int
	lastAccess time.Time
}

// NewFrontier creates an empty frontier
func NewFrontier() *Frontier {
	return &Frontier{
		entries: make([]*FrontierEntry, 0, 64),
	}
}

// Push appends an entry
func (f *Frontier) Push(entry *FrontierEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if entry.EnqueuedAt.IsZero() {
		entry.EnqueuedAt = time.Now()
	}
	f.entries = append(f.entries, entry)
	f.insertions++
	f.lastAccess = time.Now()
	if len(f.entries) > f.peak {
		f.peak = len(f.entries)
	}
}

// Entries returns a copy of the pending entries in insertion order
func (f *Frontier) Entries() []*FrontierEntry {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]*FrontierEntry, len(f.entries))
	copy(out, f.entries)
	return out
}

// RemoveAt removes and returns the entry at index i, preserving order of the rest
func (f *Frontier) RemoveAt(i int) *FrontierEntry {
	f.mu.Lock()
	defer f.mu.Unlock()

	if i < 0 || i >= len(f.entries) {
		return nil
	}
	entry := f.entries[i]
	f.entries = append(f.entries[:i], f.entries[i+1:]...)
	f.removals++
	f.lastAccess = time.Now()
	return entry
}

// Size returns the number of pending entries
func (f *Frontier) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}

// IsEmpty returns true if nothing is pending
func (f *Frontier) IsEmpty() bool {
	return f.Size() == 0
}

// GetStats returns frontier statistics
func (f *Frontier) GetStats() map[string]interface{} {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return map[string]interface{}{
		"size":        len(f.entries),
		"peak":        f.peak,
		"insertions":  f.insertions,
		"removals":    f.removals,
		"last_access": f.lastAccess,
	}
}
