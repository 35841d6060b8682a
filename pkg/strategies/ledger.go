/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: ledger.go
Description: Session-wide attempt ledger. Every strategist of a session claims
(state, target) pairs here, so no pair is handed to two explorers.
*/

package strategies

import (
	"sync"
)

// AttemptLedger records which targets were claimed from which state
type AttemptLedger struct {
	mu        sync.Mutex
	attempted map[string]map[string]struct{} // stateID -> targetRef set
	claims    int
}

// NewAttemptLedger creates an empty ledger
func NewAttemptLedger() *AttemptLedger {
	return &AttemptLedger{attempted: make(map[string]map[string]struct{})}
}

// Claim marks targetRef as attempted from stateID. Returns false when the pair
// was already claimed.
func (l *AttemptLedger) Claim(stateID, targetRef string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	set, ok := l.attempted[stateID]
	if !ok {
		set = make(map[string]struct{})
		l.attempted[stateID] = set
	}
	if _, taken := set[targetRef]; taken {
		return false
	}
	set[targetRef] = struct{}{}
	l.claims++
	return true
}

// Attempted reports whether targetRef was already claimed from stateID
func (l *AttemptLedger) Attempted(stateID, targetRef string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.attempted[stateID][targetRef]
	return ok
}

// Count returns the number of claims made
func (l *AttemptLedger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.claims
}
