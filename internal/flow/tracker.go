// Package flow owns the session progression engine: the stage state
// machine, the flow event feed, and the orchestrator that drives one
// training run from greeting to completion.
package flow

import (
	"errors"
	"fmt"
	"sync"

	"training-kiosk/internal/domain"
)

// ErrNoActiveSession is returned for stage operations before Start.
var ErrNoActiveSession = errors.New("no active session")

// ErrStaleTransition is returned when a transition does not move the flow
// to the successor of the current stage. Late completion signals from an
// already-left stage surface as this error and are ignored by callers.
var ErrStaleTransition = errors.New("stale stage transition")

// Tracker tracks the single active session and enforces the stage partial
// order: automated transitions only ever move forward, one stage at a time.
type Tracker struct {
	mu        sync.RWMutex
	sessionID int
	current   domain.Stage
}

// NewTracker creates a tracker with no active session.
func NewTracker() *Tracker {
	return &Tracker{current: domain.StageRegistered}
}

// Begin starts tracking a freshly loaded session at the registered stage.
func (t *Tracker) Begin(sessionID int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessionID = sessionID
	t.current = domain.StageRegistered
}

// Advance moves to the given stage. Only the successor of the current
// stage is accepted; anything else, including a repeat of the current
// stage, is a stale transition.
func (t *Tracker) Advance(to domain.Stage) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sessionID == 0 {
		return ErrNoActiveSession
	}

	next, ok := domain.NextStage(t.current)
	if !ok || to != next {
		return fmt.Errorf("%w: %s -> %s", ErrStaleTransition, t.current, to)
	}

	t.current = to
	return nil
}

// Current returns the active session id and stage.
func (t *Tracker) Current() (int, domain.Stage) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sessionID, t.current
}

// Reset clears session tracking so a new run can begin.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessionID = 0
	t.current = domain.StageRegistered
}
