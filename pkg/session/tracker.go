// Package session tracks the current conversation session id.
//
// A Tracker is an explicit value owned by the serving layer and passed to
// whatever appends messages; it is not a package-level singleton. Rotation
// is purely in-memory and never touches the record store; subsequent
// appends simply tag new messages with the new id. Callers that want the
// session to survive a restart persist the id themselves (the serve
// command uses dotdir for this) and seed the tracker with NewTrackerFrom.
package session

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

// Tracker holds the current session id behind a mutex.
type Tracker struct {
	mu      sync.Mutex
	current string
}

// NewTracker creates a tracker with a fresh session already started.
func NewTracker() *Tracker {
	return &Tracker{current: newSessionID()}
}

// NewTrackerFrom creates a tracker resuming the given session id. An empty
// id starts a fresh session.
func NewTrackerFrom(id string) *Tracker {
	if id == "" {
		return NewTracker()
	}
	return &Tracker{current: id}
}

// Current returns the current session id.
func (t *Tracker) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.current
}

// Rotate starts a new session and returns its id.
func (t *Tracker) Rotate() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current = newSessionID()
	return t.current
}

// newSessionID returns a fresh unique id. ULIDs carry the creation time in
// their prefix, so session ids sort by rotation order.
func newSessionID() string {
	return ulid.Make().String()
}
