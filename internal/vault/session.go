// Package vault ties the crypto core, the session key, and the SQLite
// repositories together into the vault's operation surface.
package vault

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/pwvault/internal/common"
	"github.com/dmitrijs2005/pwvault/internal/cryptox"
)

// Session holds the vault key between unlock and lock. Readers borrow the
// key under a shared guard; Lock takes the exclusive guard, so it cannot
// wipe the key out from under an operation in flight.
//
// An idle timer forces the transition to Locked after a period of no use;
// every successful WithKey call rearms it.
type Session struct {
	mu    sync.RWMutex
	key   *cryptox.Key
	idle  time.Duration
	timer *time.Timer
}

// NewSession returns a locked session. idle <= 0 disables the idle timer.
func NewSession(idle time.Duration) *Session {
	return &Session{idle: idle}
}

// Unlock installs the vault key and starts the idle timer. A key already
// present (re-unlock) is wiped first.
func (s *Session) Unlock(key *cryptox.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		s.key.Wipe()
	}
	s.key = key

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.idle > 0 {
		s.timer = time.AfterFunc(s.idle, s.Lock)
	}
}

// Lock wipes the key's backing storage and returns the session to Locked.
// Safe to call repeatedly; also invoked by the idle timer.
func (s *Session) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.key != nil {
		s.key.Wipe()
		s.key = nil
	}
}

// IsUnlocked reports whether a key is resident.
func (s *Session) IsUnlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key != nil
}

// WithKey lends the key to fn under the shared guard. In Locked state it
// returns common.ErrLocked without calling fn. fn must not retain the key.
func (s *Session) WithKey(fn func(key *cryptox.Key) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil {
		return common.ErrLocked
	}
	if s.timer != nil {
		s.timer.Reset(s.idle)
	}
	return fn(s.key)
}
