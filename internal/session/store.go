// Package session holds the operator's bearer credential for the lifetime of
// a login.
package session

import (
	"log/slog"
	"sync"
)

// Store holds at most one bearer token. Components read the token through
// Get; only login/logout flows mutate it. Clearing the token cascades to all
// registered revoke hooks so that open streams are closed and in-flight
// command results are abandoned.
type Store struct {
	mu      sync.RWMutex
	token   string
	onClear []func()
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current token and whether one is present.
func (s *Store) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Set replaces the current token. An empty token is equivalent to Clear.
func (s *Store) Set(token string) {
	if token == "" {
		s.Clear()
		return
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Clear removes the token and runs every revoke hook. Hooks run outside the
// lock; a hook reading the store sees the token already absent.
func (s *Store) Clear() {
	s.mu.Lock()
	cleared := s.token != ""
	s.token = ""
	hooks := make([]func(), len(s.onClear))
	copy(hooks, s.onClear)
	s.mu.Unlock()

	if !cleared {
		return
	}

	slog.Info("session_cleared", "revoke_hooks", len(hooks))
	for _, hook := range hooks {
		hook()
	}
}

// OnClear registers a hook invoked whenever the token transitions from
// present to absent.
func (s *Store) OnClear(hook func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClear = append(s.onClear, hook)
}
