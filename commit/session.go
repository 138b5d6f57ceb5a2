package commit

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// State is the position of a session in its lifecycle.
type State int

const (
	Idle State = iota
	Opened
	Dirty
	Committing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Opened:
		return "opened"
	case Dirty:
		return "dirty"
	case Committing:
		return "committing"
	default:
		return "unknown"
	}
}

// Session tracks one open file handle. Writes mark it dirty; Flush and
// Release commit a dirty session exactly once per dirty period.
type Session struct {
	id     uuid.UUID
	engine *Engine

	mu    sync.Mutex
	path  string
	state State
	kind  Kind
}

// ID identifies the session in logs.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Path is the session's current mount path. It follows renames.
func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// MarkDirty records a byte-level mutation. It is a no-op on a released
// session.
func (s *Session) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Opened {
		s.state = Dirty
	}
}

// Flush commits pending changes and keeps the session open. A failed
// commit leaves the session dirty so a later Flush or Release retries
// with the accumulated content.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(ctx, Opened)
}

// Release commits pending changes and ends the session. Lock order is
// engine before session, so the session lock is dropped before the
// session leaves the engine's registry.
func (s *Session) Release(ctx context.Context) error {
	s.mu.Lock()
	if s.state == Idle {
		s.mu.Unlock()
		return nil
	}
	err := s.commitLocked(ctx, Idle)
	s.state = Idle
	s.mu.Unlock()

	e := s.engine
	e.mu.Lock()
	path := s.Path()
	e.untrack(s, path)
	e.mu.Unlock()

	e.logger.Debug("session released", "session", s.id, "path", path)
	return err
}

func (s *Session) commitLocked(ctx context.Context, next State) error {
	if s.state != Dirty {
		return nil
	}

	s.state = Committing
	_, err := s.engine.commit(ctx, fmt.Sprintf("%s %s", s.kind, s.path), s.path)
	if err != nil {
		s.state = Dirty
		return err
	}

	s.state = next
	s.kind = Edited
	return nil
}
