package auth

import "sync"

// SessionState tracks the current session for embedded (single-user)
// deployments and notifies listeners on login and logout. It is passed to
// whoever needs it instead of living as ambient global state.
type SessionState struct {
	mu        sync.Mutex
	current   *Session
	nextID    int
	listeners map[int]func(*Session)
}

func NewSessionState() *SessionState {
	return &SessionState{listeners: make(map[int]func(*Session))}
}

// CurrentUser returns the active session, or nil when logged out.
func (s *SessionState) CurrentUser() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SetCurrent replaces the active session (nil means logout) and invokes
// every listener with the new value.
func (s *SessionState) SetCurrent(sess *Session) {
	s.mu.Lock()
	s.current = sess
	listeners := make([]func(*Session), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(sess)
	}
}

// OnChange registers a listener for session changes and returns a cancel
// function that removes it.
func (s *SessionState) OnChange(fn func(*Session)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}
