package session

import "time"

// Registry holds one Session per live connection. It is not synchronised:
// exactly one goroutine may own it.
type Registry struct {
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add creates the session for a new connection, replacing any stale entry.
func (r *Registry) Add(connID string, now time.Time) *Session {
	s := &Session{ConnID: connID, LastHeardFrom: now}
	r.sessions[connID] = s
	return s
}

func (r *Registry) Get(connID string) (*Session, bool) {
	s, ok := r.sessions[connID]
	return s, ok
}

func (r *Registry) Remove(connID string) (*Session, bool) {
	s, ok := r.sessions[connID]
	if ok {
		delete(r.sessions, connID)
	}
	return s, ok
}

// Connected reports whether every id still has a session.
func (r *Registry) Connected(connIDs ...string) bool {
	for _, id := range connIDs {
		if _, ok := r.sessions[id]; !ok {
			return false
		}
	}
	return true
}

func (r *Registry) Len() int { return len(r.sessions) }

// IDs returns a fresh slice, so callers may remove sessions while walking it.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot copies every session. Slices and maps inside are shared but are
// never mutated after pairing installs them.
func (r *Registry) Snapshot() map[string]Session {
	out := make(map[string]Session, len(r.sessions))
	for id, s := range r.sessions {
		out[id] = *s
	}
	return out
}
