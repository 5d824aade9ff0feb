package server

import "sync"

// Registry maps user ids to their live identified sessions. A user may
// hold several connections at once (multiple tabs or devices); when the
// last one goes away the user's entry is removed entirely so disconnected
// users cost no memory. Nothing here is persisted: a process restart loses
// all registry state and clients re-identify after reconnecting.
type Registry struct {
	mu    sync.RWMutex
	users map[int64]map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[int64]map[string]*Session)}
}

func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.users[s.userID] == nil {
		r.users[s.userID] = make(map[string]*Session)
	}
	r.users[s.userID][s.clientID] = s
}

// Unregister removes the session. It reports whether the user still has
// other live connections, so callers can flip presence on the last one.
func (r *Registry) Unregister(s *Session) (remaining bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, ok := r.users[s.userID]
	if !ok {
		return false
	}
	delete(sessions, s.clientID)
	if len(sessions) == 0 {
		delete(r.users, s.userID)
		return false
	}
	return true
}

// ConnectionsFor returns a snapshot of the user's live sessions. The
// snapshot is taken under the read lock; writes to the sessions happen
// outside it.
func (r *Registry) ConnectionsFor(userID int64) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := r.users[userID]
	if len(sessions) == 0 {
		return nil
	}
	out := make([]*Session, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s)
	}
	return out
}

// Clear drops every tracked session and closes them. Called on shutdown.
func (r *Registry) Clear() {
	r.mu.Lock()
	all := make([]*Session, 0)
	for _, sessions := range r.users {
		for _, s := range sessions {
			all = append(all, s)
		}
	}
	r.users = make(map[int64]map[string]*Session)
	r.mu.Unlock()

	for _, s := range all {
		s.closeOnce()
	}
}

// Len reports the number of users with at least one live session.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
