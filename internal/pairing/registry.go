package pairing

import (
	"fmt"
	"sync"
	"time"
)

// Registry owns the live pairing sessions of this process. The most recently
// created session is "current" for callers that do not name one.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string
	current  string
	now      func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create registers a new session and makes it current.
func (r *Registry) Create(ownerID, accountID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	createdAt := r.now()
	base := fmt.Sprintf("%s_%s_%d", ownerID, accountID, createdAt.UnixMilli())
	id := base
	for n := 2; r.sessions[id] != nil; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}

	s := newSession(id, ownerID, accountID, createdAt)
	r.sessions[id] = s
	r.order = append(r.order, id)
	r.current = id
	return s
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Current returns the most recently created live session, or nil.
func (r *Registry) Current() *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == "" {
		return nil
	}
	return r.sessions[r.current]
}

// Remove drops the session. When it was current, the most recent remaining
// session takes over.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(id)
}

func (r *Registry) removeLocked(id string) bool {
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)

	for i, sid := range r.order {
		if sid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	if r.current == id {
		r.current = ""
		if n := len(r.order); n > 0 {
			r.current = r.order[n-1]
		}
	}
	return true
}

// Sessions returns the live sessions, oldest first.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sessions[id])
	}
	return out
}

func (r *Registry) List() []Summary {
	sessions := r.Sessions()
	out := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Summary())
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// FindByAccount returns the live session bound to the given Account row.
func (r *Registry) FindByAccount(accountID int64) *Session {
	for _, s := range r.Sessions() {
		if bound, ok := s.BoundAccount(); ok && bound == accountID {
			return s
		}
	}
	return nil
}

// RemoveDisconnected drops sessions that reached the disconnected state before
// cutoff and returns them. Their client handles are still open; the caller
// owns them now.
func (r *Registry) RemoveDisconnected(cutoff time.Time) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*Session
	for _, id := range append([]string(nil), r.order...) {
		session := r.sessions[id]
		at, disconnected := session.DisconnectedAt()
		if disconnected && at.Before(cutoff) {
			r.removeLocked(id)
			removed = append(removed, session)
		}
	}
	return removed
}
