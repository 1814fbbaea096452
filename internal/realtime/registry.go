package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/avelichko/couriertrack/internal/model"
)

// registry tracks live sessions by id and by user. A user may hold any
// number of concurrent sessions (laptop and phone at once); fan-out targets
// all of them.
type registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*session
	byUser   map[int64]map[uuid.UUID]*session
}

func newRegistry() *registry {
	return &registry{
		sessions: make(map[uuid.UUID]*session),
		byUser:   make(map[int64]map[uuid.UUID]*session),
	}
}

// register adds the session under its id and user.
func (r *registry) register(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.id] = s
	userSessions := r.byUser[s.identity.UserID]
	if userSessions == nil {
		userSessions = make(map[uuid.UUID]*session)
		r.byUser[s.identity.UserID] = userSessions
	}
	userSessions[s.id] = s
}

// unregister removes the session and reports how many sessions its user
// still holds. Calling it for an absent id is a no-op reporting the user's
// current count.
func (r *registry) unregister(s *session) (remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, s.id)
	userSessions := r.byUser[s.identity.UserID]
	if userSessions != nil {
		delete(userSessions, s.id)
		if len(userSessions) == 0 {
			delete(r.byUser, s.identity.UserID)
		}
	}
	return len(userSessions)
}

// sessionsForUser returns the user's live sessions.
func (r *registry) sessionsForUser(userID int64) []*session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userSessions := r.byUser[userID]
	if len(userSessions) == 0 {
		return nil
	}
	out := make([]*session, 0, len(userSessions))
	for _, s := range userSessions {
		out = append(out, s)
	}
	return out
}

// sessionsForRole returns every live session whose user holds the role.
func (r *registry) sessionsForRole(role model.Role) []*session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*session
	for _, s := range r.sessions {
		if s.identity.Role == role {
			out = append(out, s)
		}
	}
	return out
}

// snapshot returns all live sessions.
func (r *registry) snapshot() []*session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// get returns the session with the given id, if live.
func (r *registry) get(id uuid.UUID) (*session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// length returns the number of live sessions.
func (r *registry) length() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
