package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// subscriptionTable maps delivery ids to the sessions watching them. Both
// directions of the index are maintained so session teardown clears its
// subscriptions without scanning every delivery.
type subscriptionTable struct {
	mu         sync.RWMutex
	byDelivery map[int64]map[uuid.UUID]struct{}
	bySession  map[uuid.UUID]map[int64]struct{}
}

func newSubscriptionTable() *subscriptionTable {
	return &subscriptionTable{
		byDelivery: make(map[int64]map[uuid.UUID]struct{}),
		bySession:  make(map[uuid.UUID]map[int64]struct{}),
	}
}

// subscribe records the session's interest in a delivery. Repeated calls
// have no additional effect; the return value reports whether the pair was
// newly added.
func (t *subscriptionTable) subscribe(sessionID uuid.UUID, deliveryID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	watchers := t.byDelivery[deliveryID]
	if watchers == nil {
		watchers = make(map[uuid.UUID]struct{})
		t.byDelivery[deliveryID] = watchers
	}
	if _, ok := watchers[sessionID]; ok {
		return false
	}
	watchers[sessionID] = struct{}{}

	watched := t.bySession[sessionID]
	if watched == nil {
		watched = make(map[int64]struct{})
		t.bySession[sessionID] = watched
	}
	watched[deliveryID] = struct{}{}
	return true
}

// unsubscribe removes the pair. No-op if absent; the return value reports
// whether anything was removed.
func (t *subscriptionTable) unsubscribe(sessionID uuid.UUID, deliveryID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	watchers := t.byDelivery[deliveryID]
	if _, ok := watchers[sessionID]; !ok {
		return false
	}
	delete(watchers, sessionID)
	if len(watchers) == 0 {
		delete(t.byDelivery, deliveryID)
	}

	watched := t.bySession[sessionID]
	delete(watched, deliveryID)
	if len(watched) == 0 {
		delete(t.bySession, sessionID)
	}
	return true
}

// subscribersOf returns the ids of sessions watching the delivery.
func (t *subscriptionTable) subscribersOf(deliveryID int64) []uuid.UUID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	watchers := t.byDelivery[deliveryID]
	if len(watchers) == 0 {
		return nil
	}
	out := make([]uuid.UUID, 0, len(watchers))
	for id := range watchers {
		out = append(out, id)
	}
	return out
}

// clear removes every subscription the session holds and reports how many
// went away. Cost is proportional to that session's subscriptions.
func (t *subscriptionTable) clear(sessionID uuid.UUID) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	watched := t.bySession[sessionID]
	for deliveryID := range watched {
		watchers := t.byDelivery[deliveryID]
		delete(watchers, sessionID)
		if len(watchers) == 0 {
			delete(t.byDelivery, deliveryID)
		}
	}
	n := len(watched)
	delete(t.bySession, sessionID)
	return n
}

// length returns the total number of (session, delivery) pairs.
func (t *subscriptionTable) length() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, watched := range t.bySession {
		n += len(watched)
	}
	return n
}
