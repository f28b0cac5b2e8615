package ws

import "sync"

// Hub tracks active sessions per user. It exists for presence bookkeeping
// and metrics; message delivery itself flows through each session's own
// store subscriptions, never through the hub.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Session]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{sessions: make(map[string]map[*Session]struct{})}
}

// Register adds a session for its user.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s.userID]; !ok {
		h.sessions[s.userID] = make(map[*Session]struct{})
	}
	h.sessions[s.userID][s] = struct{}{}
}

// Unregister removes a session.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sessions, ok := h.sessions[s.userID]; ok {
		delete(sessions, s)
		if len(sessions) == 0 {
			delete(h.sessions, s.userID)
		}
	}
}

// SessionCount reports how many sessions a user currently has.
func (h *Hub) SessionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}
