package gateway

import "sync"

// Hub is the process-wide registry of live sessions, keyed by session ID,
// generalizing the teacher's client.Client.Buckets *sync.Map (one map
// shared across goroutines handling many connections) to this server's
// session-per-connection model.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{sessions: make(map[string]*Session)}
}

// Register adds a session to the hub, making it visible to Get/Range.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.ID] = s
}

// Unregister removes a session from the hub, e.g. when its socket closes.
func (h *Hub) Unregister(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, sessionID)
}

// Get looks up a session by ID, for RESUME handling.
func (h *Hub) Get(sessionID string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[sessionID]
	return s, ok
}

// Count returns the number of currently registered sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
