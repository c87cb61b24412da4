package websocket

import (
	"sync"

	"github.com/SARVESHVARADKAR123/messenger/internal/observability"
)

// Registry tracks live sessions per user. A user may hold several at once.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]map[string]*Session),
	}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions[s.UserID] == nil {
		r.sessions[s.UserID] = make(map[string]*Session)
	}
	r.sessions[s.UserID][s.ID] = s
	observability.WebSocketConnectionsActive.Inc()
}

// Remove is safe to call more than once for the same session.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	devices, ok := r.sessions[s.UserID]
	if !ok {
		return
	}
	if _, ok := devices[s.ID]; !ok {
		return
	}
	delete(devices, s.ID)
	if len(devices) == 0 {
		delete(r.sessions, s.UserID)
	}
	observability.WebSocketConnectionsActive.Dec()
}

func (r *Registry) GetUserSessions(userID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Session
	for _, s := range r.sessions[userID] {
		result = append(result, s)
	}
	return result
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, devices := range r.sessions {
		n += len(devices)
	}
	return n
}

// CloseAll closes every session. Their read loops remove them afterwards.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	var all []*Session
	for _, devices := range r.sessions {
		for _, s := range devices {
			all = append(all, s)
		}
	}
	r.mu.RUnlock()

	for _, s := range all {
		s.CloseWithReason(1001, "server shutting down")
	}
}
