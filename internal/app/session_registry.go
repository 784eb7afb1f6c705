package app

import (
	"sync"
	"time"
)

// SessionRegistry tracks connected MCP client sessions. Multiple sessions can
// be active at once (SSE and Streamable HTTP).
type SessionRegistry struct {
	mu           sync.RWMutex
	lastActivity map[string]time.Time // sessionID → last activity timestamp
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		lastActivity: make(map[string]time.Time),
	}
}

// Register records a new session.
func (r *SessionRegistry) Register(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastActivity[sessionID] = time.Now()
}

// TouchSession records activity for a session (call on each tool invocation).
// Unknown sessions are registered implicitly.
func (r *SessionRegistry) TouchSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastActivity[sessionID] = time.Now()
}

// RemoveSession unregisters a session (e.g. on disconnect).
func (r *SessionRegistry) RemoveSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lastActivity, sessionID)
}

// HasSessions reports whether any session is connected.
func (r *SessionRegistry) HasSessions() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lastActivity) > 0
}

// SessionCount returns the number of connected sessions.
func (r *SessionRegistry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lastActivity)
}

// LastActivity returns the last activity time for a session.
// Returns zero time if the session is unknown.
func (r *SessionRegistry) LastActivity(sessionID string) time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastActivity[sessionID]
}
