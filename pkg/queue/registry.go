package queue

import (
	"sync"
)

// SessionRegistry maps guild IDs to their session aggregate with lazy
// creation. The registry lock covers only map insertion and lookup; all
// per-guild state is guarded by the session's own locks so unrelated guilds
// never serialize against each other.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*GuildSession
	build    func(guildID string) *GuildSession
}

// NewSessionRegistry creates a registry that constructs sessions with build
func NewSessionRegistry(build func(guildID string) *GuildSession) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*GuildSession),
		build:    build,
	}
}

// SessionFor returns the guild's session, creating it on first use
func (r *SessionRegistry) SessionFor(guildID string) *GuildSession {
	r.mu.RLock()
	session, exists := r.sessions[guildID]
	r.mu.RUnlock()
	if exists {
		return session
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if session, exists := r.sessions[guildID]; exists {
		return session
	}
	session = r.build(guildID)
	r.sessions[guildID] = session
	return session
}

// Peek returns the guild's session without creating one
func (r *SessionRegistry) Peek(guildID string) (*GuildSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, exists := r.sessions[guildID]
	return session, exists
}

// Remove drops the guild's session from the registry
func (r *SessionRegistry) Remove(guildID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, guildID)
}

// All returns a snapshot of every live session
func (r *SessionRegistry) All() []*GuildSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*GuildSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}
