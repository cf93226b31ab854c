package session

import "sync"

// presenceSet tracks the last pen position and tool of each client in a room.
type presenceSet struct {
	mu        sync.RWMutex
	presences map[string]*PresencePayload // clientID -> presence
}

func newPresenceSet() *presenceSet {
	return &presenceSet{presences: make(map[string]*PresencePayload)}
}

func (ps *presenceSet) update(clientID string, p *PresencePayload) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.presences[clientID] = p
}

func (ps *presenceSet) remove(clientID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	delete(ps.presences, clientID)
}

func (ps *presenceSet) snapshot() PresenceStatePayload {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	out := make(map[string]*PresencePayload, len(ps.presences))
	for k, v := range ps.presences {
		out[k] = v
	}
	return PresenceStatePayload{Presences: out}
}
