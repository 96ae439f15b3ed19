package events

import "sync"

// Registry maps in-flight audit IDs to their live channels. An entry
// exists only while the audit is running; the orchestrator removes it
// unconditionally once the audit reaches a terminal state, so a late
// lookup observes "no active channel" rather than a stale stream.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]*Channel
}

func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]*Channel)}
}

// Create registers and returns a fresh channel for id, replacing any
// previous entry.
func (r *Registry) Create(id string) *Channel {
	ch := NewChannel()
	r.mu.Lock()
	r.channels[id] = ch
	r.mu.Unlock()
	return ch
}

// Get returns the live channel for id, if the audit is still running.
func (r *Registry) Get(id string) (*Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[id]
	return ch, ok
}

// Remove drops the entry for id and closes the channel if it is still
// open. Safe to call for IDs that were never registered.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	ch, ok := r.channels[id]
	delete(r.channels, id)
	r.mu.Unlock()
	if ok {
		ch.Close()
	}
}

// Len reports the number of in-flight audits.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}
