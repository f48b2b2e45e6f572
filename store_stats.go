package corestore

import "github.com/corestorelabs/corestore/internal/workerpool"

// Stats is a point-in-time snapshot of queue depths and worker pool
// counters, used by corestore/metrics and corestore/debughttp.
type Stats struct {
	ActionQueueDepth int
	EventQueueDepth  int
	ListenerCount    int
	EventHandlerTags int
	Pool             workerpool.Stats
}

// Stats returns a snapshot of the store's current queue/pool/registry
// sizes. It is safe to call concurrently with dispatch.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	actionDepth := len(s.actionQueue)
	eventDepth := len(s.eventQueue)
	s.mu.Unlock()
	return Stats{
		ActionQueueDepth: actionDepth,
		EventQueueDepth:  eventDepth,
		ListenerCount:    s.listeners.Len(),
		EventHandlerTags: len(s.eventHandlers.Tags()),
		Pool:             s.pool.Stats(),
	}
}
