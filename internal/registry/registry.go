// Package registry implements the subscription manager: listeners and
// event handlers held strongly or weakly, with iteration-safe mutation.
// Notifying or enqueueing against a snapshot means un/subscribe and
// GC-driven removal during the same pass are safe.
package registry

import (
	"sync"
	"time"

	"github.com/corestorelabs/corestore/internal/refs"
)

// Entry is one registered handler, strong or weakly gated.
type Entry[H any] struct {
	ID           string
	RegisteredAt time.Time
	Handler      H
	ref          refs.Ref
}

// Alive reports whether this entry's handler should still be invoked.
func (e *Entry[H]) Alive() bool {
	if e.ref == nil {
		return true
	}
	return e.ref.Alive()
}

// Registry is a flat, ordered collection of entries of one handler type.
// It backs both the state-listener list and, keyed externally by event
// tag, the event-handler table.
type Registry[H any] struct {
	mu      sync.Mutex
	entries map[string]*Entry[H]
	order   []string
}

// New returns an empty registry.
func New[H any]() *Registry[H] {
	return &Registry[H]{entries: make(map[string]*Entry[H])}
}

// Add registers handler under id, held strongly unless ref is non-nil.
func (r *Registry[H]) Add(id string, handler H, ref refs.Ref) *Entry[H] {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := &Entry[H]{ID: id, RegisteredAt: time.Now(), Handler: handler, ref: ref}
	r.entries[id] = e
	r.order = append(r.order, id)
	return e
}

// Remove drops id. Idempotent: removing an absent or already-removed id is
// a no-op, matching the store's idempotent-unsubscribe invariant.
func (r *Registry[H]) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(id)
}

func (r *Registry[H]) removeLocked(id string) {
	if _, ok := r.entries[id]; !ok {
		return
	}
	delete(r.entries, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			return
		}
	}
}

// Snapshot returns entries in registration order, pruning any whose weak
// target has been collected since the previous pass. The returned slice is
// safe to range over even if the caller or a finalizer mutates the
// registry concurrently.
func (r *Registry[H]) Snapshot() []*Entry[H] {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Entry[H], 0, len(r.order))
	var dead []string
	for _, id := range r.order {
		e, ok := r.entries[id]
		if !ok {
			continue
		}
		if !e.Alive() {
			dead = append(dead, id)
			continue
		}
		out = append(out, e)
	}
	for _, id := range dead {
		r.removeLocked(id)
	}
	return out
}

// Len reports the current entry count without pruning.
func (r *Registry[H]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Clear removes every entry, used by the Finish clean_up path.
func (r *Registry[H]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]*Entry[H])
	r.order = nil
}

// Keyed is a map of tag to Registry, backing the event-handler table which
// is keyed by event variant tag.
type Keyed[H any] struct {
	mu   sync.Mutex
	byID map[string]*Registry[H]
}

// NewKeyed returns an empty keyed registry.
func NewKeyed[H any]() *Keyed[H] {
	return &Keyed[H]{byID: make(map[string]*Registry[H])}
}

func (k *Keyed[H]) bucket(tag string) *Registry[H] {
	k.mu.Lock()
	defer k.mu.Unlock()
	b, ok := k.byID[tag]
	if !ok {
		b = New[H]()
		k.byID[tag] = b
	}
	return b
}

// Add registers handler under tag/id.
func (k *Keyed[H]) Add(tag, id string, handler H, ref refs.Ref) *Entry[H] {
	return k.bucket(tag).Add(id, handler, ref)
}

// Remove drops id from tag's bucket.
func (k *Keyed[H]) Remove(tag, id string) {
	k.mu.Lock()
	b, ok := k.byID[tag]
	k.mu.Unlock()
	if ok {
		b.Remove(id)
	}
}

// Snapshot returns the entries registered for tag.
func (k *Keyed[H]) Snapshot(tag string) []*Entry[H] {
	k.mu.Lock()
	b, ok := k.byID[tag]
	k.mu.Unlock()
	if !ok {
		return nil
	}
	return b.Snapshot()
}

// Tags returns every tag with at least one registered entry. It does not
// prune: a collected weak entry counts until a Snapshot of its tag removes it.
func (k *Keyed[H]) Tags() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]string, 0, len(k.byID))
	for tag, b := range k.byID {
		if b.Len() > 0 {
			out = append(out, tag)
		}
	}
	return out
}

// Len sums entries across all tags.
func (k *Keyed[H]) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	total := 0
	for _, b := range k.byID {
		total += b.Len()
	}
	return total
}

// Clear removes every tag's bucket.
func (k *Keyed[H]) Clear() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.byID = make(map[string]*Registry[H])
}
