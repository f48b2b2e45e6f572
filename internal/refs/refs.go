// Package refs models weak-reference-gated ownership for listeners and
// event handlers that opt out of being held strongly. Go has no reference
// counting, so "weak listener" is expressed as: the registry holds a
// weak.Pointer to a caller-owned object, and a handler value that receives
// that object as an explicit argument rather than closing over it --
// keeping the handler itself free of strong ties to the owner.
package refs

import (
	"runtime"
	"weak"
)

// Ref reports whether a weakly-held owner object is still reachable.
type Ref interface {
	Alive() bool
}

// Strong always reports alive; it backs the default keep_ref=true holding.
type Strong struct{}

func (Strong) Alive() bool { return true }

type ownerRef[O any] struct {
	ptr weak.Pointer[O]
}

func (r ownerRef[O]) Alive() bool { return r.ptr.Value() != nil }

// New wraps owner in a weak reference. If onCollected is non-nil, it runs
// once the owner becomes unreachable, mirroring the finalizer-driven prune
// path the store uses to self-prune collected entries instead of waiting
// for the next sweep-on-iteration.
func New[O any](owner *O, onCollected func()) Ref {
	r := ownerRef[O]{ptr: weak.Make(owner)}
	if onCollected != nil {
		runtime.AddCleanup(owner, func(cb func()) { cb() }, onCollected)
	}
	return r
}
