package corestore

import "encoding/json"

// SnapshotAtom is the serialized projection Snapshot returns: whatever the
// configured Serializer produces for the current state.
type SnapshotAtom = json.RawMessage

// Serializer is the external collaborator the store's snapshot façade
// delegates to. The core only reads state, never mutates it, so Snapshot
// is guaranteed to be a pure function of the current state.
type Serializer interface {
	Serialize(state any) (SnapshotAtom, error)
}

// jsonSerializer is the default Serializer, used when a Store is built
// without WithSerializer.
type jsonSerializer struct{}

func (jsonSerializer) Serialize(state any) (SnapshotAtom, error) {
	if state == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(state)
}

// DefaultSerializer returns the store's built-in JSON serializer.
func DefaultSerializer() Serializer { return jsonSerializer{} }

// Snapshot returns a serialized projection of the current state without
// mutating the store. If the store has no state yet, the serializer is
// still invoked with nil, matching plain JSON "null".
func (s *Store) Snapshot() (SnapshotAtom, error) {
	state, _ := s.peekState()
	ser := s.opts.Serializer
	if ser == nil {
		ser = DefaultSerializer()
	}
	return ser.Serialize(state)
}

// WithSerializer overrides the Serializer used by Snapshot.
func WithSerializer(ser Serializer) Option {
	return func(o *StoreOptions) { o.Serializer = ser }
}
