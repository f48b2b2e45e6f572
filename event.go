package corestore

// Event is a tagged value representing a side-effect request. Events carry
// data but never mutate state directly; EventType identifies the variant
// tag that the handler registry keys on, the same way CloudEvents key
// notifications by their "type" attribute.
type Event interface {
	EventType() string
}

const finishEventType = "corestore.finish"

// EventTypeOf is a small helper mirroring the CloudEvents naming convention:
// reverse-domain-ish, stable strings make good registry keys and good
// telemetry attributes.
func EventTypeOf(e Event) string {
	if e == nil {
		return ""
	}
	return e.EventType()
}
