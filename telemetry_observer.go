package corestore

import (
	"context"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// LifecycleObserver receives a CloudEvent for every dispatch-engine and
// worker-pool transition the store considers notable: dispatch started,
// an action applied, an event routed, a worker started or joined, Finish
// received, clean_up completed. corestore/telemetry provides a concrete
// Subject-backed implementation; any type satisfying this interface can be
// passed to WithTelemetry, so a caller's own observability stack composes
// with the store the same way it would with a CloudEvents-emitting module.
type LifecycleObserver interface {
	ObserveLifecycle(ctx context.Context, event cloudevents.Event) error
}

func emitLifecycle(obs LifecycleObserver, logger Logger, event cloudevents.Event) {
	if obs == nil {
		return
	}
	if err := obs.ObserveLifecycle(context.Background(), event); err != nil && logger != nil {
		logger.Debug("lifecycle observer failed", "eventType", event.Type(), "error", err)
	}
}
