package corestore

import (
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// Lifecycle event type constants, reverse-domain-named per CloudEvents
// convention.
const (
	lifecycleDispatchStarted = "com.corestore.dispatch.started"
	lifecycleDispatchDrained = "com.corestore.dispatch.drained"
	lifecycleActionApplied   = "com.corestore.action.applied"
	lifecycleEventRouted     = "com.corestore.event.routed"
	lifecycleWorkerStarted   = "com.corestore.worker.started"
	lifecycleWorkerJoined    = "com.corestore.worker.joined"
	lifecycleHandlerPanic    = "com.corestore.handler.panicked"
	lifecycleFinishReceived  = "com.corestore.finish.received"
	lifecycleCleanupDone     = "com.corestore.cleanup.completed"
)

const lifecycleSource = "corestore"

func newLifecycleEvent(storeID, eventType string, data map[string]any) cloudevents.Event {
	evt := cloudevents.NewEvent()
	evt.SetID(uuid.New().String())
	evt.SetSource(lifecycleSource + "/" + storeID)
	evt.SetType(eventType)
	evt.SetTime(time.Now())
	evt.SetSpecVersion(cloudevents.VersionV1)
	if data != nil {
		_ = evt.SetData(cloudevents.ApplicationJSON, data)
	}
	return evt
}
