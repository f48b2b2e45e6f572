// Package metrics exposes a prometheus.Collector over a corestore.Store:
// pull-based ConstMetrics generated on scrape from the store's own Stats()
// snapshot, so the hot dispatch/worker path carries no extra
// instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/corestorelabs/corestore"
)

// Collector implements prometheus.Collector for a single Store.
type Collector struct {
	store *corestore.Store

	actionQueueDesc  *prometheus.Desc
	eventQueueDesc   *prometheus.Desc
	listenersDesc    *prometheus.Desc
	handlerTagsDesc  *prometheus.Desc
	poolQueuedDesc   *prometheus.Desc
	poolProcessed    *prometheus.Desc
	poolPanics       *prometheus.Desc
	poolBufferedDesc *prometheus.Desc
}

// New builds a Collector for store. namespace defaults to "corestore" when
// empty, and prefixes every metric name.
func New(store *corestore.Store, namespace string) *Collector {
	if namespace == "" {
		namespace = "corestore"
	}
	return &Collector{
		store:            store,
		actionQueueDesc:  prometheus.NewDesc(namespace+"_action_queue_depth", "Pending actions awaiting the drain loop.", nil, nil),
		eventQueueDesc:   prometheus.NewDesc(namespace+"_event_queue_depth", "Pending events awaiting routing.", nil, nil),
		listenersDesc:    prometheus.NewDesc(namespace+"_listeners", "Currently registered state listeners.", nil, nil),
		handlerTagsDesc:  prometheus.NewDesc(namespace+"_event_handler_tags", "Distinct event tags with at least one handler.", nil, nil),
		poolQueuedDesc:   prometheus.NewDesc(namespace+"_worker_pool_queued_total", "Tasks ever submitted to the worker pool.", nil, nil),
		poolProcessed:    prometheus.NewDesc(namespace+"_worker_pool_processed_total", "Tasks completed by the worker pool.", nil, nil),
		poolPanics:       prometheus.NewDesc(namespace+"_worker_pool_panics_total", "Handler panics contained by the worker pool.", nil, nil),
		poolBufferedDesc: prometheus.NewDesc(namespace+"_worker_pool_buffered", "Tasks currently buffered in the worker pool queue.", nil, nil),
	}
}

// Describe sends every metric descriptor this collector can emit.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.actionQueueDesc
	ch <- c.eventQueueDesc
	ch <- c.listenersDesc
	ch <- c.handlerTagsDesc
	ch <- c.poolQueuedDesc
	ch <- c.poolProcessed
	ch <- c.poolPanics
	ch <- c.poolBufferedDesc
}

// Collect pulls a fresh Stats snapshot from the store and emits it.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.store.Stats()
	ch <- prometheus.MustNewConstMetric(c.actionQueueDesc, prometheus.GaugeValue, float64(s.ActionQueueDepth))
	ch <- prometheus.MustNewConstMetric(c.eventQueueDesc, prometheus.GaugeValue, float64(s.EventQueueDepth))
	ch <- prometheus.MustNewConstMetric(c.listenersDesc, prometheus.GaugeValue, float64(s.ListenerCount))
	ch <- prometheus.MustNewConstMetric(c.handlerTagsDesc, prometheus.GaugeValue, float64(s.EventHandlerTags))
	ch <- prometheus.MustNewConstMetric(c.poolQueuedDesc, prometheus.CounterValue, float64(s.Pool.Queued))
	ch <- prometheus.MustNewConstMetric(c.poolProcessed, prometheus.CounterValue, float64(s.Pool.Processed))
	ch <- prometheus.MustNewConstMetric(c.poolPanics, prometheus.CounterValue, float64(s.Pool.Panics))
	ch <- prometheus.MustNewConstMetric(c.poolBufferedDesc, prometheus.GaugeValue, float64(s.Pool.Buffered))
}

// MustRegister registers c against reg, a thin convenience wrapper around
// reg.MustRegister(c).
func MustRegister(reg prometheus.Registerer, c *Collector) {
	reg.MustRegister(c)
}
