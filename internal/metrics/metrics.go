// Package metrics exposes Prometheus counters for the notification engine,
// the reorder resolver and the cache janitor.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the engine, resolver and jobs report to.
type Recorder interface {
	RecordNotifyRun(outcome string)
	RecordDelivery(mode string, ok bool)
	RecordItemsMarked(count int)
	RecordItemsByStatus(counts map[string]int)
	RecordResolve(source string)
	RecordLookupLatency(d time.Duration)
	RecordCachePurged(count int)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	notifyRuns    *prometheus.CounterVec
	deliveries    *prometheus.CounterVec
	itemsMarked   prometheus.Counter
	itemsByStatus *prometheus.GaugeVec
	resolves      *prometheus.CounterVec
	lookupLatency prometheus.Histogram
	cachePurged   prometheus.Counter
}

// NewCollector creates a Collector and registers it on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		notifyRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shelfwatch_notify_runs_total",
			Help: "Notification engine runs by outcome",
		}, []string{"outcome"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shelfwatch_notify_deliveries_total",
			Help: "Notification deliveries by mode and result",
		}, []string{"mode", "result"}),
		itemsMarked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shelfwatch_notify_items_marked_total",
			Help: "Items whose notification marker was advanced",
		}),
		itemsByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "shelfwatch_items",
			Help: "Tracked items by expiry status at the last engine run",
		}, []string{"status"}),
		resolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shelfwatch_reorder_resolves_total",
			Help: "Reorder link resolutions by source",
		}, []string{"source"}),
		lookupLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "shelfwatch_reorder_lookup_latency_seconds",
			Help:    "Remote affiliate lookup latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		cachePurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shelfwatch_affiliate_cache_purged_total",
			Help: "Affiliate cache entries removed by the janitor",
		}),
	}

	reg.MustRegister(
		c.notifyRuns,
		c.deliveries,
		c.itemsMarked,
		c.itemsByStatus,
		c.resolves,
		c.lookupLatency,
		c.cachePurged,
	)

	return c
}

func (c *Collector) RecordNotifyRun(outcome string) {
	c.notifyRuns.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordDelivery(mode string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	c.deliveries.WithLabelValues(mode, result).Inc()
}

func (c *Collector) RecordItemsMarked(count int) {
	c.itemsMarked.Add(float64(count))
}

// RecordItemsByStatus replaces the per-status gauges.
func (c *Collector) RecordItemsByStatus(counts map[string]int) {
	c.itemsByStatus.Reset()
	for status, n := range counts {
		c.itemsByStatus.WithLabelValues(status).Set(float64(n))
	}
}

func (c *Collector) RecordResolve(source string) {
	c.resolves.WithLabelValues(source).Inc()
}

func (c *Collector) RecordLookupLatency(d time.Duration) {
	c.lookupLatency.Observe(d.Seconds())
}

func (c *Collector) RecordCachePurged(count int) {
	c.cachePurged.Add(float64(count))
}

// Handler serves the registry for Prometheus scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything. Used when metrics are not wired (tests).
type Nop struct{}

func (Nop) RecordNotifyRun(string)             {}
func (Nop) RecordDelivery(string, bool)        {}
func (Nop) RecordItemsMarked(int)              {}
func (Nop) RecordItemsByStatus(map[string]int) {}
func (Nop) RecordResolve(string)               {}
func (Nop) RecordLookupLatency(time.Duration)  {}
func (Nop) RecordCachePurged(int)              {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
