// Package metrics provides Prometheus metrics for the relay core.
//
// Grounded on services/bifrost/internal/metrics/collector.go's
// GaugeVec/CounterVec/HistogramVec shape, relabelled for tenants and
// connectors instead of virtual clusters and Kafka API keys.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds Prometheus metrics for the relay core.
type Collector struct {
	connectorsActive  *prometheus.GaugeVec
	waitersActive     *prometheus.GaugeVec
	dispatchTotal     *prometheus.CounterVec
	dispatchDuration  *prometheus.HistogramVec
	acknowledgeTotal  *prometheus.CounterVec
	bodyStoreBytes    *prometheus.CounterVec
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		connectorsActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "orbit_relay_connectors_active",
				Help: "Number of connectors currently subscribed, per tenant",
			},
			[]string{"tenant"},
		),
		waitersActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "orbit_relay_response_waiters_active",
				Help: "Number of HTTP requests currently blocked awaiting a connector response",
			},
			[]string{"tenant"},
		),
		dispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orbit_relay_dispatch_total",
				Help: "Total requests dispatched to a connector, by outcome",
			},
			[]string{"tenant", "outcome"},
		),
		dispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orbit_relay_dispatch_duration_seconds",
				Help:    "End-to-end ingress request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tenant", "outcome"},
		),
		acknowledgeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orbit_relay_acknowledge_total",
				Help: "Total acknowledgements processed",
			},
			[]string{"tenant"},
		),
		bodyStoreBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orbit_relay_body_store_bytes_total",
				Help: "Total bytes staged through the body store",
			},
			[]string{"direction"},
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.connectorsActive.Describe(ch)
	c.waitersActive.Describe(ch)
	c.dispatchTotal.Describe(ch)
	c.dispatchDuration.Describe(ch)
	c.acknowledgeTotal.Describe(ch)
	c.bodyStoreBytes.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.connectorsActive.Collect(ch)
	c.waitersActive.Collect(ch)
	c.dispatchTotal.Collect(ch)
	c.dispatchDuration.Collect(ch)
	c.acknowledgeTotal.Collect(ch)
	c.bodyStoreBytes.Collect(ch)
}

// RecordConnector adjusts the active-connector gauge for tenant by delta
// (+1 on subscribe, -1 on drop).
func (c *Collector) RecordConnector(tenant string, delta float64) {
	c.connectorsActive.WithLabelValues(tenant).Add(delta)
}

// RecordWaiter adjusts the active-waiter gauge for tenant by delta.
func (c *Collector) RecordWaiter(tenant string, delta float64) {
	c.waitersActive.WithLabelValues(tenant).Add(delta)
}

// ObserveDispatch implements ingress.Metrics.
func (c *Collector) ObserveDispatch(tenantId string, outcome string, elapsed time.Duration) {
	c.dispatchTotal.WithLabelValues(tenantId, outcome).Inc()
	c.dispatchDuration.WithLabelValues(tenantId, outcome).Observe(elapsed.Seconds())
}

// RecordAcknowledge increments the acknowledge counter for tenant.
func (c *Collector) RecordAcknowledge(tenant string) {
	c.acknowledgeTotal.WithLabelValues(tenant).Inc()
}

// RecordBodyStoreBytes records bytes staged through the body store in the
// given direction ("request" or "response").
func (c *Collector) RecordBodyStoreBytes(direction string, bytes int64) {
	c.bodyStoreBytes.WithLabelValues(direction).Add(float64(bytes))
}
