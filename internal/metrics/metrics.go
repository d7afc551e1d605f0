package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters.
type Metrics struct {
	blocksProcessed prometheus.Counter
	noticesDecoded  prometheus.Counter
	urlsDispatched  prometheus.Counter
	nodeFailovers   prometheus.Counter
	errors          prometheus.Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// Init initializes global metrics (idempotent).
func Init() *Metrics {
	once.Do(func() {
		metrics = &Metrics{
			blocksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "podping_blocks_processed_total",
				Help: "Total number of ledger blocks processed",
			}),
			noticesDecoded: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "podping_notices_decoded_total",
				Help: "Total number of podping notices decoded from blocks",
			}),
			urlsDispatched: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "podping_urls_dispatched_total",
				Help: "Total number of feed URLs dispatched to the handler",
			}),
			nodeFailovers: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "podping_node_failovers_total",
				Help: "Total number of RPC node failovers",
			}),
			errors: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "podping_errors_total",
				Help: "Total number of errors encountered",
			}),
		}
		prometheus.MustRegister(
			metrics.blocksProcessed,
			metrics.noticesDecoded,
			metrics.urlsDispatched,
			metrics.nodeFailovers,
			metrics.errors,
		)
	})
	return metrics
}

// BlocksProcessed increments the blocks processed counter.
func (m *Metrics) BlocksProcessed() {
	if m != nil {
		m.blocksProcessed.Inc()
	}
}

// NoticesDecoded adds to the notices decoded counter.
func (m *Metrics) NoticesDecoded(n int) {
	if m != nil && n > 0 {
		m.noticesDecoded.Add(float64(n))
	}
}

// URLsDispatched adds to the URLs dispatched counter.
func (m *Metrics) URLsDispatched(n int) {
	if m != nil && n > 0 {
		m.urlsDispatched.Add(float64(n))
	}
}

// NodeFailovers increments the node failover counter.
func (m *Metrics) NodeFailovers() {
	if m != nil {
		m.nodeFailovers.Inc()
	}
}

// Errors increments the errors counter.
func (m *Metrics) Errors() {
	if m != nil {
		m.errors.Inc()
	}
}

// Handler returns an HTTP handler for /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
