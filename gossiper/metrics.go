package gossiper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/morph-dev/portal-state-network-utils/portal"
)

const metricsNamespace = "portal_bridge"

// Metrics counts distributed records per network and result.
type Metrics struct {
	records  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the distribution metrics and registers them with reg
// unless reg is nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_total",
			Help:      "Number of content records handed to the publisher.",
		}, []string{"network", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "publish_duration_seconds",
			Help:      "Time spent publishing a single content record.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"network"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.records, m.duration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observe(network portal.Network, published bool, took time.Duration) {
	if m == nil {
		return
	}
	result := "failed"
	if published {
		result = "published"
	}
	m.records.WithLabelValues(network.String(), result).Inc()
	m.duration.WithLabelValues(network.String()).Observe(took.Seconds())
}
