package bus

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the prometheus collectors updated by a [Bus].
type Metrics struct {
	Published   *prometheus.CounterVec
	Delivered   *prometheus.CounterVec
	Dropped     *prometheus.CounterVec
	Subscribers *prometheus.GaugeVec
}

// NewMetrics creates the bus collectors and registers them with reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nowplaying",
			Subsystem: "bus",
			Name:      "published_total",
			Help:      "Messages published, by kind.",
		}, []string{"kind"}),
		Delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nowplaying",
			Subsystem: "bus",
			Name:      "delivered_total",
			Help:      "Messages enqueued into inboxes, by kind.",
		}, []string{"kind"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nowplaying",
			Subsystem: "bus",
			Name:      "dropped_total",
			Help:      "Messages dropped, by kind and reason.",
		}, []string{"kind", "reason"}),
		Subscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nowplaying",
			Subsystem: "bus",
			Name:      "subscribers",
			Help:      "Registered inboxes, by kind.",
		}, []string{"kind"}),
	}

	if reg != nil {
		reg.MustRegister(m.Published, m.Delivered, m.Dropped, m.Subscribers)
	}
	return m
}

const (
	dropNoSubscribers = "no_subscribers"
	dropInboxFull     = "inbox_full"
)
