package metrics

import (
	"time"

	"nyassess/internal/cache"

	"github.com/prometheus/client_golang/prometheus"
)

// Adapter implements cache.Metrics and exports Prometheus counters and a
// load-duration histogram, all labelled by cache key.
type Adapter struct {
	hits      *prometheus.CounterVec
	misses    *prometheus.CounterVec
	coalesced *prometheus.CounterVec
	loads     *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// New constructs the adapter and registers its collectors with reg
// (nil => prometheus.DefaultRegisterer).
func New(reg prometheus.Registerer, ns, sub string) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	keyed := []string{"key"}
	a := &Adapter{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "hits_total",
			Help:      "Requests served from a fresh cache entry",
		}, keyed),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "misses_total",
			Help:      "Requests that started a load",
		}, keyed),
		coalesced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "coalesced_total",
			Help:      "Requests that joined an in-flight load",
		}, keyed),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "loads_total",
			Help:      "Completed loads by outcome",
		}, []string{"key", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "load_duration_seconds",
			Help:      "Time spent building a payload",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, keyed),
	}
	reg.MustRegister(a.hits, a.misses, a.coalesced, a.loads, a.duration)
	return a
}

func (a *Adapter) Hit(key string)       { a.hits.WithLabelValues(key).Inc() }
func (a *Adapter) Miss(key string)      { a.misses.WithLabelValues(key).Inc() }
func (a *Adapter) Coalesced(key string) { a.coalesced.WithLabelValues(key).Inc() }

// Loaded records the outcome and duration of a finished load.
func (a *Adapter) Loaded(key string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	a.loads.WithLabelValues(key, outcome).Inc()
	a.duration.WithLabelValues(key).Observe(d.Seconds())
}

var _ cache.Metrics = (*Adapter)(nil)
