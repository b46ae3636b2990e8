// Package metrics exposes the Store's and Evictor's counters through a
// Prometheus registry, served by a small auxiliary HTTP listener separate
// from the RESP TCP listener.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bader"

// Metrics wraps the prometheus collectors BADER exercises.
type Metrics struct {
	registry *prometheus.Registry

	keysTotal      prometheus.Gauge
	storeHits      prometheus.Counter
	storeMisses    prometheus.Counter
	evictorRounds  prometheus.Counter
	evictorExpired prometheus.Counter
	evictorSampled prometheus.Counter
	uptime         prometheus.GaugeFunc
}

var startTime = time.Now()

// New builds a registered Metrics instance.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())

	m := &Metrics{
		registry: registry,

		keysTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "keys_total",
			Help:      "Current number of keys present in the store.",
		}),
		storeHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_hits_total",
			Help:      "Get/Exists calls that found a live entry.",
		}),
		storeMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_misses_total",
			Help:      "Get/Exists calls that found no live entry.",
		}),
		evictorRounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictor_rounds_total",
			Help:      "Inner sample-and-purge rounds run by the evictor.",
		}),
		evictorExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictor_expired_total",
			Help:      "Keys actively expired by the evictor.",
		}),
		evictorSampled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictor_sampled_total",
			Help:      "Keys drawn by the evictor's sampling rounds.",
		}),
	}

	m.uptime = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Time since the process started.",
	}, func() float64 {
		return time.Since(startTime).Seconds()
	})

	registry.MustRegister(
		m.keysTotal,
		m.storeHits,
		m.storeMisses,
		m.evictorRounds,
		m.evictorExpired,
		m.evictorSampled,
		m.uptime,
	)

	return m
}

func (m *Metrics) SetKeysTotal(n int)      { m.keysTotal.Set(float64(n)) }
func (m *Metrics) IncStoreHit()            { m.storeHits.Inc() }
func (m *Metrics) IncStoreMiss()           { m.storeMisses.Inc() }
func (m *Metrics) IncEvictorRound()        { m.evictorRounds.Inc() }
func (m *Metrics) AddEvictorExpired(n int) { m.evictorExpired.Add(float64(n)) }
func (m *Metrics) AddEvictorSampled(n int) { m.evictorSampled.Add(float64(n)) }

// Handler returns the HTTP handler serving the registry in Prometheus
// text exposition format at /metrics.
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return mux
}
