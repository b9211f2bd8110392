// Package metrics exposes Prometheus instrumentation for the QA pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements the pipeline's metrics surface.
type Collector struct {
	queriesTotal  *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	confidence    prometheus.Histogram
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	ingestChunks  prometheus.Counter
}

// NewCollector registers the pipeline metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		queriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragqa",
			Name:      "queries_total",
			Help:      "Questions answered, labeled by retrieval method.",
		}, []string{"method"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ragqa",
			Name:      "query_duration_seconds",
			Help:      "End to end answer latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method"}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ragqa",
			Name:      "answer_confidence",
			Help:      "Verifier confidence of delivered answers.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ragqa",
			Name:      "cache_hits_total",
			Help:      "Answer cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ragqa",
			Name:      "cache_misses_total",
			Help:      "Answer cache misses.",
		}),
		ingestChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ragqa",
			Name:      "ingested_chunks_total",
			Help:      "Chunks added to the indexes.",
		}),
	}
	reg.MustRegister(
		c.queriesTotal,
		c.queryDuration,
		c.confidence,
		c.cacheHits,
		c.cacheMisses,
		c.ingestChunks,
	)
	return c
}

func (c *Collector) ObserveQuery(method string, seconds float64) {
	c.queriesTotal.WithLabelValues(method).Inc()
	c.queryDuration.WithLabelValues(method).Observe(seconds)
}

func (c *Collector) ObserveConfidence(confidence float64) {
	c.confidence.Observe(confidence)
}

func (c *Collector) CacheHit()  { c.cacheHits.Inc() }
func (c *Collector) CacheMiss() { c.cacheMisses.Inc() }

// ObserveIngest records chunks added during an ingest request.
func (c *Collector) ObserveIngest(chunks int) {
	c.ingestChunks.Add(float64(chunks))
}
