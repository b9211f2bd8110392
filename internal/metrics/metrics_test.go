package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveQuery("hybrid", 0.5)
	c.ObserveQuery("hybrid", 1.5)
	c.ObserveQuery("multi_hop", 3.0)
	c.CacheHit()
	c.CacheMiss()
	c.CacheMiss()
	c.ObserveIngest(7)

	assert.InDelta(t, 2, testutil.ToFloat64(c.queriesTotal.WithLabelValues("hybrid")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(c.queriesTotal.WithLabelValues("multi_hop")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(c.cacheHits), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(c.cacheMisses), 1e-9)
	assert.InDelta(t, 7, testutil.ToFloat64(c.ingestChunks), 1e-9)
}

func TestCollectorRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)
	assert.Panics(t, func() { NewCollector(reg) })
}
