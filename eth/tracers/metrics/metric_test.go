package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecords(t *testing.T) {
	t.Parallel()

	c, err := NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	c.IncCacheLookup(LookupHit)
	c.IncCacheLookup(LookupHit)
	c.IncCacheLookup(LookupMiss)
	c.SetCacheEntries(3)
	c.IncEvictions()
	c.ObserveReplay("block", nil, time.Now())
	c.ObserveReplay("block", errors.New("boom"), time.Now())
	c.AddPermitsInUse(2)
	c.AddPermitsInUse(-1)
	c.IncEvents()
	c.IncRequest("trace_filter", nil)

	assert.InDelta(t, 2, testutil.ToFloat64(c.cacheLookups.WithLabelValues(LookupHit)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.cacheLookups.WithLabelValues(LookupMiss)), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(c.cacheEntries), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.cacheEvictions), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.replays.WithLabelValues("block", StatusOK)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.replays.WithLabelValues("block", StatusError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.permitsInUse), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.eventsDecoded), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.requests.WithLabelValues("trace_filter", StatusOK)), 0)
}

func TestCollectorReusesRegisteredMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	require.NoError(t, err)
	second, err := NewCollector(reg)
	require.NoError(t, err)

	first.IncEvictions()
	assert.InDelta(t, 1, testutil.ToFloat64(second.cacheEvictions), 0)
}

func TestNilCollectorIsNoop(t *testing.T) {
	t.Parallel()

	var c *Collector
	assert.NotPanics(t, func() {
		c.IncCacheLookup(LookupPending)
		c.SetCacheEntries(1)
		c.IncEvictions()
		c.ObserveReplay("transaction", nil, time.Now())
		c.AddPermitsInUse(1)
		c.IncEvents()
		c.IncRequest("debug_traceTransaction", nil)
	})
}
