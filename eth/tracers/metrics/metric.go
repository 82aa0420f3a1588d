// Package metrics exposes the Prometheus metrics of the tracing service.
// A nil *Collector is valid and records nothing.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	labelResult = "result"
	labelKind   = "kind"
	labelStatus = "status"
	labelMethod = "method"
	labelCode   = "code"

	LookupHit     = "hit"
	LookupPending = "pending"
	LookupMiss    = "miss"

	StatusOK    = "ok"
	StatusError = "error"
)

type Collector struct {
	cacheLookups   *prometheus.CounterVec
	cacheEntries   prometheus.Gauge
	cacheEvictions prometheus.Counter
	replays        *prometheus.CounterVec
	replayLatency  *prometheus.HistogramVec
	permitsInUse   prometheus.Gauge
	eventsDecoded  prometheus.Counter
	requests       *prometheus.CounterVec
	upstreamCalls  *prometheus.CounterVec
	upstreamTime   *prometheus.HistogramVec
}

func NewCollector(prom prometheus.Registerer) (*Collector, error) {
	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracecache_cache_lookups_total",
		Help: "Trace cache lookups by result.",
	}, []string{labelResult})

	cacheEntries := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracecache_cache_entries",
		Help: "Number of blocks held by the trace cache, pending or cached.",
	})

	cacheEvictions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracecache_cache_evictions_total",
		Help: "Number of blocks evicted from the trace cache.",
	})

	replays := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracecache_replays_total",
		Help: "Replays by kind and outcome.",
	}, []string{labelKind, labelStatus})

	replayLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tracecache_replay_latency_seconds",
		Help:    "Latency of replays, permit wait excluded.",
		Buckets: prometheus.DefBuckets,
	}, []string{labelKind})

	permitsInUse := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracecache_permits_in_use",
		Help: "Replay permits currently held.",
	})

	eventsDecoded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracecache_events_total",
		Help: "Replay events received by listeners.",
	})

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracecache_requests_total",
		Help: "Tracing RPC requests by method and outcome.",
	}, []string{labelMethod, labelStatus})

	upstreamCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracecache_upstream_requests_total",
		Help: "HTTP requests sent to the upstream node by status code.",
	}, []string{labelCode})

	upstreamTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tracecache_upstream_latency_seconds",
		Help:    "Latency of HTTP requests sent to the upstream node.",
		Buckets: prometheus.DefBuckets,
	}, []string{labelCode})

	var err error
	if cacheLookups, err = registerCollector(prom, cacheLookups); err != nil {
		return nil, err
	}
	if cacheEntries, err = registerCollector(prom, cacheEntries); err != nil {
		return nil, err
	}
	if cacheEvictions, err = registerCollector(prom, cacheEvictions); err != nil {
		return nil, err
	}
	if replays, err = registerCollector(prom, replays); err != nil {
		return nil, err
	}
	if replayLatency, err = registerCollector(prom, replayLatency); err != nil {
		return nil, err
	}
	if permitsInUse, err = registerCollector(prom, permitsInUse); err != nil {
		return nil, err
	}
	if eventsDecoded, err = registerCollector(prom, eventsDecoded); err != nil {
		return nil, err
	}
	if requests, err = registerCollector(prom, requests); err != nil {
		return nil, err
	}
	if upstreamCalls, err = registerCollector(prom, upstreamCalls); err != nil {
		return nil, err
	}
	if upstreamTime, err = registerCollector(prom, upstreamTime); err != nil {
		return nil, err
	}

	return &Collector{
		cacheLookups:   cacheLookups,
		cacheEntries:   cacheEntries,
		cacheEvictions: cacheEvictions,
		replays:        replays,
		replayLatency:  replayLatency,
		permitsInUse:   permitsInUse,
		eventsDecoded:  eventsDecoded,
		requests:       requests,
		upstreamCalls:  upstreamCalls,
		upstreamTime:   upstreamTime,
	}, nil
}

func (c *Collector) IncCacheLookup(result string) {
	if c == nil {
		return
	}
	c.cacheLookups.With(prometheus.Labels{labelResult: result}).Inc()
}

func (c *Collector) SetCacheEntries(n int) {
	if c == nil {
		return
	}
	c.cacheEntries.Set(float64(n))
}

func (c *Collector) IncEvictions() {
	if c == nil {
		return
	}
	c.cacheEvictions.Inc()
}

// ObserveReplay records the outcome and duration of a replay.
func (c *Collector) ObserveReplay(kind string, err error, startTime time.Time) {
	if c == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	c.replays.With(prometheus.Labels{labelKind: kind, labelStatus: status}).Inc()
	c.replayLatency.With(prometheus.Labels{labelKind: kind}).Observe(time.Since(startTime).Seconds())
}

func (c *Collector) AddPermitsInUse(delta int) {
	if c == nil {
		return
	}
	c.permitsInUse.Add(float64(delta))
}

func (c *Collector) IncEvents() {
	if c == nil {
		return
	}
	c.eventsDecoded.Inc()
}

func (c *Collector) IncRequest(method string, err error) {
	if c == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	c.requests.With(prometheus.Labels{labelMethod: method, labelStatus: status}).Inc()
}

func (c *Collector) ObserveUpstreamLatency(statusCode int, startTime time.Time) {
	if c == nil {
		return
	}
	c.upstreamTime.With(prometheus.Labels{labelCode: strconv.Itoa(statusCode)}).Observe(time.Since(startTime).Seconds())
}

func (c *Collector) IncUpstreamRequest(statusCode int) {
	if c == nil {
		return
	}
	c.upstreamCalls.With(prometheus.Labels{labelCode: strconv.Itoa(statusCode)}).Inc()
}

var ErrWrongMetricType = errors.New("collector already registered with different type")

// registerCollector registers a Prometheus collector and returns the registered collector or an error
func registerCollector[T prometheus.Collector](prom prometheus.Registerer, c T) (T, error) {
	err := prom.Register(c)
	if err == nil {
		return c, nil
	}

	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return c, err
	}

	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return c, ErrWrongMetricType
	}

	return existing, nil
}
