package tracers

import (
	"time"

	"github.com/zircuit-labs/l2-tracecache/internal/duration"
)

const (
	DefaultMaxPermits    = 10
	DefaultCacheDuration = 300 * time.Second
	DefaultMaxTraceCount = 500
)

// Config defines the limits of the tracing service. It is read once at
// startup.
type Config struct {
	MaxPermits             int               `koanf:"max_permits"`               // Concurrent replays allowed.
	CacheDuration          duration.Duration `koanf:"cache_duration"`            // How long unreferenced block traces are kept.
	MaxTraceCount          uint64            `koanf:"max_trace_count"`           // Maximum traces returned by one trace_filter request.
	MaxBlockRange          uint64            `koanf:"max_block_range"`           // Maximum blocks spanned by one trace_filter request, 0 for no limit.
	PondPoolMaxConcurrency int               `koanf:"pond_pool_max_concurrency"` // Worker goroutines, 0 to follow MaxPermits.
}

func DefaultConfig() Config {
	return Config{
		MaxPermits:    DefaultMaxPermits,
		CacheDuration: duration.Duration(DefaultCacheDuration),
		MaxTraceCount: DefaultMaxTraceCount,
	}
}

func (c Config) Permits() int {
	if c.MaxPermits < 1 {
		return DefaultMaxPermits
	}
	return c.MaxPermits
}

func (c Config) Concurrency() int {
	if c.PondPoolMaxConcurrency < 1 {
		return c.Permits()
	}
	return c.PondPoolMaxConcurrency
}

func (c Config) CacheTTL() time.Duration {
	if c.CacheDuration <= 0 {
		return DefaultCacheDuration
	}
	return c.CacheDuration.Std()
}

func (c Config) TraceCountLimit() uint64 {
	if c.MaxTraceCount == 0 {
		return DefaultMaxTraceCount
	}
	return c.MaxTraceCount
}
