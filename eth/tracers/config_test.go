package tracers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zircuit-labs/l2-tracecache/internal/duration"
)

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		cfg             Config
		wantPermits     int
		wantConcurrency int
		wantTTL         time.Duration
		wantCount       uint64
	}{
		{name: "zero value", cfg: Config{}, wantPermits: 10, wantConcurrency: 10, wantTTL: 300 * time.Second, wantCount: 500},
		{name: "defaults", cfg: DefaultConfig(), wantPermits: 10, wantConcurrency: 10, wantTTL: 300 * time.Second, wantCount: 500},
		{
			name:            "explicit",
			cfg:             Config{MaxPermits: 4, PondPoolMaxConcurrency: 2, CacheDuration: duration.Seconds(30), MaxTraceCount: 50},
			wantPermits:     4,
			wantConcurrency: 2,
			wantTTL:         30 * time.Second,
			wantCount:       50,
		},
		{name: "concurrency follows permits", cfg: Config{MaxPermits: 3}, wantPermits: 3, wantConcurrency: 3, wantTTL: 300 * time.Second, wantCount: 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantPermits, tt.cfg.Permits())
			assert.Equal(t, tt.wantConcurrency, tt.cfg.Concurrency())
			assert.Equal(t, tt.wantTTL, tt.cfg.CacheTTL())
			assert.Equal(t, tt.wantCount, tt.cfg.TraceCountLimit())
		})
	}
}
