package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTransportRecordsStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/busy" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	c, err := NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)
	client := &http.Client{Transport: NewHTTPTransport(nil, c)}

	for _, path := range []string{"/", "/", "/busy"} {
		resp, err := client.Get(server.URL + path)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
	}

	assert.InDelta(t, 2, testutil.ToFloat64(c.upstreamCalls.WithLabelValues("200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.upstreamCalls.WithLabelValues("429")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(c.upstreamTime))
}

func TestHTTPTransportSkipsFailedRequests(t *testing.T) {
	t.Parallel()

	c, err := NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	failing := promhttp.RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	req, err := http.NewRequest(http.MethodPost, "http://node.invalid", nil)
	require.NoError(t, err)

	_, err = NewHTTPTransport(failing, c).RoundTrip(req)
	require.Error(t, err)
	assert.Equal(t, 0, testutil.CollectAndCount(c.upstreamCalls))
}
