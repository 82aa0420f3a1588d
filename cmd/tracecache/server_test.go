package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoService struct{}

func (echoService) Echo(s string) string { return s }

func TestRPCHandler(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig().HTTP
	cfg.WSEnabled = true
	srv, handler, err := newRPCHandler(cfg, []rpc.API{{Namespace: "test", Service: echoService{}}})
	require.NoError(t, err)
	t.Cleanup(srv.Stop)

	httpServer := httptest.NewServer(handler)
	t.Cleanup(httpServer.Close)

	client, err := rpc.Dial(httpServer.URL)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	var res string
	require.NoError(t, client.Call(&res, "test_echo", "over http"))
	assert.Equal(t, "over http", res)

	wsClient, err := rpc.Dial("ws" + strings.TrimPrefix(httpServer.URL, "http"))
	require.NoError(t, err)
	t.Cleanup(wsClient.Close)

	require.NoError(t, wsClient.Call(&res, "test_echo", "over ws"))
	assert.Equal(t, "over ws", res)
}

func TestIsWebsocket(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		upgrade    string
		connection string
		want       bool
	}{
		{name: "plain", want: false},
		{name: "upgrade", upgrade: "websocket", connection: "Upgrade", want: true},
		{name: "mixed case", upgrade: "WebSocket", connection: "keep-alive, Upgrade", want: true},
		{name: "no connection header", upgrade: "websocket", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.upgrade != "" {
				r.Header.Set("Upgrade", tt.upgrade)
			}
			if tt.connection != "" {
				r.Header.Set("Connection", tt.connection)
			}
			assert.Equal(t, tt.want, isWebsocket(r))
		})
	}
}

func TestMetricsHandler(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "tracecache_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	rec := httptest.NewRecorder()
	newMetricsHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tracecache_test_total 1")
}
