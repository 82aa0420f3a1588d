package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/zircuit-labs/zkr-go-common/xerrors/stacktrace"
)

// newRPCHandler serves JSON-RPC over HTTP and, when enabled, upgrades
// websocket requests on the same address.
func newRPCHandler(cfg HTTPConfig, apis []rpc.API) (*rpc.Server, http.Handler, error) {
	srv := rpc.NewServer()
	for _, api := range apis {
		if err := srv.RegisterName(api.Namespace, api.Service); err != nil {
			srv.Stop()
			return nil, nil, stacktrace.Wrap(err)
		}
	}

	var handler http.Handler = cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodGet},
		AllowedHeaders: []string{"*"},
		MaxAge:         600,
	}).Handler(srv)

	if cfg.WSEnabled {
		httpHandler, wsHandler := handler, srv.WebsocketHandler(cfg.CORSOrigins)
		handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isWebsocket(r) {
				wsHandler.ServeHTTP(w, r)
				return
			}
			httpHandler.ServeHTTP(w, r)
		})
	}
	return srv, handler, nil
}

func isWebsocket(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}

func newMetricsHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}

// serve runs srv until ctx is done, then shuts it down.
func serve(ctx context.Context, name string, srv *http.Server, cfg HTTPConfig) error {
	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return stacktrace.Wrap(err)
	}
	log.Info("HTTP server started", "name", name, "addr", listener.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return stacktrace.Wrap(err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout.Std())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown", "name", name, "err", err)
		return stacktrace.Wrap(err)
	}
	log.Info("HTTP server stopped", "name", name)
	return nil
}
