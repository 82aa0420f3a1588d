// Command tracecache serves debug_* and trace_* tracing methods from
// replays against an upstream execution node.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"

	"github.com/zircuit-labs/l2-tracecache/core/replay"
	"github.com/zircuit-labs/l2-tracecache/core/txindex"
	"github.com/zircuit-labs/l2-tracecache/eth/tracers"
	"github.com/zircuit-labs/l2-tracecache/eth/tracers/metrics"
	"github.com/zircuit-labs/l2-tracecache/internal/ratelimiter"
	"github.com/zircuit-labs/l2-tracecache/internal/tracelog"
	"github.com/zircuit-labs/l2-tracecache/internal/version"
	"github.com/zircuit-labs/l2-tracecache/params"
)

const clientIdentifier = "tracecache"

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "TOML or YAML configuration file",
		EnvVars: []string{"TRACECACHE_CONFIG"},
	}
	httpAddrFlag = &cli.StringFlag{
		Name:  "http.addr",
		Usage: "JSON-RPC listening address",
	}
	upstreamURLFlag = &cli.StringFlag{
		Name:  "upstream.url",
		Usage: "URL of the upstream execution node",
	}
	upstreamKindFlag = &cli.StringFlag{
		Name:  "upstream.kind",
		Usage: "Tracing dialect of the upstream node (geth, parity)",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log.level",
		Usage: "Log level (trace, debug, info, warn, error, crit)",
	}

	overrideFlags = []*cli.StringFlag{httpAddrFlag, upstreamURLFlag, upstreamKindFlag, logLevelFlag}
)

func main() {
	app := &cli.App{
		Name:    clientIdentifier,
		Usage:   "trace cache and replay service",
		Version: params.VersionWithMeta,
		Flags:   []cli.Flag{configFlag, httpAddrFlag, upstreamURLFlag, upstreamKindFlag, logLevelFlag},
		Action:  run,
		Commands: []*cli.Command{
			{
				Name:   "version",
				Usage:  "Print version numbers",
				Action: printVersion,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printVersion(*cli.Context) error {
	v, vcs := version.Info()
	fmt.Println(v)
	if vcs != "" {
		fmt.Println("Git Commit:", vcs)
	}
	return nil
}

func loadConfig(ctx *cli.Context) (Config, error) {
	overrides := make(map[string]any)
	for _, flag := range overrideFlags {
		if ctx.IsSet(flag.Name) {
			overrides[flag.Name] = ctx.String(flag.Name)
		}
	}
	return LoadConfig(ctx.String(configFlag.Name), os.Environ(), overrides)
}

func run(cliCtx *cli.Context) error {
	cfg, err := loadConfig(cliCtx)
	if err != nil {
		return err
	}

	logCloser, err := tracelog.Setup(cfg.Log)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		log.Debug(fmt.Sprintf(format, args...))
	})); err != nil {
		log.Warn("Failed to set GOMAXPROCS", "err", err)
	}

	ctx, stop := signal.NotifyContext(cliCtx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return err
	}

	client, err := rpc.DialOptions(ctx, cfg.Upstream.URL,
		rpc.WithHeader("User-Agent", version.ClientName(clientIdentifier)),
		rpc.WithHTTPClient(&http.Client{Transport: metrics.NewHTTPTransport(nil, collector)}),
	)
	if err != nil {
		return fmt.Errorf("dial upstream %s: %w", cfg.Upstream.URL, err)
	}
	defer client.Close()

	limiter := ratelimiter.NewManager().GetRateLimiter(cfg.Upstream.RateLimit)
	executor, err := replay.NewExecutor(cfg.Upstream, client, limiter)
	if err != nil {
		return err
	}

	store, err := txindex.NewStorage(ctx, cfg.TxIndex)
	if err != nil {
		return err
	}
	defer store.Close()

	source := replay.NewRPCSource(client, store, limiter, cfg.Upstream.BlockCacheBytes)

	service := tracers.NewService(cfg.Tracers, source, executor, collector)
	service.Start()
	defer service.Stop()

	rpcServer, handler, err := newRPCHandler(cfg.HTTP, service.APIs())
	if err != nil {
		return err
	}
	defer rpcServer.Stop()

	log.Info("Starting trace cache",
		"version", params.VersionWithMeta,
		"upstream", cfg.Upstream.URL,
		"kind", executor.Kind(),
		"permits", cfg.Tracers.Permits(),
		"cache_ttl", cfg.Tracers.CacheTTL(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serve(gctx, "rpc", &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           handler,
			ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout.Std(),
		}, cfg.HTTP)
	})
	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return serve(gctx, "metrics", &http.Server{
				Addr:              cfg.Metrics.Addr,
				Handler:           newMetricsHandler(reg),
				ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout.Std(),
			}, cfg.HTTP)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Trace cache stopped")
	return nil
}
