package tracers

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/zircuit-labs/l2-tracecache/core/replay"
	"github.com/zircuit-labs/l2-tracecache/core/tracing"
	"github.com/zircuit-labs/l2-tracecache/eth/tracers/cache"
	"github.com/zircuit-labs/l2-tracecache/eth/tracers/calltrace"
	"github.com/zircuit-labs/l2-tracecache/eth/tracers/formatter"
	"github.com/zircuit-labs/l2-tracecache/eth/tracers/metrics"
	"github.com/zircuit-labs/l2-tracecache/eth/tracers/pool"
	"github.com/zircuit-labs/l2-tracecache/internal/ethapi"
	"github.com/zircuit-labs/l2-tracecache/internal/tracelog"
)

var ErrGenesisIsNotTraceable = ethapi.NewUnsupportedError("genesis is not traceable")

// Service owns the replay machinery shared by the debug and trace
// namespaces: one permit pool and one block trace cache.
type Service struct {
	config   Config
	source   replay.BlockSource
	executor replay.Executor
	pool     *pool.Pool
	cache    *cache.Cache
	metrics  *metrics.Collector
	logger   log.Logger
}

// NewService wires the pool and the cache. m may be nil.
func NewService(cfg Config, source replay.BlockSource, executor replay.Executor, m *metrics.Collector) *Service {
	s := &Service{
		config:   cfg,
		source:   source,
		executor: executor,
		pool:     pool.New(cfg.Permits(), cfg.Concurrency(), m),
		metrics:  m,
		logger:   tracelog.NewWith("component", "tracers"),
	}
	s.cache = cache.New(s, s.pool, cfg.CacheTTL(), m)
	return s
}

// Start launches the cache loop.
func (s *Service) Start() {
	s.cache.Start()
	s.logger.Info("Tracing service started",
		"backend", s.executor.Kind(),
		"max_permits", s.config.Permits(),
		"cache_duration", s.config.CacheTTL(),
		"max_trace_count", s.config.TraceCountLimit(),
	)
}

// Stop stops the cache, then waits for running replays.
func (s *Service) Stop() {
	s.cache.Stop()
	s.pool.Stop()
	s.logger.Info("Tracing service stopped")
}

// APIs returns the collection of RPC services the tracer package offers.
func (s *Service) APIs() []rpc.API {
	return []rpc.API{
		{
			Namespace: "debug",
			Service:   NewAPI(s),
		},
		{
			Namespace: "trace",
			Service:   NewTraceAPI(s),
		},
	}
}

// ReplayBlock replays every transaction of the block and formats them as
// parity traces. It runs on the worker pool on behalf of the cache.
func (s *Service) ReplayBlock(ctx context.Context, hash common.Hash) ([]*formatter.Trace, error) {
	block, err := s.source.BlockByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	txs, err := s.callLists(ctx, replay.NewBlockRequest(block, nil))
	if err != nil {
		return nil, err
	}
	return formatter.TraceFilter(blockInfo(block), txs)
}

// callLists replays req and collects its call lists. Empty requests are
// not sent to the executor.
func (s *Service) callLists(ctx context.Context, req *replay.Request) ([]*calltrace.TransactionCallList, error) {
	if len(req.Transactions) == 0 {
		return []*calltrace.TransactionCallList{}, nil
	}
	listener := calltrace.NewListener()
	if err := s.replay(ctx, req, listener); err != nil {
		return nil, err
	}
	txs, err := listener.Result()
	if err != nil {
		return nil, ethapi.NewExecutionFailedError(err)
	}
	return txs, nil
}

func (s *Service) replay(ctx context.Context, req *replay.Request, sink tracing.Sink) error {
	start := time.Now()
	counted := tracing.NewMuxSink(sink, tracing.SinkFunc(func([]byte) error {
		s.metrics.IncEvents()
		return nil
	}))
	err := replayError(s.executor.Replay(ctx, req, counted))
	s.metrics.ObserveReplay(string(s.executor.Kind()), err, start)
	if err != nil {
		s.logger.Debug("Replay failed", "block", req.Block.Number, "hash", req.Block.Hash, "err", err)
	}
	return err
}

// replayError keeps typed errors and cancellations, anything else is a
// failed execution.
func replayError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case ethapi.KindOf(err) != ethapi.KindUnknown:
		return err
	}
	return ethapi.NewExecutionFailedError(err)
}

func blockInfo(block *replay.Block) formatter.BlockInfo {
	return formatter.BlockInfo{
		Hash:         block.Hash,
		Number:       block.Number,
		Transactions: block.Transactions,
	}
}

// transactionBlock locates a mined transaction and loads its block.
func (s *Service) transactionBlock(ctx context.Context, hash common.Hash) (*replay.Block, uint64, error) {
	loc, err := s.source.TransactionLocation(ctx, hash)
	if err != nil {
		return nil, 0, err
	}
	if loc.BlockNumber == 0 {
		return nil, 0, ErrGenesisIsNotTraceable
	}
	block, err := s.source.BlockByHash(ctx, loc.BlockHash)
	if err != nil {
		return nil, 0, err
	}
	return block, loc.Index, nil
}

// blockByNumber resolves tags before loading the block.
func (s *Service) blockByNumber(ctx context.Context, number rpc.BlockNumber) (*replay.Block, error) {
	height, err := s.source.ResolveNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return s.source.BlockByNumber(ctx, height)
}
