package tracers

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/zircuit-labs/l2-tracecache/core/replay"
	"github.com/zircuit-labs/l2-tracecache/eth/tracers/formatter"
	"github.com/zircuit-labs/l2-tracecache/internal/ethapi"
)

var (
	errReplayTransactionUnsupported       = ethapi.NewUnsupportedError("current backend does not support replay_transaction")
	errReplayBlockTransactionsUnsupported = ethapi.NewUnsupportedError("current backend does not support replay_block_transactions")
	errNoBlockReference                   = ethapi.NewInvalidParamsError("invalid arguments; neither block number nor hash specified")
)

// TraceAPI serves the parity style trace namespace.
type TraceAPI struct {
	service *Service
}

func NewTraceAPI(service *Service) *TraceAPI {
	return &TraceAPI{service: service}
}

// Block returns the traces of every transaction of a block. Results are
// shared with trace_filter through the cache.
func (api *TraceAPI) Block(ctx context.Context, blockNrOrHash rpc.BlockNumberOrHash) (traces []*formatter.Trace, err error) {
	defer func() { api.service.metrics.IncRequest("trace_block", err) }()

	hash, ok := blockNrOrHash.Hash()
	if !ok {
		number, ok := blockNrOrHash.Number()
		if !ok {
			return nil, errNoBlockReference
		}
		block, err := api.service.blockByNumber(ctx, number)
		if err != nil {
			return nil, err
		}
		hash = block.Hash
	}
	return api.service.cache.GetTraces(ctx, hash)
}

// Transaction returns the traces of a single transaction. Only the block
// prefix up to the transaction is replayed.
func (api *TraceAPI) Transaction(ctx context.Context, hash common.Hash) (traces []*formatter.Trace, err error) {
	defer func() { api.service.metrics.IncRequest("trace_transaction", err) }()

	block, index, err := api.service.transactionBlock(ctx, hash)
	if err != nil {
		return nil, err
	}
	req, err := replay.NewTransactionRequest(block, index, nil)
	if err != nil {
		return nil, ethapi.NewInternalError("transaction location out of block range", err)
	}

	err = api.service.pool.Run(ctx, func(ctx context.Context) error {
		txs, err := api.service.callLists(ctx, req)
		if err != nil {
			return err
		}
		traces, err = formatter.TraceFilter(blockInfo(block), txs)
		return err
	})
	return traces, err
}

// ReplayTransaction is not available: replays only produce call traces.
func (api *TraceAPI) ReplayTransaction(ctx context.Context, hash common.Hash, traceTypes []string) (any, error) {
	api.service.metrics.IncRequest("trace_replayTransaction", errReplayTransactionUnsupported)
	return nil, errReplayTransactionUnsupported
}

// ReplayBlockTransactions is not available: replays only produce call traces.
func (api *TraceAPI) ReplayBlockTransactions(ctx context.Context, blockNrOrHash rpc.BlockNumberOrHash, traceTypes []string) (any, error) {
	api.service.metrics.IncRequest("trace_replayBlockTransactions", errReplayBlockTransactionsUnsupported)
	return nil, errReplayBlockTransactionsUnsupported
}
