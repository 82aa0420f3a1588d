package tracers

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zircuit-labs/l2-tracecache/internal/ethapi"
)

func TestTraceBlockUsesCache(t *testing.T) {
	t.Parallel()

	chain := newTestChain(3)
	api := NewTraceAPI(newTestService(t, DefaultConfig(), chain))
	ctx := context.Background()
	block := chain.blocks[1]

	byNumber, err := api.Block(ctx, rpc.BlockNumberOrHashWithNumber(1))
	require.NoError(t, err)
	require.Len(t, byNumber, 3)
	assert.Equal(t, block.Hash, byNumber[0].BlockHash)
	assert.Equal(t, block.Transactions[0], byNumber[0].TransactionHash)

	byHash, err := api.Block(ctx, rpc.BlockNumberOrHashWithHash(block.Hash, false))
	require.NoError(t, err)
	assert.Equal(t, byNumber, byHash)
	assert.Equal(t, 1, chain.replayCount(block.Hash))
}

func TestTraceBlockCachesFailures(t *testing.T) {
	t.Parallel()

	chain := newTestChain(1)
	chain.fail = errors.New("boom")
	api := NewTraceAPI(newTestService(t, DefaultConfig(), chain))
	ctx := context.Background()
	ref := rpc.BlockNumberOrHashWithHash(chain.blocks[1].Hash, false)

	for range 2 {
		_, err := api.Block(ctx, ref)
		assert.Equal(t, ethapi.KindExecutionFailed, ethapi.KindOf(err))
	}
	assert.Equal(t, 1, chain.replayCount(chain.blocks[1].Hash))
}

func TestTraceTransaction(t *testing.T) {
	t.Parallel()

	chain := newTestChain(1, 2)
	api := NewTraceAPI(newTestService(t, DefaultConfig(), chain))
	block := chain.blocks[2]

	traces, err := api.Transaction(context.Background(), block.Transactions[0])
	require.NoError(t, err)
	require.Len(t, traces, 2)
	for _, trace := range traces {
		assert.Equal(t, block.Transactions[0], trace.TransactionHash)
		assert.Equal(t, uint64(0), trace.TransactionPosition)
		assert.Equal(t, uint64(2), trace.BlockNumber)
	}
}

func TestReplayMethodsUnsupported(t *testing.T) {
	t.Parallel()

	api := NewTraceAPI(newTestService(t, DefaultConfig(), nil))
	ctx := context.Background()

	_, err := api.ReplayTransaction(ctx, common.Hash{}, []string{"trace"})
	assert.Equal(t, ethapi.KindUnsupported, ethapi.KindOf(err))
	assert.Equal(t, "current backend does not support replay_transaction", err.Error())

	_, err = api.ReplayBlockTransactions(ctx, rpc.BlockNumberOrHashWithNumber(1), []string{"trace"})
	assert.Equal(t, ethapi.KindUnsupported, ethapi.KindOf(err))
	assert.Equal(t, "current backend does not support replay_block_transactions", err.Error())
}

func TestAPIsNamespaces(t *testing.T) {
	t.Parallel()

	apis := newTestService(t, DefaultConfig(), nil).APIs()
	require.Len(t, apis, 2)
	assert.Equal(t, "debug", apis[0].Namespace)
	assert.IsType(t, &API{}, apis[0].Service)
	assert.Equal(t, "trace", apis[1].Namespace)
	assert.IsType(t, &TraceAPI{}, apis[1].Service)
}
