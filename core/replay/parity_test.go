package replay

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zircuit-labs/l2-tracecache/core/tracing"
	"github.com/zircuit-labs/l2-tracecache/eth/tracers/calltrace"
	"github.com/zircuit-labs/l2-tracecache/internal/ethapi"
)

// Block reward first, then one transaction with nested frames in pre-order.
const parityBlockJSON = `[
	{"type": "reward", "action": {"author": "0x0000000000000000000000000000000000000009", "rewardType": "block", "value": "0x1"}, "traceAddress": []},
	{
		"type": "call",
		"action": {"callType": "call", "from": "0x0000000000000000000000000000000000000001", "to": "0x0000000000000000000000000000000000000002", "gas": "0x1000", "input": "0x", "value": "0x5"},
		"result": {"gasUsed": "0x300", "output": "0x01"},
		"traceAddress": [], "subtraces": 2,
		"transactionHash": "0x0000000000000000000000000000000000000000000000000000000000000011", "transactionPosition": 0
	},
	{
		"type": "create",
		"action": {"creationMethod": "create2", "from": "0x0000000000000000000000000000000000000002", "gas": "0x800", "init": "0x6000", "value": "0x0"},
		"result": {"address": "0x0000000000000000000000000000000000000004", "code": "0x60", "gasUsed": "0x100"},
		"traceAddress": [0], "subtraces": 1,
		"transactionHash": "0x0000000000000000000000000000000000000000000000000000000000000011", "transactionPosition": 0
	},
	{
		"type": "suicide",
		"action": {"address": "0x0000000000000000000000000000000000000004", "refundAddress": "0x0000000000000000000000000000000000000001", "balance": "0x2"},
		"result": null,
		"traceAddress": [0, 0], "subtraces": 0,
		"transactionHash": "0x0000000000000000000000000000000000000000000000000000000000000011", "transactionPosition": 0
	},
	{
		"type": "call",
		"action": {"callType": "staticcall", "from": "0x0000000000000000000000000000000000000002", "to": "0x0000000000000000000000000000000000000003", "gas": "0x100", "input": "0x", "value": "0x0"},
		"error": "Reverted",
		"traceAddress": [1], "subtraces": 0,
		"transactionHash": "0x0000000000000000000000000000000000000000000000000000000000000011", "transactionPosition": 0
	}
]`

type fakeTrace struct {
	block json.RawMessage
	tx    map[common.Hash]json.RawMessage
}

func (f *fakeTrace) Block(_ context.Context, _ hexutil.Uint64) (json.RawMessage, error) {
	return f.block, nil
}

func (f *fakeTrace) Transaction(_ context.Context, hash common.Hash) (json.RawMessage, error) {
	return f.tx[hash], nil
}

func newParityExecutor(t *testing.T, svc *fakeTrace) Executor {
	t.Helper()
	client := newTestClient(t, map[string]any{"trace": svc})
	exec, err := NewExecutor(Config{Kind: KindParity}, client, nil)
	require.NoError(t, err)
	return exec
}

func assertParityCalls(t *testing.T, txs []*calltrace.TransactionCallList) {
	t.Helper()

	require.Len(t, txs, 1)
	calls := txs[0].Calls
	require.Len(t, calls, 4)

	assert.Equal(t, []uint32{}, calls[0].TraceAddress)
	assert.Equal(t, uint32(2), calls[0].Subtraces)

	assert.Equal(t, calltrace.KindCreate, calls[1].Kind)
	assert.Equal(t, "create2", calls[1].Type)
	assert.Equal(t, common.HexToAddress("0x4"), calls[1].To)
	assert.Equal(t, []byte{0x60}, calls[1].Output)
	assert.Equal(t, []uint32{0}, calls[1].TraceAddress)

	assert.Equal(t, calltrace.KindSelfDestruct, calls[2].Kind)
	assert.Equal(t, common.HexToAddress("0x1"), calls[2].To)
	assert.Equal(t, uint64(2), calls[2].Value.Uint64())
	assert.Equal(t, []uint32{0, 0}, calls[2].TraceAddress)

	assert.Equal(t, "staticcall", calls[3].Type)
	assert.Equal(t, calltrace.RevertedError, calls[3].Error)
	assert.Equal(t, []uint32{1}, calls[3].TraceAddress)
}

func TestParityReplayBlock(t *testing.T) {
	t.Parallel()

	exec := newParityExecutor(t, &fakeTrace{block: json.RawMessage(parityBlockJSON)})
	assert.Equal(t, KindParity, exec.Kind())

	listener := calltrace.NewListener()
	require.NoError(t, exec.Replay(context.Background(), NewBlockRequest(testBlock(common.HexToHash("0x11")), nil), listener))

	txs, err := listener.Result()
	require.NoError(t, err)
	assertParityCalls(t, txs)
}

func TestParityReplayTransaction(t *testing.T) {
	t.Parallel()

	var all []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(parityBlockJSON), &all))
	txTraces, err := json.Marshal(all[1:])
	require.NoError(t, err)

	tx := common.HexToHash("0x11")
	exec := newParityExecutor(t, &fakeTrace{tx: map[common.Hash]json.RawMessage{tx: txTraces}})

	req, err := NewTransactionRequest(testBlock(common.HexToHash("0x10"), tx), 1, nil)
	require.NoError(t, err)

	listener := calltrace.NewListener()
	require.NoError(t, exec.Replay(context.Background(), req, listener))

	txs, err := listener.Result()
	require.NoError(t, err)
	assertParityCalls(t, txs)
}

func TestParityReplayStepsUnsupported(t *testing.T) {
	t.Parallel()

	exec := newParityExecutor(t, &fakeTrace{})
	err := exec.Replay(context.Background(), NewBlockRequest(testBlock(), &StepOptions{}), &recorder{})

	var unsupported *ethapi.UnsupportedError
	assert.ErrorAs(t, err, &unsupported)
}

func TestGroupByTransactionSkipsLevels(t *testing.T) {
	t.Parallel()

	var traces []*parityTrace
	require.NoError(t, json.Unmarshal([]byte(parityBlockJSON), &traces))
	// drop the create so that the suicide skips a level
	broken := []*parityTrace{traces[1], traces[3]}

	groups := groupByTransaction(broken)
	require.Len(t, groups, 1)
	err := emitParityTransaction(tracing.NewEmitter(&recorder{}), groups[0])
	assert.ErrorContains(t, err, "skips a level")
}
