package logger

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zircuit-labs/l2-tracecache/core/tracing"
)

func sampleStep(pc uint64) *tracing.Step {
	return &tracing.Step{
		PC:      pc,
		Op:      vm.SLOAD,
		Gas:     1000 - pc,
		Cost:    100,
		Depth:   1,
		Stack:   []common.Hash{common.HexToHash("0x01")},
		Memory:  []byte{0, 0, 0, 1},
		Storage: []tracing.StorageSlot{{Key: common.HexToHash("0x01"), Value: common.HexToHash("0x2a")}},
	}
}

func TestStructLoggerCollectsPerTransaction(t *testing.T) {
	t.Parallel()

	l := NewStructLogger(nil)
	e := tracing.NewEmitter(l)

	require.NoError(t, e.TxStart(common.HexToHash("0xaa"), 0))
	require.NoError(t, e.Step(sampleStep(0)))
	require.NoError(t, e.Step(sampleStep(1)))
	require.NoError(t, e.TxEnd(21000, []byte{0x01}, ""))
	require.NoError(t, e.TxStart(common.HexToHash("0xbb"), 1))
	require.NoError(t, e.TxEnd(30000, nil, "out of gas"))

	results := l.Results()
	require.Len(t, results, 2)

	first := results[0].Result
	assert.Equal(t, uint64(21000), first.Gas)
	assert.False(t, first.Failed)
	assert.Equal(t, []byte{0x01}, first.ReturnValue)
	require.Len(t, first.StructLogs, 2)
	assert.Equal(t, vm.SLOAD, first.StructLogs[1].Op)
	assert.Equal(t, common.HexToHash("0x2a"), first.StructLogs[0].Storage[common.HexToHash("0x01")])
	assert.Len(t, first.StructLogs[0].Stack, 1)

	second := results[1].Result
	assert.True(t, second.Failed)
	assert.Empty(t, second.StructLogs)
	assert.Equal(t, common.HexToHash("0xbb"), results[1].TxHash)
}

func TestStructLoggerHonoursConfig(t *testing.T) {
	t.Parallel()

	l := NewStructLogger(&Config{DisableMemory: true, DisableStack: true, DisableStorage: true, Limit: 1})
	e := tracing.NewEmitter(l)

	require.NoError(t, e.TxStart(common.HexToHash("0xaa"), 0))
	require.NoError(t, e.Step(sampleStep(0)))
	require.NoError(t, e.Step(sampleStep(1)))
	require.NoError(t, e.TxEnd(0, nil, ""))

	logs := l.Results()[0].Result.StructLogs
	require.Len(t, logs, 1)
	assert.Nil(t, logs[0].Memory)
	assert.Nil(t, logs[0].Stack)
	assert.Nil(t, logs[0].Storage)
}

func TestStructLoggerTxEndWithoutStart(t *testing.T) {
	t.Parallel()

	l := NewStructLogger(nil)
	assert.ErrorIs(t, tracing.NewEmitter(l).TxEnd(0, nil, ""), ErrNoTransaction)
}
