package tracing

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLeadsWithKindByte(t *testing.T) {
	t.Parallel()

	data, err := Encode(&TxEnd{GasUsed: 21000})
	require.NoError(t, err)
	assert.Equal(t, byte(KindTxEnd), data[0])
}

func TestEnterWithoutValueDecodesAsZero(t *testing.T) {
	t.Parallel()

	enter := &Enter{
		Op:    vm.DELEGATECALL,
		From:  common.HexToAddress("0x01"),
		To:    common.HexToAddress("0x02"),
		Input: []byte{0xde, 0xad},
		Gas:   100,
	}
	data, err := Encode(enter)
	require.NoError(t, err)
	assert.Nil(t, enter.Value, "encoding must not mutate the event")

	ev, err := Decode(data)
	require.NoError(t, err)
	got, ok := ev.(*Enter)
	require.True(t, ok)
	assert.Equal(t, vm.DELEGATECALL, got.Op)
	assert.Equal(t, enter.To, got.To)
	assert.Equal(t, []byte{0xde, 0xad}, got.Input)
	require.NotNil(t, got.Value)
	assert.True(t, got.Value.IsZero())
}

func TestStepKeepsStackOrder(t *testing.T) {
	t.Parallel()

	step := &Step{
		PC:    7,
		Op:    vm.SSTORE,
		Gas:   5000,
		Cost:  2900,
		Depth: 1,
		Stack: []common.Hash{common.BigToHash(uint256.NewInt(1).ToBig()), common.BigToHash(uint256.NewInt(2).ToBig())},
		Storage: []StorageSlot{
			{Key: common.HexToHash("0x01"), Value: common.HexToHash("0x02")},
		},
	}
	data, err := Encode(step)
	require.NoError(t, err)

	ev, err := Decode(data)
	require.NoError(t, err)
	got := ev.(*Step)
	assert.Equal(t, step.Stack, got.Stack)
	assert.Equal(t, step.Storage, got.Storage)
	assert.Empty(t, got.Memory)
	assert.Empty(t, got.Error)
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "unknown kind", data: []byte{0x7f, 0xc0}},
		{name: "truncated payload", data: []byte{byte(KindExit), 0xc5, 0x01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tt.data)
			assert.Error(t, err)
		})
	}
}
