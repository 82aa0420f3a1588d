package txindex

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory(0)
	block := common.HexToHash("0xb1")
	txs := []common.Hash{common.HexToHash("0x01"), common.HexToHash("0x02")}
	require.NoError(t, m.AddBlock(ctx, block, 7, txs))

	loc, err := m.Location(ctx, txs[1])
	require.NoError(t, err)
	assert.Equal(t, &Location{BlockHash: block, BlockNumber: 7, Index: 1}, loc)

	_, err = m.Location(ctx, common.HexToHash("0x03"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryPrunesOldestBlocks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory(2)

	require.NoError(t, m.AddBlock(ctx, common.HexToHash("0xb1"), 1, []common.Hash{common.HexToHash("0x11")}))
	require.NoError(t, m.AddBlock(ctx, common.HexToHash("0xb2"), 2, []common.Hash{common.HexToHash("0x21")}))
	require.NoError(t, m.AddBlock(ctx, common.HexToHash("0xb3"), 3, []common.Hash{common.HexToHash("0x31")}))

	_, err := m.Location(ctx, common.HexToHash("0x11"))
	assert.ErrorIs(t, err, ErrNotFound)
	for _, h := range []string{"0x21", "0x31"} {
		_, err := m.Location(ctx, common.HexToHash(h))
		assert.NoError(t, err, h)
	}
}

func TestMemoryReorgKeepsNewestLocation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory(1)
	tx := common.HexToHash("0xaa")
	newer := common.HexToHash("0xb2")

	require.NoError(t, m.AddBlock(ctx, common.HexToHash("0xb1"), 5, []common.Hash{tx}))
	require.NoError(t, m.AddBlock(ctx, newer, 5, []common.Hash{common.HexToHash("0xbb"), tx}))

	loc, err := m.Location(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, newer, loc.BlockHash)
	assert.Equal(t, uint64(1), loc.Index)
}
