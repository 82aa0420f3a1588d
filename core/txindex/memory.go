package txindex

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Memory keeps locations in a map, optionally bounded by block count.
type Memory struct {
	maxBlocks int
	locations map[common.Hash]*Location
	blocks    []common.Hash                 // insertion order, for pruning
	txs       map[common.Hash][]common.Hash // block hash -> tx hashes
	mu        sync.RWMutex
}

// NewMemory initializes and returns a new instance of Memory storage.
func NewMemory(maxBlocks int) *Memory {
	return &Memory{
		maxBlocks: maxBlocks,
		locations: make(map[common.Hash]*Location),
		txs:       make(map[common.Hash][]common.Hash),
	}
}

func (m *Memory) Location(_ context.Context, txHash common.Hash) (*Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	loc, ok := m.locations[txHash]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *loc
	return &cp, nil
}

func (m *Memory) AddBlock(_ context.Context, blockHash common.Hash, number uint64, txHashes []common.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, known := m.txs[blockHash]; !known {
		m.blocks = append(m.blocks, blockHash)
	}
	m.txs[blockHash] = txHashes
	for i, txHash := range txHashes {
		m.locations[txHash] = &Location{BlockHash: blockHash, BlockNumber: number, Index: uint64(i)}
	}

	for m.maxBlocks > 0 && len(m.blocks) > m.maxBlocks {
		oldest := m.blocks[0]
		m.blocks = m.blocks[1:]
		for _, txHash := range m.txs[oldest] {
			// Keep entries that were since re-recorded in a newer block.
			if loc, ok := m.locations[txHash]; ok && loc.BlockHash == oldest {
				delete(m.locations, txHash)
			}
		}
		delete(m.txs, oldest)
	}
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
