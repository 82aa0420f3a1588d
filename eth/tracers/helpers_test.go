package tracers

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/mock/gomock"

	"github.com/zircuit-labs/l2-tracecache/core/replay"
	"github.com/zircuit-labs/l2-tracecache/core/tracing"
	"github.com/zircuit-labs/l2-tracecache/core/txindex"
	"github.com/zircuit-labs/l2-tracecache/internal/ethapi"
)

var (
	callerAddr  = common.HexToAddress("0xca11e7")
	calleeAddr  = common.HexToAddress("0xca11ee")
	createdAddr = common.HexToAddress("0xc7ea7e")
)

// testChain is a chain of blocks with one transaction each (none when the
// block has no traces). Block i has height i, block 0 is genesis.
type testChain struct {
	blocks []*replay.Block
	// calls per transaction: the root call plus children.
	calls map[common.Hash]int
	// creates marks transactions whose last child is a creation.
	creates map[common.Hash]bool

	mu      sync.Mutex
	replays map[common.Hash]int
	fail    error
}

// newTestChain builds blocks 1..len(traceCounts) with the given number of
// traces each.
func newTestChain(traceCounts ...int) *testChain {
	c := &testChain{
		calls:   make(map[common.Hash]int),
		creates: make(map[common.Hash]bool),
		replays: make(map[common.Hash]int),
	}
	c.blocks = append(c.blocks, &replay.Block{Hash: common.HexToHash("0xb0"), Transactions: []common.Hash{}})
	for i, n := range traceCounts {
		number := uint64(i + 1)
		block := &replay.Block{
			Hash:         common.BigToHash(new(big.Int).SetUint64(0xb00 + number)),
			ParentHash:   c.blocks[i].Hash,
			Number:       number,
			Transactions: []common.Hash{},
		}
		if n > 0 {
			tx := common.BigToHash(new(big.Int).SetUint64(0x700 + number))
			block.Transactions = append(block.Transactions, tx)
			c.calls[tx] = n
		}
		c.blocks = append(c.blocks, block)
	}
	return c
}

func (c *testChain) byHash(hash common.Hash) *replay.Block {
	for _, b := range c.blocks {
		if b.Hash == hash {
			return b
		}
	}
	return nil
}

func (c *testChain) replayCount(hash common.Hash) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replays[hash]
}

// replay emits a root call from callerAddr to calleeAddr with n-1 children.
func (c *testChain) replay(_ context.Context, req *replay.Request, sink tracing.Sink) error {
	c.mu.Lock()
	c.replays[req.Block.Hash]++
	fail := c.fail
	c.mu.Unlock()
	if fail != nil {
		return fail
	}

	e := tracing.NewEmitter(sink)
	for i, tx := range req.Transactions {
		if req.Instrument != nil && !req.Instrument.Contains(tx) {
			continue
		}
		_ = e.TxStart(tx, uint64(i))
		_ = e.Enter(vm.CALL, callerAddr, calleeAddr, []byte{0x01}, 1000, nil)
		if req.Steps != nil {
			_ = e.Step(&tracing.Step{PC: 0, Op: vm.PUSH1, Gas: 1000, Cost: 3, Depth: 1, Stack: []common.Hash{{}}})
		}
		children := c.calls[tx] - 1
		for j := range children {
			if c.creates[tx] && j == children-1 {
				_ = e.Enter(vm.CREATE, calleeAddr, createdAddr, []byte{0x60}, 100, nil)
			} else {
				_ = e.Enter(vm.STATICCALL, calleeAddr, callerAddr, nil, 100, nil)
			}
			_ = e.Exit(nil, 10, "", false)
		}
		_ = e.Exit([]byte{0x02}, 500, "", false)
		_ = e.TxEnd(500, []byte{0x02}, "")
	}
	return e.Err()
}

// expect wires the mocks to the chain.
func (c *testChain) expect(source *replay.MockBlockSource, executor *replay.MockExecutor) {
	head := uint64(len(c.blocks) - 1)
	source.EXPECT().ResolveNumber(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, number rpc.BlockNumber) (uint64, error) {
			switch number {
			case rpc.PendingBlockNumber:
				return 0, ethapi.NewUnsupportedError("'pending' is not supported")
			case rpc.LatestBlockNumber:
				return head, nil
			}
			return uint64(number), nil
		}).AnyTimes()
	source.EXPECT().BlockByNumber(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, number uint64) (*replay.Block, error) {
			if number > head {
				return nil, ethapi.NewNotFoundError("block #%d not found", number)
			}
			return c.blocks[number], nil
		}).AnyTimes()
	source.EXPECT().BlockByHash(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, hash common.Hash) (*replay.Block, error) {
			if b := c.byHash(hash); b != nil {
				return b, nil
			}
			return nil, ethapi.NewNotFoundError("block %s not found", hash)
		}).AnyTimes()
	source.EXPECT().TransactionLocation(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, hash common.Hash) (*txindex.Location, error) {
			for _, b := range c.blocks {
				for i, tx := range b.Transactions {
					if tx == hash {
						return &txindex.Location{BlockHash: b.Hash, BlockNumber: b.Number, Index: uint64(i)}, nil
					}
				}
			}
			return nil, ethapi.NewNotFoundError("transaction %s not found", hash)
		}).AnyTimes()
	executor.EXPECT().Kind().Return(replay.KindGeth).AnyTimes()
	executor.EXPECT().Replay(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(c.replay).AnyTimes()
}

// newTestService starts a service over chain. Mocks are strict when chain is nil.
func newTestService(t *testing.T, cfg Config, chain *testChain) *Service {
	t.Helper()

	ctrl := gomock.NewController(t)
	source := replay.NewMockBlockSource(ctrl)
	executor := replay.NewMockExecutor(ctrl)
	if chain != nil {
		chain.expect(source, executor)
	} else {
		executor.EXPECT().Kind().Return(replay.KindGeth).AnyTimes()
	}

	s := NewService(cfg, source, executor, nil)
	s.Start()
	t.Cleanup(s.Stop)
	return s
}

func blockNumber(n int64) *rpc.BlockNumber {
	number := rpc.BlockNumber(n)
	return &number
}

func uint64Ptr(v uint64) *uint64 {
	return &v
}
