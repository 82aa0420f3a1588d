// Package replay re-executes blocks against an upstream node and turns what
// the node reports into tracing events.
package replay

//go:generate go tool mockgen -source replay.go -destination mock_replay.go -package replay

import (
	"context"
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"

	"github.com/zircuit-labs/l2-tracecache/core/tracing"
	"github.com/zircuit-labs/l2-tracecache/internal/ratelimiter"
)

// Kind selects the upstream tracing API.
type Kind string

const (
	// KindGeth replays through debug_traceBlockByHash and debug_traceTransaction.
	KindGeth Kind = "geth"
	// KindParity replays through trace_block and trace_transaction. It has no step events.
	KindParity Kind = "parity"
)

var ErrUnknownKind = errors.New("unknown replay backend")

// Config defines the upstream node and how to talk to it.
type Config struct {
	Kind      Kind               `koanf:"kind"`
	URL       string             `koanf:"url"`
	RateLimit ratelimiter.Config `koanf:"rate_limit"`
	// BlockCacheBytes sizes the block cache of the RPC source.
	BlockCacheBytes int `koanf:"block_cache_bytes"`
}

func DefaultConfig() Config {
	return Config{
		Kind:            KindGeth,
		URL:             "http://127.0.0.1:8545",
		RateLimit:       ratelimiter.Config{Key: "upstream"},
		BlockCacheBytes: 32 * 1024 * 1024,
	}
}

// StepOptions asks the executor for Step events.
type StepOptions struct {
	DisableStorage bool
	DisableMemory  bool
	DisableStack   bool
	Limit          int
}

// Request describes one replay.
type Request struct {
	Block *Block
	// Transactions are replayed in order. They are a prefix of Block.Transactions.
	Transactions []common.Hash
	// Instrument limits events to these transactions. Nil instruments all of them.
	Instrument mapset.Set[common.Hash]
	// Steps is nil when only call events are needed.
	Steps *StepOptions
}

// NewBlockRequest replays and instruments every transaction of block.
func NewBlockRequest(block *Block, steps *StepOptions) *Request {
	return &Request{Block: block, Transactions: block.Transactions, Steps: steps}
}

// NewTransactionRequest replays the block up to the transaction at index and
// instruments only that one.
func NewTransactionRequest(block *Block, index uint64, steps *StepOptions) (*Request, error) {
	if index >= uint64(len(block.Transactions)) {
		return nil, fmt.Errorf("transaction index %d out of range for block %d", index, block.Number)
	}
	return &Request{
		Block:        block,
		Transactions: block.Transactions[:index+1],
		Instrument:   mapset.NewThreadUnsafeSet(block.Transactions[index]),
		Steps:        steps,
	}, nil
}

func (r *Request) instrumented(hash common.Hash) bool {
	return r.Instrument == nil || r.Instrument.Contains(hash)
}

func (r *Request) wholeBlock() bool {
	return r.Instrument == nil && len(r.Transactions) == len(r.Block.Transactions)
}

// Executor re-executes transactions and emits their events into sink.
type Executor interface {
	Kind() Kind
	Replay(ctx context.Context, req *Request, sink tracing.Sink) error
}

// Caller is the subset of *rpc.Client used by executors.
type Caller interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
}

// NewExecutor returns the executor for cfg.Kind.
func NewExecutor(cfg Config, caller Caller, limiter ratelimiter.RateLimiter) (Executor, error) {
	if limiter == nil {
		limiter = ratelimiter.Unlimited
	}
	switch cfg.Kind {
	case KindGeth, "":
		return &gethExecutor{caller: caller, limiter: limiter}, nil
	case KindParity:
		return &parityExecutor{caller: caller, limiter: limiter}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
}
