package replay

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"
	"github.com/zircuit-labs/zkr-go-common/xerrors/stacktrace"

	"github.com/zircuit-labs/l2-tracecache/core/tracing"
	"github.com/zircuit-labs/l2-tracecache/internal/ethapi"
	"github.com/zircuit-labs/l2-tracecache/internal/ratelimiter"
)

const parityRevertedError = "Reverted"

type parityAction struct {
	CallType       string          `json:"callType"`
	CreationMethod string          `json:"creationMethod"`
	From           common.Address  `json:"from"`
	To             *common.Address `json:"to"`
	Gas            hexutil.Uint64  `json:"gas"`
	Input          hexutil.Bytes   `json:"input"`
	Init           hexutil.Bytes   `json:"init"`
	Value          *hexutil.Big    `json:"value"`
	Address        common.Address  `json:"address"`
	RefundAddress  common.Address  `json:"refundAddress"`
	Balance        *hexutil.Big    `json:"balance"`
}

type parityResult struct {
	GasUsed hexutil.Uint64  `json:"gasUsed"`
	Output  hexutil.Bytes   `json:"output"`
	Address *common.Address `json:"address"`
	Code    hexutil.Bytes   `json:"code"`
}

// parityTrace is one flat trace of trace_block or trace_transaction.
type parityTrace struct {
	Type                string        `json:"type"`
	Action              parityAction  `json:"action"`
	Result              *parityResult `json:"result"`
	Error               string        `json:"error"`
	TraceAddress        []uint32      `json:"traceAddress"`
	TransactionHash     *common.Hash  `json:"transactionHash"`
	TransactionPosition *uint64       `json:"transactionPosition"`
}

type parityExecutor struct {
	caller  Caller
	limiter ratelimiter.RateLimiter
}

func (p *parityExecutor) Kind() Kind { return KindParity }

func (p *parityExecutor) Replay(ctx context.Context, req *Request, sink tracing.Sink) error {
	if req.Steps != nil {
		return ethapi.NewUnsupportedError("current backend does not support step tracing")
	}
	emitter := tracing.NewEmitter(sink)

	if req.wholeBlock() {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
		var traces []*parityTrace
		if err := p.caller.CallContext(ctx, &traces, "trace_block", hexutil.Uint64(req.Block.Number)); err != nil {
			return stacktrace.Wrap(err)
		}
		for _, group := range groupByTransaction(traces) {
			if err := emitParityTransaction(emitter, group); err != nil {
				return err
			}
		}
		return emitter.Err()
	}

	for _, hash := range req.Transactions {
		if !req.instrumented(hash) {
			continue
		}
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
		var traces []*parityTrace
		if err := p.caller.CallContext(ctx, &traces, "trace_transaction", hash); err != nil {
			return stacktrace.Wrap(err)
		}
		for _, group := range groupByTransaction(traces) {
			if err := emitParityTransaction(emitter, group); err != nil {
				return err
			}
		}
	}
	return emitter.Err()
}

// groupByTransaction splits flat traces per transaction, dropping block
// rewards and other traces with no transaction.
func groupByTransaction(traces []*parityTrace) [][]*parityTrace {
	var (
		groups [][]*parityTrace
		last   *common.Hash
	)
	for _, t := range traces {
		if t.TransactionHash == nil || t.TransactionPosition == nil {
			continue
		}
		if last == nil || *last != *t.TransactionHash {
			groups = append(groups, nil)
			last = t.TransactionHash
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], t)
	}
	return groups
}

// emitParityTransaction rebuilds the call nesting of one transaction from
// the trace addresses. Traces are expected in pre-order.
func emitParityTransaction(e *tracing.Emitter, traces []*parityTrace) error {
	root := traces[0]
	if len(root.TraceAddress) != 0 {
		return fmt.Errorf("transaction %s does not start with a root trace", root.TransactionHash)
	}
	if err := e.TxStart(*root.TransactionHash, *root.TransactionPosition); err != nil {
		return err
	}

	var open []*parityTrace
	for _, t := range traces {
		depth := len(t.TraceAddress)
		if depth > len(open) {
			return fmt.Errorf("trace %v of transaction %s skips a level", t.TraceAddress, t.TransactionHash)
		}
		for len(open) > depth {
			if err := emitParityExit(e, open[len(open)-1]); err != nil {
				return err
			}
			open = open[:len(open)-1]
		}
		if err := emitParityEnter(e, t); err != nil {
			return err
		}
		open = append(open, t)
	}
	for len(open) > 0 {
		if err := emitParityExit(e, open[len(open)-1]); err != nil {
			return err
		}
		open = open[:len(open)-1]
	}

	gasUsed, output := parityOutput(root)
	return e.TxEnd(gasUsed, output, root.Error)
}

func emitParityEnter(e *tracing.Emitter, t *parityTrace) error {
	a := &t.Action
	switch t.Type {
	case "call":
		var to common.Address
		if a.To != nil {
			to = *a.To
		}
		callType := a.CallType
		if callType == "" {
			callType = "call"
		}
		return e.Enter(vm.StringToOp(strings.ToUpper(callType)), a.From, to, a.Input, uint64(a.Gas), bigToUint256(a.Value))
	case "create":
		var to common.Address
		if t.Result != nil && t.Result.Address != nil {
			to = *t.Result.Address
		}
		op := vm.CREATE
		if a.CreationMethod == "create2" {
			op = vm.CREATE2
		}
		return e.Enter(op, a.From, to, a.Init, uint64(a.Gas), bigToUint256(a.Value))
	case "suicide", "selfdestruct":
		return e.Enter(vm.SELFDESTRUCT, a.Address, a.RefundAddress, nil, 0, bigToUint256(a.Balance))
	}
	return fmt.Errorf("unknown trace type %q", t.Type)
}

func emitParityExit(e *tracing.Emitter, t *parityTrace) error {
	gasUsed, output := parityOutput(t)
	return e.Exit(output, gasUsed, t.Error, t.Error == parityRevertedError)
}

func parityOutput(t *parityTrace) (uint64, []byte) {
	if t.Result == nil {
		return 0, nil
	}
	if t.Type == "create" {
		return uint64(t.Result.GasUsed), t.Result.Code
	}
	return uint64(t.Result.GasUsed), t.Result.Output
}

func bigToUint256(v *hexutil.Big) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	u, _ := uint256.FromBig(v.ToInt())
	return u
}
