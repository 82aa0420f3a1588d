package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/zircuit-labs/zkr-go-common/xerrors/stacktrace"

	"github.com/zircuit-labs/l2-tracecache/core/tracing"
	"github.com/zircuit-labs/l2-tracecache/internal/ratelimiter"
)

const callTracerName = "callTracer"

// gethTraceConfig mirrors the upstream debug_trace* configuration object.
type gethTraceConfig struct {
	Tracer         *string `json:"tracer,omitempty"`
	EnableMemory   bool    `json:"enableMemory,omitempty"`
	DisableStack   bool    `json:"disableStack,omitempty"`
	DisableStorage bool    `json:"disableStorage,omitempty"`
	Limit          int     `json:"limit,omitempty"`
}

func newGethTraceConfig(steps *StepOptions) *gethTraceConfig {
	if steps == nil {
		tracer := callTracerName
		return &gethTraceConfig{Tracer: &tracer}
	}
	return &gethTraceConfig{
		EnableMemory:   !steps.DisableMemory,
		DisableStack:   steps.DisableStack,
		DisableStorage: steps.DisableStorage,
		Limit:          steps.Limit,
	}
}

// gethTxResult is one element of debug_traceBlockByHash.
type gethTxResult struct {
	TxHash *common.Hash    `json:"txHash"`
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// gethCallFrame is the upstream callTracer output.
type gethCallFrame struct {
	Type    string          `json:"type"`
	From    common.Address  `json:"from"`
	To      *common.Address `json:"to"`
	Value   *hexutil.Big    `json:"value"`
	Gas     hexutil.Uint64  `json:"gas"`
	GasUsed hexutil.Uint64  `json:"gasUsed"`
	Input   hexutil.Bytes   `json:"input"`
	Output  hexutil.Bytes   `json:"output"`
	Error   string          `json:"error"`
	Calls   []gethCallFrame `json:"calls"`
}

// gethStructLogs is the upstream struct logger output.
type gethStructLogs struct {
	Gas         uint64          `json:"gas"`
	Failed      bool            `json:"failed"`
	ReturnValue string          `json:"returnValue"`
	StructLogs  []gethStructLog `json:"structLogs"`
}

type gethStructLog struct {
	Pc      uint64            `json:"pc"`
	Op      string            `json:"op"`
	Gas     uint64            `json:"gas"`
	GasCost uint64            `json:"gasCost"`
	Depth   uint64            `json:"depth"`
	Error   string            `json:"error"`
	Stack   []string          `json:"stack"`
	Memory  []string          `json:"memory"`
	Storage map[string]string `json:"storage"`
}

type gethExecutor struct {
	caller  Caller
	limiter ratelimiter.RateLimiter
}

func (g *gethExecutor) Kind() Kind { return KindGeth }

func (g *gethExecutor) Replay(ctx context.Context, req *Request, sink tracing.Sink) error {
	cfg := newGethTraceConfig(req.Steps)
	emitter := tracing.NewEmitter(sink)

	if req.wholeBlock() {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		var results []gethTxResult
		if err := g.caller.CallContext(ctx, &results, "debug_traceBlockByHash", req.Block.Hash, cfg); err != nil {
			return stacktrace.Wrap(err)
		}
		if len(results) != len(req.Transactions) {
			return fmt.Errorf("upstream traced %d transactions, block %d has %d", len(results), req.Block.Number, len(req.Transactions))
		}
		for i, res := range results {
			hash := req.Transactions[i]
			if res.TxHash != nil && *res.TxHash != hash {
				return fmt.Errorf("upstream traced %s at index %d, expected %s", res.TxHash, i, hash)
			}
			if res.Error != "" {
				return fmt.Errorf("tracing transaction %s: %s", hash, res.Error)
			}
			if err := emitGethResult(emitter, hash, uint64(i), res.Result, req.Steps != nil); err != nil {
				return err
			}
		}
		return emitter.Err()
	}

	// Upstream replays the block prefix itself, so only the instrumented
	// transactions are requested.
	for i, hash := range req.Transactions {
		if !req.instrumented(hash) {
			continue
		}
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		var raw json.RawMessage
		if err := g.caller.CallContext(ctx, &raw, "debug_traceTransaction", hash, cfg); err != nil {
			return stacktrace.Wrap(err)
		}
		if err := emitGethResult(emitter, hash, uint64(i), raw, req.Steps != nil); err != nil {
			return err
		}
	}
	return emitter.Err()
}

func emitGethResult(e *tracing.Emitter, hash common.Hash, index uint64, raw json.RawMessage, steps bool) error {
	if err := e.TxStart(hash, index); err != nil {
		return err
	}
	if steps {
		var logs gethStructLogs
		if err := json.Unmarshal(raw, &logs); err != nil {
			return stacktrace.Wrap(err)
		}
		for i := range logs.StructLogs {
			if err := e.Step(gethStep(&logs.StructLogs[i])); err != nil {
				return err
			}
		}
		errMsg := ""
		if logs.Failed {
			errMsg = "execution failed"
		}
		return e.TxEnd(logs.Gas, common.FromHex(logs.ReturnValue), errMsg)
	}

	var root gethCallFrame
	if err := json.Unmarshal(raw, &root); err != nil {
		return stacktrace.Wrap(err)
	}
	if err := emitGethFrame(e, &root); err != nil {
		return err
	}
	return e.TxEnd(uint64(root.GasUsed), root.Output, root.Error)
}

func emitGethFrame(e *tracing.Emitter, f *gethCallFrame) error {
	var to common.Address
	if f.To != nil {
		to = *f.To
	}
	op := vm.StringToOp(strings.ToUpper(f.Type))
	if err := e.Enter(op, f.From, to, f.Input, uint64(f.Gas), bigToUint256(f.Value)); err != nil {
		return err
	}
	for i := range f.Calls {
		if err := emitGethFrame(e, &f.Calls[i]); err != nil {
			return err
		}
	}
	return e.Exit(f.Output, uint64(f.GasUsed), f.Error, f.Error == vm.ErrExecutionReverted.Error())
}

func gethStep(l *gethStructLog) *tracing.Step {
	step := &tracing.Step{
		PC:    l.Pc,
		Op:    vm.StringToOp(l.Op),
		Gas:   l.Gas,
		Cost:  l.GasCost,
		Depth: l.Depth,
		Error: l.Error,
	}
	if l.Stack != nil {
		step.Stack = make([]common.Hash, len(l.Stack))
		for i, word := range l.Stack {
			step.Stack[i] = common.HexToHash(word)
		}
	}
	if l.Memory != nil {
		step.Memory = make([]byte, 0, len(l.Memory)*32)
		for _, word := range l.Memory {
			step.Memory = append(step.Memory, common.FromHex(word)...)
		}
	}
	for key, val := range l.Storage {
		step.Storage = append(step.Storage, tracing.StorageSlot{Key: common.HexToHash(key), Value: common.HexToHash(val)})
	}
	slices.SortFunc(step.Storage, func(a, b tracing.StorageSlot) int { return a.Key.Cmp(b.Key) })
	return step
}
