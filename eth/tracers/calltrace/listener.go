package calltrace

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"

	"github.com/zircuit-labs/l2-tracecache/core/tracing"
)

// RevertedError replaces the EVM revert message in recorded calls.
const RevertedError = "Reverted"

var (
	ErrExitWithoutEnter = errors.New("exit event without a matching enter")
	ErrOpenCalls        = errors.New("transaction ended with open calls")
	ErrUnknownCallOp    = errors.New("unknown call opcode")
)

// Listener collects the call lists of a replay. It is not safe for
// concurrent use; every replay gets its own listener.
type Listener struct {
	hooks   *tracing.Hooks
	txs     []*TransactionCallList
	current *TransactionCallList
	stack   []*Call
	nextIdx uint64
}

func NewListener() *Listener {
	l := &Listener{}
	l.hooks = &tracing.Hooks{
		OnTxStart: l.onTxStart,
		OnEnter:   l.onEnter,
		OnExit:    l.onExit,
		OnTxEnd:   l.onTxEnd,
	}
	return l
}

// Emit implements tracing.Sink.
func (l *Listener) Emit(data []byte) error {
	return l.hooks.Emit(data)
}

// Result returns the call lists of all transactions seen so far, in
// replay order. A transaction left open by the stream is flushed if its
// root call completed.
func (l *Listener) Result() ([]*TransactionCallList, error) {
	if len(l.stack) != 0 {
		return nil, ErrOpenCalls
	}
	l.flush()
	return l.txs, nil
}

func (l *Listener) flush() {
	if l.current == nil {
		return
	}
	l.txs = append(l.txs, l.current)
	l.nextIdx = l.current.TxIndex + 1
	l.current = nil
}

func (l *Listener) onTxStart(ev *tracing.TxStart) error {
	if len(l.stack) != 0 {
		return ErrOpenCalls
	}
	l.flush()
	l.current = &TransactionCallList{TxHash: ev.Hash, TxIndex: ev.Index}
	return nil
}

func (l *Listener) onEnter(ev *tracing.Enter) error {
	kind, typ, ok := classify(ev.Op)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCallOp, ev.Op)
	}

	// A new root after a finished root starts the next transaction.
	if len(l.stack) == 0 && l.current != nil && len(l.current.Calls) != 0 {
		l.flush()
	}
	if l.current == nil {
		l.current = &TransactionCallList{TxIndex: l.nextIdx}
	}

	value := ev.Value
	if value == nil {
		value = new(uint256.Int)
	}
	call := &Call{
		Kind:         kind,
		Type:         typ,
		From:         ev.From,
		To:           ev.To,
		Input:        ev.Input,
		Value:        value,
		Gas:          ev.Gas,
		TraceAddress: []uint32{},
	}
	if n := len(l.stack); n > 0 {
		parent := l.stack[n-1]
		call.TraceAddress = make([]uint32, len(parent.TraceAddress), len(parent.TraceAddress)+1)
		copy(call.TraceAddress, parent.TraceAddress)
		call.TraceAddress = append(call.TraceAddress, parent.Subtraces)
		parent.Subtraces++
	}
	l.current.Calls = append(l.current.Calls, call)
	l.stack = append(l.stack, call)
	return nil
}

func (l *Listener) onExit(ev *tracing.Exit) error {
	n := len(l.stack)
	if n == 0 {
		return ErrExitWithoutEnter
	}
	call := l.stack[n-1]
	l.stack = l.stack[:n-1]

	call.GasUsed = ev.GasUsed
	call.Output = ev.Output
	call.Error = NormalizeError(ev.Error, ev.Reverted)
	return nil
}

func (l *Listener) onTxEnd(*tracing.TxEnd) error {
	if len(l.stack) != 0 {
		return ErrOpenCalls
	}
	if l.current == nil {
		// Transaction without any frame, e.g. when the executor reports a
		// transaction it did not instrument.
		l.current = &TransactionCallList{TxIndex: l.nextIdx}
	}
	l.flush()
	return nil
}

// NormalizeError maps the EVM revert message onto RevertedError.
func NormalizeError(msg string, reverted bool) string {
	if msg == vm.ErrExecutionReverted.Error() || (reverted && msg == "") {
		return RevertedError
	}
	return msg
}
