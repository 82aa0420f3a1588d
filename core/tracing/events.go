// Package tracing defines the events a replay executor emits while it
// re-executes transactions, and their byte encoding.
//
// A stream for one replay is a sequence of TxStart, then nested Enter/Exit
// pairs (optionally interleaved with Step and GasUpdate events), then TxEnd,
// repeated for every instrumented transaction of the block.
package tracing

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"
)

// EventKind is the leading byte of an encoded event.
type EventKind byte

const (
	KindTxStart EventKind = iota + 1
	KindEnter
	KindExit
	KindStep
	KindGasUpdate
	KindTxEnd
)

func (k EventKind) String() string {
	switch k {
	case KindTxStart:
		return "tx_start"
	case KindEnter:
		return "enter"
	case KindExit:
		return "exit"
	case KindStep:
		return "step"
	case KindGasUpdate:
		return "gas_update"
	case KindTxEnd:
		return "tx_end"
	default:
		return "unknown"
	}
}

// Event is implemented by every event type of the stream.
type Event interface {
	Kind() EventKind
}

// TxStart opens an instrumented transaction.
type TxStart struct {
	Hash  common.Hash
	Index uint64
}

// Enter opens a call frame. Op is one of the CALL*, CREATE* or
// SELFDESTRUCT opcodes. For SELFDESTRUCT, To is the refund address and
// Value the transferred balance.
type Enter struct {
	Op    vm.OpCode
	From  common.Address
	To    common.Address
	Input []byte
	Gas   uint64
	Value *uint256.Int
}

// Exit closes the innermost open call frame.
type Exit struct {
	Output   []byte
	GasUsed  uint64
	Error    string
	Reverted bool
}

// StorageSlot is a single storage entry touched by a step.
type StorageSlot struct {
	Key   common.Hash
	Value common.Hash
}

// Step is a single executed opcode. Stack, Memory and Storage are only
// populated when the executor was asked for them.
type Step struct {
	PC      uint64
	Op      vm.OpCode
	Gas     uint64
	Cost    uint64
	Depth   uint64
	Stack   []common.Hash
	Memory  []byte
	Storage []StorageSlot
	Error   string
}

// GasUpdate reports the gas used by the transaction so far.
type GasUpdate struct {
	GasUsed uint64
}

// TxEnd closes the current transaction.
type TxEnd struct {
	GasUsed uint64
	Output  []byte
	Error   string
}

func (*TxStart) Kind() EventKind   { return KindTxStart }
func (*Enter) Kind() EventKind     { return KindEnter }
func (*Exit) Kind() EventKind      { return KindExit }
func (*Step) Kind() EventKind      { return KindStep }
func (*GasUpdate) Kind() EventKind { return KindGasUpdate }
func (*TxEnd) Kind() EventKind     { return KindTxEnd }
