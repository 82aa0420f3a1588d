// Package calltrace rebuilds the flat call list of each replayed transaction
// from the event stream of a replay executor.
package calltrace

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"
)

// Kind is the variant of a call.
type Kind int

const (
	KindCall Kind = iota
	KindCreate
	KindSelfDestruct
)

func (k Kind) String() string {
	switch k {
	case KindCall:
		return "call"
	case KindCreate:
		return "create"
	case KindSelfDestruct:
		return "suicide"
	default:
		return "unknown"
	}
}

// Call is one frame of a transaction. Depending on Kind:
//   - Call: To is the callee, Input the calldata, Output the return data.
//   - Create: To is the created contract, Input the init code, Output the deployed code.
//   - SelfDestruct: From is the destroyed contract, To the refund address, Value its balance.
type Call struct {
	Kind Kind
	// Type is the call subtype (call, callcode, delegatecall, staticcall) or
	// the creation method (create, create2). Empty for self-destructs.
	Type         string
	From         common.Address
	To           common.Address
	Input        []byte
	Output       []byte
	Value        *uint256.Int
	Gas          uint64
	GasUsed      uint64
	Error        string
	TraceAddress []uint32
	Subtraces    uint32
}

// TransactionCallList is the pre-order list of calls of one transaction.
type TransactionCallList struct {
	TxHash  common.Hash
	TxIndex uint64
	Calls   []*Call
}

// classify maps a frame opcode onto its call kind and subtype.
func classify(op vm.OpCode) (Kind, string, bool) {
	switch op {
	case vm.CALL:
		return KindCall, "call", true
	case vm.CALLCODE:
		return KindCall, "callcode", true
	case vm.DELEGATECALL:
		return KindCall, "delegatecall", true
	case vm.STATICCALL:
		return KindCall, "staticcall", true
	case vm.CREATE:
		return KindCreate, "create", true
	case vm.CREATE2:
		return KindCreate, "create2", true
	case vm.SELFDESTRUCT:
		return KindSelfDestruct, "", true
	default:
		return 0, "", false
	}
}
