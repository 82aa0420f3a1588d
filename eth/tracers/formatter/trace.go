// Package formatter turns replay results into the JSON shapes served by the
// debug and trace namespaces. Every formatter is a pure function of its input.
package formatter

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/zircuit-labs/l2-tracecache/eth/tracers/calltrace"
	"github.com/zircuit-labs/l2-tracecache/internal/ethapi"
)

// BlockInfo is the block a call list was replayed in. Transactions holds
// the block transaction hashes in block order.
type BlockInfo struct {
	Hash         common.Hash
	Number       uint64
	Transactions []common.Hash
}

// CallAction is the action of a call trace.
type CallAction struct {
	CallType string         `json:"callType"`
	From     common.Address `json:"from"`
	Gas      hexutil.Uint64 `json:"gas"`
	Input    hexutil.Bytes  `json:"input"`
	To       common.Address `json:"to"`
	Value    *hexutil.Big   `json:"value"`
}

// CreateAction is the action of a contract creation trace.
type CreateAction struct {
	CreationMethod string         `json:"creationMethod"`
	From           common.Address `json:"from"`
	Gas            hexutil.Uint64 `json:"gas"`
	Init           hexutil.Bytes  `json:"init"`
	Value          *hexutil.Big   `json:"value"`
}

// SuicideAction is the action of a self-destruct trace.
type SuicideAction struct {
	Address       common.Address `json:"address"`
	Balance       *hexutil.Big   `json:"balance"`
	RefundAddress common.Address `json:"refundAddress"`
}

// CallResult is the result of a successful call.
type CallResult struct {
	GasUsed hexutil.Uint64 `json:"gasUsed"`
	Output  hexutil.Bytes  `json:"output"`
}

// CreateResult is the result of a successful creation.
type CreateResult struct {
	Address common.Address `json:"address"`
	Code    hexutil.Bytes  `json:"code"`
	GasUsed hexutil.Uint64 `json:"gasUsed"`
}

// Trace is a flat, parity style trace of a single call.
type Trace struct {
	Type                string
	Action              any // *CallAction, *CreateAction or *SuicideAction
	Result              any // *CallResult, *CreateResult or nil
	Error               string
	BlockHash           common.Hash
	BlockNumber         uint64
	TransactionHash     common.Hash
	TransactionPosition uint64
	Subtraces           uint32
	TraceAddress        []uint32
}

type traceJSON struct {
	Action              any             `json:"action"`
	BlockHash           common.Hash     `json:"blockHash"`
	BlockNumber         uint64          `json:"blockNumber"`
	Result              json.RawMessage `json:"result,omitempty"`
	Error               string          `json:"error,omitempty"`
	Subtraces           uint32          `json:"subtraces"`
	TraceAddress        []uint32        `json:"traceAddress"`
	TransactionHash     common.Hash     `json:"transactionHash"`
	TransactionPosition uint64          `json:"transactionPosition"`
	Type                string          `json:"type"`
}

// MarshalJSON emits either "result" or "error". Successful self-destructs
// carry a null result.
func (t *Trace) MarshalJSON() ([]byte, error) {
	out := traceJSON{
		Action:              t.Action,
		BlockHash:           t.BlockHash,
		BlockNumber:         t.BlockNumber,
		Error:               t.Error,
		Subtraces:           t.Subtraces,
		TraceAddress:        t.TraceAddress,
		TransactionHash:     t.TransactionHash,
		TransactionPosition: t.TransactionPosition,
		Type:                t.Type,
	}
	if out.TraceAddress == nil {
		out.TraceAddress = []uint32{}
	}
	if t.Error == "" {
		result, err := json.Marshal(t.Result)
		if err != nil {
			return nil, err
		}
		out.Result = result
	}
	return json.Marshal(out)
}

// From returns the address the traced call originates from.
func (t *Trace) From() common.Address {
	switch action := t.Action.(type) {
	case *CallAction:
		return action.From
	case *CreateAction:
		return action.From
	case *SuicideAction:
		return action.Address
	}
	return common.Address{}
}

func hexValue(v *uint256.Int) *hexutil.Big {
	if v == nil {
		return (*hexutil.Big)(new(uint256.Int).ToBig())
	}
	return (*hexutil.Big)(v.ToBig())
}

// TraceFilter flattens the call lists of a block into parity style traces.
// Every call list must belong to a transaction of the block.
func TraceFilter(block BlockInfo, txs []*calltrace.TransactionCallList) ([]*Trace, error) {
	var traces []*Trace
	for _, tx := range txs {
		if tx.TxIndex >= uint64(len(block.Transactions)) {
			return nil, replayedUnknownTx(block.Number)
		}
		txHash := block.Transactions[tx.TxIndex]
		if tx.TxHash != (common.Hash{}) && tx.TxHash != txHash {
			return nil, replayedUnknownTx(block.Number)
		}
		for _, call := range tx.Calls {
			trace := newTrace(call)
			trace.BlockHash = block.Hash
			trace.BlockNumber = block.Number
			trace.TransactionHash = txHash
			trace.TransactionPosition = tx.TxIndex
			traces = append(traces, trace)
		}
	}
	if traces == nil {
		traces = []*Trace{}
	}
	return traces, nil
}

func replayedUnknownTx(number uint64) error {
	return ethapi.NewInternalError(fmt.Sprintf("a transaction has been replayed while it shouldn't (in block %d)", number), nil)
}

func newTrace(call *calltrace.Call) *Trace {
	trace := &Trace{
		Type:         call.Kind.String(),
		Error:        call.Error,
		Subtraces:    call.Subtraces,
		TraceAddress: call.TraceAddress,
	}
	switch call.Kind {
	case calltrace.KindCall:
		trace.Action = &CallAction{
			CallType: call.Type,
			From:     call.From,
			Gas:      hexutil.Uint64(call.Gas),
			Input:    call.Input,
			To:       call.To,
			Value:    hexValue(call.Value),
		}
		trace.Result = &CallResult{GasUsed: hexutil.Uint64(call.GasUsed), Output: call.Output}
	case calltrace.KindCreate:
		trace.Action = &CreateAction{
			CreationMethod: call.Type,
			From:           call.From,
			Gas:            hexutil.Uint64(call.Gas),
			Init:           call.Input,
			Value:          hexValue(call.Value),
		}
		trace.Result = &CreateResult{Address: call.To, Code: call.Output, GasUsed: hexutil.Uint64(call.GasUsed)}
	case calltrace.KindSelfDestruct:
		trace.Action = &SuicideAction{
			Address:       call.From,
			Balance:       hexValue(call.Value),
			RefundAddress: call.To,
		}
	}
	return trace
}
