package formatter

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/zircuit-labs/l2-tracecache/eth/tracers/calltrace"
)

// BlockscoutCall is one entry of the flat call list expected by the
// Blockscout indexer.
type BlockscoutCall struct {
	From         common.Address `json:"from"`
	TraceAddress []uint32       `json:"traceAddress"`
	Value        *hexutil.Big   `json:"value"`
	Gas          hexutil.Uint64 `json:"gas"`
	GasUsed      hexutil.Uint64 `json:"gasUsed"`
	Type         string         `json:"type"`

	CallType string          `json:"callType,omitempty"`
	To       *common.Address `json:"to,omitempty"`
	Input    *hexutil.Bytes  `json:"input,omitempty"`
	Output   *hexutil.Bytes  `json:"output,omitempty"`
	Error    string          `json:"error,omitempty"`

	Init                       *hexutil.Bytes  `json:"init,omitempty"`
	CreatedContractAddressHash *common.Address `json:"createdContractAddressHash,omitempty"`
	CreatedContractCode        *hexutil.Bytes  `json:"createdContractCode,omitempty"`
}

// Blockscout formats the call list of a single transaction.
func Blockscout(tx *calltrace.TransactionCallList) []*BlockscoutCall {
	calls := make([]*BlockscoutCall, 0, len(tx.Calls))
	for _, call := range tx.Calls {
		calls = append(calls, newBlockscoutCall(call))
	}
	return calls
}

func newBlockscoutCall(call *calltrace.Call) *BlockscoutCall {
	out := &BlockscoutCall{
		From:         call.From,
		TraceAddress: call.TraceAddress,
		Value:        hexValue(call.Value),
		Gas:          hexutil.Uint64(call.Gas),
		GasUsed:      hexutil.Uint64(call.GasUsed),
	}
	if out.TraceAddress == nil {
		out.TraceAddress = []uint32{}
	}
	to := call.To

	switch call.Kind {
	case calltrace.KindCall:
		out.Type = "call"
		out.CallType = call.Type
		out.To = &to
		out.Input = bytesPtr(call.Input)
		if call.Error != "" {
			out.Error = call.Error
		} else {
			out.Output = bytesPtr(call.Output)
		}
	case calltrace.KindCreate:
		out.Type = "create"
		out.Init = bytesPtr(call.Input)
		if call.Error != "" {
			out.Error = call.Error
		} else {
			out.CreatedContractAddressHash = &to
			out.CreatedContractCode = bytesPtr(call.Output)
		}
	case calltrace.KindSelfDestruct:
		out.Type = "selfdestruct"
		out.To = &to
	}
	return out
}

func bytesPtr(b []byte) *hexutil.Bytes {
	out := hexutil.Bytes(b)
	if out == nil {
		out = hexutil.Bytes{}
	}
	return &out
}
