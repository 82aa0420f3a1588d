package formatter

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/zircuit-labs/l2-tracecache/eth/tracers/calltrace"
)

var errMalformedCallList = errors.New("malformed call list")

// CallFrame mirrors the output of go-ethereum's callTracer.
type CallFrame struct {
	Type    string          `json:"type"`
	From    common.Address  `json:"from"`
	Gas     hexutil.Uint64  `json:"gas"`
	GasUsed hexutil.Uint64  `json:"gasUsed"`
	To      *common.Address `json:"to,omitempty"`
	Input   hexutil.Bytes   `json:"input"`
	Output  hexutil.Bytes   `json:"output,omitempty"`
	Error   string          `json:"error,omitempty"`
	Value   *hexutil.Big    `json:"value,omitempty"`
	Calls   []*CallFrame    `json:"calls,omitempty"`
}

// CallTracer nests the pre-order call list of a transaction into a call
// tree. A transaction without calls yields nil.
func CallTracer(tx *calltrace.TransactionCallList) (*CallFrame, error) {
	var (
		root  *CallFrame
		stack []*CallFrame
	)
	for _, call := range tx.Calls {
		frame := newCallFrame(call)
		depth := len(call.TraceAddress)

		if depth == 0 {
			if root != nil {
				return nil, errMalformedCallList
			}
			root = frame
			stack = []*CallFrame{frame}
			continue
		}
		if depth > len(stack) {
			return nil, errMalformedCallList
		}
		stack = stack[:depth]
		parent := stack[depth-1]
		parent.Calls = append(parent.Calls, frame)
		stack = append(stack, frame)
	}
	return root, nil
}

func newCallFrame(call *calltrace.Call) *CallFrame {
	to := call.To
	frame := &CallFrame{
		From:    call.From,
		Gas:     hexutil.Uint64(call.Gas),
		GasUsed: hexutil.Uint64(call.GasUsed),
		To:      &to,
		Input:   call.Input,
		Error:   call.Error,
		Value:   hexValue(call.Value),
	}
	if frame.Input == nil {
		frame.Input = hexutil.Bytes{}
	}
	if call.Error == "" {
		frame.Output = call.Output
	}
	switch call.Kind {
	case calltrace.KindSelfDestruct:
		frame.Type = "SELFDESTRUCT"
	default:
		frame.Type = strings.ToUpper(call.Type)
	}
	return frame
}
