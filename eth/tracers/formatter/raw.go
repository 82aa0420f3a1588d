package formatter

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/zircuit-labs/l2-tracecache/eth/tracers/calltrace"
	"github.com/zircuit-labs/l2-tracecache/eth/tracers/logger"
)

// RawStep is one opcode of a raw trace.
type RawStep struct {
	Depth   uint64                      `json:"depth"`
	Gas     uint64                      `json:"gas"`
	GasCost uint64                      `json:"gasCost"`
	Memory  []common.Hash               `json:"memory,omitempty"`
	Op      string                      `json:"op"`
	Pc      uint64                      `json:"pc"`
	Stack   []common.Hash               `json:"stack,omitempty"`
	Storage map[common.Hash]common.Hash `json:"storage,omitempty"`
	Error   string                      `json:"error,omitempty"`
}

// RawTrace is the struct logger output of a single transaction.
type RawTrace struct {
	Gas         uint64        `json:"gas"`
	Failed      bool          `json:"failed"`
	ReturnValue hexutil.Bytes `json:"returnValue"`
	StructLogs  []RawStep     `json:"structLogs"`
}

// Raw formats the steps of a transaction. Memory is split into 32 byte
// words, the last one left padded.
func Raw(result *logger.ExecutionResult) *RawTrace {
	out := &RawTrace{
		Gas:         result.Gas,
		Failed:      result.Failed,
		ReturnValue: result.ReturnValue,
		StructLogs:  make([]RawStep, 0, len(result.StructLogs)),
	}
	if out.ReturnValue == nil {
		out.ReturnValue = hexutil.Bytes{}
	}
	for _, log := range result.StructLogs {
		out.StructLogs = append(out.StructLogs, RawStep{
			Depth:   log.Depth,
			Gas:     log.Gas,
			GasCost: log.GasCost,
			Memory:  memoryWords(log.Memory),
			Op:      log.Op.String(),
			Pc:      log.Pc,
			Stack:   log.Stack,
			Storage: log.Storage,
			Error:   calltrace.NormalizeError(log.Err, false),
		})
	}
	return out
}

func memoryWords(memory []byte) []common.Hash {
	if len(memory) == 0 {
		return nil
	}
	words := make([]common.Hash, 0, (len(memory)+31)/32)
	for start := 0; start < len(memory); start += 32 {
		end := min(start+32, len(memory))
		words = append(words, common.BytesToHash(memory[start:end]))
	}
	return words
}
