package tracing

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"
)

// Emitter encodes events into a Sink. The first error sticks: once the
// sink has failed, every later call returns the same error.
type Emitter struct {
	sink Sink
	err  error
}

func NewEmitter(sink Sink) *Emitter {
	return &Emitter{sink: sink}
}

// Err returns the first encoding or sink error.
func (e *Emitter) Err() error { return e.err }

func (e *Emitter) emit(ev Event) error {
	if e.err != nil {
		return e.err
	}
	data, err := Encode(ev)
	if err == nil {
		err = e.sink.Emit(data)
	}
	e.err = err
	return err
}

func (e *Emitter) TxStart(hash common.Hash, index uint64) error {
	return e.emit(&TxStart{Hash: hash, Index: index})
}

func (e *Emitter) Enter(op vm.OpCode, from, to common.Address, input []byte, gas uint64, value *uint256.Int) error {
	return e.emit(&Enter{Op: op, From: from, To: to, Input: input, Gas: gas, Value: value})
}

func (e *Emitter) Exit(output []byte, gasUsed uint64, errMsg string, reverted bool) error {
	return e.emit(&Exit{Output: output, GasUsed: gasUsed, Error: errMsg, Reverted: reverted})
}

func (e *Emitter) Step(step *Step) error {
	return e.emit(step)
}

func (e *Emitter) GasUpdate(gasUsed uint64) error {
	return e.emit(&GasUpdate{GasUsed: gasUsed})
}

func (e *Emitter) TxEnd(gasUsed uint64, output []byte, errMsg string) error {
	return e.emit(&TxEnd{GasUsed: gasUsed, Output: output, Error: errMsg})
}
