package tracing

import "errors"

// Sink receives encoded events from a replay executor.
type Sink interface {
	Emit(data []byte) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(data []byte) error

func (f SinkFunc) Emit(data []byte) error { return f(data) }

// Hooks decodes events and dispatches them to the non-nil callbacks.
type Hooks struct {
	OnTxStart   func(*TxStart) error
	OnEnter     func(*Enter) error
	OnExit      func(*Exit) error
	OnStep      func(*Step) error
	OnGasUpdate func(*GasUpdate) error
	OnTxEnd     func(*TxEnd) error
}

// Emit implements Sink.
func (h *Hooks) Emit(data []byte) error {
	ev, err := Decode(data)
	if err != nil {
		return err
	}
	return h.Dispatch(ev)
}

// Dispatch calls the callback matching ev.
func (h *Hooks) Dispatch(ev Event) error {
	switch ev := ev.(type) {
	case *TxStart:
		if h.OnTxStart != nil {
			return h.OnTxStart(ev)
		}
	case *Enter:
		if h.OnEnter != nil {
			return h.OnEnter(ev)
		}
	case *Exit:
		if h.OnExit != nil {
			return h.OnExit(ev)
		}
	case *Step:
		if h.OnStep != nil {
			return h.OnStep(ev)
		}
	case *GasUpdate:
		if h.OnGasUpdate != nil {
			return h.OnGasUpdate(ev)
		}
	case *TxEnd:
		if h.OnTxEnd != nil {
			return h.OnTxEnd(ev)
		}
	default:
		return errors.New("unexpected event type")
	}
	return nil
}
