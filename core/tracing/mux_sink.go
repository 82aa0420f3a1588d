package tracing

import "errors"

// MuxSink forwards every event to several sinks, to support running
// multiple listeners over a single replay.
type MuxSink struct {
	sinks []Sink
}

// NewMuxSink creates a new MuxSink over the given sinks. Nil sinks are skipped.
func NewMuxSink(sinks ...Sink) *MuxSink {
	mux := &MuxSink{}
	for _, sink := range sinks {
		if sink != nil {
			mux.sinks = append(mux.sinks, sink)
		}
	}
	return mux
}

// Emit delivers data to every sink, even after one of them failed.
func (m *MuxSink) Emit(data []byte) error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Emit(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
