package tracing

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

var ErrEmptyEvent = errors.New("empty event")

// Encode serializes ev as its kind byte followed by the RLP payload.
func Encode(ev Event) ([]byte, error) {
	if enter, ok := ev.(*Enter); ok && enter.Value == nil {
		normalized := *enter
		normalized.Value = new(uint256.Int)
		ev = &normalized
	}
	payload, err := rlp.EncodeToBytes(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", ev.Kind(), err)
	}
	out := make([]byte, 0, len(payload)+1)
	out = append(out, byte(ev.Kind()))
	return append(out, payload...), nil
}

// Decode parses an encoded event.
func Decode(data []byte) (Event, error) {
	if len(data) == 0 {
		return nil, ErrEmptyEvent
	}
	var ev Event
	switch EventKind(data[0]) {
	case KindTxStart:
		ev = new(TxStart)
	case KindEnter:
		ev = new(Enter)
	case KindExit:
		ev = new(Exit)
	case KindStep:
		ev = new(Step)
	case KindGasUpdate:
		ev = new(GasUpdate)
	case KindTxEnd:
		ev = new(TxEnd)
	default:
		return nil, fmt.Errorf("unknown event kind %d", data[0])
	}
	if err := rlp.DecodeBytes(data[1:], ev); err != nil {
		return nil, fmt.Errorf("decode %s event: %w", ev.Kind(), err)
	}
	return ev, nil
}
