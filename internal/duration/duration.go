package duration

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type (
	// Duration is a time.Duration that decodes from configuration text.
	// Accepted forms are Go duration strings ("90s", "5m") and plain integer
	// seconds ("300"), the latter matching the historical seconds-based
	// cache settings.
	Duration time.Duration
)

// Seconds builds a Duration from a number of seconds.
func Seconds(s uint64) Duration {
	return Duration(time.Duration(s) * time.Second)
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(data []byte) error {
	text := strings.TrimSpace(string(data))
	if secs, err := strconv.ParseUint(text, 10, 64); err == nil {
		*d = Seconds(secs)
		return nil
	}

	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	if parsed < 0 {
		return fmt.Errorf("invalid duration %q: negative", text)
	}

	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}
