// Package tracelog provides the loggers used by the tracing service. Loggers
// inherit the root logger's format and add rich error attributes with stack
// traces for errors wrapped by zkr-go-common.
package tracelog

import (
	"log/slog"

	"github.com/ethereum/go-ethereum/log"
	zkrlog "github.com/zircuit-labs/zkr-go-common/log"
)

// New creates a logger on top of the root handler, tagged with "tracing"=true.
// The root handler must be installed (see Setup) before New is called, since
// the handler is captured at construction time.
func New() log.Logger {
	enriched := zkrlog.NewLoggableErrorHandler(log.Root().Handler())
	return NewAdapter(slog.New(enriched).With("tracing", true))
}

// NewWith creates a logger with additional context attributes.
func NewWith(ctx ...any) log.Logger {
	return New().With(ctx...)
}
