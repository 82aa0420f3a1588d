package tracelog

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	zkrlog "github.com/zircuit-labs/zkr-go-common/log"
)

// exit is swapped in tests so Crit can be exercised.
var exit = os.Exit

// slogAdapter exposes a *slog.Logger through go-ethereum's log.Logger.
type slogAdapter struct {
	inner *slog.Logger
}

// NewAdapter creates a log.Logger adapter around a *slog.Logger
func NewAdapter(sl *slog.Logger) log.Logger {
	return &slogAdapter{inner: sl}
}

// enrichErrors replaces every "err*" key holding a non-nil error with
// zkrlog.ErrAttr so the handler can render the error chain and stack trace.
func enrichErrors(attrs []any) []any {
	if len(attrs) < 2 {
		return attrs
	}

	out := make([]any, 0, len(attrs))
	for i := 0; i < len(attrs); i++ {
		key, isKey := attrs[i].(string)
		if !isKey || i+1 == len(attrs) {
			out = append(out, attrs[i])
			continue
		}
		value := attrs[i+1]
		i++

		if err, ok := value.(error); ok && err != nil && strings.HasPrefix(strings.ToLower(key), "err") {
			out = append(out, zkrlog.ErrAttr(err))
			continue
		}
		out = append(out, key, value)
	}
	return out
}

func (a *slogAdapter) emit(level slog.Level, msg string, attrs []any) {
	ctx := context.Background()
	if !a.inner.Enabled(ctx, level) {
		return
	}
	a.inner.Log(ctx, level, msg, enrichErrors(attrs)...)
}

func (a *slogAdapter) With(ctx ...any) log.Logger {
	return &slogAdapter{inner: a.inner.With(ctx...)}
}

// New is an alias of With.
func (a *slogAdapter) New(ctx ...any) log.Logger {
	return a.With(ctx...)
}

func (a *slogAdapter) Log(level slog.Level, msg string, ctx ...any) {
	a.emit(level, msg, ctx)
}

func (a *slogAdapter) Trace(msg string, ctx ...any) { a.emit(log.LevelTrace, msg, ctx) }
func (a *slogAdapter) Debug(msg string, ctx ...any) { a.emit(slog.LevelDebug, msg, ctx) }
func (a *slogAdapter) Info(msg string, ctx ...any)  { a.emit(slog.LevelInfo, msg, ctx) }
func (a *slogAdapter) Warn(msg string, ctx ...any)  { a.emit(slog.LevelWarn, msg, ctx) }
func (a *slogAdapter) Error(msg string, ctx ...any) { a.emit(slog.LevelError, msg, ctx) }

// Crit logs at the crit level and terminates the process.
func (a *slogAdapter) Crit(msg string, ctx ...any) {
	a.emit(log.LevelCrit, msg, ctx)
	exit(1)
}

func (a *slogAdapter) Write(level slog.Level, msg string, attrs ...any) {
	a.emit(level, msg, attrs)
}

func (a *slogAdapter) Enabled(ctx context.Context, level slog.Level) bool {
	return a.inner.Enabled(ctx, level)
}

func (a *slogAdapter) Handler() slog.Handler {
	return a.inner.Handler()
}
