package tracelog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects the root logger output.
type Config struct {
	Level      string `koanf:"level"`  // trace, debug, info, warn, error, crit
	Format     string `koanf:"format"` // terminal, json, logfmt
	File       string `koanf:"file"`   // rotate into this file instead of stderr
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

var DefaultConfig = Config{
	Level:      "info",
	Format:     "terminal",
	MaxSizeMB:  100,
	MaxBackups: 10,
	MaxAgeDays: 30,
}

// ParseLevel maps a level name onto the go-ethereum slog levels.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}

// Handler builds the root handler described by cfg. The returned closer
// releases the log file, if any.
func Handler(cfg Config) (slog.Handler, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		output   io.Writer = os.Stderr
		closer   io.Closer = nopCloser{}
		useColor           = false
	)
	if cfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		output, closer = rotating, rotating
	} else {
		fd := os.Stderr.Fd()
		useColor = (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) && os.Getenv("TERM") != "dumb"
		if useColor {
			output = colorable.NewColorableStderr()
		}
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "terminal":
		handler = log.NewTerminalHandler(output, useColor)
	case "json":
		handler = log.JSONHandler(output)
	case "logfmt":
		handler = log.LogfmtHandler(output)
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	glogger := log.NewGlogHandler(handler)
	glogger.Verbosity(level)
	return glogger, closer, nil
}

// Setup installs the root logger described by cfg.
func Setup(cfg Config) (io.Closer, error) {
	handler, closer, err := Handler(cfg)
	if err != nil {
		return nil, err
	}
	log.SetDefault(log.NewLogger(handler))
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
