package build

import (
	"fmt"
	"io"
	"strings"

	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"
)

// LogConfig describes the root logger of the process.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error, critical or off.
	Level string

	// Console receives a copy of every record. Nil disables console
	// output.
	Console io.Writer

	// File configures the rotating log file. Nil disables file output.
	File *LogRotatorConfig
}

// RootLogger is the process-wide logger. Sub-systems hang off it through
// SubLogger, which is what the per-package UseLogger hooks receive.
type RootLogger struct {
	btclogv2.Logger

	handlers *HandlerSet
	file     *RotatingLogWriter
}

// NewRootLogger builds the console and file handlers described by cfg and
// joins them in a HandlerSet.
func NewRootLogger(cfg *LogConfig) (*RootLogger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var (
		handlers []btclogv2.Handler
		file     *RotatingLogWriter
	)
	if cfg.Console != nil {
		handlers = append(
			handlers, btclogv2.NewDefaultHandler(cfg.Console),
		)
	}
	if cfg.File != nil {
		file, err = NewRotatingLogWriter(cfg.File)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, btclogv2.NewDefaultHandler(file))
	}

	set := NewHandlerSet(handlers...)
	set.SetLevel(level)

	return &RootLogger{
		Logger:   btclogv2.NewSLogger(set),
		handlers: set,
		file:     file,
	}, nil
}

// SubLogger returns a logger tagged with the sub-system name.
func (r *RootLogger) SubLogger(subsystem string) btclogv2.Logger {
	sub := btclogv2.NewSLogger(r.handlers.SubSystem(subsystem))
	sub.SetLevel(r.handlers.Level())

	return sub
}

// Close flushes and closes the log file, if any.
func (r *RootLogger) Close() error {
	if r.file == nil {
		return nil
	}

	return r.file.Close()
}

// ParseLevel maps a level name onto a btclog level. The empty string means
// info.
func ParseLevel(s string) (btclog.Level, error) {
	if s == "" {
		return btclog.LevelInfo, nil
	}

	level, ok := btclog.LevelFromString(strings.ToLower(s))
	if !ok {
		return btclog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}

	return level, nil
}
