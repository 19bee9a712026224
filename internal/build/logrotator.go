package build

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jrick/logrotate/rotator"
)

const (
	// DefaultMaxLogFiles is how many rotated files are kept on disk.
	DefaultMaxLogFiles = 5

	// DefaultMaxLogFileSize is the size in MB at which the log rotates.
	DefaultMaxLogFileSize = 10

	// DefaultLogFilename is the name of the active log file.
	DefaultLogFilename = "finreveal.log"
)

// LogRotatorConfig controls where the site writes its log file and how the
// file is rotated.
type LogRotatorConfig struct {
	// LogDir is the directory holding the active and rotated log files.
	LogDir string

	// MaxLogFiles is the number of rotated files to keep. Zero keeps a
	// single, unbounded file.
	MaxLogFiles int

	// MaxLogFileSize is the rotation threshold in megabytes.
	MaxLogFileSize int

	// Filename overrides DefaultLogFilename.
	Filename string
}

// DefaultLogRotatorConfig returns the rotation settings used when the
// config file says nothing.
func DefaultLogRotatorConfig() *LogRotatorConfig {
	return &LogRotatorConfig{
		MaxLogFiles:    DefaultMaxLogFiles,
		MaxLogFileSize: DefaultMaxLogFileSize,
		Filename:       DefaultLogFilename,
	}
}

// RotatingLogWriter is an io.WriteCloser that feeds a jrick/logrotate
// rotator through a pipe. Rotated files are gzip compressed.
type RotatingLogWriter struct {
	pipe    *io.PipeWriter
	rotator *rotator.Rotator
	done    chan struct{}
}

// NewRotatingLogWriter creates the log directory, opens the rotator and
// starts the goroutine that drains the pipe into it.
func NewRotatingLogWriter(cfg *LogRotatorConfig) (*RotatingLogWriter, error) {
	filename := cfg.Filename
	if filename == "" {
		filename = DefaultLogFilename
	}

	logFile := filepath.Join(cfg.LogDir, filename)
	if err := os.MkdirAll(filepath.Dir(logFile), 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	// The rotator threshold is in kilobytes.
	r, err := rotator.New(
		logFile, int64(cfg.MaxLogFileSize*1024), false, cfg.MaxLogFiles,
	)
	if err != nil {
		return nil, fmt.Errorf("create file rotator: %w", err)
	}
	r.SetCompressor(gzip.NewWriter(nil), ".gz")

	pr, pw := io.Pipe()
	w := &RotatingLogWriter{
		pipe:    pw,
		rotator: r,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(w.done)

		// The rotator is the log sink, so its own failure can only be
		// reported on stderr.
		if err := r.Run(pr); err != nil {
			_, _ = fmt.Fprintf(
				os.Stderr, "log rotator stopped: %v\n", err,
			)
		}
		_ = r.Close()
	}()

	return w, nil
}

// Write is part of the io.Writer interface.
func (w *RotatingLogWriter) Write(b []byte) (int, error) {
	return w.pipe.Write(b)
}

// Close flushes the pipe and waits for the rotator goroutine to exit.
func (w *RotatingLogWriter) Close() error {
	err := w.pipe.Close()
	<-w.done

	return err
}
