package debug

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Logger writes debug output to a file when enabled and drops it otherwise.
type Logger struct {
	enabled bool
	logger  *slog.Logger
	file    *os.File
}

// NewLogger opens path for appending when enabled. An empty path writes to
// stderr.
func NewLogger(enabled bool, path string) (*Logger, error) {
	if !enabled {
		return Nop(), nil
	}
	if path == "" {
		return NewWriterLogger(os.Stderr), nil
	}

	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("open debug log: %w", err)
	}
	l := NewWriterLogger(logFile)
	l.file = logFile
	l.Printf("=== DEBUG MODE ENABLED ===")
	return l, nil
}

// Nop returns a disabled logger.
func Nop() *Logger {
	return &Logger{enabled: false, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// NewWriterLogger returns an enabled logger writing to w.
func NewWriterLogger(w io.Writer) *Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &Logger{enabled: true, logger: slog.New(handler)}
}

func (d *Logger) Printf(format string, args ...interface{}) {
	if d == nil || !d.enabled {
		return
	}
	d.logger.Debug(fmt.Sprintf(format, args...))
}

func (d *Logger) Println(args ...interface{}) {
	if d == nil || !d.enabled {
		return
	}
	d.logger.Debug(fmt.Sprint(args...))
}

// Log emits a structured record at level.
func (d *Logger) Log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if d == nil || !d.enabled {
		return
	}
	d.logger.Log(ctx, level, msg, args...)
}

// With returns a logger that adds attrs to every record.
func (d *Logger) With(args ...any) *Logger {
	if d == nil {
		return nil
	}
	return &Logger{enabled: d.enabled, logger: d.logger.With(args...)}
}

// Close closes the log file opened by NewLogger. Loggers derived with With
// share the file and are not closed by it.
func (d *Logger) Close() error {
	if d == nil || d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	d.enabled = false
	return err
}

func (d *Logger) IsEnabled() bool {
	return d != nil && d.enabled
}
