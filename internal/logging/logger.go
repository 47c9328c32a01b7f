// Package logging provides leveled operational logging and a per-day trace
// of simulation runs. It offers two outputs:
//   - A leveled slog.Logger for stderr
//   - A DayLogger writing one JSONL record per simulated day (days.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug. Per-day compartment flows
// are only emitted at this level.
const LevelTrace = slog.LevelDebug - 4

// DayLogFile is the name of the JSONL trace written by DayLogger.
const DayLogFile = "days.jsonl"

// ParseLevel maps a level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a text slog.Logger writing to w at the given level.
func NewLogger(level string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 4}))
}

// DayEntry is one line of the day trace.
type DayEntry struct {
	RunID            string         `json:"run_id"`
	Day              int            `json:"day"`
	Counts           map[string]int `json:"counts"`
	AmbientPressure  float64        `json:"ambient_pressure"`
	Recovery         float64        `json:"recovery"`
	AvailableDoctors int            `json:"available_doctors"`
	Transitions      int            `json:"transitions"`
	Time             string         `json:"time"`
}

// DayLogger appends DayEntry records to a JSONL file. It is safe for
// concurrent use, and a nil *DayLogger is a valid no-op logger.
type DayLogger struct {
	mu   sync.Mutex
	file *os.File
	now  func() time.Time
}

// NewDayLogger opens dir/days.jsonl for append. At info level it returns
// nil and creates nothing; it also returns nil when the file cannot be
// opened.
func NewDayLogger(dir, level string) *DayLogger {
	if ParseLevel(level) >= slog.LevelInfo {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, DayLogFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil
	}
	return &DayLogger{file: f, now: time.Now}
}

// Log writes entry as a single line, stamping Time when it is empty.
func (dl *DayLogger) Log(entry DayEntry) {
	if dl == nil {
		return
	}
	if entry.Time == "" {
		entry.Time = dl.now().UTC().Format(time.RFC3339Nano)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.file == nil {
		return
	}
	_, _ = dl.file.Write(data)
}

// Close closes the underlying file. Safe on a nil receiver.
func (dl *DayLogger) Close() error {
	if dl == nil {
		return nil
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.file == nil {
		return nil
	}
	err := dl.file.Close()
	dl.file = nil
	return err
}
