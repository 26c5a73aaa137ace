package arbor

import (
	"log/slog"
	"time"
)

// QueryEntry is one recorded statement: the rendered SQL, its ordered
// bindings and the elapsed execution time.
type QueryEntry struct {
	SQL      string
	Bindings []any
	Elapsed  time.Duration
	Err      error
}

// QueryLog is a passive observer of executed statements. The core
// reports every successful execution to it when logging is enabled.
//
// The log is process-wide mutable state with no internal locking;
// concurrent use requires external serialization, matching the
// single-threaded call model of the core.
type QueryLog struct {
	enabled       bool
	entries       []QueryEntry
	slowThreshold time.Duration
	logger        *slog.Logger
}

// NewQueryLog returns a disabled query log.
func NewQueryLog() *QueryLog {
	return &QueryLog{}
}

// Enable turns recording on.
func (l *QueryLog) Enable() { l.enabled = true }

// Disable turns recording off. Existing entries are kept.
func (l *QueryLog) Disable() { l.enabled = false }

// Enabled reports whether the log records statements.
func (l *QueryLog) Enabled() bool { return l.enabled }

// SetSlowThreshold makes the log emit a warning through the given logger
// whenever a recorded statement exceeds d. A zero duration disables the
// warning.
func (l *QueryLog) SetSlowThreshold(d time.Duration, logger *slog.Logger) {
	l.slowThreshold = d
	l.logger = logger
}

// Record appends an entry when the log is enabled.
func (l *QueryLog) Record(entry QueryEntry) {
	if !l.enabled {
		return
	}
	l.entries = append(l.entries, entry)
	if l.slowThreshold > 0 && entry.Elapsed > l.slowThreshold {
		logger := l.logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("slow query detected",
			"duration", entry.Elapsed, "query", entry.SQL, "bindings", entry.Bindings)
	}
}

// Entries returns the recorded entries in execution order.
func (l *QueryLog) Entries() []QueryEntry { return l.entries }

// Len returns the number of recorded entries.
func (l *QueryLog) Len() int { return len(l.entries) }

// Flush discards all recorded entries.
func (l *QueryLog) Flush() { l.entries = nil }
