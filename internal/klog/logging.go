// Package klog is the kernel's structured logging surface: a narrow
// Logger interface any component can be handed (Adapter narrows it to
// sched.Logger, no import cycle needed), a built-in pretty/JSON
// DefaultLogger, and a NoOpLogger for when diagnostics aren't wanted.
//
// Adapted from the eventloop package's structured-logging design: same
// level-gated Logger interface and terminal-vs-aggregator output split,
// generalized from event-loop categories (timer/promise/microtask/poll)
// to kernel ones (task/mutex/timer/heap).
package klog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/davecgh/go-spew/spew"
)

// Level is the severity of a log entry.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", l)
	}
}

// Entry is one structured log record.
type Entry struct {
	Level     Level
	Category  string // "task", "mutex", "semaphore", "timer", "heap", ...
	TaskName  string
	Message   string
	Err       error
	Context   map[string]any
	Timestamp time.Time
}

// Logger is the structured logging interface every kernel component
// accepts. Satisfied by DefaultLogger and NoOpLogger; Adapter (adapter.go)
// wraps a Logger to present sched.Logger's narrower Debugf/Infof surface.
type Logger interface {
	Log(entry Entry)
	IsEnabled(level Level) bool
}

// NoOpLogger discards every entry.
type NoOpLogger struct{}

func (NoOpLogger) Log(Entry)                { /* discarded */ }
func (NoOpLogger) IsEnabled(Level) bool      { return false }

// DefaultLogger writes pretty-printed entries to a terminal and
// line-delimited JSON otherwise.
type DefaultLogger struct {
	level atomic.Int32
	mu    sync.Mutex
	Out   io.Writer
}

// NewDefaultLogger returns a DefaultLogger writing to os.Stdout at the
// given minimum level.
func NewDefaultLogger(level Level) *DefaultLogger {
	l := &DefaultLogger{Out: os.Stdout}
	l.level.Store(int32(level))
	return l
}

// SetLevel changes the minimum level logged.
func (l *DefaultLogger) SetLevel(level Level) {
	l.level.Store(int32(level))
}

// IsEnabled reports whether level would currently be logged.
func (l *DefaultLogger) IsEnabled(level Level) bool {
	return level >= Level(l.level.Load())
}

// Log writes entry if its level is enabled.
func (l *DefaultLogger) Log(entry Entry) {
	if !l.IsEnabled(entry.Level) {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if f, ok := l.Out.(*os.File); ok && isTerminal(f) {
		l.logPretty(entry)
	} else {
		l.logJSON(entry)
	}
}

func (l *DefaultLogger) logPretty(entry Entry) {
	const (
		reset = "\033[0m"
		dim   = "\033[2m"
	)
	color := map[Level]string{
		LevelDebug: "\033[90m",
		LevelInfo:  "\033[36m",
		LevelWarn:  "\033[33m",
		LevelError: "\033[31m",
	}[entry.Level]

	fmt.Fprintf(l.Out, "%s%s%s %s [%-10s] %s",
		color, entry.Level, reset,
		entry.Timestamp.Format("15:04:05.000"),
		entry.Category, entry.Message)

	if entry.TaskName != "" || len(entry.Context) > 0 {
		fmt.Fprint(l.Out, dim)
		if entry.TaskName != "" {
			fmt.Fprintf(l.Out, " task=%s", entry.TaskName)
		}
		for k, v := range entry.Context {
			fmt.Fprintf(l.Out, " %s=%v", k, v)
		}
		fmt.Fprint(l.Out, reset)
	}
	if entry.Err != nil {
		fmt.Fprintf(l.Out, " %s%v%s\n", color, entry.Err, reset)
	} else {
		fmt.Fprintln(l.Out)
	}
}

func (l *DefaultLogger) logJSON(entry Entry) {
	fmt.Fprintf(l.Out, "{\"ts\":%q,\"level\":%q,\"category\":%q,\"msg\":%q",
		entry.Timestamp.Format(time.RFC3339Nano), entry.Level, entry.Category, entry.Message)
	if entry.TaskName != "" {
		fmt.Fprintf(l.Out, ",\"task\":%q", entry.TaskName)
	}
	if entry.Err != nil {
		fmt.Fprintf(l.Out, ",\"err\":%q", entry.Err.Error())
	}
	fmt.Fprint(l.Out, "}\n")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// DumpStruct renders v with go-spew for inclusion in a debug-level log
// Context value — for dumping a task-stats snapshot or a primitive's
// internal state without hand-writing a formatter for each one.
func DumpStruct(v any) string {
	return spew.Sdump(v)
}
