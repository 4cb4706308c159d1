package coroja

import (
	"log/slog"
	"os"

	"github.com/joeycumines/logiface"
	logifaceslog "github.com/joeycumines/logiface-slog"
)

// Logger is the structured-logging surface a Scheduler emits diagnostics
// through. It intentionally mirrors the handful of levels the reference
// workspace's eventloop package logs at. Scheduler.Run emits a Debug
// marker when it starts and another when it completes, the latter
// carrying the tasks_processed counter; no per-tick markers or per-drain
// counters are logged.
//
// Unlike the reference workspace's package-level global logger, Logger is
// a per-Scheduler field: a process can legitimately host more than one
// Scheduler (against different States), and they should not share a
// single global sink.
type Logger interface {
	Debug(msg string, kv ...any)
	Trace(msg string, kv ...any)
	Error(msg string, err error, kv ...any)
}

// logifaceLogger adapts a *logiface.Logger[*logifaceslog.Event] (the
// structured logging stack the reference workspace standardizes on) to
// the Logger interface above.
type logifaceLogger struct {
	l *logiface.Logger[*logifaceslog.Event]
}

// NewLogger builds the default Logger, writing newline-delimited JSON to
// w via log/slog, through logiface (the reference workspace's structured
// logging library).
func NewLogger(w *os.File) Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	l := logiface.New[*logifaceslog.Event](logifaceslog.NewLogger(handler))
	return &logifaceLogger{l: l}
}

func (l *logifaceLogger) Debug(msg string, kv ...any) {
	b := l.l.Debug()
	applyKV(b, kv)
	b.Log(msg)
}

func (l *logifaceLogger) Trace(msg string, kv ...any) {
	b := l.l.Trace()
	applyKV(b, kv)
	b.Log(msg)
}

func (l *logifaceLogger) Error(msg string, err error, kv ...any) {
	b := l.l.Err()
	if err != nil {
		b = b.Err(err)
	}
	applyKV(b, kv)
	b.Log(msg)
}

// applyKV applies a flat key/value... list to a logiface builder. Odd
// trailing keys are dropped; this is a diagnostics path, not a contract.
func applyKV(b *logiface.Builder[*logifaceslog.Event], kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		b.Any(key, kv[i+1])
	}
}

// noopLogger discards everything. Used when no Logger is configured; the
// default error callback then writes coroutine errors to stderr instead.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any)        {}
func (noopLogger) Trace(string, ...any)        {}
func (noopLogger) Error(string, error, ...any) {}
