// Package logging writes one JSON object per line, the format every component
// of the service logs in.
package logging

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// Logger is safe for concurrent use. Loggers derived with With share the
// underlying writer and its lock.
type Logger struct {
	mu        *sync.Mutex
	w         io.Writer
	loc       *time.Location
	component string
}

// New returns a Logger writing to w with timestamps rendered in loc.
func New(w io.Writer, loc *time.Location) *Logger {
	if w == nil {
		w = os.Stdout
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Logger{mu: &sync.Mutex{}, w: w, loc: loc}
}

// Nop discards everything. Handy in tests and as a nil-safe default.
func Nop() *Logger {
	return New(io.Discard, time.UTC)
}

// With returns a child logger that stamps every entry with the component name.
func (l *Logger) With(component string) *Logger {
	if l == nil {
		return nil
	}
	child := *l
	child.component = component
	return &child
}

// Location is the time zone the logger renders timestamps in.
func (l *Logger) Location() *time.Location {
	if l == nil {
		return time.UTC
	}
	return l.loc
}

// Log writes data as a single JSON line. "ts" is always set; "level" defaults
// to "error" when status is "error" and to "info" otherwise.
func (l *Logger) Log(data map[string]any) {
	if l == nil {
		return
	}
	entry := make(map[string]any, len(data)+3)
	for k, v := range data {
		entry[k] = v
	}
	entry["ts"] = time.Now().In(l.loc).Format(time.RFC3339Nano)
	if _, ok := entry["level"]; !ok {
		if entry["status"] == "error" {
			entry["level"] = "error"
		} else {
			entry["level"] = "info"
		}
	}
	if l.component != "" {
		if _, ok := entry["component"]; !ok {
			entry["component"] = l.component
		}
	}

	b, err := json.Marshal(entry)
	if err != nil {
		b, _ = json.Marshal(map[string]any{
			"ts":    entry["ts"],
			"level": "error",
			"msg":   "log marshal failed",
			"error": err.Error(),
		})
	}
	b = append(b, '\n')

	l.mu.Lock()
	_, _ = l.w.Write(b)
	l.mu.Unlock()
}

// Info logs a successful event.
func (l *Logger) Info(event string, fields map[string]any) {
	data := map[string]any{"event": event, "status": "success"}
	for k, v := range fields {
		data[k] = v
	}
	l.Log(data)
}

// Error logs a failed event with its error message.
func (l *Logger) Error(event string, err error, fields map[string]any) {
	data := map[string]any{"event": event, "status": "error"}
	if err != nil {
		data["error_message"] = err.Error()
	}
	for k, v := range fields {
		data[k] = v
	}
	l.Log(data)
}
