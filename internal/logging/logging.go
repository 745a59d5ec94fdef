package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug
	case "warn":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Logger writes leveled lines, either tab-separated text or one JSON object per line.
// A nil *Logger discards everything.
type Logger struct {
	mu   sync.Mutex
	min  Level
	json bool
	out  io.Writer
}

func New(level string, jsonOut bool) *Logger {
	out := io.Writer(os.Stderr)
	if jsonOut {
		out = os.Stdout
	}
	return NewWriter(out, level, jsonOut)
}

// NewWriter is New with an explicit destination.
func NewWriter(out io.Writer, level string, jsonOut bool) *Logger {
	return &Logger{min: ParseLevel(level), json: jsonOut, out: out}
}

// Discard returns a logger that drops all output.
func Discard() *Logger { return NewWriter(io.Discard, "error", false) }

func (l *Logger) Enabled(v Level) bool { return l != nil && v >= l.min }

func (l *Logger) Debugf(format string, a ...any) { l.log(Debug, format, a) }
func (l *Logger) Infof(format string, a ...any)  { l.log(Info, format, a) }
func (l *Logger) Warnf(format string, a ...any)  { l.log(Warn, format, a) }
func (l *Logger) Errorf(format string, a ...any) { l.log(Error, format, a) }

func (l *Logger) log(level Level, format string, a []any) {
	if !l.Enabled(level) {
		return
	}
	msg := fmt.Sprintf(format, a...)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.json {
		_ = json.NewEncoder(l.out).Encode(map[string]any{
			"ts":    time.Now().Format(time.RFC3339Nano),
			"level": level.String(),
			"msg":   msg,
		})
		return
	}
	fmt.Fprintf(l.out, "%s\t%s\n", strings.ToUpper(level.String()), msg)
}
