package sage

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Logger receives log output from an Engine. A line may start with a Level
// value; loggers that filter or structure output look at it.
type Logger interface {
	Log(values ...any)
	LogLine(values ...any)
}

// Level is the severity of a log line.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel parses a configured log level such as "info".
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	return LevelInfo, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", s)
}

// writerLogger writes to an io.Writer
type writerLogger struct {
	w io.Writer
}

func (l *writerLogger) Log(values ...any) {
	fmt.Fprint(l.w, formatLogValues(values...))
}

func (l *writerLogger) LogLine(values ...any) {
	fmt.Fprintln(l.w, formatLogValues(values...))
}

// WriterLogger returns a logger that writes text lines to w.
func WriterLogger(w io.Writer) Logger {
	return &writerLogger{w: w}
}

// jsonLogger writes one JSON object per line
type jsonLogger struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// LogEntry is one line written by a JSON logger.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// JSONLogger returns a logger that writes each line as a JSON object.
func JSONLogger(w io.Writer) Logger {
	return &jsonLogger{w: w, now: time.Now}
}

func (l *jsonLogger) Log(values ...any) {
	l.LogLine(values...)
}

func (l *jsonLogger) LogLine(values ...any) {
	level, rest := splitLevel(values)
	entry := LogEntry{
		Timestamp: l.now().Format(time.RFC3339),
		Level:     strings.ToLower(level.String()),
		Message:   formatLogValues(rest...),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "%s\n", data)
}

// levelFilter drops lines below a minimum level
type levelFilter struct {
	next Logger
	min  Level
}

// FilterLogger returns a logger that passes on lines at min or above.
// Lines without a leading Level count as LevelInfo.
func FilterLogger(next Logger, min Level) Logger {
	return &levelFilter{next: next, min: min}
}

func (l *levelFilter) Log(values ...any) {
	if level, _ := splitLevel(values); level >= l.min {
		l.next.Log(values...)
	}
}

func (l *levelFilter) LogLine(values ...any) {
	if level, _ := splitLevel(values); level >= l.min {
		l.next.LogLine(values...)
	}
}

// BufferedLogger captures log output for later retrieval
type BufferedLogger struct {
	mu    sync.Mutex
	lines []string
	buf   strings.Builder
}

// NewBufferedLogger creates a new buffered logger
func NewBufferedLogger() *BufferedLogger {
	return &BufferedLogger{
		lines: make([]string, 0),
	}
}

func (l *BufferedLogger) Log(values ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.WriteString(formatLogValues(values...))
}

func (l *BufferedLogger) LogLine(values ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	// Flush any pending buffer content as a line
	line := l.buf.String() + formatLogValues(values...)
	l.lines = append(l.lines, line)
	l.buf.Reset()
}

// String returns all captured output as a single string
func (l *BufferedLogger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	result := strings.Join(l.lines, "\n")
	if len(l.lines) > 0 {
		result += "\n"
	}
	if l.buf.Len() > 0 {
		result += l.buf.String()
	}
	return result
}

// Lines returns all captured log lines
func (l *BufferedLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	result := make([]string, len(l.lines))
	copy(result, l.lines)
	return result
}

// Reset clears all captured output
func (l *BufferedLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = l.lines[:0]
	l.buf.Reset()
}

// nullLogger discards all output
type nullLogger struct{}

func (l *nullLogger) Log(values ...any)     {}
func (l *nullLogger) LogLine(values ...any) {}

// NullLogger returns a logger that discards all output
func NullLogger() Logger {
	return &nullLogger{}
}

func splitLevel(values []any) (Level, []any) {
	if len(values) > 0 {
		if level, ok := values[0].(Level); ok {
			return level, values[1:]
		}
	}
	return LevelInfo, values
}

// formatLogValues joins values with spaces. A Level is written as [LEVEL].
func formatLogValues(values ...any) string {
	if len(values) == 0 {
		return ""
	}
	parts := make([]string, len(values))
	for i, v := range values {
		if level, ok := v.(Level); ok {
			parts[i] = "[" + level.String() + "]"
			continue
		}
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, " ")
}
