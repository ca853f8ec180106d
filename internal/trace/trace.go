package trace

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// FileName is the trace log's name under the reports directory.
const FileName = "trace_log.txt"

// Stage markers recorded in the third position of every trace line.
const (
	MarkerOK   = "[OK]"
	MarkerErr  = "[ERR]"
	MarkerDone = "[DONE]"
)

// Field is one key=value pair appended to a trace line. Field order is the
// caller's order so repeated invocations of the same stage produce lines that
// differ only in timestamp and values.
type Field struct {
	Key   string
	Value string
}

// F builds a string field.
func F(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int builds an integer field.
func Int(key string, n int) Field {
	return Field{Key: key, Value: fmt.Sprintf("%d", n)}
}

// Modes encodes per-mode counts as modes={A:1;B:2} with sorted keys so the
// rendering is independent of map iteration order.
func Modes(counts map[string]int) Field {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		fmt.Fprintf(&b, "%s:%d", k, counts[k])
	}
	b.WriteByte('}')
	return Field{Key: "modes", Value: b.String()}
}

// Writer appends lines to the append-only trace log. Every append acquires an
// exclusive flock on a sibling lock file for the duration of the single
// write, so concurrent stage invocations interleave whole lines, never bytes.
type Writer struct {
	path string
	lock *flock.Flock
}

// NewWriter returns a writer for the trace log at path. The log file is
// created on first append.
func NewWriter(path string) *Writer {
	return &Writer{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the trace log location.
func (w *Writer) Path() string {
	return w.path
}

// Append writes one line for the stage at the current time.
func (w *Writer) Append(stage, marker string, fields ...Field) error {
	return w.AppendAt(time.Now().UTC(), stage, marker, fields...)
}

// AppendAt writes one line with an explicit timestamp.
func (w *Writer) AppendAt(ts time.Time, stage, marker string, fields ...Field) error {
	line := FormatLine(ts, stage, marker, fields)

	if err := w.lock.Lock(); err != nil {
		return fmt.Errorf("lock trace log: %w", err)
	}
	defer func() {
		_ = w.lock.Unlock()
	}()

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open trace log: %w", err)
	}
	if _, err := f.WriteString(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("append trace line: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close trace log: %w", err)
	}
	return nil
}

// FormatLine renders one trace line:
//
//	<RFC3339 UTC>,<stage>,<marker>,k=v,...
func FormatLine(ts time.Time, stage, marker string, fields []Field) string {
	parts := make([]string, 0, 3+len(fields))
	parts = append(parts, ts.UTC().Format(time.RFC3339), stage, marker)
	for _, f := range fields {
		parts = append(parts, f.Key+"="+f.Value)
	}
	return strings.Join(parts, ",") + "\n"
}

// Entry is one parsed trace line.
type Entry struct {
	Time   time.Time
	Stage  string
	Marker string
	Fields []Field
}

// Field returns the value for key and whether it was present.
func (e Entry) Field(key string) (string, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// ParseLine parses a single trace line.
func ParseLine(line string) (Entry, error) {
	parts := strings.Split(strings.TrimRight(line, "\n"), ",")
	if len(parts) < 3 {
		return Entry{}, fmt.Errorf("trace line has %d fields, need at least 3", len(parts))
	}
	ts, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return Entry{}, fmt.Errorf("parse trace timestamp: %w", err)
	}
	entry := Entry{Time: ts, Stage: parts[1], Marker: parts[2]}
	for _, kv := range parts[3:] {
		key, value, found := strings.Cut(kv, "=")
		if !found {
			return Entry{}, fmt.Errorf("trace field %q is not key=value", kv)
		}
		entry.Fields = append(entry.Fields, Field{Key: key, Value: value})
	}
	return entry, nil
}

// ReadLog parses every line of the trace log. A missing log returns an empty
// slice, not an error.
func ReadLog(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open trace log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := ParseLine(line)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trace log: %w", err)
	}
	return entries, nil
}
