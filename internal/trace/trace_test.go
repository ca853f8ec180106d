package trace_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"leafspec/internal/trace"
)

func TestFormatLine(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	line := trace.FormatLine(ts, "export_spectra", trace.MarkerDone, []trace.Field{
		trace.Int("written", 12),
		trace.F("src", "/data/proc/hsi_meta.csv"),
	})
	want := "2025-03-14T09:26:53Z,export_spectra,[DONE],written=12,src=/data/proc/hsi_meta.csv\n"
	if line != want {
		t.Fatalf("FormatLine() = %q, want %q", line, want)
	}
}

func TestModesSortsKeys(t *testing.T) {
	field := trace.Modes(map[string]int{"ZSCORE": 2, "CLOTH": 5, "BASELINE": 1})
	if field.Key != "modes" {
		t.Fatalf("key = %q, want modes", field.Key)
	}
	if field.Value != "{BASELINE:1;CLOTH:5;ZSCORE:2}" {
		t.Fatalf("value = %q", field.Value)
	}
	if trace.Modes(nil).Value != "{}" {
		t.Fatalf("empty counts should render {}")
	}
}

func TestAppendCreatesAndNeverTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace_log.txt")
	w := trace.NewWriter(path)

	if err := w.Append("parse_inventory", trace.MarkerOK, trace.Int("records", 4)); err != nil {
		t.Fatalf("first Append() error = %v", err)
	}
	if err := w.Append("self_check", trace.MarkerErr, trace.F("reason", "processed dir missing")); err != nil {
		t.Fatalf("second Append() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read trace log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("trace log has %d lines, want 2: %q", len(lines), string(data))
	}
	if !strings.Contains(lines[0], "parse_inventory,[OK],records=4") {
		t.Fatalf("first line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "self_check,[ERR],reason=processed dir missing") {
		t.Fatalf("second line = %q", lines[1])
	}
}

func TestParseLineRoundTrip(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	line := trace.FormatLine(ts, "self_check", trace.MarkerOK,
		[]trace.Field{trace.F("status", "PASS"), trace.Int("violations", 0)})

	entry, err := trace.ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine() error = %v", err)
	}
	if !entry.Time.Equal(ts) {
		t.Fatalf("Time = %v, want %v", entry.Time, ts)
	}
	if entry.Stage != "self_check" || entry.Marker != trace.MarkerOK {
		t.Fatalf("stage/marker = %q/%q", entry.Stage, entry.Marker)
	}
	status, ok := entry.Field("status")
	if !ok || status != "PASS" {
		t.Fatalf("status field = %q, %v", status, ok)
	}
	if _, ok := entry.Field("absent"); ok {
		t.Fatal("unexpected field reported present")
	}
}

func TestParseLineRejectsMalformed(t *testing.T) {
	if _, err := trace.ParseLine("not a trace line"); err == nil {
		t.Fatal("expected error for malformed line")
	}
	if _, err := trace.ParseLine("2025-06-01T12:00:00Z,stage,[OK],noequals"); err == nil {
		t.Fatal("expected error for field without =")
	}
}

func TestReadLogMissingFile(t *testing.T) {
	entries, err := trace.ReadLog(filepath.Join(t.TempDir(), "absent.txt"))
	if err != nil {
		t.Fatalf("ReadLog() error = %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestConcurrentAppendsKeepLinesWhole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace_log.txt")
	w := trace.NewWriter(path)

	const writers = 8
	const perWriter = 5
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				if err := w.Append("export_spectra", trace.MarkerDone, trace.Int("written", j)); err != nil {
					t.Errorf("Append() error = %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	entries, err := trace.ReadLog(path)
	if err != nil {
		t.Fatalf("ReadLog() error = %v", err)
	}
	if len(entries) != writers*perWriter {
		t.Fatalf("trace log has %d entries, want %d", len(entries), writers*perWriter)
	}
	for _, e := range entries {
		if e.Stage != "export_spectra" || e.Marker != trace.MarkerDone {
			t.Fatalf("corrupted entry: %+v", e)
		}
	}
}
