package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"brickgrid.ai/internal/sim/grid"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()
	var out []string
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestAuditLogger_WritesCompressedJSONL(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir)
	l.w.now = func() time.Time { return time.Date(2026, 3, 1, 14, 5, 0, 0, time.UTC) }

	for i := 1; i <= 3; i++ {
		if err := l.WriteAudit(grid.AuditEntry{Tick: uint64(i), Object: "o", Action: "PLACE", Pos: [3]int{i, 0, 2}}); err != nil {
			t.Fatalf("WriteAudit: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := readLines(t, filepath.Join(dir, "audit", "audit-2026-03-01-14.jsonl.zst"))
	if len(lines) != 3 {
		t.Fatalf("lines=%d", len(lines))
	}
	var e grid.AuditEntry
	if err := json.Unmarshal([]byte(lines[2]), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Tick != 3 || e.Action != "PLACE" || e.Pos != [3]int{3, 0, 2} {
		t.Fatalf("entry=%+v", e)
	}
}

func TestTickLogger_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	hour := 10
	l.w.now = func() time.Time { return time.Date(2026, 3, 1, hour, 0, 0, 0, time.UTC) }

	if err := l.WriteTick(grid.TickLogEntry{Tick: 1}); err != nil {
		t.Fatalf("WriteTick: %v", err)
	}
	hour = 11
	if err := l.WriteTick(grid.TickLogEntry{Tick: 2}); err != nil {
		t.Fatalf("WriteTick: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "ticks", "ticks-*.jsonl.zst"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("files=%v", matches)
	}
	for _, m := range matches {
		if n := len(readLines(t, m)); n != 1 {
			t.Fatalf("%s: lines=%d", m, n)
		}
	}

	entries, err := ReadTicks(dir)
	if err != nil {
		t.Fatalf("ReadTicks: %v", err)
	}
	if len(entries) != 2 || entries[0].Tick != 1 || entries[1].Tick != 2 {
		t.Fatalf("entries=%+v", entries)
	}
}

func TestReadTicks_MissingDir(t *testing.T) {
	if _, err := ReadTicks(t.TempDir()); !os.IsNotExist(err) {
		t.Fatalf("err=%v", err)
	}
}

type failingSink struct{ calls int }

func (f *failingSink) WriteAudit(grid.AuditEntry) error { f.calls++; return errors.New("boom") }

type countingSink struct{ calls int }

func (c *countingSink) WriteAudit(grid.AuditEntry) error { c.calls++; return nil }

func TestTee_TriesEverySink(t *testing.T) {
	bad, good := &failingSink{}, &countingSink{}
	tee := Tee{Audits: []grid.AuditLogger{bad, good}}
	if err := tee.WriteAudit(grid.AuditEntry{}); err == nil {
		t.Fatalf("expected error")
	}
	if bad.calls != 1 || good.calls != 1 {
		t.Fatalf("calls bad=%d good=%d", bad.calls, good.calls)
	}
	if err := (Tee{}).WriteTick(grid.TickLogEntry{}); err != nil {
		t.Fatalf("empty tee: %v", err)
	}
}
