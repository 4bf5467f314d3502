package matcher

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func TestTraceLoggerWritesRows(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewTraceLogger(dir, 16)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	at := time.Date(2026, 6, 14, 10, 0, 0, 0, time.UTC)
	logger.Enqueue(Trace{
		Timestamp:     at,
		Sport:         "Motorsport",
		Method:        MethodClearWinner,
		BestNumber:    "46",
		BestScore:     16.2,
		Confidence:    0.98,
		Gap:           9.7,
		EvidenceCount: 3,
		Candidates:    120,
		Corrections:   []string{"46 → 48 (pattern 46→48)"},
	})
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if logger.Dropped() != 0 {
		t.Fatalf("dropped = %d", logger.Dropped())
	}

	db, err := sql.Open("sqlite", TraceLogPath(dir, at))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	var sportCode, method, number string
	var score float64
	row := db.QueryRow(`SELECT sport, method, best_number, best_score FROM traces`)
	if err := row.Scan(&sportCode, &method, &number, &score); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if sportCode != "motorsport" {
		t.Fatalf("sport = %q, want lower-cased", sportCode)
	}
	if method != MethodClearWinner || number != "46" || score != 16.2 {
		t.Fatalf("row: %q %q %v", method, number, score)
	}
}

func TestTraceLoggerBackpressureDrops(t *testing.T) {
	// Queue size 1 with no consumer drain guarantee: flood it and verify the
	// logger never blocks and accounts for what it sheds.
	logger, err := NewTraceLogger(t.TempDir(), 1)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	defer logger.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			logger.Enqueue(Trace{Sport: "motorsport", Method: MethodNoMatch})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Enqueue blocked under backpressure")
	}
}

func TestTraceLogPathShapes(t *testing.T) {
	at := time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC)

	if got := TraceLogPath("", at); got != filepath.Join("data", "analysis", "matchtrace_2026-06-14.db") {
		t.Fatalf("blank base: %q", got)
	}
	dir := t.TempDir()
	if got := TraceLogPath(dir, at); got != filepath.Join(dir, "matchtrace_2026-06-14.db") {
		t.Fatalf("directory base: %q", got)
	}
	if got := TraceLogPath("/var/log/traces.log", at); got != filepath.Join("/var/log", "traces_2026-06-14.db") {
		t.Fatalf("file base: %q", got)
	}
}

func TestTraceLoggerCloseIdempotent(t *testing.T) {
	logger, err := NewTraceLogger(t.TempDir(), 4)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
