package matcher

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// Trace captures one completed matching decision for offline analysis:
// which method fired, what the winning score and gap looked like, and which
// corrections were applied on the way.
type Trace struct {
	Timestamp     time.Time
	Sport         string
	Method        string
	BestNumber    string
	BestScore     float64
	Confidence    float64
	Gap           float64
	EvidenceCount int
	Candidates    int
	Corrections   []string
}

// TraceLogger accepts decision traces for asynchronous persistence.
// Implementations MUST drop or buffer without blocking the hot path.
type TraceLogger interface {
	Enqueue(trace Trace)
	Close() error
	Dropped() int64
}

// traceLogger writes matching decisions to a daily-rotated SQLite database
// without blocking the caller. Entries are buffered on a bounded channel;
// when full, records are dropped and the drop count is exposed via Dropped().
type traceLogger struct {
	basePath string
	queue    chan Trace

	mu          sync.Mutex
	db          *sql.DB
	currentPath string
	insertStmt  *sql.Stmt

	wg        sync.WaitGroup
	closeOnce sync.Once

	dropped  atomic.Int64
	errCount atomic.Int64
}

const defaultTraceQueue = 8192

// NewTraceLogger builds a non-blocking SQLite-backed logger. The basePath
// acts as a prefix:
//   - blank -> data/analysis/matchtrace_YYYY-MM-DD.db
//   - directory -> <dir>/matchtrace_YYYY-MM-DD.db
//   - file -> <dir>/<basename>_YYYY-MM-DD.db (extension coerced to .db)
//
// The caller must invoke Close() on shutdown to flush buffered entries.
func NewTraceLogger(basePath string, queueSize int) (TraceLogger, error) {
	if queueSize <= 0 {
		queueSize = defaultTraceQueue
	}
	l := &traceLogger{
		basePath: strings.TrimSpace(basePath),
		queue:    make(chan Trace, queueSize),
	}
	l.wg.Add(1)
	go l.run()
	return l, nil
}

// Enqueue attempts to buffer the trace without blocking. When the queue is
// full, the trace is dropped and the dropped counter increments.
func (l *traceLogger) Enqueue(trace Trace) {
	select {
	case l.queue <- trace:
	default:
		d := l.dropped.Add(1)
		if d == 1 || d%1000 == 0 {
			log.Printf("match-trace logger backpressure: dropped %d entries", d)
		}
	}
}

// Dropped returns how many traces were discarded due to backpressure.
func (l *traceLogger) Dropped() int64 {
	return l.dropped.Load()
}

// Close flushes the queue and releases database handles.
func (l *traceLogger) Close() error {
	var closeErr error
	l.closeOnce.Do(func() {
		close(l.queue)
		l.wg.Wait()
		l.mu.Lock()
		defer l.mu.Unlock()
		closeErr = l.closeDBLocked()
	})
	return closeErr
}

func (l *traceLogger) run() {
	defer l.wg.Done()
	for trace := range l.queue {
		if err := l.write(trace); err != nil {
			l.reportError(err)
		}
	}
}

func (l *traceLogger) write(trace Trace) error {
	ts := trace.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	if _, err := l.ensureDB(ts); err != nil {
		return err
	}
	if l.insertStmt == nil {
		return fmt.Errorf("match-trace logger: prepared statement not initialized")
	}

	path := l.pathFor(ts)
	corrections := strings.Join(trace.Corrections, "; ")

	var insertErr error
	for attempt := 0; attempt < 2; attempt++ {
		_, insertErr = l.insertStmt.Exec(
			ts.UTC().Unix(),
			strings.ToLower(trace.Sport),
			trace.Method,
			trace.BestNumber,
			trace.BestScore,
			trace.Confidence,
			trace.Gap,
			trace.EvidenceCount,
			trace.Candidates,
			corrections,
		)
		if insertErr == nil {
			return nil
		}
		if attempt == 0 && isSQLiteCorrupted(insertErr) {
			l.mu.Lock()
			l.closeDBLocked()
			l.mu.Unlock()
			_ = os.Remove(path)
			if _, err := l.ensureDB(ts); err != nil {
				return err
			}
			continue
		}
		break
	}
	return fmt.Errorf("match-trace logger: insert trace: %w", insertErr)
}

func (l *traceLogger) ensureDB(ts time.Time) (*sql.DB, error) {
	path := l.pathFor(ts)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.db != nil && l.currentPath == path {
		return l.db, nil
	}

	if err := l.closeDBLocked(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("match-trace logger: mkdir %s: %w", filepath.Dir(path), err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		db, err := sql.Open("sqlite", path)
		if err != nil {
			return nil, fmt.Errorf("match-trace logger: open %s: %w", path, err)
		}
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		if _, err := db.Exec(`PRAGMA journal_mode = WAL; PRAGMA synchronous = NORMAL;`); err != nil {
			db.Close()
			if attempt == 0 && isSQLiteCorrupted(err) {
				_ = os.Remove(path)
				continue
			}
			return nil, fmt.Errorf("match-trace logger: pragmas: %w", err)
		}
		if err := initTraceSchema(db); err != nil {
			db.Close()
			if attempt == 0 && isSQLiteCorrupted(err) {
				_ = os.Remove(path)
				continue
			}
			return nil, err
		}

		insertStmt, err := db.Prepare(`
INSERT INTO traces (
    ts, sport, method, best_number, best_score, confidence, gap,
    evidence_count, candidates, corrections
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("match-trace logger: prepare traces: %w", err)
		}

		l.db = db
		l.insertStmt = insertStmt
		l.currentPath = path
		return l.db, nil
	}
	return nil, fmt.Errorf("match-trace logger: unable to open database")
}

func (l *traceLogger) closeDBLocked() error {
	var firstErr error
	if l.insertStmt != nil {
		if err := l.insertStmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		l.insertStmt = nil
	}
	if l.db != nil {
		if err := l.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		l.db = nil
	}
	l.currentPath = ""
	return firstErr
}

func isSQLiteCorrupted(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database disk image is malformed") ||
		strings.Contains(msg, "file is encrypted or is not a database")
}

func (l *traceLogger) pathFor(ts time.Time) string {
	return TraceLogPath(l.basePath, ts)
}

// TraceLogPath resolves the SQLite file path for a given base path and
// timestamp, following the NewTraceLogger base-path rules.
func TraceLogPath(basePath string, ts time.Time) string {
	date := ts.Format("2006-01-02")
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return filepath.Join("data", "analysis", fmt.Sprintf("matchtrace_%s.db", date))
	}

	clean := filepath.Clean(basePath)
	if info, err := os.Stat(clean); err == nil && info.IsDir() {
		return filepath.Join(clean, fmt.Sprintf("matchtrace_%s.db", date))
	}

	dir := filepath.Dir(clean)
	base := strings.TrimSuffix(filepath.Base(clean), filepath.Ext(clean))
	ext := filepath.Ext(clean)
	if ext == "" || strings.EqualFold(ext, ".log") || strings.EqualFold(ext, ".txt") {
		ext = ".db"
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "matchtrace"
	}

	return filepath.Join(dir, fmt.Sprintf("%s_%s%s", base, date, ext))
}

func initTraceSchema(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("match-trace logger: db is nil")
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS traces (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    ts INTEGER NOT NULL,
    sport TEXT,
    method TEXT,
    best_number TEXT,
    best_score REAL,
    confidence REAL,
    gap REAL,
    evidence_count INTEGER,
    candidates INTEGER,
    corrections TEXT
);
CREATE INDEX IF NOT EXISTS idx_traces_ts ON traces(ts);
CREATE INDEX IF NOT EXISTS idx_traces_sport ON traces(sport);
CREATE INDEX IF NOT EXISTS idx_traces_method ON traces(method);
`); err != nil {
		return fmt.Errorf("match-trace logger: init schema: %w", err)
	}
	return nil
}

func (l *traceLogger) reportError(err error) {
	if err == nil {
		return
	}
	n := l.errCount.Add(1)
	if n == 1 || n%100 == 0 {
		log.Printf("match-trace logger error (%d): %v", n, err)
	}
}
