package temporal

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeReader scripts batch/per-file behavior and records concurrency.
type fakeReader struct {
	batchErr error
	failOne  map[string]bool
	delay    time.Duration

	mu         sync.Mutex
	inFlight   int
	maxInUse   int
	batchCalls atomic.Int64
	oneCalls   atomic.Int64
}

func (r *fakeReader) enter() {
	r.mu.Lock()
	r.inFlight++
	if r.inFlight > r.maxInUse {
		r.maxInUse = r.inFlight
	}
	r.mu.Unlock()
}

func (r *fakeReader) leave() {
	r.mu.Lock()
	r.inFlight--
	r.mu.Unlock()
}

func (r *fakeReader) stampFor(path string) ImageTimestamp {
	return ImageTimestamp{
		FilePath:  path,
		FileName:  filepath.Base(path),
		Timestamp: time.Date(2026, 6, 14, 10, 0, 0, 0, time.UTC),
		Source:    SourceEXIF,
	}
}

func (r *fakeReader) ReadBatch(ctx context.Context, paths []string) ([]ImageTimestamp, error) {
	r.batchCalls.Add(1)
	if r.batchErr != nil {
		return nil, r.batchErr
	}
	out := make([]ImageTimestamp, 0, len(paths))
	for _, p := range paths {
		if r.failOne[p] {
			continue
		}
		out = append(out, r.stampFor(p))
	}
	return out, nil
}

func (r *fakeReader) ReadOne(ctx context.Context, path string) (ImageTimestamp, error) {
	r.oneCalls.Add(1)
	r.enter()
	defer r.leave()
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if r.failOne[path] {
		return ImageTimestamp{}, errors.New("exif read failed")
	}
	return r.stampFor(path), nil
}

func TestExtractBatchHappyPath(t *testing.T) {
	reader := &fakeReader{}
	e := NewExtractor(reader, ExtractorOptions{})
	paths := []string{"/shoot/a.cr3", "/shoot/b.cr3"}

	out := e.ExtractBatch(context.Background(), paths)
	if len(out) != 2 {
		t.Fatalf("got %d results, want 2", len(out))
	}
	for i, ts := range out {
		if ts.FilePath != paths[i] {
			t.Fatalf("result %d out of order: %q", i, ts.FilePath)
		}
		if !ts.Valid() {
			t.Fatalf("result %d not valid: %+v", i, ts)
		}
	}
	if reader.oneCalls.Load() != 0 {
		t.Fatal("happy path should not touch the per-file reader")
	}
}

func TestExtractBatchFillsGapsAsExcluded(t *testing.T) {
	reader := &fakeReader{failOne: map[string]bool{"/shoot/b.cr3": true}}
	e := NewExtractor(reader, ExtractorOptions{})

	out := e.ExtractBatch(context.Background(), []string{"/shoot/a.cr3", "/shoot/b.cr3"})
	if len(out) != 2 {
		t.Fatalf("got %d results, want 2", len(out))
	}
	if !out[0].Valid() {
		t.Fatalf("a.cr3 should be valid: %+v", out[0])
	}
	if out[1].Source != SourceExcluded || out[1].Valid() {
		t.Fatalf("b.cr3 should be excluded: %+v", out[1])
	}
	if out[1].FileName != "b.cr3" {
		t.Fatalf("excluded entry lost its file name: %+v", out[1])
	}
}

func TestExtractBatchFallsBackPerFile(t *testing.T) {
	reader := &fakeReader{
		batchErr: errors.New("batch tool crashed"),
		failOne:  map[string]bool{"/shoot/b.cr3": true},
	}
	e := NewExtractor(reader, ExtractorOptions{})

	out := e.ExtractBatch(context.Background(), []string{"/shoot/a.cr3", "/shoot/b.cr3", "/shoot/c.cr3"})
	if len(out) != 3 {
		t.Fatalf("got %d results, want 3", len(out))
	}
	if !out[0].Valid() || !out[2].Valid() {
		t.Fatalf("per-file fallback lost good files: %+v", out)
	}
	if out[1].Source != SourceExcluded {
		t.Fatalf("failing file should be excluded: %+v", out[1])
	}
	if reader.oneCalls.Load() != 3 {
		t.Fatalf("per-file calls = %d, want 3", reader.oneCalls.Load())
	}
}

func TestExtractPerFileConcurrencyBound(t *testing.T) {
	reader := &fakeReader{
		batchErr: errors.New("force per-file path"),
		delay:    10 * time.Millisecond,
	}
	e := NewExtractor(reader, ExtractorOptions{MaxConcurrent: 3})

	paths := make([]string, 20)
	for i := range paths {
		paths[i] = filepath.Join("/shoot", string(rune('a'+i))+".cr3")
	}
	out := e.ExtractBatch(context.Background(), paths)
	if len(out) != len(paths) {
		t.Fatalf("got %d results, want %d", len(out), len(paths))
	}
	reader.mu.Lock()
	peak := reader.maxInUse
	reader.mu.Unlock()
	if peak > 3 {
		t.Fatalf("observed %d concurrent reads, cap is 3", peak)
	}
}

func TestExtractBatchCancelledContext(t *testing.T) {
	reader := &fakeReader{batchErr: errors.New("force per-file path")}
	e := NewExtractor(reader, ExtractorOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := e.ExtractBatch(ctx, []string{"/shoot/a.cr3", "/shoot/b.cr3"})
	if len(out) != 2 {
		t.Fatalf("got %d results, want 2", len(out))
	}
	for _, ts := range out {
		if ts.Source != SourceExcluded {
			t.Fatalf("cancelled context should exclude all files: %+v", ts)
		}
	}
}

func TestExtractEmptyInput(t *testing.T) {
	e := NewExtractor(&fakeReader{}, ExtractorOptions{})
	if out := e.ExtractBatch(context.Background(), nil); out != nil {
		t.Fatalf("empty input should yield nil, got %v", out)
	}
}
