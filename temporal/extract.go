package temporal

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"bibmatch/internal/ratelimit"
)

const (
	// defaultMaxConcurrent bounds simultaneous external timestamp-extraction
	// invocations so a large batch cannot exhaust the OS process table.
	defaultMaxConcurrent = 15
	defaultBatchTimeout  = 30 * time.Second
)

// Reader abstracts the external EXIF-reading utility. Implementations may
// shell out, call a native library, or parse in-process; the extractor only
// depends on this contract.
type Reader interface {
	// ReadBatch extracts timestamps for many files in one call.
	ReadBatch(ctx context.Context, paths []string) ([]ImageTimestamp, error)
	// ReadOne extracts the timestamp of a single file.
	ReadOne(ctx context.Context, path string) (ImageTimestamp, error)
}

// ExtractorOptions tunes concurrency and batch behavior. Zero values get
// safe defaults.
type ExtractorOptions struct {
	MaxConcurrent int64
	BatchTimeout  time.Duration
}

// Extractor coordinates batch timestamp extraction with a hard per-batch
// timeout and a bounded-concurrency per-file fallback. A batch-level failure
// never fails the whole batch: affected files fall back to one-at-a-time
// extraction, and a per-file failure simply yields an excluded entry.
type Extractor struct {
	reader       Reader
	sem          *semaphore.Weighted
	batchTimeout time.Duration
	failures     *ratelimit.Counter
}

// NewExtractor builds an Extractor around the given reader.
func NewExtractor(reader Reader, opts ExtractorOptions) *Extractor {
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	batchTimeout := opts.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = defaultBatchTimeout
	}
	return &Extractor{
		reader:       reader,
		sem:          semaphore.NewWeighted(maxConcurrent),
		batchTimeout: batchTimeout,
		failures:     ratelimit.NewCounter(time.Minute),
	}
}

// ExtractBatch returns one ImageTimestamp per input path, in input order.
// Files whose timestamp cannot be read come back as excluded entries rather
// than errors; the only terminal condition is context cancellation, which
// marks all remaining files excluded.
func (e *Extractor) ExtractBatch(ctx context.Context, paths []string) []ImageTimestamp {
	if len(paths) == 0 {
		return nil
	}

	batchCtx, cancel := context.WithTimeout(ctx, e.batchTimeout)
	results, err := e.readBatchBounded(batchCtx, paths)
	cancel()
	if err == nil {
		return normalizeBatch(paths, results)
	}

	if total, allowed := e.failures.Inc(); allowed {
		log.Printf("Temporal: batch extraction failed (%v), falling back to per-file (%d failures total)", err, total)
	}
	return e.extractPerFile(ctx, paths)
}

// readBatchBounded runs the batch call under one semaphore slot so batch and
// per-file invocations share the same concurrency budget.
func (e *Extractor) readBatchBounded(ctx context.Context, paths []string) ([]ImageTimestamp, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.sem.Release(1)
	return e.reader.ReadBatch(ctx, paths)
}

func (e *Extractor) extractPerFile(ctx context.Context, paths []string) []ImageTimestamp {
	out := make([]ImageTimestamp, len(paths))
	var wg sync.WaitGroup
	for i, path := range paths {
		if err := e.sem.Acquire(ctx, 1); err != nil {
			// Context gone; everything not yet started is excluded.
			for j := i; j < len(paths); j++ {
				out[j] = excludedEntry(paths[j])
			}
			break
		}
		wg.Add(1)
		go func(idx int, p string) {
			defer wg.Done()
			defer e.sem.Release(1)
			ts, err := e.reader.ReadOne(ctx, p)
			if err != nil || !ts.Valid() {
				out[idx] = excludedEntry(p)
				return
			}
			out[idx] = ts
		}(i, path)
	}
	wg.Wait()
	return out
}

// normalizeBatch pairs reader output with the requested paths and fills gaps
// with excluded entries so callers always get len(paths) results back.
func normalizeBatch(paths []string, results []ImageTimestamp) []ImageTimestamp {
	byPath := make(map[string]ImageTimestamp, len(results))
	for _, ts := range results {
		byPath[ts.FilePath] = ts
	}
	out := make([]ImageTimestamp, len(paths))
	for i, p := range paths {
		ts, ok := byPath[p]
		if !ok || !ts.Valid() {
			out[i] = excludedEntry(p)
			continue
		}
		out[i] = ts
	}
	return out
}

func excludedEntry(path string) ImageTimestamp {
	return ImageTimestamp{
		FilePath: path,
		FileName: filepath.Base(path),
		Source:   SourceExcluded,
	}
}
