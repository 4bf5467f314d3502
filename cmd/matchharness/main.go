package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"bibmatch/cache"
	"bibmatch/config"
	"bibmatch/evidence"
	"bibmatch/matcher"
	"bibmatch/ocr"
	"bibmatch/roster"
	"bibmatch/sport"
	"bibmatch/temporal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// matchharness runs the full matching pipeline over a directory of analysis
// JSON files against a roster, printing per-image resolutions and cache
// statistics. It exists to exercise the pipeline end to end on real event
// exports without the embedding application.
func main() {
	var (
		configPath    = flag.String("config", "", "YAML configuration file (optional)")
		rosterPath    = flag.String("roster", "", "roster file (.csv or .json)")
		analysisDir   = flag.String("analysis", "", "directory of per-image analysis JSON files")
		timestampPath = flag.String("timestamps", "", "JSON file mapping image file names to capture timestamps (optional)")
		sportCode     = flag.String("sport", "", "sport code (overrides config)")
		passes        = flag.Int("passes", 2, "matching passes (pass 2+ uses neighbor identities)")
	)
	flag.Parse()

	if *rosterPath == "" || *analysisDir == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("matchharness: %v", err)
		}
		cfg = loaded
	}
	if *sportCode != "" {
		cfg.Event.Sport = *sportCode
	}
	cfg.Print()

	participants, err := loadRoster(*rosterPath)
	if err != nil {
		log.Fatalf("matchharness: %v", err)
	}
	log.Printf("matchharness: roster loaded, %d participants", len(participants))

	analyses, err := loadAnalyses(*analysisDir)
	if err != nil {
		log.Fatalf("matchharness: %v", err)
	}
	log.Printf("matchharness: %d analysis files", len(analyses))

	registry := sport.NewRegistry()
	cfg.ApplySports(registry)
	matchCfg := registry.Config(cfg.Event.Sport)

	manager, err := buildCache(cfg.Cache)
	if err != nil {
		log.Fatalf("matchharness: %v", err)
	}
	defer manager.Close()

	var tracer matcher.TraceLogger
	if cfg.Trace.Enabled {
		tracer, err = matcher.NewTraceLogger(cfg.Trace.Path, cfg.Trace.QueueSize)
		if err != nil {
			log.Fatalf("matchharness: %v", err)
		}
		defer tracer.Close()
	}

	m := matcher.New(matcher.Options{
		Registry:  registry,
		Corrector: ocr.NewCorrector(nil),
		Cache:     manager,
		Tracer:    tracer,
	})

	timestamps := loadTimestamps(*timestampPath, cfg.Temporal, analyses)

	resolved := make(map[string]string) // file path -> participant number
	for pass := 1; pass <= *passes; pass++ {
		changed := runPass(m, analyses, participants, cfg.Event.Sport, timestamps, matchCfg, resolved, pass)
		if pass > 1 && changed == 0 {
			break
		}
	}

	printResults(m, analyses, participants, cfg.Event.Sport, timestamps, matchCfg, resolved)

	fmt.Println("\nCache statistics:")
	for _, stats := range manager.Stats() {
		fmt.Printf("  %s\n", stats.String())
	}
	if tracer != nil && tracer.Dropped() > 0 {
		log.Printf("matchharness: %d trace entries dropped", tracer.Dropped())
	}
}

type imageAnalysis struct {
	Path string
	Raw  evidence.RawResult
}

func loadRoster(path string) ([]roster.Participant, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return roster.LoadJSON(path)
	}
	return roster.LoadCSV(path)
}

func loadAnalyses(dir string) ([]imageAnalysis, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read analysis dir %s: %w", dir, err)
	}
	var out []imageAnalysis
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var raw evidence.RawResult
		if err := json.Unmarshal(data, &raw); err != nil {
			log.Printf("matchharness: skipping %s: %v", entry.Name(), err)
			continue
		}
		out = append(out, imageAnalysis{Path: path, Raw: raw})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// mapReader serves pre-extracted capture timestamps from a sidecar JSON file,
// keyed by image file name. This stands in for the external EXIF utility.
type mapReader struct {
	byName map[string]time.Time
}

func (r mapReader) ReadBatch(ctx context.Context, paths []string) ([]temporal.ImageTimestamp, error) {
	out := make([]temporal.ImageTimestamp, 0, len(paths))
	for _, p := range paths {
		ts, err := r.ReadOne(ctx, p)
		if err != nil {
			continue
		}
		out = append(out, ts)
	}
	return out, nil
}

func (r mapReader) ReadOne(_ context.Context, path string) (temporal.ImageTimestamp, error) {
	ts, ok := r.byName[filepath.Base(path)]
	if !ok {
		return temporal.ImageTimestamp{}, fmt.Errorf("no timestamp for %s", filepath.Base(path))
	}
	return temporal.ImageTimestamp{
		FilePath:  path,
		FileName:  filepath.Base(path),
		Timestamp: ts,
		Source:    temporal.SourceEXIF,
	}, nil
}

func loadTimestamps(path string, cfg config.TemporalConfig, analyses []imageAnalysis) []temporal.ImageTimestamp {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("matchharness: timestamps unavailable (%v), proximity disabled", err)
		return nil
	}
	var byName map[string]time.Time
	if err := json.Unmarshal(data, &byName); err != nil {
		log.Printf("matchharness: bad timestamp file (%v), proximity disabled", err)
		return nil
	}

	paths := make([]string, len(analyses))
	for i, a := range analyses {
		paths[i] = strings.TrimSuffix(a.Path, filepath.Ext(a.Path))
	}
	extractor := temporal.NewExtractor(mapReader{byName: byName}, temporal.ExtractorOptions{
		MaxConcurrent: int64(cfg.MaxConcurrent),
		BatchTimeout:  cfg.BatchTimeout(),
	})
	return extractor.ExtractBatch(context.Background(), paths)
}

// runPass matches every image once. Later passes feed the identities resolved
// so far back in as neighbor numbers, which is how the proximity bonus
// stabilizes burst sequences. Returns how many resolutions changed.
func runPass(m *matcher.Matcher, analyses []imageAnalysis, participants []roster.Participant, sportCode string, timestamps []temporal.ImageTimestamp, cfg sport.MatchingConfig, resolved map[string]string, pass int) int {
	changed := 0
	for i, a := range analyses {
		result := m.FindMatches(matcher.Request{
			Raw:             a.Raw,
			Participants:    participants,
			Sport:           sportCode,
			NeighborNumbers: neighborNumbers(i, analyses, timestamps, cfg, resolved, pass),
		})
		number := ""
		if result.Best != nil {
			number = result.Best.Participant.Number
		}
		if resolved[a.Path] != number {
			resolved[a.Path] = number
			changed++
		}
	}
	return changed
}

func neighborNumbers(idx int, analyses []imageAnalysis, timestamps []temporal.ImageTimestamp, cfg sport.MatchingConfig, resolved map[string]string, pass int) []string {
	if pass < 2 || idx >= len(timestamps) {
		return nil
	}
	var numbers []string
	for _, neighbor := range temporal.Neighbors(timestamps[idx], timestamps, cfg) {
		analysisPath := neighbor.FilePath + ".json"
		if number := resolved[analysisPath]; number != "" {
			numbers = append(numbers, number)
		}
	}
	return numbers
}

func printResults(m *matcher.Matcher, analyses []imageAnalysis, participants []roster.Participant, sportCode string, timestamps []temporal.ImageTimestamp, cfg sport.MatchingConfig, resolved map[string]string) {
	if len(timestamps) > 0 {
		clusters := temporal.BuildClusters(timestamps, cfg)
		burst := 0
		for _, c := range clusters {
			if c.BurstMode {
				burst++
			}
		}
		fmt.Printf("Temporal: %d clusters (%d burst-mode)\n\n", len(clusters), burst)
	}

	for i, a := range analyses {
		result := m.FindMatches(matcher.Request{
			Raw:             a.Raw,
			Participants:    participants,
			Sport:           sportCode,
			NeighborNumbers: neighborNumbers(i, analyses, timestamps, cfg, resolved, 2),
		})
		name := filepath.Base(a.Path)
		if result.Best == nil {
			fmt.Printf("%-40s  no_match\n", name)
			continue
		}
		fmt.Printf("%-40s  #%s %s  score=%.2f conf=%.2f method=%s\n",
			name,
			result.Best.Participant.Number,
			result.Best.Participant.DisplayName(),
			result.Best.Score,
			result.Best.Confidence,
			result.Method)
		for _, correction := range result.Best.Debug.Corrections {
			fmt.Printf("%-40s    corrected: %s\n", "", correction)
		}
	}
}

func buildCache(cfg config.CacheConfig) (*cache.Manager, error) {
	opts := cache.ManagerOptions{
		Fast: cache.NewMemoryTier(cache.MemoryOptions{
			MaxEntries: cfg.MemoryMaxEntries,
			DefaultTTL: cfg.MemoryTTL(),
		}),
		FastTTL:   cfg.MemoryTTL(),
		LocalTTL:  cfg.PebbleTTL(),
		SharedTTL: cfg.SharedTTL(),
	}
	if cfg.PebblePath != "" {
		local, err := cache.NewPebbleTier(cache.PebbleOptions{
			Path:       cfg.PebblePath,
			DefaultTTL: cfg.PebbleTTL(),
			MaxEntries: cfg.PebbleMaxEntries,
		})
		if err != nil {
			return nil, err
		}
		opts.Local = local
	}
	if cfg.SharedURL != "" {
		shared, err := cache.NewHTTPTier(cache.HTTPOptions{
			BaseURL: cfg.SharedURL,
			Timeout: cfg.SharedTimeout(),
		})
		if err != nil {
			return nil, err
		}
		opts.Shared = shared
	}
	return cache.NewManager(opts), nil
}
