package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"bibmatch/sport"
)

func TestLoadFullConfig(t *testing.T) {
	content := `
event:
  name: "Rally Islas Canarias 2026"
  sport: rally
cache:
  memory_max_entries: 5000
  memory_ttl_seconds: 900
  pebble_path: /var/cache/bibmatch
  pebble_ttl_seconds: 604800
  shared_url: http://cache.local:8080
  shared_ttl_seconds: 86400
temporal:
  max_concurrent: 8
  batch_timeout_seconds: 20
trace:
  enabled: true
  path: /var/log/bibmatch
  queue_size: 4096
logging:
  level: debug
sports:
  rally:
    person_name_weight: 9
    cluster_window_ms: 5000
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Event.Sport != "rally" {
		t.Fatalf("sport = %q", cfg.Event.Sport)
	}
	if cfg.Cache.MemoryTTL() != 15*time.Minute || cfg.Cache.PebbleTTL() != 168*time.Hour {
		t.Fatalf("cache TTLs: %+v", cfg.Cache)
	}
	if cfg.Temporal.MaxConcurrent != 8 || cfg.Temporal.BatchTimeout() != 20*time.Second {
		t.Fatalf("temporal: %+v", cfg.Temporal)
	}
	if !cfg.Trace.Enabled || cfg.Trace.QueueSize != 4096 {
		t.Fatalf("trace: %+v", cfg.Trace)
	}

	registry := sport.NewRegistry()
	cfg.ApplySports(registry)
	rally := registry.Config("rally")
	if rally.Weights.PersonName != 9 {
		t.Fatalf("person name weight = %v, want patched 9", rally.Weights.PersonName)
	}
	if rally.ClusterWindow != 5*time.Second {
		t.Fatalf("cluster window = %v, want patched 5s", rally.ClusterWindow)
	}
	if rally.Weights.RaceNumber != sport.NewRegistry().Config("rally").Weights.RaceNumber {
		t.Fatal("patch touched an unpatched field")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing file should error")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("event: [unclosed"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("malformed yaml should error")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Event.Sport != sport.DefaultSport {
		t.Fatalf("default sport = %q", cfg.Event.Sport)
	}
}
