package cache

import (
	"testing"
	"time"
)

func newTestPebble(t *testing.T) *PebbleTier {
	t.Helper()
	tier, err := NewPebbleTier(PebbleOptions{Path: t.TempDir() + "/store"})
	if err != nil {
		t.Fatalf("open pebble tier: %v", err)
	}
	t.Cleanup(func() { tier.Close() })
	return tier
}

func TestPebbleTierRoundTrip(t *testing.T) {
	tier := newTestPebble(t)
	if err := tier.Set("match|abc", []byte(`{"best":"46"}`), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok := tier.Get("match|abc")
	if !ok || string(got) != `{"best":"46"}` {
		t.Fatalf("get: %q %v", got, ok)
	}
}

func TestPebbleTierMiss(t *testing.T) {
	tier := newTestPebble(t)
	if _, ok := tier.Get("absent"); ok {
		t.Fatal("missing key reported as hit")
	}
	if tier.Stats().Misses != 1 {
		t.Fatalf("misses = %d, want 1", tier.Stats().Misses)
	}
}

func TestPebbleTierTTLExpiry(t *testing.T) {
	tier := newTestPebble(t)
	if err := tier.Set("k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, ok := tier.Get("k"); ok {
		t.Fatal("expired entry served")
	}
	// Expired-on-read entries are deleted.
	if _, ok := tier.Get("k"); ok {
		t.Fatal("expired entry still present")
	}
}

func TestPebbleTierSurvivesReopen(t *testing.T) {
	dir := t.TempDir() + "/store"
	tier, err := NewPebbleTier(PebbleOptions{Path: dir})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := tier.Set("k", []byte("persisted"), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := tier.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewPebbleTier(PebbleOptions{Path: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, ok := reopened.Get("k")
	if !ok || string(got) != "persisted" {
		t.Fatalf("value lost across reopen: %q %v", got, ok)
	}
}

func TestPebbleTierMaintainTrimsToCapacity(t *testing.T) {
	tier := newTestPebble(t)
	tier.maxEntries = 5
	for i := 0; i < 20; i++ {
		key := string(rune('a' + i))
		if err := tier.Set(key, []byte("v"), time.Hour); err != nil {
			t.Fatalf("set %q: %v", key, err)
		}
	}
	tier.maintain(time.Now())
	if entries := tier.Stats().Entries; entries > 5 {
		t.Fatalf("entries = %d after maintenance, cap is 5", entries)
	}
}

func TestPebbleTierClosedOperations(t *testing.T) {
	tier := newTestPebble(t)
	if err := tier.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := tier.Set("k", []byte("v"), time.Hour); err == nil {
		t.Fatal("set after close should error")
	}
	if _, ok := tier.Get("k"); ok {
		t.Fatal("get after close should miss")
	}
	// Double close is a no-op.
	if err := tier.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestRecordEncoding(t *testing.T) {
	created := time.Unix(1750000000, 123).UTC()
	access := created.Add(time.Minute)
	record := encodeRecord(created, time.Hour, access, []byte("payload"))

	gotCreated, gotTTL, gotAccess, value, err := decodeRecord(record)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !gotCreated.Equal(created) || gotTTL != time.Hour || !gotAccess.Equal(access) {
		t.Fatalf("header mismatch: %v %v %v", gotCreated, gotTTL, gotAccess)
	}
	if string(value) != "payload" {
		t.Fatalf("value = %q", value)
	}
}

func TestDecodeRecordRejectsGarbage(t *testing.T) {
	if _, _, _, _, err := decodeRecord([]byte("short")); err == nil {
		t.Fatal("short record accepted")
	}
	bad := make([]byte, pebbleRecordHeaderSize)
	bad[0] = 99
	if _, _, _, _, err := decodeRecord(bad); err == nil {
		t.Fatal("wrong version accepted")
	}
}
