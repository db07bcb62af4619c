package figma

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCache(t *testing.T) {
	cache := NewCache(t.TempDir(), time.Hour)

	if err := cache.Put("https://api.test/v1/images/K?ids=1:2", []byte("body")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := cache.Get("https://api.test/v1/images/K?ids=1:2")
	if !ok || string(got) != "body" {
		t.Errorf("Get() = %q, %v; want body, true", got, ok)
	}

	if _, ok := cache.Get("https://api.test/v1/images/K?ids=3:4"); ok {
		t.Error("Get() of a different URL should miss")
	}
}

func TestCache_Expired(t *testing.T) {
	cache := NewCache(t.TempDir(), time.Hour)
	now := time.Now()
	cache.now = func() time.Time { return now }

	if err := cache.Put("u", []byte("old")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	cache.now = func() time.Time { return now.Add(59 * time.Minute) }
	if _, ok := cache.Get("u"); !ok {
		t.Error("entry within TTL should hit")
	}

	cache.now = func() time.Time { return now.Add(61 * time.Minute) }
	if _, ok := cache.Get("u"); ok {
		t.Error("entry older than TTL should be treated as absent")
	}
}

func TestCache_CorruptEntryIsAbsent(t *testing.T) {
	dir := t.TempDir()
	cache := NewCache(dir, time.Hour)

	if err := os.WriteFile(cache.path("u"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, ok := cache.Get("u"); ok {
		t.Error("corrupt entry should miss")
	}
}

func TestCache_LastWriterWins(t *testing.T) {
	dir := t.TempDir()
	cache := NewCache(dir, time.Hour)

	_ = cache.Put("u", []byte("first"))
	_ = cache.Put("u", []byte("second"))

	got, ok := cache.Get("u")
	if !ok || string(got) != "second" {
		t.Errorf("Get() = %q, want second", got)
	}

	entries, _ := filepath.Glob(filepath.Join(dir, ".entry-*"))
	if len(entries) != 0 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache("", time.Hour)
	if err := cache.Put("u", []byte("x")); err != nil {
		t.Errorf("Put on disabled cache should be a no-op, got %v", err)
	}
	if _, ok := cache.Get("u"); ok {
		t.Error("disabled cache should always miss")
	}
}
