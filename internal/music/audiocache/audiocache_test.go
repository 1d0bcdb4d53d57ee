package audiocache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"soundkeep/internal/storage"
)

func newTestCache(t *testing.T, maxBytes int64) (*Cache, *storage.Storage, *time.Time) {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cache, err := New(store, filepath.Join(t.TempDir(), "cache"), maxBytes)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }
	return cache, store, &clock
}

// putFile writes size bytes at the cache path for url and registers it.
func putFile(t *testing.T, c *Cache, url string, size int) string {
	t.Helper()
	path := c.PathFor(url) + ".webm"
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.Put(url, path, "track "+url, 180); err != nil {
		t.Fatalf("Put(%s): %v", url, err)
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestFileNameIsShortStableHash(t *testing.T) {
	a := FileName("https://example.com/watch?v=1")
	b := FileName("https://example.com/watch?v=1")
	c := FileName("https://example.com/watch?v=2")

	if len(a) != 16 {
		t.Errorf("FileName length = %d, want 16", len(a))
	}
	if a != b {
		t.Error("FileName is not deterministic")
	}
	if a == c {
		t.Error("distinct URLs hashed to the same name")
	}
}

func TestGetMissOnUnknownURL(t *testing.T) {
	cache, _, _ := newTestCache(t, 1<<20)
	if _, ok := cache.Get("https://example.com/none"); ok {
		t.Error("Get reported a hit on an empty cache")
	}
}

func TestPutThenGet(t *testing.T) {
	cache, _, _ := newTestCache(t, 1<<20)
	url := "https://example.com/watch?v=1"
	path := putFile(t, cache, url, 100)

	got, ok := cache.Get(url)
	if !ok || got != path {
		t.Errorf("Get = (%q, %v), want (%q, true)", got, ok, path)
	}
}

func TestGetHealsStaleRecord(t *testing.T) {
	cache, store, _ := newTestCache(t, 1<<20)
	url := "https://example.com/watch?v=1"
	path := putFile(t, cache, url, 100)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	if _, ok := cache.Get(url); ok {
		t.Fatal("Get reported a hit for a vanished file")
	}
	rec, err := store.GetCachedTrack(url)
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Error("stale record survived the miss")
	}
}

func TestEvictionDropsLeastRecentlyPlayed(t *testing.T) {
	cache, store, clock := newTestCache(t, 100)

	pathA := putFile(t, cache, "url-a", 40)
	*clock = clock.Add(time.Minute)
	pathB := putFile(t, cache, "url-b", 40)
	*clock = clock.Add(time.Minute)
	pathC := putFile(t, cache, "url-c", 40)

	if fileExists(pathA) {
		t.Error("oldest entry's file survived eviction")
	}
	if rec, _ := store.GetCachedTrack("url-a"); rec != nil {
		t.Error("oldest entry's record survived eviction")
	}
	if !fileExists(pathB) || !fileExists(pathC) {
		t.Error("newer entries were evicted")
	}

	total, err := store.TotalCacheSize()
	if err != nil {
		t.Fatal(err)
	}
	if total > 100 {
		t.Errorf("total size after eviction = %d, want <= 100", total)
	}
}

func TestEvictionRemovesSeveralEntriesInRecencyOrder(t *testing.T) {
	cache, store, clock := newTestCache(t, 10)

	putFile(t, cache, "url-1", 4)
	*clock = clock.Add(time.Minute)
	putFile(t, cache, "url-2", 4)
	*clock = clock.Add(time.Minute)
	putFile(t, cache, "url-3", 4)
	*clock = clock.Add(time.Minute)

	// Total would be 16: the two oldest must go, then eviction stops.
	putFile(t, cache, "url-new", 4)

	for _, gone := range []string{"url-1", "url-2"} {
		if rec, _ := store.GetCachedTrack(gone); rec != nil {
			t.Errorf("%s survived eviction", gone)
		}
	}
	for _, kept := range []string{"url-3", "url-new"} {
		if rec, _ := store.GetCachedTrack(kept); rec == nil {
			t.Errorf("%s was evicted", kept)
		}
	}
}

func TestPlaybackRefreshesRecency(t *testing.T) {
	cache, store, clock := newTestCache(t, 100)

	putFile(t, cache, "url-a", 40)
	*clock = clock.Add(time.Minute)
	pathB := putFile(t, cache, "url-b", 40)

	// Playing a again makes b the least recently played.
	*clock = clock.Add(time.Minute)
	if _, ok := cache.Get("url-a"); !ok {
		t.Fatal("expected cache hit for url-a")
	}

	*clock = clock.Add(time.Minute)
	putFile(t, cache, "url-c", 40)

	if rec, _ := store.GetCachedTrack("url-a"); rec == nil {
		t.Error("recently played entry was evicted")
	}
	if fileExists(pathB) {
		t.Error("least recently played entry survived eviction")
	}
}

func TestEvictionRemovesOversizedNewestEntry(t *testing.T) {
	cache, store, _ := newTestCache(t, 50)

	path := putFile(t, cache, "url-big", 80)

	if fileExists(path) {
		t.Error("oversized entry's file survived its own registration")
	}
	records, err := store.CachedTracksByRecency()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("records after eviction = %d, want 0", len(records))
	}
}

func TestEvictionToleratesAlreadyMissingFile(t *testing.T) {
	cache, store, clock := newTestCache(t, 100)

	pathA := putFile(t, cache, "url-a", 60)
	if err := os.Remove(pathA); err != nil {
		t.Fatal(err)
	}

	*clock = clock.Add(time.Minute)
	putFile(t, cache, "url-b", 60)

	if rec, _ := store.GetCachedTrack("url-a"); rec != nil {
		t.Error("record with a missing file was not evicted")
	}
	total, err := store.TotalCacheSize()
	if err != nil {
		t.Fatal(err)
	}
	if total > 100 {
		t.Errorf("total size = %d, want <= 100", total)
	}
}

func TestPutOverwritesExistingRecord(t *testing.T) {
	cache, store, clock := newTestCache(t, 1 << 20)
	url := "https://example.com/watch?v=1"

	putFile(t, cache, url, 100)
	*clock = clock.Add(time.Hour)
	putFile(t, cache, url, 200)

	rec, err := store.GetCachedTrack(url)
	if err != nil || rec == nil {
		t.Fatalf("GetCachedTrack: rec=%v err=%v", rec, err)
	}
	if rec.FileSize != 200 {
		t.Errorf("file size = %d, want the overwriting record's 200", rec.FileSize)
	}

	total, _ := store.TotalCacheSize()
	if total != 200 {
		t.Errorf("total = %d, want a single 200 byte record", total)
	}
}

func TestPlaylistPathIsStableAndOutsideBudget(t *testing.T) {
	cache, store, _ := newTestCache(t, 10)

	a, err := cache.PlaylistPath("g1", 7, "https://example.com/t1")
	if err != nil {
		t.Fatalf("PlaylistPath: %v", err)
	}
	b, err := cache.PlaylistPath("g1", 7, "https://example.com/t1")
	if err != nil {
		t.Fatalf("PlaylistPath again: %v", err)
	}
	if a != b {
		t.Errorf("path not stable: %q vs %q", a, b)
	}
	if filepath.Base(a) != FileName("https://example.com/t1") {
		t.Errorf("stem = %q, want hash of url", filepath.Base(a))
	}
	if info, err := os.Stat(filepath.Dir(a)); err != nil || !info.IsDir() {
		t.Errorf("playlist directory not created: %v", err)
	}

	other, _ := cache.PlaylistPath("g1", 8, "https://example.com/t1")
	if filepath.Dir(other) == filepath.Dir(a) {
		t.Error("distinct playlists share a directory")
	}

	// A playlist file on disk never enters the eviction budget.
	path := a + ".opus"
	if err := os.WriteFile(path, make([]byte, 100), 0o644); err != nil {
		t.Fatal(err)
	}
	putFile(t, cache, "url-a", 4)
	if _, ok := cache.Get("url-a"); !ok {
		t.Error("indexed entry evicted by playlist file outside the index")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("playlist file removed by eviction: %v", err)
	}
	rec, _ := store.GetCachedTrack("url-a")
	if rec == nil {
		t.Error("cache record missing after put")
	}
}
