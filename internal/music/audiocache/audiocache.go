// Package audiocache is the content-addressed local audio store. It maps a
// canonical track URL to a downloaded file on disk plus an index record in
// SQLite, and enforces a byte budget by evicting least-recently-played
// entries.
package audiocache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"soundkeep/internal/logger"
	"soundkeep/internal/storage"
)

type Cache struct {
	store    *storage.Storage
	dir      string
	maxBytes int64
	log      zerolog.Logger

	now func() time.Time // injectable clock for tests
}

// New creates a cache rooted at dir with the given byte budget. The
// directory is created if missing.
func New(store *storage.Storage, dir string, maxBytes int64) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{
		store:    store,
		dir:      dir,
		maxBytes: maxBytes,
		log:      logger.With("audiocache"),
		now:      time.Now,
	}, nil
}

// FileName returns the deterministic short hash of a canonical URL used as
// the on-disk filename stem.
func FileName(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])[:16]
}

// PathFor returns the cache path stem for url, without an extension. The
// downloader appends the container extension chosen by the provider.
func (c *Cache) PathFor(url string) string {
	return filepath.Join(c.dir, FileName(url))
}

// PlaylistPath returns the path stem for a track inside a cached playlist's
// directory, creating the directory if missing. Cached playlist files live
// under their own subtree and are never counted against the byte budget.
func (c *Cache) PlaylistPath(guildID string, playlistID int64, url string) (string, error) {
	dir := filepath.Join(c.dir, "playlists", fmt.Sprintf("%s_%d", guildID, playlistID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create playlist cache directory: %w", err)
	}
	return filepath.Join(dir, FileName(url)), nil
}

// Get returns the cached file path for url and refreshes its recency. A
// record whose backing file has vanished is deleted and reported as a miss;
// that is expected self-healing, not a failure.
func (c *Cache) Get(url string) (string, bool) {
	rec, err := c.store.GetCachedTrack(url)
	if err != nil {
		c.log.Warn().Err(err).Str("url", url).Msg("cache index read failed")
		return "", false
	}
	if rec == nil {
		return "", false
	}

	if _, err := os.Stat(rec.FilePath); err != nil {
		// File was removed externally; heal the index.
		if delErr := c.store.DeleteCachedTrack(url); delErr != nil {
			c.log.Warn().Err(delErr).Str("url", url).Msg("failed to heal stale cache record")
		}
		return "", false
	}

	if err := c.store.TouchCachedTrack(url, c.now().UTC()); err != nil {
		c.log.Warn().Err(err).Str("url", url).Msg("failed to refresh cache recency")
	}
	return rec.FilePath, true
}

// Put registers a freshly downloaded file for url, overwriting any previous
// record, then immediately evicts down to the byte budget.
func (c *Cache) Put(url, filePath, title string, duration int) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("failed to stat cached file: %w", err)
	}

	now := c.now().UTC()
	rec := storage.CacheRecord{
		URL:        url,
		FilePath:   filePath,
		Title:      title,
		Duration:   duration,
		FileSize:   info.Size(),
		CachedAt:   now,
		LastPlayed: now,
	}
	if err := c.store.UpsertCachedTrack(rec); err != nil {
		return err
	}

	c.EvictToBudget()
	return nil
}

// EvictToBudget removes least-recently-played records until the total
// recorded size fits the budget or no records remain. File removal errors
// are tolerated: the record is dropped either way.
func (c *Cache) EvictToBudget() {
	total, err := c.store.TotalCacheSize()
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to read total cache size")
		return
	}
	if total <= c.maxBytes {
		return
	}

	records, err := c.store.CachedTracksByRecency()
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to list cache records for eviction")
		return
	}

	for _, rec := range records {
		if total <= c.maxBytes {
			break
		}
		if err := os.Remove(rec.FilePath); err != nil && !os.IsNotExist(err) {
			c.log.Warn().Err(err).Str("path", rec.FilePath).Msg("eviction file removal failed")
		}
		if err := c.store.DeleteCachedTrack(rec.URL); err != nil {
			c.log.Warn().Err(err).Str("url", rec.URL).Msg("eviction record removal failed")
			continue
		}
		total -= rec.FileSize
		c.log.Debug().Str("url", rec.URL).Int64("size", rec.FileSize).Msg("evicted cache record")
	}
}
