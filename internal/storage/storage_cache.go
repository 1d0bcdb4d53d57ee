package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CacheRecord is one row of the audio cache index. URL is the canonical
// track URL and is unique; FilePath points at the downloaded audio file.
type CacheRecord struct {
	URL        string
	FilePath   string
	Title      string
	Duration   int
	FileSize   int64
	CachedAt   time.Time
	LastPlayed time.Time
}

// GetCachedTrack returns the record for url, or nil when none exists.
func (s *Storage) GetCachedTrack(url string) (*CacheRecord, error) {
	row := s.db.QueryRow(
		`SELECT url, file_path, title, duration, file_size, cached_at, last_played
		 FROM audio_cache WHERE url = ?`, url)

	var rec CacheRecord
	var cachedAt, lastPlayed int64
	err := row.Scan(&rec.URL, &rec.FilePath, &rec.Title, &rec.Duration,
		&rec.FileSize, &cachedAt, &lastPlayed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache record: %w", err)
	}
	rec.CachedAt = time.Unix(cachedAt, 0).UTC()
	rec.LastPlayed = time.Unix(lastPlayed, 0).UTC()
	return &rec, nil
}

// UpsertCachedTrack inserts or replaces the record for rec.URL. An overwrite
// replaces path, title, duration and size and resets recency.
func (s *Storage) UpsertCachedTrack(rec CacheRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO audio_cache (url, file_path, title, duration, file_size, cached_at, last_played)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
			file_path = excluded.file_path,
			title = excluded.title,
			duration = excluded.duration,
			file_size = excluded.file_size,
			last_played = excluded.last_played`,
		rec.URL, rec.FilePath, rec.Title, rec.Duration, rec.FileSize,
		rec.CachedAt.Unix(), rec.LastPlayed.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert cache record: %w", err)
	}
	return nil
}

// TouchCachedTrack updates the last-played timestamp for url.
func (s *Storage) TouchCachedTrack(url string, playedAt time.Time) error {
	_, err := s.db.Exec(
		`UPDATE audio_cache SET last_played = ? WHERE url = ?`,
		playedAt.Unix(), url)
	if err != nil {
		return fmt.Errorf("failed to touch cache record: %w", err)
	}
	return nil
}

// DeleteCachedTrack removes the record for url. Deleting a missing record
// is not an error.
func (s *Storage) DeleteCachedTrack(url string) error {
	_, err := s.db.Exec(`DELETE FROM audio_cache WHERE url = ?`, url)
	if err != nil {
		return fmt.Errorf("failed to delete cache record: %w", err)
	}
	return nil
}

// CachedTracksByRecency lists all records, least recently played first.
// Ties break on oldest cached-at, then on insertion order.
func (s *Storage) CachedTracksByRecency() ([]CacheRecord, error) {
	rows, err := s.db.Query(
		`SELECT url, file_path, title, duration, file_size, cached_at, last_played
		 FROM audio_cache ORDER BY last_played ASC, cached_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache records: %w", err)
	}
	defer rows.Close()

	var records []CacheRecord
	for rows.Next() {
		var rec CacheRecord
		var cachedAt, lastPlayed int64
		if err := rows.Scan(&rec.URL, &rec.FilePath, &rec.Title, &rec.Duration,
			&rec.FileSize, &cachedAt, &lastPlayed); err != nil {
			return nil, fmt.Errorf("failed to scan cache record: %w", err)
		}
		rec.CachedAt = time.Unix(cachedAt, 0).UTC()
		rec.LastPlayed = time.Unix(lastPlayed, 0).UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

// TotalCacheSize returns the sum of file sizes over all cache records.
func (s *Storage) TotalCacheSize() (int64, error) {
	var total int64
	err := s.db.QueryRow(`SELECT COALESCE(SUM(file_size), 0) FROM audio_cache`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum cache sizes: %w", err)
	}
	return total, nil
}
