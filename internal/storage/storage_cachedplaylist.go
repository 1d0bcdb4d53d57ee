package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

// CachedPlaylist is a remote playlist that was bulk-downloaded to disk.
// Its tracks play from local files and are never touched by cache eviction.
type CachedPlaylist struct {
	ID         int64
	GuildID    string
	Name       string
	SourceURL  string
	TrackCount int
}

type CachedPlaylistTrack struct {
	Position int
	Title    string
	URL      string
	Duration int
	FilePath string
}

// CreateCachedPlaylist inserts a cached playlist record, or returns the
// existing one's id when the guild already has a playlist by that name.
// Re-running a cache job resumes instead of starting over.
func (s *Storage) CreateCachedPlaylist(guildID, name, sourceURL string) (int64, error) {
	row := s.db.QueryRow(
		`SELECT id FROM cached_playlists WHERE guild_id = ? AND name = ?`,
		guildID, name)

	var id int64
	err := row.Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to read cached playlist: %w", err)
	}

	res, err := s.db.Exec(
		`INSERT INTO cached_playlists (guild_id, name, source_url) VALUES (?, ?, ?)`,
		guildID, name, sourceURL)
	if err != nil {
		return 0, fmt.Errorf("failed to create cached playlist: %w", err)
	}
	return res.LastInsertId()
}

// GetCachedPlaylist returns the cached playlist with the given name, or nil
// when none exists.
func (s *Storage) GetCachedPlaylist(guildID, name string) (*CachedPlaylist, error) {
	row := s.db.QueryRow(
		`SELECT id, guild_id, name, source_url FROM cached_playlists
		 WHERE guild_id = ? AND name = ?`, guildID, name)

	var p CachedPlaylist
	err := row.Scan(&p.ID, &p.GuildID, &p.Name, &p.SourceURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached playlist: %w", err)
	}
	return &p, nil
}

// ListCachedPlaylists returns every cached playlist in the guild with its
// track count, ordered by name.
func (s *Storage) ListCachedPlaylists(guildID string) ([]CachedPlaylist, error) {
	rows, err := s.db.Query(
		`SELECT cp.id, cp.guild_id, cp.name, cp.source_url, COUNT(t.id)
		 FROM cached_playlists cp
		 LEFT JOIN cached_playlist_tracks t ON t.playlist_id = cp.id
		 WHERE cp.guild_id = ?
		 GROUP BY cp.id ORDER BY cp.name`, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached playlists: %w", err)
	}
	defer rows.Close()

	var playlists []CachedPlaylist
	for rows.Next() {
		var p CachedPlaylist
		if err := rows.Scan(&p.ID, &p.GuildID, &p.Name, &p.SourceURL, &p.TrackCount); err != nil {
			return nil, fmt.Errorf("failed to scan cached playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

// DeleteCachedPlaylist removes a cached playlist and, via cascade, its
// track records. Files on disk are not touched. Reports whether a playlist
// was actually deleted.
func (s *Storage) DeleteCachedPlaylist(guildID, name string) (bool, error) {
	res, err := s.db.Exec(
		`DELETE FROM cached_playlists WHERE guild_id = ? AND name = ?`, guildID, name)
	if err != nil {
		return false, fmt.Errorf("failed to delete cached playlist: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// CachedPlaylistURLs returns the set of track URLs already recorded for a
// cached playlist, so a resumed cache job skips finished downloads.
func (s *Storage) CachedPlaylistURLs(playlistID int64) (map[string]bool, error) {
	rows, err := s.db.Query(
		`SELECT url FROM cached_playlist_tracks WHERE playlist_id = ?`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached track urls: %w", err)
	}
	defer rows.Close()

	urls := make(map[string]bool)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan cached track url: %w", err)
		}
		urls[url] = true
	}
	return urls, rows.Err()
}

// AddCachedPlaylistTrack appends a downloaded track at the next free
// position. A URL already present in the playlist is silently kept as is.
func (s *Storage) AddCachedPlaylistTrack(playlistID int64, title, url string, duration int, filePath string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO cached_playlist_tracks
		 (playlist_id, position, title, url, duration, file_path)
		 SELECT ?, COALESCE(MAX(position) + 1, 0), ?, ?, ?, ?
		 FROM cached_playlist_tracks WHERE playlist_id = ?`,
		playlistID, title, url, duration, filePath, playlistID)
	if err != nil {
		return fmt.Errorf("failed to add cached track: %w", err)
	}
	return nil
}

// CachedPlaylistTracks returns the tracks of a cached playlist in position
// order.
func (s *Storage) CachedPlaylistTracks(playlistID int64) ([]CachedPlaylistTrack, error) {
	rows, err := s.db.Query(
		`SELECT position, title, url, duration, file_path FROM cached_playlist_tracks
		 WHERE playlist_id = ? ORDER BY position`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached tracks: %w", err)
	}
	defer rows.Close()

	var tracks []CachedPlaylistTrack
	for rows.Next() {
		var t CachedPlaylistTrack
		if err := rows.Scan(&t.Position, &t.Title, &t.URL, &t.Duration, &t.FilePath); err != nil {
			return nil, fmt.Errorf("failed to scan cached track: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}
