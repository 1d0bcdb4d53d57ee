package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var ErrPlaylistExists = errors.New("playlist already exists")

type Playlist struct {
	ID        int64
	GuildID   string
	Name      string
	SongCount int
}

type PlaylistSong struct {
	Position int
	Title    string
	URL      string
	Duration int
}

// CreatePlaylist inserts a new named playlist for a guild. Returns
// ErrPlaylistExists when the name is already taken in that guild.
func (s *Storage) CreatePlaylist(guildID, name string) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO playlists (guild_id, name) VALUES (?, ?)`, guildID, name)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return 0, ErrPlaylistExists
		}
		return 0, fmt.Errorf("failed to create playlist: %w", err)
	}
	return res.LastInsertId()
}

// GetPlaylist returns the playlist with the given name, or nil when none exists.
func (s *Storage) GetPlaylist(guildID, name string) (*Playlist, error) {
	row := s.db.QueryRow(
		`SELECT id, guild_id, name FROM playlists WHERE guild_id = ? AND name = ?`,
		guildID, name)

	var p Playlist
	err := row.Scan(&p.ID, &p.GuildID, &p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist: %w", err)
	}
	return &p, nil
}

// ListPlaylists returns every playlist in the guild with its song count,
// ordered by name.
func (s *Storage) ListPlaylists(guildID string) ([]Playlist, error) {
	rows, err := s.db.Query(
		`SELECT p.id, p.guild_id, p.name, COUNT(s.id)
		 FROM playlists p
		 LEFT JOIN playlist_songs s ON s.playlist_id = p.id
		 WHERE p.guild_id = ?
		 GROUP BY p.id ORDER BY p.name`, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	defer rows.Close()

	var playlists []Playlist
	for rows.Next() {
		var p Playlist
		if err := rows.Scan(&p.ID, &p.GuildID, &p.Name, &p.SongCount); err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

// DeletePlaylist removes a playlist and, via cascade, its songs. Reports
// whether a playlist was actually deleted.
func (s *Storage) DeletePlaylist(guildID, name string) (bool, error) {
	res, err := s.db.Exec(
		`DELETE FROM playlists WHERE guild_id = ? AND name = ?`, guildID, name)
	if err != nil {
		return false, fmt.Errorf("failed to delete playlist: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// AddPlaylistSong appends a song at the next free position.
func (s *Storage) AddPlaylistSong(playlistID int64, title, url string, duration int) error {
	_, err := s.db.Exec(
		`INSERT INTO playlist_songs (playlist_id, position, title, url, duration)
		 SELECT ?, COALESCE(MAX(position) + 1, 0), ?, ?, ?
		 FROM playlist_songs WHERE playlist_id = ?`,
		playlistID, title, url, duration, playlistID)
	if err != nil {
		return fmt.Errorf("failed to add song: %w", err)
	}
	return nil
}

// RemovePlaylistSong deletes the song at the 0-based index and compacts
// the positions of the songs after it. Reports whether a song was removed.
func (s *Storage) RemovePlaylistSong(playlistID int64, index int) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`DELETE FROM playlist_songs WHERE playlist_id = ? AND position = ?`,
		playlistID, index)
	if err != nil {
		return false, fmt.Errorf("failed to remove song: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false, nil
	}

	if _, err := tx.Exec(
		`UPDATE playlist_songs SET position = position - 1
		 WHERE playlist_id = ? AND position > ?`, playlistID, index); err != nil {
		return false, fmt.Errorf("failed to compact positions: %w", err)
	}

	return true, tx.Commit()
}

// PlaylistSongs returns the songs of a playlist in position order.
func (s *Storage) PlaylistSongs(playlistID int64) ([]PlaylistSong, error) {
	rows, err := s.db.Query(
		`SELECT position, title, url, duration FROM playlist_songs
		 WHERE playlist_id = ? ORDER BY position`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}
	defer rows.Close()

	var songs []PlaylistSong
	for rows.Next() {
		var song PlaylistSong
		if err := rows.Scan(&song.Position, &song.Title, &song.URL, &song.Duration); err != nil {
			return nil, fmt.Errorf("failed to scan song: %w", err)
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}
