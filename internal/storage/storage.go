// /internal/storage/storage.go
// Package storage implements SQLite persistence for the audio cache index,
// user-curated playlists and locally cached playlists.
package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type Storage struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS playlists (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	guild_id   TEXT    NOT NULL,
	name       TEXT    NOT NULL,
	created_at TEXT    NOT NULL DEFAULT (datetime('now')),
	UNIQUE(guild_id, name)
);

CREATE TABLE IF NOT EXISTS playlist_songs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	playlist_id INTEGER NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	title       TEXT    NOT NULL,
	url         TEXT    NOT NULL,
	duration    INTEGER DEFAULT 0,
	UNIQUE(playlist_id, position)
);

CREATE INDEX IF NOT EXISTS idx_playlists_guild ON playlists(guild_id);
CREATE INDEX IF NOT EXISTS idx_songs_playlist ON playlist_songs(playlist_id, position);

CREATE TABLE IF NOT EXISTS audio_cache (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	url         TEXT    NOT NULL UNIQUE,
	file_path   TEXT    NOT NULL,
	title       TEXT    NOT NULL,
	duration    INTEGER DEFAULT 0,
	file_size   INTEGER DEFAULT 0,
	cached_at   INTEGER NOT NULL,
	last_played INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cache_url ON audio_cache(url);

CREATE TABLE IF NOT EXISTS cached_playlists (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	guild_id   TEXT    NOT NULL,
	name       TEXT    NOT NULL,
	source_url TEXT    NOT NULL,
	created_at TEXT    NOT NULL DEFAULT (datetime('now')),
	UNIQUE(guild_id, name)
);

CREATE TABLE IF NOT EXISTS cached_playlist_tracks (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	playlist_id INTEGER NOT NULL REFERENCES cached_playlists(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	title       TEXT    NOT NULL,
	url         TEXT    NOT NULL,
	duration    INTEGER DEFAULT 0,
	file_path   TEXT    NOT NULL,
	UNIQUE(playlist_id, url)
);

CREATE INDEX IF NOT EXISTS idx_cached_pl_guild ON cached_playlists(guild_id);
`

// New opens (or creates) the SQLite database at path and runs migrations.
func New(path string) (*Storage, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}
