// /internal/settings/settings.go
// Package settings keeps small per-guild preferences in a file-backed
// key-value store, separate from the SQLite media index.
package settings

import (
	"encoding/json"
	"fmt"

	"github.com/keshon/datastore"
)

type Store struct {
	ds *datastore.DataStore
}

// Record holds the per-guild settings blob, keyed by guild ID.
type Record struct {
	AnnounceChannel string `json:"announce_channel"`
}

func New(filePath string) (*Store, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, err
	}
	return &Store{ds: ds}, nil
}

func (s *Store) Close() error {
	return s.ds.Close()
}

func (s *Store) getOrCreateGuildRecord(guildID string) (*Record, error) {
	data, exists := s.ds.Get(guildID)
	if !exists {
		rec := &Record{}
		s.ds.Add(guildID, rec)
		return rec, nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("error marshalling settings: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(jsonData, &rec); err != nil {
		return nil, fmt.Errorf("error unmarshalling settings: %w", err)
	}
	return &rec, nil
}

// SetAnnounceChannel stores the channel now-playing announcements go to.
func (s *Store) SetAnnounceChannel(guildID, channelID string) error {
	rec, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}
	rec.AnnounceChannel = channelID
	s.ds.Add(guildID, rec)
	return nil
}

// GetAnnounceChannel returns the configured announce channel, empty when unset.
func (s *Store) GetAnnounceChannel(guildID string) (string, error) {
	rec, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return "", err
	}
	return rec.AnnounceChannel, nil
}

// RemoveAnnounceChannel clears the announce channel for a guild.
func (s *Store) RemoveAnnounceChannel(guildID string) error {
	rec, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}
	rec.AnnounceChannel = ""
	s.ds.Add(guildID, rec)
	return nil
}
