// Package statestore persists the playback state as a single JSON record
// on disk. Writes go through a temp file and an atomic rename so a crash
// mid-write can never corrupt the durable copy.
package statestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/domain/player"
)

// ErrNotFound means no usable persisted state exists; the caller starts
// from the default state.
var ErrNotFound = errors.New("no persisted state")

// persistedState is the durable record. Playlist membership is derived
// from the media library and deliberately not duplicated here.
type persistedState struct {
	CurrentIndex int     `json:"current_index"`
	Paused       bool    `json:"paused"`
	Volume       float64 `json:"volume"`
	Shuffle      bool    `json:"shuffle"`
}

// Store reads and writes the state file.
type Store struct {
	path string
}

// New creates a store over the given file path.
func New(path string) *Store {
	return &Store{path: path}
}

// Save writes the playback fields of s atomically.
func (st *Store) Save(s player.State) error {
	data, err := json.Marshal(persistedState{
		CurrentIndex: s.CurrentIndex,
		Paused:       s.Paused,
		Volume:       s.Volume,
		Shuffle:      s.Shuffle,
	})
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(st.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpName, st.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Load reads the persisted state. A missing or corrupt file yields
// ErrNotFound rather than failing startup; the caller falls back to the
// default state.
func (st *Store) Load() (player.State, error) {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if os.IsNotExist(err) {
			return player.State{}, ErrNotFound
		}
		log.Warn().Err(err).Str("path", st.path).Msg("State file unreadable, starting fresh")
		return player.State{}, ErrNotFound
	}

	var p persistedState
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("path", st.path).Msg("State file corrupt, starting fresh")
		return player.State{}, ErrNotFound
	}

	return player.State{
		CurrentIndex: p.CurrentIndex,
		Paused:       p.Paused,
		Volume:       p.Volume,
		Shuffle:      p.Shuffle,
	}, nil
}
