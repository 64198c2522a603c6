// Package playlist maintains the ordered track collection backing the
// player. Insertion order is significant: it defines next/back in
// sequential mode. Track IDs are unique within the index.
package playlist

import (
	"fmt"

	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/domain/player"
)

// Store is the durable side of the index: the media library that owns
// track metadata and the underlying files. A nil Store disables
// durability (tests).
type Store interface {
	SaveTrack(t player.Track) error
	// DeleteTrack removes the track's metadata and its media file.
	DeleteTrack(t player.Track) error
}

// Index is the ordered track collection. It carries no locking of its
// own: the player state machine is its only writer and serializes access.
type Index struct {
	tracks []player.Track
	store  Store
}

// New creates an index over the given initial tracks.
func New(tracks []player.Track, store Store) *Index {
	return &Index{tracks: append([]player.Track(nil), tracks...), store: store}
}

// Len returns the number of tracks.
func (ix *Index) Len() int { return len(ix.tracks) }

// At returns the track at position i, if it exists.
func (ix *Index) At(i int) (player.Track, bool) {
	if i < 0 || i >= len(ix.tracks) {
		return player.Track{}, false
	}
	return ix.tracks[i], true
}

// Tracks returns a copy of the ordered track list.
func (ix *Index) Tracks() []player.Track {
	return append([]player.Track(nil), ix.tracks...)
}

// Append adds a track to the end of the playlist and persists it.
func (ix *Index) Append(t player.Track) error {
	for _, existing := range ix.tracks {
		if existing.ID == t.ID {
			return fmt.Errorf("duplicate track id %s", t.ID)
		}
	}
	if ix.store != nil {
		if err := ix.store.SaveTrack(t); err != nil {
			return fmt.Errorf("persist track: %w", err)
		}
	}
	ix.tracks = append(ix.tracks, t)
	return nil
}

// RemoveAt deletes the track at position i from the playlist, its
// metadata and its media file. The removed track is returned.
func (ix *Index) RemoveAt(i int) (player.Track, error) {
	if i < 0 || i >= len(ix.tracks) {
		return player.Track{}, fmt.Errorf("index %d out of range", i)
	}
	t := ix.tracks[i]
	if ix.store != nil {
		if err := ix.store.DeleteTrack(t); err != nil {
			return player.Track{}, fmt.Errorf("delete track: %w", err)
		}
	}
	ix.tracks = append(ix.tracks[:i], ix.tracks[i+1:]...)
	return t, nil
}

// Replace swaps the whole track list, e.g. after a library rescan.
// Membership durability is already handled by the scan itself.
func (ix *Index) Replace(tracks []player.Track) {
	ix.tracks = append(ix.tracks[:0:0], tracks...)
}
