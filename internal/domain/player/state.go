// Package player provides the core playback domain: the versioned player
// state, command parsing, and the single-writer state machine that owns
// all mutations.
package player

import "math"

// State is the authoritative playback state. It is owned exclusively by
// the Service; everything outside the service sees copies only.
type State struct {
	// CurrentIndex is the playlist position of the selected track,
	// or -1 when nothing is selected (empty playlist or never played).
	CurrentIndex int

	Paused  bool
	Volume  float64 // always within [0, 1]
	Shuffle bool

	// Version increments on every committed mutation and never decreases.
	// The broadcast hub uses it to suppress redundant pushes; clients use
	// it to detect staleness.
	Version uint64
}

// DefaultState returns the state used when nothing was persisted:
// nothing selected, paused, half volume.
func DefaultState() State {
	return State{
		CurrentIndex: -1,
		Paused:       true,
		Volume:       0.5,
	}
}

// StateSnapshot is the wire representation of the playback fields.
type StateSnapshot struct {
	Volume       float64 `json:"volume"`
	Paused       bool    `json:"paused"`
	Shuffle      bool    `json:"shuffle"`
	CurrentIndex int     `json:"current_index"`
}

// SongSnapshot is the wire representation of one playlist entry.
type SongSnapshot struct {
	Name     string `json:"name"`
	Duration string `json:"duration,omitempty"`
}

// Snapshot returns the wire representation of s.
func (s State) Snapshot() StateSnapshot {
	return StateSnapshot{
		Volume:       s.Volume,
		Paused:       s.Paused,
		Shuffle:      s.Shuffle,
		CurrentIndex: s.CurrentIndex,
	}
}

// sameFields reports whether the mutable playback fields of two states are
// equal, ignoring Version. A command that leaves all fields untouched must
// not bump the version.
func sameFields(a, b State) bool {
	return a.CurrentIndex == b.CurrentIndex &&
		a.Paused == b.Paused &&
		a.Volume == b.Volume &&
		a.Shuffle == b.Shuffle
}

// clampVolume clamps v into [0, 1]. NaN maps to 0: the committed volume
// must always be JSON-encodable, whatever a corrupt state file held.
func clampVolume(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
