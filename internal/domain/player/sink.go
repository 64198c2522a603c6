package player

import "context"

// EventKind classifies events reported by an AudioSink.
type EventKind int

const (
	// EventTrackEnded means the device finished the current track on its
	// own (not through Stop or Pause).
	EventTrackEnded EventKind = iota
)

// Event is an asynchronous report from the audio device.
type Event struct {
	Kind EventKind
}

// AudioSink is the capability boundary to the audio output device.
// Every call must respect the context deadline so a stuck device cannot
// stall the command queue beyond its budget. Implementations report
// success or failure; recovery decisions stay with the state machine.
type AudioSink interface {
	Play(ctx context.Context, track Track) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) error
	SetVolume(ctx context.Context, volume float64) error

	// Events delivers device-originated events such as track completion.
	// The channel is closed when the sink shuts down.
	Events() <-chan Event

	Close() error
}

// Playlist is the ordered track collection the state machine operates on.
// Implemented by the playlist package; the interface lives here so the
// state machine owns its own dependency contract.
type Playlist interface {
	Len() int
	At(i int) (Track, bool)
	Tracks() []Track
	Append(t Track) error
	RemoveAt(i int) (Track, error)
	Replace(tracks []Track)
}

// StateStore persists the committed playback state. Saves are best-effort:
// a failing store is logged, never fatal.
type StateStore interface {
	Save(s State) error
}
