package client

import (
	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/domain/player"
	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/transport/ws"
)

// View is a client-local picture of the player, rebuilt from push
// messages. Fields a message omits keep their previous value, so a
// state-only push never wipes the song list and vice versa.
type View struct {
	Songs   []player.SongSnapshot
	State   player.StateSnapshot
	Message string

	// HasState flips once the first state payload arrives; before that
	// the zero State should not be rendered as truth.
	HasState bool
}

// Apply folds one push message into the view and returns the updated
// copy. It is pure: the receiver is taken by value and never mutated.
func (v View) Apply(msg ws.Message) View {
	if msg.Songs != nil {
		v.Songs = msg.Songs
	}
	if msg.State != nil {
		v.State = *msg.State
		v.HasState = true
	}
	v.Message = msg.Message
	return v
}

// CurrentSong returns the song the state points at, if any.
func (v View) CurrentSong() (player.SongSnapshot, bool) {
	if !v.HasState {
		return player.SongSnapshot{}, false
	}
	idx := v.State.CurrentIndex
	if idx < 0 || idx >= len(v.Songs) {
		return player.SongSnapshot{}, false
	}
	return v.Songs[idx], true
}
