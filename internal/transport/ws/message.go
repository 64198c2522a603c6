// Package ws implements the control channel: a websocket endpoint that
// accepts plain-text commands and pushes JSON state snapshots to every
// connected client.
package ws

import (
	"encoding/json"

	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/domain/player"
)

// Message is the server-to-client wire format. Every field is optional
// and independently present; clients replace their local cache for each
// field that arrives.
type Message struct {
	Songs   []player.SongSnapshot `json:"songs,omitempty"`
	State   *player.StateSnapshot `json:"state,omitempty"`
	Message string                `json:"message,omitempty"`
}

func (m Message) encode() ([]byte, error) {
	return json.Marshal(m)
}
