package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/domain/player"
)

// Controller is the player-facing contract the hub needs: command
// application, a consistent snapshot for new connections, and the change
// notification stream.
type Controller interface {
	Apply(ctx context.Context, cmd player.Command) player.Result
	Snapshot() (player.StateSnapshot, []player.SongSnapshot, uint64)
	Notifications() <-chan player.Notification
}

// Hub owns the set of live control-channel connections and fans player
// state out to them. One Run goroutine serializes membership changes and
// broadcasts; per-connection pumps do the blocking I/O.
type Hub struct {
	controller Controller
	upgrader   websocket.Upgrader

	register   chan *Client
	unregister chan *Client
	clients    map[*Client]struct{}

	// done closes when Run exits; pumps and upgrades select against it
	// so membership sends cannot block once the hub stopped receiving.
	done chan struct{}

	// lastVersion is the newest state version already broadcast. A
	// notification carrying the same version is suppressed: clients
	// never see duplicate pushes of an unchanged state.
	lastVersion uint64
}

// NewHub creates the hub over the given controller.
func NewHub(controller Controller) *Hub {
	return &Hub{
		controller: controller,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The controller runs on a trusted LAN without origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]struct{}),
		done:       make(chan struct{}),
	}
}

// Run processes connection churn and state notifications until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	notifs := h.controller.Notifications()
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			log.Info().Str("client", c.id).Int("clients", len(h.clients)).Msg("Client connected")
			h.sendSnapshot(c)

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				log.Info().Str("client", c.id).Int("clients", len(h.clients)).Msg("Client disconnected")
			}

		case n := <-notifs:
			h.broadcast(n)
		}
	}
}

// broadcast pushes one state notification to every client, unless that
// version has already gone out.
func (h *Hub) broadcast(n player.Notification) {
	if n.Version == h.lastVersion {
		log.Debug().Uint64("version", n.Version).Msg("Suppressing duplicate state broadcast")
		return
	}
	h.lastVersion = n.Version

	state := n.State
	data, err := (Message{State: &state, Songs: n.Songs}).encode()
	if err != nil {
		log.Error().Err(err).Msg("Could not encode state broadcast")
		return
	}

	for c := range h.clients {
		c.enqueue(data)
	}
	log.Debug().Uint64("version", n.Version).Int("clients", len(h.clients)).Msg("State broadcast")
}

// sendSnapshot gives a fresh connection its full baseline (songs plus
// state), regardless of what was last broadcast.
func (h *Hub) sendSnapshot(c *Client) {
	state, songs, _ := h.controller.Snapshot()
	if songs == nil {
		songs = []player.SongSnapshot{}
	}
	data, err := (Message{State: &state, Songs: songs}).encode()
	if err != nil {
		log.Error().Err(err).Msg("Could not encode snapshot")
		return
	}
	c.enqueue(data)
}

// handleCommand decodes and applies one raw command line, returning the
// reply for the issuing client ("" when there is nothing to say).
func (h *Hub) handleCommand(ctx context.Context, raw string) string {
	cmd, err := player.ParseCommand(raw)
	if err != nil {
		log.Warn().Str("command", raw).Msg("Unknown command received")
		return "Unknown command"
	}

	res := h.controller.Apply(ctx, cmd)
	if res.Err != nil && !errors.Is(res.Err, player.ErrDeviceFailure) {
		log.Warn().Err(res.Err).Str("command", raw).Msg("Command rejected")
	}
	return res.Message
}

// ServeHTTP upgrades a control-channel connection and starts its pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("Websocket upgrade failed")
		return
	}

	c := &Client{
		id:       uuid.NewString(),
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		lastSeen: time.Now(),
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}
