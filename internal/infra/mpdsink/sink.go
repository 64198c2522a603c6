// Package mpdsink implements the AudioSink capability on top of an MPD
// server (via gompd). The MPD queue always holds at most the one track
// the player selected; playlist order lives upstream.
package mpdsink

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog/log"

	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/domain/player"
)

// Sink drives MPD. It reconnects on demand: a lost connection is detected
// by ping and re-dialed before the next command.
type Sink struct {
	mu       sync.Mutex
	client   *mpd.Client
	addr     string
	password string

	stateMu       sync.Mutex
	expectPlaying bool

	events chan player.Event
}

// New creates a sink for the MPD server at host:port. No connection is
// made yet; the first command dials. An unreachable device degrades
// playback, it never takes the controller down.
func New(host string, port int, password string) *Sink {
	return &Sink{
		addr:     fmt.Sprintf("%s:%d", host, port),
		password: password,
		events:   make(chan player.Event, 8),
	}
}

// Connect eagerly establishes the MPD connection. Optional; commands
// reconnect on their own.
func (s *Sink) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectLocked()
}

func (s *Sink) connectLocked() error {
	log.Info().Str("addr", s.addr).Msg("Connecting to MPD")
	client, err := mpd.Dial("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("connect to MPD: %w", err)
	}
	if s.password != "" {
		if err := client.Command("password %s", s.password).OK(); err != nil {
			client.Close()
			return fmt.Errorf("MPD authentication: %w", err)
		}
	}
	s.client = client
	log.Info().Msg("Connected to MPD")
	return nil
}

func (s *Sink) ensureConnectedLocked() error {
	if s.client == nil {
		return s.connectLocked()
	}
	if err := s.client.Ping(); err != nil {
		log.Warn().Err(err).Msg("MPD connection lost, reconnecting")
		s.client.Close()
		s.client = nil
		return s.connectLocked()
	}
	return nil
}

// do runs one MPD command asynchronously and waits no longer than the
// context allows, so a hung device cannot stall the caller beyond its
// budget. A command that races past the deadline still completes in the
// background; the sink serializes commands behind its mutex.
func (s *Sink) do(ctx context.Context, fn func(c *mpd.Client) error) error {
	done := make(chan error, 1)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.ensureConnectedLocked(); err != nil {
			done <- err
			return
		}
		done <- fn(s.client)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("MPD command: %w", ctx.Err())
	}
}

// Play loads the track as the sole MPD queue entry and starts it.
func (s *Sink) Play(ctx context.Context, track player.Track) error {
	err := s.do(ctx, func(c *mpd.Client) error {
		if err := c.Clear(); err != nil {
			return err
		}
		if err := c.Add(track.SourcePath); err != nil {
			return err
		}
		return c.Play(0)
	})
	if err != nil {
		return fmt.Errorf("play %q: %w", track.Name, err)
	}
	s.setExpectPlaying(true)
	return nil
}

// Pause pauses playback.
func (s *Sink) Pause(ctx context.Context) error {
	s.setExpectPlaying(false)
	return s.do(ctx, func(c *mpd.Client) error { return c.Pause(true) })
}

// Resume continues paused playback.
func (s *Sink) Resume(ctx context.Context) error {
	err := s.do(ctx, func(c *mpd.Client) error { return c.Pause(false) })
	if err == nil {
		s.setExpectPlaying(true)
	}
	return err
}

// Stop halts playback.
func (s *Sink) Stop(ctx context.Context) error {
	s.setExpectPlaying(false)
	return s.do(ctx, func(c *mpd.Client) error { return c.Stop() })
}

// SetVolume maps the player's [0,1] volume onto MPD's 0-100 scale.
func (s *Sink) SetVolume(ctx context.Context, volume float64) error {
	vol := int(math.Round(volume * 100))
	return s.do(ctx, func(c *mpd.Client) error { return c.SetVolume(vol) })
}

// Events delivers track-end notifications derived from the MPD idle
// protocol. The channel closes when the watcher shuts down.
func (s *Sink) Events() <-chan player.Event {
	return s.events
}

// WatchEvents runs the MPD idle watcher until ctx ends, translating
// "stopped while we expected playback" into a track-end event. Blocks.
func (s *Sink) WatchEvents(ctx context.Context) {
	defer close(s.events)

	watcher, err := mpd.NewWatcher("tcp", s.addr, s.password, "player")
	if err != nil {
		log.Warn().Err(err).Msg("MPD watcher unavailable, track-end detection disabled")
		<-ctx.Done()
		return
	}
	defer watcher.Close()

	go func() {
		for err := range watcher.Error {
			log.Warn().Err(err).Msg("MPD watcher error")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-watcher.Event:
			if !ok {
				return
			}
			s.handlePlayerEvent(ctx)
		}
	}
}

func (s *Sink) handlePlayerEvent(ctx context.Context) {
	var state string
	err := s.do(ctx, func(c *mpd.Client) error {
		status, err := c.Status()
		if err != nil {
			return err
		}
		state = status["state"]
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("Could not read MPD status after player event")
		return
	}

	s.stateMu.Lock()
	ended := state == "stop" && s.expectPlaying
	if ended {
		s.expectPlaying = false
	}
	s.stateMu.Unlock()

	if ended {
		select {
		case s.events <- player.Event{Kind: player.EventTrackEnded}:
		default:
			// Player is behind; it will resync on the next event.
		}
	}
}

func (s *Sink) setExpectPlaying(v bool) {
	s.stateMu.Lock()
	s.expectPlaying = v
	s.stateMu.Unlock()
}

// Close tears down the MPD connection.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		err := s.client.Close()
		s.client = nil
		return err
	}
	return nil
}
