package config_test

import (
	"testing"
	"time"

	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg := config.Load()

	if cfg.WSPort != 8765 {
		t.Errorf("WSPort = %d, want 8765", cfg.WSPort)
	}
	if cfg.HTTPPort != 5000 {
		t.Errorf("HTTPPort = %d, want 5000", cfg.HTTPPort)
	}
	if cfg.MPDHost != "localhost" || cfg.MPDPort != 6600 {
		t.Errorf("MPD defaults = %s:%d", cfg.MPDHost, cfg.MPDPort)
	}
	if cfg.SinkTimeout != 5*time.Second {
		t.Errorf("SinkTimeout = %v, want 5s", cfg.SinkTimeout)
	}
	if cfg.WatchdogInterval != 15*time.Second {
		t.Errorf("WatchdogInterval = %v, want 15s", cfg.WatchdogInterval)
	}
	if cfg.PauseAt != "" || cfg.ResumeAt != "" {
		t.Errorf("schedule should be disabled by default, got %q/%q", cfg.PauseAt, cfg.ResumeAt)
	}
	if cfg.MusicDir == "" || cfg.StateFile == "" || cfg.LibraryDB == "" {
		t.Error("path defaults missing")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("WS_PORT", "9001")
	t.Setenv("MUSIC_DIR", "/srv/music")
	t.Setenv("FETCH_TIMEOUT", "3m")
	t.Setenv("PAUSE_AT", "19:00")

	cfg := config.Load()

	if cfg.WSPort != 9001 {
		t.Errorf("WSPort = %d, want 9001", cfg.WSPort)
	}
	if cfg.MusicDir != "/srv/music" {
		t.Errorf("MusicDir = %q", cfg.MusicDir)
	}
	if cfg.FetchTimeout != 3*time.Minute {
		t.Errorf("FetchTimeout = %v, want 3m", cfg.FetchTimeout)
	}
	if cfg.PauseAt != "19:00" {
		t.Errorf("PauseAt = %q", cfg.PauseAt)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("WS_PORT", "not-a-port")
	t.Setenv("SINK_TIMEOUT", "soon")

	cfg := config.Load()

	if cfg.WSPort != 8765 {
		t.Errorf("malformed port did not fall back: %d", cfg.WSPort)
	}
	if cfg.SinkTimeout != 5*time.Second {
		t.Errorf("malformed duration did not fall back: %v", cfg.SinkTimeout)
	}
}
