// Package config loads runtime configuration from environment variables,
// optionally seeded from a .env file.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config stores the backend configuration. Every field has a working
// default so the binary runs on a fresh device with no environment at all.
type Config struct {
	WSPort   int // websocket control channel
	HTTPPort int // REST API (downloads, health, version)

	MusicDir  string // folder the playlist is built from
	StateFile string // persisted player state
	LibraryDB string // sqlite media library

	MPDHost     string
	MPDPort     int
	MPDPassword string

	YtdlpBinary  string
	AudioQuality string // passed to yt-dlp --audio-quality
	FetchTimeout time.Duration

	SinkTimeout      time.Duration // budget for a single audio device call
	WatchdogInterval time.Duration
	RescanDebounce   time.Duration

	// Daily schedule, "HH:MM" local time, empty disables.
	PauseAt  string
	ResumeAt string

	StaticDir string // optional SPA to serve from the HTTP server
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvDuration gets an environment variable as a duration ("15s", "10m")
// or returns a default value.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or
// defaults. godotenv.Load never overrides variables already set.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables and defaults")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := getEnv("DATA_DIR", filepath.Join(home, ".nightjar"))

	return &Config{
		WSPort:   getEnvInt("WS_PORT", 8765),
		HTTPPort: getEnvInt("HTTP_PORT", 5000),

		MusicDir:  getEnv("MUSIC_DIR", filepath.Join(home, "music")),
		StateFile: getEnv("STATE_FILE", filepath.Join(dataDir, "state.json")),
		LibraryDB: getEnv("LIBRARY_DB", filepath.Join(dataDir, "library.db")),

		MPDHost:     getEnv("MPD_HOST", "localhost"),
		MPDPort:     getEnvInt("MPD_PORT", 6600),
		MPDPassword: os.Getenv("MPD_PASSWORD"),

		YtdlpBinary:  getEnv("YTDLP_BINARY", "yt-dlp"),
		AudioQuality: getEnv("AUDIO_QUALITY", "192K"),
		FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 10*time.Minute),

		SinkTimeout:      getEnvDuration("SINK_TIMEOUT", 5*time.Second),
		WatchdogInterval: getEnvDuration("WATCHDOG_INTERVAL", 15*time.Second),
		RescanDebounce:   getEnvDuration("RESCAN_DEBOUNCE", 2*time.Second),

		PauseAt:  getEnv("PAUSE_AT", ""),
		ResumeAt: getEnv("RESUME_AT", ""),

		StaticDir: getEnv("STATIC_DIR", ""),
	}
}
