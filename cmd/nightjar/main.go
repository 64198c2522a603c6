// Package main is the entry point for the Nightjar jukebox backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/config"
	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/domain/ingest"
	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/domain/player"
	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/domain/playlist"
	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/infra/library"
	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/infra/mpdsink"
	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/infra/statestore"
	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/infra/ytdlp"
	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/sched"
	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/transport/httpapi"
	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/transport/ws"
	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/version"
	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/watchdog"
)

func main() {
	// Command line flags
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := config.Load()

	// Print startup banner
	versionInfo := version.GetInfo()
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", versionInfo.String())
	log.Info().Msg("  Jukebox Player Backend")
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Int("ws_port", cfg.WSPort).
		Int("http_port", cfg.HTTPPort).
		Str("music_dir", cfg.MusicDir).
		Str("mpd_host", cfg.MPDHost).
		Int("mpd_port", cfg.MPDPort).
		Bool("password_set", cfg.MPDPassword != "").
		Msg("Configuration")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := os.MkdirAll(cfg.MusicDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.MusicDir).Msg("Could not create music folder")
	}

	// Media library
	db := library.NewDB(cfg.LibraryDB)
	if err := db.Open(); err != nil {
		log.Fatal().Err(err).Msg("Failed to open library database")
	}
	defer db.Close()

	prober := ytdlp.NewFFProbe("ffprobe")
	lib := library.New(db, cfg.MusicDir, prober)

	tracks, err := lib.Scan(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Initial library scan failed")
	}
	log.Info().Int("tracks", len(tracks)).Msg("Library scanned")

	list := playlist.New(tracks, lib)

	// Audio device. A missing MPD at boot is not fatal: the backend
	// still serves clients and reconnects on the first command.
	sink := mpdsink.New(cfg.MPDHost, cfg.MPDPort, cfg.MPDPassword)
	if err := sink.Connect(); err != nil {
		log.Warn().Err(err).Msg("MPD not reachable yet, will retry on demand")
	} else {
		log.Info().Msg("MPD connection verified")
	}
	defer sink.Close()
	go sink.WatchEvents(ctx)

	// Player state machine
	store := statestore.New(cfg.StateFile)
	svc := player.NewService(list, sink, store, player.WithSinkTimeout(cfg.SinkTimeout))

	if st, err := store.Load(); err == nil {
		svc.Restore(ctx, st)
	} else if !errors.Is(err, statestore.ErrNotFound) {
		log.Warn().Err(err).Msg("Could not restore player state")
	}
	go svc.Run(ctx)

	// Music folder watcher keeps the playlist in step with the filesystem.
	rescan := func() {
		scanned, err := lib.Scan(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Library rescan failed")
			return
		}
		svc.ReplaceTracks(ctx, scanned)
	}
	go func() {
		if err := lib.Watch(ctx, cfg.RescanDebounce, rescan); err != nil {
			log.Error().Err(err).Msg("Music folder watch unavailable")
		}
	}()

	// Ingestion
	fetcher := ytdlp.NewFetcher(cfg.YtdlpBinary, cfg.MusicDir, cfg.AudioQuality, lib, prober)
	queue := ingest.NewQueue(fetcher, svc, cfg.FetchTimeout, 16)
	queue.Start(ctx)

	// Control channel
	hub := ws.NewHub(svc)
	go hub.Run(ctx)

	wsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WSPort),
		Handler: hub,
	}
	go func() {
		log.Info().Str("addr", wsServer.Addr).Msg("Control channel listening")
		if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Control channel server failed")
		}
	}()

	// REST API
	api := httpapi.New(queue, svc, cfg.StaticDir)
	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: api,
	}
	go func() {
		log.Info().Str("addr", apiServer.Addr).Msg("HTTP API listening")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP API server failed")
		}
	}()

	// Quiet hours
	scheduler, err := sched.New(svc, cfg.PauseAt, cfg.ResumeAt)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid schedule configuration")
	}
	if scheduler.Enabled() {
		go scheduler.Run(ctx)
	}

	// Liveness reporting
	reporter := watchdog.New(svc, watchdog.SystemdNotifier{}, cfg.WatchdogInterval, 2*time.Second)
	reporter.Ready()
	go reporter.Run(ctx)

	log.Info().Msg("Nightjar backend started")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Control channel shutdown error")
	}
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP API shutdown error")
	}

	// Persist the final state so a restart resumes where we left off.
	state, _, _ := svc.Snapshot()
	if err := store.Save(player.State{
		CurrentIndex: state.CurrentIndex,
		Paused:       state.Paused,
		Volume:       state.Volume,
		Shuffle:      state.Shuffle,
	}); err != nil {
		log.Warn().Err(err).Msg("Could not persist final state")
	}

	log.Info().Msg("Goodbye")
}
