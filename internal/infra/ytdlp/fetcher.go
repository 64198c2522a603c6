// Package ytdlp implements the Ingestor capability by shelling out to
// yt-dlp: a URL goes in, an audio file lands in the music folder, and a
// registered track comes out.
package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/domain/player"
)

// TrackSaver registers a fetched file's metadata. Implemented by the
// media library.
type TrackSaver interface {
	SaveTrack(t player.Track) error
}

// Fetcher downloads audio with yt-dlp and probes it with ffprobe.
type Fetcher struct {
	binary  string // yt-dlp executable
	folder  string // destination music folder
	quality string // audio bitrate, e.g. "192K"
	saver   TrackSaver
	prober  *FFProbe
}

// NewFetcher creates a fetcher writing into the given music folder.
func NewFetcher(binary, folder, quality string, saver TrackSaver, prober *FFProbe) *Fetcher {
	if binary == "" {
		binary = "yt-dlp"
	}
	if quality == "" {
		quality = "192K"
	}
	return &Fetcher{binary: binary, folder: folder, quality: quality, saver: saver, prober: prober}
}

// Fetch downloads the URL's audio as MP3 into the music folder and
// returns the registered track. The error message is user-facing.
func (f *Fetcher) Fetch(ctx context.Context, url string) (player.Track, error) {
	args := []string{
		"--no-playlist",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", f.quality,
		"--no-simulate",
		"--print", "after_move:filepath",
		"--output", filepath.Join(f.folder, "%(title)s.%(ext)s"),
		url,
	}

	cmd := exec.CommandContext(ctx, f.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Info().Str("url", url).Msg("Running yt-dlp")
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return player.Track{}, errors.New("Download timed out. Try again later.")
		}
		log.Error().Err(err).Str("stderr", stderr.String()).Str("url", url).Msg("yt-dlp failed")
		return player.Track{}, errors.New(classifyError(stderr.String()))
	}

	path := strings.TrimSpace(stdout.String())
	if i := strings.LastIndexByte(path, '\n'); i >= 0 {
		path = strings.TrimSpace(path[i+1:])
	}
	if path == "" {
		return player.Track{}, errors.New("Download produced no file. Try another video.")
	}

	track := player.Track{
		ID:         uuid.NewString(),
		Name:       filepath.Base(path),
		SourcePath: path,
		AddedAt:    time.Now(),
	}

	if f.prober != nil {
		if dur, err := f.prober.Duration(ctx, path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Duration probe failed for download")
		} else {
			track.DurationSeconds = dur
		}
	}

	if f.saver != nil {
		if err := f.saver.SaveTrack(track); err != nil {
			return player.Track{}, fmt.Errorf("register downloaded track: %w", err)
		}
	}

	return track, nil
}

// classifyError maps the tool's failure output onto the user-facing
// messages the frontend shows.
func classifyError(stderr string) string {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "unavailable"):
		return "Video is unavailable or restricted. Try another video."
	case strings.Contains(lower, "copyright"):
		return "Video has copyright restrictions. Try another video."
	case strings.Contains(lower, "private"):
		return "Video is private. Try another video."
	case strings.Contains(lower, "not exist"):
		return "Video does not exist. Check the URL and try again."
	default:
		return "Error downloading video. Check the URL and try again."
	}
}

// FFProbe reports media durations using the ffprobe tool.
type FFProbe struct {
	binary string
}

// NewFFProbe creates a prober; an empty binary means "ffprobe" from PATH.
func NewFFProbe(binary string) *FFProbe {
	if binary == "" {
		binary = "ffprobe"
	}
	return &FFProbe{binary: binary}
}

// Duration returns the file's duration in seconds.
func (p *FFProbe) Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %q: %w", path, err)
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe output %q: %w", strings.TrimSpace(string(out)), err)
	}
	if dur < 0 {
		dur = 0
	}
	return dur, nil
}
