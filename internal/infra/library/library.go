package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/domain/player"
)

// Prober reports the playable duration of a media file in seconds.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".ogg":  true,
	".flac": true,
}

// Library couples the music folder with the metadata database. It
// implements the playlist store contract: saving persists metadata,
// deleting removes both the metadata row and the media file.
type Library struct {
	db     *DB
	folder string
	prober Prober
}

// New creates a library over an opened database and the music folder.
func New(db *DB, folder string, prober Prober) *Library {
	return &Library{db: db, folder: folder, prober: prober}
}

// Folder returns the music folder path.
func (l *Library) Folder() string { return l.folder }

// SaveTrack inserts or updates a track's metadata.
func (l *Library) SaveTrack(t player.Track) error {
	if l.db.db == nil {
		return fmt.Errorf("library database not open")
	}
	_, err := l.db.db.Exec(`
		INSERT INTO tracks (path, id, name, duration_seconds, added_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name = ?, duration_seconds = ?
	`,
		t.SourcePath, t.ID, t.Name, t.DurationSeconds, t.AddedAt.UTC().Format(time.RFC3339),
		t.Name, t.DurationSeconds,
	)
	return err
}

// DeleteTrack removes a track's metadata row and its media file. A file
// that is already gone is not an error.
func (l *Library) DeleteTrack(t player.Track) error {
	if l.db.db == nil {
		return fmt.Errorf("library database not open")
	}
	if err := os.Remove(t.SourcePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove media file: %w", err)
	}
	_, err := l.db.db.Exec(`DELETE FROM tracks WHERE path = ?`, t.SourcePath)
	return err
}

// Scan walks the music folder and reconciles it with the database:
// known files keep their identity and cached duration, new files are
// probed and registered, rows for vanished files are dropped. The result
// is ordered by insertion time, then name.
func (l *Library) Scan(ctx context.Context) ([]player.Track, error) {
	entries, err := os.ReadDir(l.folder)
	if err != nil {
		return nil, fmt.Errorf("read music folder: %w", err)
	}

	known, err := l.allRows()
	if err != nil {
		return nil, err
	}

	onDisk := make(map[string]bool)
	var tracks []player.Track
	for _, entry := range entries {
		if entry.IsDir() || !audioExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		path := filepath.Join(l.folder, entry.Name())
		onDisk[path] = true

		if t, ok := known[path]; ok {
			tracks = append(tracks, t)
			continue
		}

		t := player.Track{
			ID:         uuid.NewString(),
			Name:       entry.Name(),
			SourcePath: path,
			AddedAt:    time.Now(),
		}
		if l.prober != nil {
			dur, err := l.prober.Duration(ctx, path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("Duration probe failed")
			} else {
				t.DurationSeconds = dur
			}
		}
		if err := l.SaveTrack(t); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Could not register track")
		}
		tracks = append(tracks, t)
		log.Debug().Str("track", t.Name).Float64("duration", t.DurationSeconds).Msg("Track registered")
	}

	// Drop rows whose files vanished out from under us.
	for path := range known {
		if !onDisk[path] {
			if _, err := l.db.db.Exec(`DELETE FROM tracks WHERE path = ?`, path); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("Could not prune vanished track")
			}
		}
	}

	sort.Slice(tracks, func(i, j int) bool {
		if !tracks[i].AddedAt.Equal(tracks[j].AddedAt) {
			return tracks[i].AddedAt.Before(tracks[j].AddedAt)
		}
		return tracks[i].Name < tracks[j].Name
	})

	log.Info().Int("tracks", len(tracks)).Str("folder", l.folder).Msg("Library scan complete")
	return tracks, nil
}

func (l *Library) allRows() (map[string]player.Track, error) {
	if l.db.db == nil {
		return nil, fmt.Errorf("library database not open")
	}
	rows, err := l.db.db.Query(`SELECT path, id, name, duration_seconds, added_at FROM tracks`)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	known := make(map[string]player.Track)
	for rows.Next() {
		var t player.Track
		var addedAt string
		if err := rows.Scan(&t.SourcePath, &t.ID, &t.Name, &t.DurationSeconds, &addedAt); err != nil {
			return nil, fmt.Errorf("scan track row: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339, addedAt); err == nil {
			t.AddedAt = ts
		}
		known[t.SourcePath] = t
	}
	return known, rows.Err()
}
