package library_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/domain/player"
	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/infra/library"
)

// fixedProber reports the same duration for every file and counts calls.
type fixedProber struct {
	duration float64
	calls    int
}

func (p *fixedProber) Duration(ctx context.Context, path string) (float64, error) {
	p.calls++
	return p.duration, nil
}

func newTestLibrary(t *testing.T) (*library.Library, string, *fixedProber) {
	t.Helper()
	dir := t.TempDir()
	musicDir := filepath.Join(dir, "music")
	if err := os.MkdirAll(musicDir, 0o755); err != nil {
		t.Fatal(err)
	}

	db := library.NewDB(filepath.Join(dir, "library.db"))
	if err := db.Open(); err != nil {
		t.Fatalf("open library db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	prober := &fixedProber{duration: 120}
	return library.New(db, musicDir, prober), musicDir, prober
}

func writeAudioFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("not really audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScanRegistersNewFiles(t *testing.T) {
	lib, musicDir, prober := newTestLibrary(t)
	writeAudioFile(t, musicDir, "one.mp3")
	writeAudioFile(t, musicDir, "two.flac")
	writeAudioFile(t, musicDir, "notes.txt") // ignored

	tracks, err := lib.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("Scan found %d tracks, want 2", len(tracks))
	}
	for _, tr := range tracks {
		if tr.ID == "" {
			t.Errorf("track %s has no ID", tr.Name)
		}
		if tr.DurationSeconds != 120 {
			t.Errorf("track %s duration = %v, want probed 120", tr.Name, tr.DurationSeconds)
		}
	}
	if prober.calls != 2 {
		t.Errorf("prober called %d times, want 2", prober.calls)
	}
}

func TestScanKeepsIdentityAcrossRescans(t *testing.T) {
	lib, musicDir, prober := newTestLibrary(t)
	writeAudioFile(t, musicDir, "one.mp3")

	first, err := lib.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	second, err := lib.Scan(context.Background())
	if err != nil {
		t.Fatalf("rescan: %v", err)
	}

	if first[0].ID != second[0].ID {
		t.Errorf("track ID changed across rescans: %s vs %s", first[0].ID, second[0].ID)
	}
	if prober.calls != 1 {
		t.Errorf("known file re-probed: %d probe calls, want 1", prober.calls)
	}
}

func TestScanPrunesVanishedFiles(t *testing.T) {
	lib, musicDir, _ := newTestLibrary(t)
	path := writeAudioFile(t, musicDir, "one.mp3")
	writeAudioFile(t, musicDir, "two.mp3")

	if _, err := lib.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	tracks, err := lib.Scan(context.Background())
	if err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if len(tracks) != 1 || tracks[0].Name != "two.mp3" {
		t.Errorf("tracks after prune = %v, want just two.mp3", tracks)
	}
}

func TestDeleteTrackRemovesFileAndRow(t *testing.T) {
	lib, musicDir, _ := newTestLibrary(t)
	path := writeAudioFile(t, musicDir, "one.mp3")

	tracks, err := lib.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if err := lib.DeleteTrack(tracks[0]); err != nil {
		t.Fatalf("DeleteTrack: %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("media file still on disk after delete")
	}
	remaining, err := lib.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 0 {
		t.Errorf("library still lists %d tracks", len(remaining))
	}
}

func TestDeleteTrackToleratesMissingFile(t *testing.T) {
	lib, _, _ := newTestLibrary(t)

	err := lib.DeleteTrack(player.Track{
		ID:         "ghost",
		SourcePath: filepath.Join(t.TempDir(), "gone.mp3"),
	})
	if err != nil {
		t.Errorf("deleting an already-removed file should succeed: %v", err)
	}
}

func TestSaveTrackUpsert(t *testing.T) {
	lib, musicDir, _ := newTestLibrary(t)
	path := writeAudioFile(t, musicDir, "one.mp3")

	track := player.Track{
		ID: "fixed-id", Name: "one.mp3", SourcePath: path,
		DurationSeconds: 100, AddedAt: time.Now(),
	}
	if err := lib.SaveTrack(track); err != nil {
		t.Fatalf("SaveTrack: %v", err)
	}
	track.DurationSeconds = 150
	if err := lib.SaveTrack(track); err != nil {
		t.Fatalf("SaveTrack update: %v", err)
	}

	tracks, err := lib.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tracks) != 1 || tracks[0].ID != "fixed-id" || tracks[0].DurationSeconds != 150 {
		t.Errorf("tracks = %+v, want the updated row", tracks)
	}
}
