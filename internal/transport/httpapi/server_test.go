package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/domain/player"
	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/transport/httpapi"
)

type fakeSubmitter struct {
	message string
	err     error
	gotURL  string
}

func (f *fakeSubmitter) Submit(ctx context.Context, url string) (string, error) {
	f.gotURL = url
	return f.message, f.err
}

type fakeProber struct{ err error }

func (f fakeProber) Probe(budget time.Duration) error { return f.err }

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body.Message
}

func TestDownloadSuccess(t *testing.T) {
	sub := &fakeSubmitter{message: "Download successful: song.mp3"}
	srv := httpapi.New(sub, fakeProber{}, "")

	req := httptest.NewRequest(http.MethodPost, "/download",
		strings.NewReader(`{"url":"https://example.com/v/1"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decodeMessage(t, rec); got != "Download successful: song.mp3" {
		t.Errorf("message = %q", got)
	}
	if sub.gotURL != "https://example.com/v/1" {
		t.Errorf("submitted URL = %q", sub.gotURL)
	}
}

func TestDownloadMissingURL(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty url", `{"url":""}`},
		{"no url field", `{}`},
		{"invalid json", `{oops`},
		{"empty body", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httpapi.New(&fakeSubmitter{}, fakeProber{}, "")
			req := httptest.NewRequest(http.MethodPost, "/download", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if got := decodeMessage(t, rec); got != "No URL provided." {
				t.Errorf("message = %q, want %q", got, "No URL provided.")
			}
		})
	}
}

func TestDownloadFailure(t *testing.T) {
	sub := &fakeSubmitter{
		message: "Video is private. Try another video.",
		err:     errors.New("Video is private. Try another video."),
	}
	srv := httpapi.New(sub, fakeProber{}, "")

	req := httptest.NewRequest(http.MethodPost, "/download",
		strings.NewReader(`{"url":"https://example.com/v/2"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if got := decodeMessage(t, rec); got != "Video is private. Try another video." {
		t.Errorf("message = %q", got)
	}
}

func TestDownloadMethodNotAllowed(t *testing.T) {
	srv := httpapi.New(&fakeSubmitter{}, fakeProber{}, "")

	req := httptest.NewRequest(http.MethodGet, "/download", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	t.Run("responsive", func(t *testing.T) {
		srv := httpapi.New(&fakeSubmitter{}, fakeProber{}, "")
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("stalled", func(t *testing.T) {
		srv := httpapi.New(&fakeSubmitter{}, fakeProber{err: player.ErrStalled}, "")
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})
}

func TestVersionEndpoint(t *testing.T) {
	srv := httpapi.New(&fakeSubmitter{}, fakeProber{}, "")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/version", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var info struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.Name == "" || info.Version == "" {
		t.Errorf("version info incomplete: %+v", info)
	}
}
