// Package ingest turns acquisition requests (user-submitted URLs) into
// playlist tracks. Requests are processed strictly one at a time so the
// underlying fetch tool never runs concurrently with itself.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/domain/player"
)

// Ingestor acquires a remote reference and produces a playable track.
// Implementations own fetching and decoding; the queue only sequences them.
type Ingestor interface {
	Fetch(ctx context.Context, url string) (player.Track, error)
}

// Appender receives successfully ingested tracks. Implemented by the
// player state machine, which bumps the version and broadcasts the
// changed song list.
type Appender interface {
	AppendTrack(t player.Track) error
}

// ErrQueueClosed is returned by Submit after the queue shut down.
var ErrQueueClosed = errors.New("ingestion queue closed")

type job struct {
	url   string
	reply chan result
}

type result struct {
	message string
	err     error
}

// Queue is the serial ingestion worker. Jobs run to completion or failure
// once started; they are not cancellable mid-flight, which avoids partial
// media artifacts.
type Queue struct {
	ingestor Ingestor
	appender Appender
	timeout  time.Duration
	jobs     chan job
}

// NewQueue creates an ingestion queue. timeout bounds a single fetch;
// depth bounds how many requests may wait.
func NewQueue(ingestor Ingestor, appender Appender, timeout time.Duration, depth int) *Queue {
	if depth < 1 {
		depth = 1
	}
	return &Queue{
		ingestor: ingestor,
		appender: appender,
		timeout:  timeout,
		jobs:     make(chan job, depth),
	}
}

// Start runs the worker until the context is cancelled.
func (q *Queue) Start(ctx context.Context) {
	go func() {
		log.Info().Dur("timeout", q.timeout).Msg("Ingestion worker started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Ingestion worker stopped")
				return
			case j := <-q.jobs:
				j.reply <- q.process(ctx, j.url)
			}
		}
	}()
}

// Submit enqueues a URL and waits for the outcome. The returned message
// describes success or failure; the playlist update itself is observed
// asynchronously over the control channel. Waiting is bounded by ctx
// (typically the HTTP request context), but a job that already started
// still runs to completion.
func (q *Queue) Submit(ctx context.Context, url string) (string, error) {
	j := job{url: url, reply: make(chan result, 1)}
	select {
	case q.jobs <- j:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case r := <-j.reply:
		return r.message, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (q *Queue) process(ctx context.Context, url string) result {
	log.Info().Str("url", url).Msg("Ingesting")
	start := time.Now()

	fetchCtx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	track, err := q.ingestor.Fetch(fetchCtx, url)
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("Ingestion failed")
		return result{message: err.Error(), err: err}
	}

	if err := q.appender.AppendTrack(track); err != nil {
		log.Error().Err(err).Str("track", track.Name).Msg("Could not append ingested track")
		return result{message: fmt.Sprintf("Downloaded but could not add to playlist: %v", err), err: err}
	}

	log.Info().
		Str("track", track.Name).
		Dur("took", time.Since(start)).
		Msg("Ingestion complete")
	return result{message: fmt.Sprintf("Download successful: %s", track.Name)}
}
