// Package sched pauses and resumes playback on a daily schedule, e.g.
// quiet hours in the evening and automatic resume in the morning.
package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/domain/player"
)

// Applier executes player commands. Implemented by the state machine, so
// scheduled transitions persist and broadcast like any other command.
type Applier interface {
	Apply(ctx context.Context, cmd player.Command) player.Result
}

// Scheduler fires a pause command and a resume (play) command once per
// day each, at fixed local wall-clock times.
type Scheduler struct {
	applier  Applier
	pauseAt  string // "HH:MM", empty disables
	resumeAt string // "HH:MM", empty disables
	now      func() time.Time
}

// New creates a scheduler; malformed times are rejected.
func New(applier Applier, pauseAt, resumeAt string) (*Scheduler, error) {
	for _, spec := range []string{pauseAt, resumeAt} {
		if spec == "" {
			continue
		}
		if _, err := time.Parse("15:04", spec); err != nil {
			return nil, fmt.Errorf("bad schedule time %q: %w", spec, err)
		}
	}
	return &Scheduler{applier: applier, pauseAt: pauseAt, resumeAt: resumeAt, now: time.Now}, nil
}

// Enabled reports whether any scheduled action is configured.
func (s *Scheduler) Enabled() bool {
	return s.pauseAt != "" || s.resumeAt != ""
}

// Run waits for the next scheduled action, fires it, and repeats until
// ctx ends.
func (s *Scheduler) Run(ctx context.Context) {
	log.Info().Str("pause_at", s.pauseAt).Str("resume_at", s.resumeAt).Msg("Scheduler started")
	for {
		op, next := s.nextAction(s.now())
		if op == "" {
			return
		}
		log.Info().Str("op", string(op)).Time("at", next).Msg("Next scheduled action")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info().Msg("Scheduler stopped")
			return
		case <-timer.C:
			res := s.applier.Apply(ctx, player.Command{Op: op})
			if res.Err != nil {
				log.Warn().Err(res.Err).Str("op", string(op)).Msg("Scheduled action rejected")
			} else {
				log.Info().Str("op", string(op)).Bool("changed", res.Changed).Msg("Scheduled action executed")
			}
		}
	}
}

// nextAction returns the operation due soonest after now and its firing
// time. NextOccurrence of a wall-clock time is today if still ahead,
// otherwise tomorrow.
func (s *Scheduler) nextAction(now time.Time) (player.Op, time.Time) {
	var (
		op   player.Op
		when time.Time
	)
	if s.pauseAt != "" {
		op, when = player.OpPause, NextOccurrence(now, s.pauseAt)
	}
	if s.resumeAt != "" {
		if t := NextOccurrence(now, s.resumeAt); op == "" || t.Before(when) {
			op, when = player.OpPlay, t
		}
	}
	return op, when
}

// NextOccurrence computes the next time the given "HH:MM" wall-clock
// time comes around, relative to now.
func NextOccurrence(now time.Time, hhmm string) time.Time {
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		// Validated at construction; keep the scheduler alive regardless.
		return now.Add(24 * time.Hour)
	}
	next := time.Date(now.Year(), now.Month(), now.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
