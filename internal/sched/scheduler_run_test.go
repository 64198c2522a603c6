package sched

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/domain/player"
)

// recordingApplier captures applied ops and stops the scheduler after the
// first one.
type recordingApplier struct {
	mu   sync.Mutex
	ops  []player.Op
	once sync.Once
	stop func()
}

func (r *recordingApplier) Apply(ctx context.Context, cmd player.Command) player.Result {
	r.mu.Lock()
	r.ops = append(r.ops, cmd.Op)
	r.mu.Unlock()
	r.once.Do(r.stop)
	return player.Result{Changed: true}
}

func (r *recordingApplier) first() (player.Op, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ops) == 0 {
		return "", false
	}
	return r.ops[0], true
}

func TestRunFiresSoonestAction(t *testing.T) {
	tests := []struct {
		name     string
		pauseAt  string
		resumeAt string
		want     player.Op
	}{
		{"pause due first", "12:01", "12:05", player.OpPause},
		{"resume due first", "12:05", "12:01", player.OpPlay},
		{"pause only", "12:01", "", player.OpPause},
		{"resume only", "", "12:01", player.OpPlay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			rec := &recordingApplier{stop: cancel}

			s, err := New(rec, tt.pauseAt, tt.resumeAt)
			if err != nil {
				t.Fatal(err)
			}
			// Anchor the clock far in the past: the computed firing time
			// is already behind the real clock, so the timer fires at
			// once instead of the test waiting for wall time.
			base := time.Date(2000, time.January, 1, 12, 0, 0, 0, time.Local)
			s.now = func() time.Time { return base }

			done := make(chan struct{})
			go func() {
				s.Run(ctx)
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("scheduler never fired")
			}

			if op, ok := rec.first(); !ok || op != tt.want {
				t.Errorf("first scheduled op = %q, want %q", op, tt.want)
			}
		})
	}
}

func TestRunWithoutScheduleReturns(t *testing.T) {
	s, err := New(&recordingApplier{stop: func() {}}, "", "")
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run with no configured actions did not return")
	}
}
