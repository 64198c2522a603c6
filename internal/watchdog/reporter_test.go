package watchdog_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/domain/player"
	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/watchdog"
)

type fakeProber struct {
	mu  sync.Mutex
	err error
}

func (f *fakeProber) Probe(budget time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeProber) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fakeNotifier struct {
	mu     sync.Mutex
	states []string
}

func (f *fakeNotifier) Notify(state string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, state)
	return nil
}

func (f *fakeNotifier) count(state string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.states {
		if s == state {
			n++
		}
	}
	return n
}

func TestReadyAnnouncesStartup(t *testing.T) {
	notifier := &fakeNotifier{}
	r := watchdog.New(&fakeProber{}, notifier, time.Minute, time.Second)

	r.Ready()

	if notifier.count(daemon.SdNotifyReady) != 1 {
		t.Errorf("ready notifications = %v, want one READY", notifier.states)
	}
}

func TestRunSignalsWhileHealthy(t *testing.T) {
	notifier := &fakeNotifier{}
	r := watchdog.New(&fakeProber{}, notifier, 10*time.Millisecond, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for notifier.count(daemon.SdNotifyWatchdog) < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("only %d liveness signals sent", notifier.count(daemon.SdNotifyWatchdog))
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
}

func TestRunWithholdsSignalWhenStalled(t *testing.T) {
	prober := &fakeProber{err: player.ErrStalled}
	notifier := &fakeNotifier{}
	r := watchdog.New(prober, notifier, 10*time.Millisecond, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	if got := notifier.count(daemon.SdNotifyWatchdog); got != 0 {
		t.Fatalf("stalled prober still produced %d liveness signals", got)
	}

	// Recovery resumes the signal.
	prober.setErr(nil)
	deadline := time.Now().Add(2 * time.Second)
	for notifier.count(daemon.SdNotifyWatchdog) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no liveness signal after recovery")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
