// Package watchdog reports process liveness to the supervising service
// manager. The signal is conditional: it goes out only when the player
// state machine proves responsive within the probe budget, so a stalled
// writer is never reported healthy and the supervisor restarts us.
package watchdog

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog/log"
)

// Prober answers whether the state machine is responsive within a budget.
type Prober interface {
	Probe(budget time.Duration) error
}

// Notifier delivers a liveness signal to the supervisor.
type Notifier interface {
	Notify(state string) error
}

// SystemdNotifier sends sd_notify messages. Outside a systemd unit the
// notification socket is absent and every send is a silent no-op.
type SystemdNotifier struct{}

// Notify sends one sd_notify state string.
func (SystemdNotifier) Notify(state string) error {
	_, err := daemon.SdNotify(false, state)
	return err
}

// Reporter pings the supervisor on a fixed cadence. The interval must be
// strictly shorter than the supervisor's watchdog timeout.
type Reporter struct {
	prober      Prober
	notifier    Notifier
	interval    time.Duration
	probeBudget time.Duration
}

// New creates a reporter. probeBudget bounds how long a single health
// probe may hold up a tick; it should be well under the interval.
func New(prober Prober, notifier Notifier, interval, probeBudget time.Duration) *Reporter {
	return &Reporter{
		prober:      prober,
		notifier:    notifier,
		interval:    interval,
		probeBudget: probeBudget,
	}
}

// Ready announces startup completion to the supervisor.
func (r *Reporter) Ready() {
	if err := r.notifier.Notify(daemon.SdNotifyReady); err != nil {
		log.Warn().Err(err).Msg("Could not notify readiness")
	}
}

// Run emits the liveness signal every interval until ctx ends. A failed
// probe skips the signal for that tick and logs the stall.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", r.interval).Msg("Watchdog reporter started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Watchdog reporter stopped")
			return
		case <-ticker.C:
			if err := r.prober.Probe(r.probeBudget); err != nil {
				log.Error().Err(err).Msg("Health probe failed, withholding liveness signal")
				continue
			}
			if err := r.notifier.Notify(daemon.SdNotifyWatchdog); err != nil {
				log.Warn().Err(err).Msg("Could not send liveness signal")
			}
		}
	}
}
