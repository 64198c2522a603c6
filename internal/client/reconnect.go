// Package client holds the pieces a frontend needs to stay in sync with
// the backend: a bounded reconnect policy and a pure reducer that folds
// push messages into a local view of the player.
package client

import (
	"context"
	"errors"
	"time"
)

// ErrRetriesExhausted is returned once the reconnect budget is spent. The
// caller should surface a permanent failure to the user; no further
// attempts are made.
var ErrRetriesExhausted = errors.New("client: reconnect attempts exhausted")

// Dialer opens one connection attempt. A nil error means connected; the
// policy then resets its budget for the next disconnect.
type Dialer func(ctx context.Context) error

// ReconnectPolicy retries a Dialer a fixed number of times with a fixed
// interval between attempts. It is intentionally not exponential: the
// backend is a single local device, so either it comes back within a few
// seconds or the user has to intervene anyway.
type ReconnectPolicy struct {
	MaxAttempts int
	Interval    time.Duration

	// OnAttempt, if set, is called before each attempt with the 1-based
	// attempt number.
	OnAttempt func(attempt int)
}

// DefaultReconnectPolicy mirrors the behavior clients are expected to
// implement: five attempts, one second apart.
func DefaultReconnectPolicy() *ReconnectPolicy {
	return &ReconnectPolicy{MaxAttempts: 5, Interval: time.Second}
}

// Connect drives dial attempts until one succeeds, the budget runs out,
// or ctx is cancelled.
func (p *ReconnectPolicy) Connect(ctx context.Context, dial Dialer) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if p.OnAttempt != nil {
			p.OnAttempt(attempt)
		}
		err := dial(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == p.MaxAttempts {
			break
		}
		timer := time.NewTimer(p.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	if lastErr != nil {
		return errors.Join(ErrRetriesExhausted, lastErr)
	}
	return ErrRetriesExhausted
}
