package scaler

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	default_POLL_INTERVAL   = time.Second * 30
	default_PAUSED_INTERVAL = time.Minute // slower while the capacity is still paused
)

// Outcome is the terminal state of a convergence wait.
type Outcome int

const (
	Converged Outcome = iota
	Failed
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Converged:
		return "converged"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed-out"
	}
	return "unknown"
}

// WaitOutcome is the result of a single wait: Converged, Failed with a
// reason, or TimedOut with the last observed state. It is never persisted.
type WaitOutcome struct {
	Outcome   Outcome
	Reason    string
	LastState State
	LastSku   Sku
}

// Waiter polls the capacity snapshot until it reaches a target condition, a
// failure state, or a deadline. There is no cancel signal; a wait runs to one
// of its terminal outcomes, and the deadline is enforced by wall-clock
// comparison before each poll, so an in-flight read may overrun it by one
// round-trip.
type Waiter struct {
	api            API
	interval       time.Duration
	pausedInterval time.Duration

	// injectable for tests
	sleep func(time.Duration)
	now   func() time.Time
}

func NewWaiter(api API) *Waiter {
	return &Waiter{
		api:            api,
		interval:       default_POLL_INTERVAL,
		pausedInterval: default_PAUSED_INTERVAL,
		sleep:          time.Sleep,
		now:            time.Now,
	}
}

// WaitForSku polls until the capacity reports the target sku in a running
// state. It fails fast when the capacity enters a failure state or its
// provisioning state turns Failed - both commonly indicate a quota
// limitation on the target tier. A read error aborts the wait.
func (w *Waiter) WaitForSku(ctx context.Context, id ResourceID, target Sku, timeout time.Duration) (WaitOutcome, error) {
	deadline := w.now().Add(timeout)
	outcome := WaitOutcome{Outcome: TimedOut}
	for {
		if !w.now().Before(deadline) {
			return WaitOutcome{
				Outcome:   Failed,
				Reason:    timeoutReason(outcome.LastState, outcome.LastSku, timeout),
				LastState: outcome.LastState,
				LastSku:   outcome.LastSku,
			}, nil
		}
		c, err := w.api.GetCapacity(ctx, id)
		if err != nil {
			return outcome, errors.Wrap(err, "failed to read capacity during scale wait")
		}
		outcome.LastState, outcome.LastSku = c.State, c.Sku
		log.WithFields(log.Fields{
			"capacity": id.Name,
			"state":    c.State,
			"sku":      c.Sku,
			"target":   target,
		}).Debug("polling for target sku")
		if c.State.IsFailed() {
			return WaitOutcome{
				Outcome:   Failed,
				Reason:    fmt.Sprintf("capacity entered %s state - may indicate a quota limitation", c.State),
				LastState: c.State,
				LastSku:   c.Sku,
			}, nil
		}
		if c.ProvisioningState == ProvisioningFailed {
			return WaitOutcome{
				Outcome:   Failed,
				Reason:    "capacity provisioning failed - may indicate a quota limitation",
				LastState: c.State,
				LastSku:   c.Sku,
			}, nil
		}
		if c.Sku == target && c.State.IsRunning() {
			return WaitOutcome{Outcome: Converged, LastState: c.State, LastSku: c.Sku}, nil
		}
		w.sleep(w.interval)
	}
}

// WaitForRunning polls until the capacity reports a running state. It never
// fails: an unrecognized state is treated as still-transitioning and only the
// deadline ends the wait, so the caller decides whether a timeout is fatal.
// Polling slows down while the capacity still reports Paused, to avoid
// hammering a resource that has not begun resuming.
func (w *Waiter) WaitForRunning(ctx context.Context, id ResourceID, timeout time.Duration) (WaitOutcome, error) {
	deadline := w.now().Add(timeout)
	outcome := WaitOutcome{Outcome: TimedOut}
	for {
		if !w.now().Before(deadline) {
			return outcome, nil
		}
		c, err := w.api.GetCapacity(ctx, id)
		if err != nil {
			return outcome, errors.Wrap(err, "failed to read capacity during start wait")
		}
		outcome.LastState, outcome.LastSku = c.State, c.Sku
		log.WithFields(log.Fields{
			"capacity": id.Name,
			"state":    c.State,
			"sku":      c.Sku,
		}).Debug("polling for running state")
		if c.State.IsRunning() {
			return WaitOutcome{Outcome: Converged, LastState: c.State, LastSku: c.Sku}, nil
		}
		if c.State.IsTransitional() {
			w.sleep(w.interval)
			continue
		}
		if c.State.IsStopped() {
			w.sleep(w.pausedInterval)
			continue
		}
		// unrecognized states are not failures, keep polling until the
		// deadline runs out
		w.sleep(w.interval)
	}
}

func timeoutReason(state State, sku Sku, timeout time.Duration) string {
	if state == "" {
		return fmt.Sprintf("timed out after %s before any state was observed", timeout)
	}
	return fmt.Sprintf("timed out after %s, last observed %s/%s", timeout, state, sku)
}
