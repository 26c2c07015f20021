package scaler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// settle delay after a resume request before the first start-wait poll
const default_SETTLE_DELAY = time.Second * 30

// ScaleRequest is a single scale invocation. Timeout bounds the whole wait
// phase; when the capacity has to be started first, half of it is spent on
// the start-wait and the full value on the scale wait.
type ScaleRequest struct {
	// Resource is the ARM identifier of the capacity.
	Resource string
	// Target is the sku to scale to.
	Target Sku
	// Wait controls whether the invocation blocks until the capacity
	// converges on the target sku.
	Wait bool
	// Timeout bounds the convergence wait.
	Timeout time.Duration
}

// Scaler drives a single capacity through a resume-then-resize transition.
// Each invocation is independent; the only shared state is the remote
// resource itself, arbitrated by the management API.
type Scaler struct {
	api    API
	waiter *Waiter

	settleDelay time.Duration
	sleep       func(time.Duration)
}

func NewScaler(api API) *Scaler {
	return &Scaler{
		api:         api,
		waiter:      NewWaiter(api),
		settleDelay: default_SETTLE_DELAY,
		sleep:       time.Sleep,
	}
}

// Scale moves the capacity to the target sku, resuming it first when needed.
// It returns a structured result on every path it can build one, together
// with the error when the invocation failed: callers branch on the error and
// serialize the result regardless, so logs and exit status stay consistent.
func (s *Scaler) Scale(ctx context.Context, req ScaleRequest) (*OperationResult, error) {
	opID := uuid.NewString()
	logger := log.WithFields(log.Fields{
		"operation": opID,
		"resource":  req.Resource,
		"target":    req.Target,
	})

	rid, err := ParseResourceID(req.Resource)
	if err != nil {
		return nil, err
	}

	current, err := s.api.GetCapacity(ctx, *rid)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read capacity before scaling")
	}
	previous := current.Sku
	logger = logger.WithField("capacity", rid.Name)
	logger.WithFields(log.Fields{"sku": current.Sku, "state": current.State}).Info("read capacity")

	// nothing to do
	if current.Sku == req.Target {
		logger.Info("capacity already at target sku")
		r := s.result(opID, *rid, req.Target, previous, current)
		r.Success = true
		r.Message = "capacity already at target sku"
		return r, nil
	}

	if !current.State.IsRunning() {
		logger.WithField("state", current.State).Info("capacity is not running, resuming")
		if err := s.api.Resume(ctx, *rid); err != nil {
			err = errors.Wrap(err, "failed to resume capacity")
			return s.failResult(opID, *rid, req.Target, previous, current, err.Error()), err
		}
		if !req.Wait {
			return s.failResult(opID, *rid, req.Target, previous, current,
				ErrCannotScaleWhileStopped.Error()), ErrCannotScaleWhileStopped
		}
		// give the control plane a moment to register the resume
		s.sleep(s.settleDelay)
		outcome, err := s.waiter.WaitForRunning(ctx, *rid, req.Timeout/2)
		if err != nil {
			return s.failResult(opID, *rid, req.Target, previous, current, err.Error()), err
		}
		if outcome.Outcome != Converged {
			logger.WithField("state", outcome.LastState).Warn("capacity did not start in time")
			r := s.failResult(opID, *rid, req.Target, previous, current, ErrStartTimeout.Error())
			r.State = outcome.LastState
			return r, ErrStartTimeout
		}
		// refresh the snapshot: the resize body must carry the
		// post-resume properties, not the paused ones
		refreshed, err := s.api.GetCapacity(ctx, *rid)
		if err != nil {
			err = errors.Wrap(err, "failed to re-read capacity after start")
			return s.failResult(opID, *rid, req.Target, previous, current, err.Error()), err
		}
		current = refreshed
		previous = current.Sku
		logger.WithField("state", current.State).Info("capacity is running")
	}

	logger.WithFields(log.Fields{"from": current.Sku, "to": req.Target}).Info("updating capacity sku")
	if err := s.api.UpdateSku(ctx, *rid, current, req.Target); err != nil {
		err = errors.Wrap(err, "failed to update capacity sku")
		return s.failResult(opID, *rid, req.Target, previous, current, err.Error()), err
	}

	if !req.Wait {
		r := s.result(opID, *rid, req.Target, previous, current)
		r.State = StateScaling
		r.Success = true
		r.Message = "scale request accepted, completion not confirmed"
		return r, nil
	}

	outcome, err := s.waiter.WaitForSku(ctx, *rid, req.Target, req.Timeout)
	if err != nil {
		return s.failResult(opID, *rid, req.Target, previous, current, err.Error()), err
	}
	if outcome.Outcome != Converged {
		logger.WithFields(log.Fields{
			"state":  outcome.LastState,
			"reason": outcome.Reason,
		}).Error("capacity failed to reach target sku")
		// best-effort final read so the result reflects what the API
		// reports now, not what the last poll saw
		if c, rerr := s.api.GetCapacity(ctx, *rid); rerr == nil {
			current = c
		}
		return s.failResult(opID, *rid, req.Target, previous, current, outcome.Reason),
			errors.Wrap(ErrScalingFailed, outcome.Reason)
	}

	// the wait converged, but trust a fresh read over the poll that saw it
	final, err := s.api.GetCapacity(ctx, *rid)
	if err != nil {
		err = errors.Wrap(err, "failed to verify capacity after scaling")
		return s.failResult(opID, *rid, req.Target, previous, current, err.Error()), err
	}
	r := s.result(opID, *rid, req.Target, previous, final)
	if final.Sku != req.Target {
		r.Error = true
		r.Message = ErrVerificationFailed.Error()
		return r, ErrVerificationFailed
	}
	logger.WithField("sku", final.Sku).Info("capacity scaled")
	r.Success = true
	return r, nil
}

// Resume starts a paused capacity and, when wait is set, blocks until it
// reports a running state or the timeout elapses.
func (s *Scaler) Resume(ctx context.Context, resource string, wait bool, timeout time.Duration) (*OperationResult, error) {
	opID := uuid.NewString()
	rid, err := ParseResourceID(resource)
	if err != nil {
		return nil, err
	}
	current, err := s.api.GetCapacity(ctx, *rid)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read capacity")
	}
	if current.State.IsRunning() {
		r := s.result(opID, *rid, current.Sku, current.Sku, current)
		r.Success = true
		r.Message = "capacity already running"
		return r, nil
	}
	if err := s.api.Resume(ctx, *rid); err != nil {
		err = errors.Wrap(err, "failed to resume capacity")
		return s.failResult(opID, *rid, current.Sku, current.Sku, current, err.Error()), err
	}
	if wait {
		s.sleep(s.settleDelay)
		outcome, err := s.waiter.WaitForRunning(ctx, *rid, timeout)
		if err != nil {
			return s.failResult(opID, *rid, current.Sku, current.Sku, current, err.Error()), err
		}
		if outcome.Outcome != Converged {
			r := s.failResult(opID, *rid, current.Sku, current.Sku, current, ErrStartTimeout.Error())
			r.State = outcome.LastState
			return r, ErrStartTimeout
		}
		refreshed, err := s.api.GetCapacity(ctx, *rid)
		if err != nil {
			err = errors.Wrap(err, "failed to re-read capacity after start")
			return s.failResult(opID, *rid, current.Sku, current.Sku, current, err.Error()), err
		}
		current = refreshed
	}
	r := s.result(opID, *rid, current.Sku, current.Sku, current)
	r.Success = true
	return r, nil
}

// Suspend pauses a running capacity. It does not wait for the pause to
// complete; the API rejects the request synchronously if it cannot.
func (s *Scaler) Suspend(ctx context.Context, resource string) (*OperationResult, error) {
	opID := uuid.NewString()
	rid, err := ParseResourceID(resource)
	if err != nil {
		return nil, err
	}
	current, err := s.api.GetCapacity(ctx, *rid)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read capacity")
	}
	if current.State.IsStopped() {
		r := s.result(opID, *rid, current.Sku, current.Sku, current)
		r.Success = true
		r.Message = "capacity already paused"
		return r, nil
	}
	if err := s.api.Suspend(ctx, *rid); err != nil {
		err = errors.Wrap(err, "failed to suspend capacity")
		return s.failResult(opID, *rid, current.Sku, current.Sku, current, err.Error()), err
	}
	r := s.result(opID, *rid, current.Sku, current.Sku, current)
	r.Success = true
	r.Message = "suspend request accepted"
	return r, nil
}

// Status reads and returns the current snapshot as a result record.
func (s *Scaler) Status(ctx context.Context, resource string) (*OperationResult, error) {
	opID := uuid.NewString()
	rid, err := ParseResourceID(resource)
	if err != nil {
		return nil, err
	}
	current, err := s.api.GetCapacity(ctx, *rid)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read capacity")
	}
	r := s.result(opID, *rid, current.Sku, current.Sku, current)
	r.Success = true
	return r, nil
}

// failResult builds the best-effort result emitted alongside a terminal
// error, reflecting the last snapshot in hand.
func (s *Scaler) failResult(opID string, rid ResourceID, target, previous Sku, current *Capacity, msg string) *OperationResult {
	r := s.result(opID, rid, target, previous, current)
	r.Error = true
	r.Message = msg
	return r
}

func (s *Scaler) result(opID string, rid ResourceID, target, previous Sku, current *Capacity) *OperationResult {
	r := &OperationResult{
		OperationID:   opID,
		Capacity:      rid.Name,
		Subscription:  rid.Subscription,
		ResourceGroup: rid.ResourceGroup,
		PreviousSku:   previous,
		TargetSku:     target,
		Timestamp:     time.Now().UTC(),
	}
	if current != nil {
		r.Region = current.Location
		r.CurrentSku = current.Sku
		r.State = current.State
	}
	return r
}
