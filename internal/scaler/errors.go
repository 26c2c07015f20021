package scaler

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrCannotScaleWhileStopped is returned when the capacity is not running
	// and the caller declined to wait for it to start. A resume is issued
	// first, but resizing a capacity whose running state is unconfirmed is
	// not safe.
	ErrCannotScaleWhileStopped = errors.New("capacity is not running and wait-for-completion is disabled, cannot scale")

	// ErrStartTimeout is returned when a resumed capacity did not reach a
	// running state within the allotted time, so no resize was attempted.
	ErrStartTimeout = errors.New("capacity did not reach a running state in time, resize not attempted")

	// ErrScalingFailed is returned when the capacity entered a failure state
	// or the wait for the target sku was exhausted after the resize request
	// was accepted.
	ErrScalingFailed = errors.New("capacity failed to reach the target sku")

	// ErrVerificationFailed is returned when the final read after a
	// converged wait still disagrees with the target sku.
	ErrVerificationFailed = errors.New("post-scale verification failed, capacity sku does not match target")
)

// APIError is a management API call that was rejected or failed at the HTTP
// layer. Status and body are carried verbatim so the root cause is never
// silently dropped.
type APIError struct {
	Op         string // "get capacity", "resume", "suspend", "update sku"
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s rejected with status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s rejected with status %d: %s", e.Op, e.StatusCode, e.Body)
}
