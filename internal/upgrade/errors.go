package upgrade

import (
	"fmt"
	"time"
)

// ApplyError is returned when the cluster rejects an apply.
type ApplyError struct {
	Service string
	Err     error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("failed to apply %s: %v", e.Service, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// RolloutTimeoutError is returned when a rollout does not finish within its
// deadline.
type RolloutTimeoutError struct {
	Service string
	Wait    time.Duration
}

func (e *RolloutTimeoutError) Error() string {
	return fmt.Sprintf("rollout of %s did not complete within %s", e.Service, e.Wait)
}
