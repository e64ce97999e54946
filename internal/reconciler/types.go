package reconciler

import (
	"errors"

	"kubeship/internal/upgrade"
)

// JobResult is the outcome of reconciling one service. Exactly one is
// produced per job.
type JobResult struct {
	Service string
	// Data is set when the job reached the upgrade step.
	Data *upgrade.UpgradeData
	Err  error
}

// outcome classifies r for metrics.
func (r JobResult) outcome() Outcome {
	var missing *MissingRollingVersionError
	var timeout *upgrade.RolloutTimeoutError
	switch {
	case r.Err == nil && r.Data == nil:
		return OutcomeSkipped
	case r.Err == nil:
		return OutcomeSucceeded
	case errors.As(r.Err, &missing):
		return OutcomeMissingVersion
	case errors.As(r.Err, &timeout):
		return OutcomeTimedOut
	default:
		return OutcomeFailed
	}
}

// IsIgnorable reports whether err does not fail a batch.
func IsIgnorable(err error) bool {
	var missing *MissingRollingVersionError
	return errors.As(err, &missing)
}
