package reconciler

import "fmt"

// MissingRollingVersionError is returned for a service that pins no version
// and is not deployed, so there is no version to roll. It does not fail a
// batch.
type MissingRollingVersionError struct {
	Service string
	Region  string
}

func (e *MissingRollingVersionError) Error() string {
	return fmt.Sprintf("%s has no pinned version and is not running in %s", e.Service, e.Region)
}

// VerifyError is returned when a resolved version is rejected by the
// region's version scheme.
type VerifyError struct {
	Service string
	Err     error
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("failed to verify %s: %v", e.Service, e.Err)
}

func (e *VerifyError) Unwrap() error {
	return e.Err
}

// PanicError wraps a panic recovered from a reconciliation job.
type PanicError struct {
	Service string
	Value   interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("reconciliation of %s panicked: %v", e.Service, e.Value)
}
