// Package upgrade runs the upgrade of a single service.
//
// An upgrade starts Pending and moves to Installing or Upgrading when the
// values artifact is applied. It ends Succeeded once the rollout completes,
// Failed when the cluster rejects the apply, or TimedOut when the rollout
// outlives the deadline estimated from the manifest. Diff mode only reports
// the pending changes and never leaves Pending.
//
// Failures trigger a diagnostic dump. Notifications are sent for every
// outcome; their errors are logged and never change the result.
package upgrade
