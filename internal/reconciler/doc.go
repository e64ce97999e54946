// Package reconciler brings a region's services in line with their resolved
// manifests.
//
// An Orchestrator runs one job per manifest on a fixed number of workers.
// Each job works on its own clone of the manifest:
//
//  1. ResolveVersion decides the version and whether this is an install.
//  2. The version is verified against the region's version scheme.
//  3. The values artifact is rendered.
//  4. The upgrade state machine applies it and waits for the rollout.
//
// Jobs report over a completion channel and are never cancelled when a
// sibling fails. A service with neither a pinned nor a running version
// yields a MissingRollingVersionError, which is logged but does not fail
// the batch. Any other error is logged, and the first one received is
// returned from Reconcile.
//
// Example usage:
//
//	orch := reconciler.New(region, kube, notifier, reconciler.Options{})
//	if err := orch.Reconcile(ctx, manifests, upgrade.ModeUpgrade, 4); err != nil {
//	    return fmt.Errorf("reconcile failed: %w", err)
//	}
package reconciler
