// Package cluster talks to the Kubernetes cluster backing a region.
//
// Client is the query and apply surface the reconciler depends on.
// Kubernetes implements it with controller-runtime server-side apply and a
// client-go clientset for events.
package cluster

import (
	"context"
)

// Release identifies one apply of a service's values artifact.
type Release struct {
	Name      string
	Namespace string
	// ValuesFile is the rendered manifest to apply.
	ValuesFile string
	// Install is set when the service is not yet present in the cluster.
	Install bool
}

// Client is the cluster interface used by reconciliation. Implementations
// must be safe for concurrent use.
type Client interface {
	// CurrentVersion returns the version of the service running in
	// namespace. found is false when the service is not deployed.
	CurrentVersion(ctx context.Context, name, namespace string) (version string, found bool, err error)

	// Apply creates or updates every object of the release.
	Apply(ctx context.Context, rel Release) error

	// RolloutStatus reports whether the service's rollout has completed.
	RolloutStatus(ctx context.Context, name, namespace string) (bool, error)

	// Diff returns a human readable difference between the release and the
	// live objects. An empty string means nothing would change.
	Diff(ctx context.Context, rel Release) (string, error)

	// Debug collects diagnostics for a failed rollout.
	Debug(ctx context.Context, name, namespace string) (string, error)
}
