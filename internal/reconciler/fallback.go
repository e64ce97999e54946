package reconciler

import (
	"context"
	"fmt"

	"kubeship/internal/cluster"
	"kubeship/internal/manifest"
	"kubeship/internal/upgrade"
)

// Resolution is the version decision for one service.
type Resolution struct {
	// Exists is set when the service is already deployed.
	Exists bool
	// Version is the version to roll out.
	Version string
	// Skip is set when there is nothing to do.
	Skip bool
}

// ResolveVersion decides which version of m to roll out and whether that is
// an install or an upgrade. A pinned version always wins; otherwise the
// running version is kept. A service that is neither pinned nor running
// yields a *MissingRollingVersionError, in every mode. In diff mode a pinned
// service that is not running is skipped, since there is nothing to diff
// against.
func ResolveVersion(ctx context.Context, m *manifest.Manifest, c cluster.Client, mode upgrade.Mode) (Resolution, error) {
	running, found, err := c.CurrentVersion(ctx, m.Name, m.Namespace)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to look up running version of %s: %w", m.Name, err)
	}

	version := running
	if m.Version != nil && *m.Version != "" {
		version = *m.Version
	}
	if version == "" {
		return Resolution{}, &MissingRollingVersionError{Service: m.Name, Region: m.Region}
	}

	if !found && mode == upgrade.ModeDiff {
		return Resolution{Skip: true}, nil
	}

	return Resolution{Exists: found, Version: version}, nil
}
