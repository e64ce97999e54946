package upgrade

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"kubeship/internal/cluster"
	"kubeship/internal/events"
	"kubeship/pkg/logging"
)

// DefaultPollInterval is how often rollout status is checked.
const DefaultPollInterval = 5 * time.Second

// Upgrader drives UpgradeData through its states against a cluster.
type Upgrader struct {
	cluster  cluster.Client
	notifier events.Notifier

	// PollInterval overrides DefaultPollInterval when positive.
	PollInterval time.Duration
}

// NewUpgrader creates an upgrader. notifier may be nil.
func NewUpgrader(c cluster.Client, notifier events.Notifier) *Upgrader {
	return &Upgrader{cluster: c, notifier: notifier}
}

// Run performs the upgrade described by ud and leaves ud in its final state.
// Diff mode never leaves Pending. The values artifact is removed when Run
// returns.
func (u *Upgrader) Run(ctx context.Context, ud *UpgradeData) error {
	defer removeValues(ud.ValuesFile)

	rel := cluster.Release{
		Name:       ud.Name,
		Namespace:  ud.Namespace,
		ValuesFile: ud.ValuesFile,
		Install:    !ud.Exists,
	}

	if ud.Mode == ModeDiff {
		diff, err := u.cluster.Diff(ctx, rel)
		if err != nil {
			return fmt.Errorf("failed to diff %s: %w", ud.Name, err)
		}
		ud.Diff = diff
		if diff == "" {
			logging.Info("Upgrade", "%s: no changes", ud)
		} else {
			logging.Info("Upgrade", "%s: pending changes\n%s", ud, diff)
		}
		return nil
	}

	if ud.Exists {
		ud.State = StateUpgrading
	} else {
		ud.State = StateInstalling
	}
	logging.Info("Upgrade", "%s %s (wait %s)", ud.State, ud, ud.Wait)
	u.notify(ctx, events.StatusStarted, ud, nil)

	if err := u.cluster.Apply(ctx, rel); err != nil {
		ud.State = StateFailed
		applyErr := &ApplyError{Service: ud.Name, Err: err}
		u.dump(ctx, ud)
		u.notify(ctx, events.StatusFailed, ud, applyErr)
		return applyErr
	}

	if ud.Mode == ModeUpgradeNoWait {
		ud.State = StateSucceeded
		u.notify(ctx, events.StatusCompleted, ud, nil)
		return nil
	}

	if err := u.waitForRollout(ctx, ud); err != nil {
		ud.State = StateTimedOut
		u.dump(ctx, ud)
		u.notify(ctx, events.StatusTimedOut, ud, err)
		return err
	}

	ud.State = StateSucceeded
	logging.Info("Upgrade", "%s rolled out", ud)
	u.notify(ctx, events.StatusCompleted, ud, nil)
	return nil
}

// waitForRollout polls rollout status until it reports ready or ud.Wait has
// elapsed. Status errors count as not ready.
func (u *Upgrader) waitForRollout(ctx context.Context, ud *UpgradeData) error {
	interval := u.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	deadline := time.NewTimer(ud.Wait)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ready, err := u.cluster.RolloutStatus(ctx, ud.Name, ud.Namespace)
		if err != nil {
			logging.Warn("Upgrade", "Rollout status of %s: %v", ud.Name, err)
		} else if ready {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("rollout of %s interrupted: %w", ud.Name, ctx.Err())
		case <-deadline.C:
			return &RolloutTimeoutError{Service: ud.Name, Wait: ud.Wait}
		case <-ticker.C:
		}
	}
}

// dump logs cluster diagnostics for a failed upgrade.
func (u *Upgrader) dump(ctx context.Context, ud *UpgradeData) {
	out, err := u.cluster.Debug(ctx, ud.Name, ud.Namespace)
	if out != "" {
		logging.Warn("Upgrade", "Diagnostics for %s:\n%s", ud.Name, out)
	}
	if err != nil {
		logging.Error("Upgrade", err, "Failed to collect diagnostics for %s", ud.Name)
	}
}

func (u *Upgrader) notify(ctx context.Context, status events.Status, ud *UpgradeData, cause error) {
	if u.notifier == nil {
		return
	}
	d := events.Deployment{
		Service:   ud.Name,
		Region:    ud.Region,
		Namespace: ud.Namespace,
		Version:   ud.Version,
		Install:   !ud.Exists,
		Wait:      ud.Wait,
	}
	if cause != nil {
		d.Error = cause.Error()
	}
	if err := u.notifier.NotifyUpgrade(ctx, status, d); err != nil {
		logging.Warn("Upgrade", "Failed to notify %s of %s: %v", status, ud.Name, err)
	}
}

func removeValues(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Debug("Upgrade", "Could not remove %s: %v", path, err)
	}
}
