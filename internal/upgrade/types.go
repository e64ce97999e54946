package upgrade

import (
	"fmt"
	"time"

	"kubeship/internal/manifest"
)

// Mode selects how far an upgrade goes.
type Mode string

const (
	// ModeDiff only reports what would change.
	ModeDiff Mode = "diff"
	// ModeUpgradeNoWait applies without waiting for the rollout.
	ModeUpgradeNoWait Mode = "upgrade-no-wait"
	// ModeUpgrade applies and waits for the rollout to finish.
	ModeUpgrade Mode = "upgrade"
)

// ParseMode parses a mode name as used on the command line.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeDiff, ModeUpgradeNoWait, ModeUpgrade:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q (expected diff, upgrade-no-wait or upgrade)", s)
	}
}

// State is the position of one upgrade in its lifecycle.
type State string

const (
	StatePending    State = "Pending"
	StateInstalling State = "Installing"
	StateUpgrading  State = "Upgrading"
	StateSucceeded  State = "Succeeded"
	StateFailed     State = "Failed"
	StateTimedOut   State = "TimedOut"
)

// IsTerminal reports whether no further transition can happen.
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateTimedOut
}

// UpgradeData is the working state of one service upgrade. It is owned by
// a single worker.
type UpgradeData struct {
	Name      string
	Region    string
	Namespace string
	Version   string
	// ValuesFile is the rendered values artifact. It is removed once the
	// upgrade finishes.
	ValuesFile string
	Mode       Mode
	// Exists is set when the service is already deployed.
	Exists bool
	// Diff is filled in by diff mode.
	Diff string
	// Wait is the rollout deadline.
	Wait  time.Duration
	State State
}

// NewUpgradeData prepares an upgrade of m to version. The rollout deadline is
// estimated from the manifest.
func NewUpgradeData(m *manifest.Manifest, version, valuesFile string, mode Mode, exists bool) *UpgradeData {
	return &UpgradeData{
		Name:       m.Name,
		Region:     m.Region,
		Namespace:  m.Namespace,
		Version:    version,
		ValuesFile: valuesFile,
		Mode:       mode,
		Exists:     exists,
		Wait:       m.EstimateWaitTime(),
		State:      StatePending,
	}
}

func (u *UpgradeData) String() string {
	return fmt.Sprintf("%s@%s in %s/%s", u.Name, u.Version, u.Region, u.Namespace)
}
