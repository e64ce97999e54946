package events

import (
	"context"
	"time"
)

// Status is the outcome reported by a notification.
type Status string

const (
	StatusStarted   Status = "Started"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
	StatusTimedOut  Status = "TimedOut"
)

// EventType represents the type/severity of a Kubernetes Event.
type EventType string

const (
	// EventTypeNormal indicates normal, non-problematic events.
	EventTypeNormal EventType = "Normal"

	// EventTypeWarning indicates events that may require attention.
	EventTypeWarning EventType = "Warning"
)

// EventReason represents the reason code for an event.
type EventReason string

const (
	// ReasonInstalled indicates a service was installed and rolled out.
	ReasonInstalled EventReason = "Installed"

	// ReasonUpgraded indicates a service was upgraded and rolled out.
	ReasonUpgraded EventReason = "Upgraded"

	// ReasonUpgradeFailed indicates the cluster rejected the apply.
	ReasonUpgradeFailed EventReason = "UpgradeFailed"

	// ReasonRolloutTimedOut indicates the rollout did not finish in time.
	ReasonRolloutTimedOut EventReason = "RolloutTimedOut"

	// ReasonUpgradeStarted indicates an apply is about to be issued.
	ReasonUpgradeStarted EventReason = "UpgradeStarted"
)

// Deployment describes one service rollout for notifications.
type Deployment struct {
	Service   string
	Region    string
	Namespace string
	Version   string
	Install   bool
	// Wait is the rollout deadline that applied.
	Wait  time.Duration
	Error string
}

// Notifier receives rollout outcomes. Callers log and otherwise ignore
// returned errors.
type Notifier interface {
	NotifyUpgrade(ctx context.Context, status Status, d Deployment) error
	NotifyReconciliation(ctx context.Context, status Status, region string) error
}

// EventData holds the values substituted into event messages.
type EventData struct {
	Name      string
	Namespace string
	Region    string
	Version   string
	Error     string
	Duration  time.Duration
}

// reasonFor maps an upgrade outcome to an event reason.
func reasonFor(status Status, install bool) EventReason {
	switch status {
	case StatusStarted:
		return ReasonUpgradeStarted
	case StatusFailed:
		return ReasonUpgradeFailed
	case StatusTimedOut:
		return ReasonRolloutTimedOut
	default:
		if install {
			return ReasonInstalled
		}
		return ReasonUpgraded
	}
}

// getEventType returns the appropriate EventType for a given EventReason.
func getEventType(reason EventReason) EventType {
	switch reason {
	case ReasonUpgradeFailed, ReasonRolloutTimedOut:
		return EventTypeWarning
	default:
		return EventTypeNormal
	}
}
