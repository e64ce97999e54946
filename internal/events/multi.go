package events

import (
	"context"
	"errors"
)

// Multi fans notifications out to several notifiers. Every notifier is
// called; their errors are joined.
type Multi []Notifier

// NotifyUpgrade implements Notifier.
func (m Multi) NotifyUpgrade(ctx context.Context, status Status, d Deployment) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyUpgrade(ctx, status, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NotifyReconciliation implements Notifier.
func (m Multi) NotifyReconciliation(ctx context.Context, status Status, region string) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyReconciliation(ctx, status, region); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
