package events

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"kubeship/pkg/logging"
)

const eventSource = "kubeship"

// EventGenerator records rollout outcomes as Kubernetes Events on the
// service's Deployment, visible through kubectl get events.
type EventGenerator struct {
	client    client.Client
	templates *MessageTemplateEngine
	now       func() time.Time
}

// NewEventGenerator creates a new EventGenerator writing through c.
func NewEventGenerator(c client.Client) *EventGenerator {
	return &EventGenerator{
		client:    c,
		templates: NewMessageTemplateEngine(),
		now:       time.Now,
	}
}

// NotifyUpgrade implements Notifier.
func (g *EventGenerator) NotifyUpgrade(ctx context.Context, status Status, d Deployment) error {
	reason := reasonFor(status, d.Install)
	message := g.templates.Render(reason, EventData{
		Name:      d.Service,
		Namespace: d.Namespace,
		Region:    d.Region,
		Version:   d.Version,
		Error:     d.Error,
		Duration:  d.Wait,
	})
	eventType := string(getEventType(reason))

	logging.Debug("Events", "Generating event for %s: reason=%s, message=%s, type=%s",
		d.Service, reason, message, eventType)

	now := metav1.NewTime(g.now())
	event := &corev1.Event{
		ObjectMeta: metav1.ObjectMeta{
			GenerateName: d.Service + "-",
			Namespace:    d.Namespace,
		},
		InvolvedObject: corev1.ObjectReference{
			APIVersion: "apps/v1",
			Kind:       "Deployment",
			Name:       d.Service,
			Namespace:  d.Namespace,
		},
		Reason:         string(reason),
		Message:        message,
		Type:           eventType,
		Source:         corev1.EventSource{Component: eventSource},
		FirstTimestamp: now,
		LastTimestamp:  now,
		Count:          1,
	}
	if err := g.client.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create Kubernetes Event: %w", err)
	}
	return nil
}

// NotifyReconciliation implements Notifier. Batches have no object to attach
// an event to, so nothing is recorded.
func (g *EventGenerator) NotifyReconciliation(ctx context.Context, status Status, region string) error {
	return nil
}
