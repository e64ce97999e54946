package cmd

import (
	"fmt"
	"os"

	"kubeship/internal/cli"
	"kubeship/internal/cluster"
	"kubeship/internal/config"
	"kubeship/internal/events"
	"kubeship/pkg/logging"
)

// newClusterClient connects to the cluster backing the workspace region and
// builds the notifier for rollouts there. Tests replace it.
var newClusterClient = func(ws *cli.Workspace) (cluster.Client, events.Notifier, error) {
	_, cl, err := ws.Config.ClusterFor(ws.Region)
	if err != nil {
		return nil, nil, err
	}

	kube, err := cluster.NewKubernetesForContext(cl.Context)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", cl.Context, err)
	}
	return kube, buildNotifier(ws.Region, kube), nil
}

// buildNotifier combines Kubernetes events with the region's audit webhook.
func buildNotifier(region *config.Region, kube *cluster.Kubernetes) events.Notifier {
	notifiers := events.Multi{events.NewEventGenerator(kube.Client())}

	if audit := region.Audit; audit != nil {
		token := os.Getenv(audit.TokenEnv)
		if token == "" {
			logging.Warn("CLI", "Audit webhook for %s configured but %s is empty", region.Name, audit.TokenEnv)
		}
		notifiers = append(notifiers, events.NewWebhook(audit.URL, token, events.AuditContextFromEnv()))
	}
	return notifiers
}
