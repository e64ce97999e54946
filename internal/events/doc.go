// Package events delivers rollout notifications.
//
// Every delivery goes through the Notifier interface and is fire-and-log:
// callers log returned errors and carry on. Two implementations exist:
//
//   - Webhook posts audit events for deployments and reconciliations to an
//     HTTP endpoint, authenticated with a bearer token
//   - EventGenerator records Kubernetes Events on the service's Deployment
//
// Multi combines them.
//
// Audit events carry the invocation context read from the environment
// (KUBESHIP_AUDIT_CONTEXT_ID, KUBESHIP_AUDIT_CONTEXT_LINK and
// KUBESHIP_AUDIT_REVISION):
//
//	{
//	  "timestamp": "2024-03-01T10:00:00.000Z",
//	  "status": "Completed",
//	  "context_id": "...",
//	  "type": "deployment",
//	  "payload": {"id": "rev-region-service-version", ...}
//	}
package events
