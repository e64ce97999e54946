package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"kubeship/pkg/logging"
)

// Environment variables describing the invocation that triggered a rollout.
const (
	EnvAuditContextID   = "KUBESHIP_AUDIT_CONTEXT_ID"
	EnvAuditContextLink = "KUBESHIP_AUDIT_CONTEXT_LINK"
	EnvAuditRevision    = "KUBESHIP_AUDIT_REVISION"
)

const auditTimeout = 10 * time.Second

// AuditContext ties audit events to the pipeline run that produced them.
type AuditContext struct {
	ContextID   string
	ContextLink string
	// Revision is the revision of the configuration repository.
	Revision string
}

// AuditContextFromEnv reads the audit context from the environment. A
// random context id is generated when none is given.
func AuditContextFromEnv() AuditContext {
	ac := AuditContext{
		ContextID:   os.Getenv(EnvAuditContextID),
		ContextLink: os.Getenv(EnvAuditContextLink),
		Revision:    os.Getenv(EnvAuditRevision),
	}
	if ac.ContextID == "" {
		ac.ContextID = uuid.NewString()
	}
	return ac
}

// AuditEvent is the document posted to the audit webhook.
type AuditEvent struct {
	Timestamp   string      `json:"timestamp"`
	Status      Status      `json:"status"`
	ContextID   string      `json:"context_id"`
	ContextLink string      `json:"context_link,omitempty"`
	Type        string      `json:"type"`
	Payload     interface{} `json:"payload"`
}

// DeploymentPayload is the payload of a single service rollout.
type DeploymentPayload struct {
	ID                string `json:"id"`
	Region            string `json:"region"`
	ManifestsRevision string `json:"manifests_revision"`
	Service           string `json:"service"`
	Version           string `json:"version"`
}

// ReconciliationPayload is the payload of a whole reconciliation batch.
type ReconciliationPayload struct {
	ID                string `json:"id"`
	Region            string `json:"region"`
	ManifestsRevision string `json:"manifests_revision"`
}

// Webhook posts audit events to an HTTP endpoint, authenticated with a
// bearer token when one is configured.
type Webhook struct {
	url    string
	client *http.Client
	audit  AuditContext
	now    func() time.Time
}

// NewWebhook creates a Webhook. An empty token sends unauthenticated requests.
func NewWebhook(url, token string, audit AuditContext) *Webhook {
	httpClient := &http.Client{Timeout: auditTimeout}
	if token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
		httpClient.Timeout = auditTimeout
	}
	return &Webhook{url: url, client: httpClient, audit: audit, now: time.Now}
}

// NotifyUpgrade implements Notifier.
func (w *Webhook) NotifyUpgrade(ctx context.Context, status Status, d Deployment) error {
	payload := DeploymentPayload{
		ID:                strings.Join([]string{w.audit.Revision, d.Region, d.Service, d.Version}, "-"),
		Region:            d.Region,
		ManifestsRevision: w.audit.Revision,
		Service:           d.Service,
		Version:           d.Version,
	}
	return w.post(ctx, w.event(status, "deployment", payload))
}

// NotifyReconciliation implements Notifier.
func (w *Webhook) NotifyReconciliation(ctx context.Context, status Status, region string) error {
	payload := ReconciliationPayload{
		ID:                strings.Join([]string{w.audit.Revision, region}, "-"),
		Region:            region,
		ManifestsRevision: w.audit.Revision,
	}
	return w.post(ctx, w.event(status, "reconciliation", payload))
}

func (w *Webhook) event(status Status, kind string, payload interface{}) AuditEvent {
	return AuditEvent{
		Timestamp:   w.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Status:      status,
		ContextID:   w.audit.ContextID,
		ContextLink: w.audit.ContextLink,
		Type:        kind,
		Payload:     payload,
	}
}

func (w *Webhook) post(ctx context.Context, ev AuditEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create audit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send audit event: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("audit webhook returned %s", resp.Status)
	}
	logging.Debug("Events", "Sent %s audit event (%s)", ev.Type, ev.Status)
	return nil
}
