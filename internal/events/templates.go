package events

import (
	"bytes"
	"fmt"
	"text/template"
)

// MessageTemplateEngine provides dynamic message generation for events.
type MessageTemplateEngine struct {
	templates map[EventReason]*template.Template
}

// NewMessageTemplateEngine creates a new message template engine with default templates.
func NewMessageTemplateEngine() *MessageTemplateEngine {
	engine := &MessageTemplateEngine{
		templates: make(map[EventReason]*template.Template),
	}
	engine.loadDefaultTemplates()
	return engine
}

func (e *MessageTemplateEngine) loadDefaultTemplates() {
	defaults := map[EventReason]string{
		ReasonUpgradeStarted:  "Rolling out {{.Name}} {{.Version}} in {{.Region}}",
		ReasonInstalled:       "Installed {{.Name}} {{.Version}} in {{.Region}}",
		ReasonUpgraded:        "Upgraded {{.Name}} to {{.Version}} in {{.Region}}",
		ReasonUpgradeFailed:   "Applying {{.Name}} {{.Version}} failed{{if .Error}}: {{.Error}}{{end}}",
		ReasonRolloutTimedOut: "Rollout of {{.Name}} {{.Version}} did not complete{{if .Duration}} within {{.Duration}}{{end}}",
	}
	for reason, text := range defaults {
		if err := e.SetTemplate(reason, text); err != nil {
			panic(err)
		}
	}
}

// SetTemplate allows customizing the message template for a specific event reason.
func (e *MessageTemplateEngine) SetTemplate(reason EventReason, text string) error {
	tmpl, err := template.New(string(reason)).Option("missingkey=zero").Parse(text)
	if err != nil {
		return fmt.Errorf("invalid template for %s: %w", reason, err)
	}
	e.templates[reason] = tmpl
	return nil
}

// Render generates a message for the given event reason and data.
func (e *MessageTemplateEngine) Render(reason EventReason, data EventData) string {
	tmpl, exists := e.templates[reason]
	if !exists {
		return fmt.Sprintf("Event: %s for %s/%s", string(reason), data.Namespace, data.Name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("Event: %s for %s/%s", string(reason), data.Namespace, data.Name)
	}
	return buf.String()
}
