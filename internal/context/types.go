package context

import (
	"fmt"
	"regexp"
)

// ContextEnvVar is the environment variable name for overriding the current context.
const ContextEnvVar = "KUBESHIP_CONTEXT"

// maxContextNameLength follows Kubernetes label constraints.
const maxContextNameLength = 63

var contextNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$|^[a-z0-9]$`)

// ContextSettings contains optional per-context settings.
type ContextSettings struct {
	// Output is the default output format for this context (table, json, yaml)
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
}

// Context is a named selection of a configuration directory and a region.
type Context struct {
	Name   string `yaml:"name" json:"name"`
	Region string `yaml:"region" json:"region"`
	// ConfigPath is the configuration directory. Empty means the default.
	ConfigPath string           `yaml:"configPath,omitempty" json:"configPath,omitempty"`
	Settings   *ContextSettings `yaml:"settings,omitempty" json:"settings,omitempty"`
}

// ContextConfig is the root structure stored in ~/.config/kubeship/contexts.yaml.
type ContextConfig struct {
	CurrentContext string    `yaml:"current-context,omitempty" json:"currentContext,omitempty"`
	Contexts       []Context `yaml:"contexts,omitempty" json:"contexts"`
}

// ContextNotFoundError is returned when a named context does not exist.
type ContextNotFoundError struct {
	Name string
}

func (e *ContextNotFoundError) Error() string {
	return fmt.Sprintf("context %q not found", e.Name)
}

// ValidateContextName validates a context name. Names are 1 to 63 lowercase
// alphanumerics or hyphens, starting and ending with an alphanumeric.
func ValidateContextName(name string) error {
	if name == "" {
		return fmt.Errorf("context name cannot be empty")
	}

	if len(name) > maxContextNameLength {
		return fmt.Errorf("context name cannot exceed %d characters", maxContextNameLength)
	}

	if !contextNamePattern.MatchString(name) {
		return fmt.Errorf("context name must contain only lowercase letters, numbers, and hyphens, and must start and end with an alphanumeric character")
	}

	return nil
}

// GetContext returns the context with the given name, or nil if not found.
func (c *ContextConfig) GetContext(name string) *Context {
	for i := range c.Contexts {
		if c.Contexts[i].Name == name {
			return &c.Contexts[i]
		}
	}
	return nil
}

// HasContext returns true if a context with the given name exists.
func (c *ContextConfig) HasContext(name string) bool {
	return c.GetContext(name) != nil
}

// AddOrUpdateContext adds a new context or replaces the one with the same name.
func (c *ContextConfig) AddOrUpdateContext(ctx Context) {
	for i := range c.Contexts {
		if c.Contexts[i].Name == ctx.Name {
			c.Contexts[i] = ctx
			return
		}
	}
	c.Contexts = append(c.Contexts, ctx)
}

// RemoveContext removes the named context and reports whether it existed.
// Removing the current context clears CurrentContext.
func (c *ContextConfig) RemoveContext(name string) bool {
	for i := range c.Contexts {
		if c.Contexts[i].Name == name {
			c.Contexts = append(c.Contexts[:i], c.Contexts[i+1:]...)
			if c.CurrentContext == name {
				c.CurrentContext = ""
			}
			return true
		}
	}
	return false
}
