package config

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ValidateRequired checks if a required string field is not empty
func ValidateRequired(field, value, entityType string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: fmt.Sprintf("is required for %s", entityType),
		}
	}
	return nil
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

var dnsLabel = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// ValidateEntityName checks that name is usable as a Kubernetes object name.
func ValidateEntityName(field, name, entityType string) error {
	if err := ValidateRequired(field, name, entityType); err != nil {
		return err
	}
	if len(name) > 63 || !dnsLabel.MatchString(name) {
		return ValidationError{
			Field:   field,
			Value:   name,
			Message: "must be a lowercase DNS label of at most 63 characters",
		}
	}
	return nil
}

// FormatValidationError creates a consistent validation error message
func FormatValidationError(entityType, entityName string, err error) error {
	if err == nil {
		return nil
	}

	if entityName != "" {
		return fmt.Errorf("validation failed for %s '%s': %w", entityType, entityName, err)
	}
	return fmt.Errorf("validation failed for %s: %w", entityType, err)
}

// Validate checks the structural consistency of the global configuration.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors
	add := func(err error) {
		if ve, ok := err.(ValidationError); ok {
			errs = append(errs, ve)
		}
	}

	teams := make(map[string]bool)
	for i, t := range c.Teams {
		add(ValidateRequired(fmt.Sprintf("teams[%d].name", i), t.Name, "team"))
		if teams[t.Name] {
			errs.Add(fmt.Sprintf("teams[%d].name", i), "duplicate team name", t.Name)
		}
		teams[t.Name] = true
	}

	regions := make(map[string]bool)
	schemes := []string{string(VersionSchemeSemver), string(VersionSchemeGitShaOrSemver)}
	for i, r := range c.Regions {
		prefix := fmt.Sprintf("regions[%d]", i)
		add(ValidateRequired(prefix+".name", r.Name, "region"))
		add(ValidateRequired(prefix+".environment", r.Environment, "region"))
		add(ValidateEntityName(prefix+".namespace", r.Namespace, "region"))
		if r.VersionScheme != "" {
			add(ValidateOneOf(prefix+".versionScheme", string(r.VersionScheme), schemes))
		}
		if r.Cluster != "" {
			if _, ok := c.Clusters[r.Cluster]; !ok {
				errs.Add(prefix+".cluster", "references an undefined cluster", r.Cluster)
			}
		}
		if r.Audit != nil {
			add(ValidateRequired(prefix+".audit.url", r.Audit.URL, "audit webhook"))
		}
		if regions[r.Name] {
			errs.Add(prefix+".name", "duplicate region name", r.Name)
		}
		regions[r.Name] = true
	}

	for name, cl := range c.Clusters {
		for _, r := range cl.Regions {
			if !regions[r] {
				errs.Add("clusters."+name+".regions", "references an undefined region", r)
			}
		}
	}
	return errs
}
