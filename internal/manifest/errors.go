package manifest

import "fmt"

// Reason classifies why a manifest failed to resolve.
type Reason string

const (
	ReasonMissingName           Reason = "missing-name"
	ReasonMissingMetadata       Reason = "missing-metadata"
	ReasonUnknownTeam           Reason = "unknown-team"
	ReasonMissingImage          Reason = "missing-image"
	ReasonInvalidResources      Reason = "invalid-resources"
	ReasonInvalidAuthorization  Reason = "invalid-authorization"
	ReasonGatewayPublicMismatch Reason = "gateway-public-mismatch"
	ReasonRequiredField         Reason = "required-field"
	ReasonInvalidContainer      Reason = "invalid-container"
	ReasonInvalidAutoScaling    Reason = "invalid-autoscaling"
	ReasonMissingTemplate       Reason = "missing-template"
	ReasonInvalidVersion        Reason = "invalid-version"
)

// ValidationError is returned when a service cannot be resolved into a
// valid manifest. It always names the service.
type ValidationError struct {
	Service string
	Reason  Reason
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return fmt.Sprintf("manifest for %s is invalid (%s): %s", e.Service, e.Reason, msg)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// fieldError is raised by the builders, which do not know the service
// name. Build wraps it into a ValidationError.
type fieldError struct {
	reason  Reason
	field   string
	message string
	err     error
}

func (e *fieldError) Error() string {
	if e.field != "" {
		return fmt.Sprintf("%s: %s", e.field, e.message)
	}
	return e.message
}

func (e *fieldError) Unwrap() error {
	return e.err
}

func newFieldError(reason Reason, field, format string, args ...interface{}) error {
	return &fieldError{reason: reason, field: field, message: fmt.Sprintf(format, args...)}
}

// requiredField returns the error for a field that is absent after merging.
func requiredField(field string) error {
	return newFieldError(ReasonRequiredField, field, "required field missing: %s", field)
}

// within prefixes the field path of a builder error.
func within(prefix string, err error) error {
	if fe, ok := err.(*fieldError); ok {
		copied := *fe
		if copied.field == "" {
			copied.field = prefix
		} else {
			copied.field = prefix + "." + copied.field
		}
		return &copied
	}
	return err
}

// forService turns a builder error into a ValidationError for service.
func forService(service string, err error) error {
	if err == nil {
		return nil
	}
	if ve, ok := err.(*ValidationError); ok {
		return ve
	}
	if fe, ok := err.(*fieldError); ok {
		return &ValidationError{Service: service, Reason: fe.reason, Field: fe.field, Message: fe.message, Err: fe.err}
	}
	return &ValidationError{Service: service, Reason: ReasonInvalidContainer, Message: "build failed", Err: err}
}
