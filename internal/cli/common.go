package cli

import (
	"errors"

	"github.com/jedib0t/go-pretty/v6/text"

	"kubeship/internal/config"
)

// FormatError formats an error message for CLI output. Configuration
// errors are shown with their file, layer and suggestions.
func FormatError(err error) string {
	var confErr config.ConfigurationError
	if errors.As(err, &confErr) {
		return text.FgRed.Sprintf("Error: %s", confErr.DetailedError())
	}
	return text.FgRed.Sprintf("Error: %v", err)
}

// FormatSuccess formats a success message for CLI output
func FormatSuccess(msg string) string {
	return text.FgGreen.Sprintf("✓ %s", msg)
}

// FormatWarning formats a warning message for CLI output
func FormatWarning(msg string) string {
	return text.FgYellow.Sprintf("⚠ %s", msg)
}
