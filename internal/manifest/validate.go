package manifest

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"k8s.io/apimachinery/pkg/util/intstr"

	"kubeship/internal/config"
)

var (
	serviceNamePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)
	gitShaPattern      = regexp.MustCompile(`^[0-9a-f]{40}$`)
)

// Validate runs the cross-field invariant check on a resolved manifest.
// The first violation is returned as a *ValidationError.
func (m *Manifest) Validate() error {
	return forService(m.Name, m.validate())
}

func (m *Manifest) validate() error {
	if len(m.Name) > 50 || !serviceNamePattern.MatchString(m.Name) {
		return newFieldError(ReasonMissingName, "name", "%q is not a valid service name", m.Name)
	}
	if m.Metadata.Team == "" {
		return newFieldError(ReasonMissingMetadata, "metadata.team", "owning team is required")
	}
	if m.Namespace == "" {
		return requiredField("namespace")
	}
	if m.Image == "" {
		return newFieldError(ReasonMissingImage, "image", "image is required")
	}
	if m.ReplicaCount < 0 {
		return newFieldError(ReasonRequiredField, "replicaCount", "must not be negative")
	}
	if p := m.HTTPPort; p != nil && (*p < 1 || *p > 65535) {
		return newFieldError(ReasonRequiredField, "httpPort", "%d is not a valid port", *p)
	}
	if m.Resources != nil {
		if err := m.Resources.Verify(); err != nil {
			return within("resources", err)
		}
	}
	if m.AutoScaling != nil {
		if err := m.AutoScaling.Verify(); err != nil {
			return within("autoScaling", err)
		}
	}
	if m.RollingUpdate != nil {
		if err := m.RollingUpdate.Verify(); err != nil {
			return within("rollingUpdate", err)
		}
	}
	for i, d := range m.Dependencies {
		if d.Name == "" {
			return requiredField(fmt.Sprintf("dependencies[%d].name", i))
		}
	}
	if gw := m.Gateway; gw != nil {
		if gw.Public != m.PubliclyAccessible {
			return newFieldError(ReasonGatewayPublicMismatch, "gateway.public",
				"gateway public is %t but publiclyAccessible is %t", gw.Public, m.PubliclyAccessible)
		}
		if gw.Authorization != nil {
			if err := gw.Authorization.Verify(); err != nil {
				return within("gateway.authorization", err)
			}
		}
	}
	return nil
}

// Verify re-checks the authorization invariants on a resolved policy.
func (a *Authorization) Verify() error {
	_, err := AuthorizationSource{
		AllowedAudiences:   a.AllowedAudiences,
		AllowAnonymous:     &a.AllowAnonymous,
		AllowInvalidTokens: &a.AllowInvalidTokens,
	}.Build()
	return err
}

// Verify checks that both values are integers or percentages and that the
// rollout can make progress.
func (r *RollingUpdate) Verify() error {
	// scaled against 100 pods, zero only when the raw values are zero
	surge, unavailable, err := r.scaled(100)
	if err != nil {
		return err
	}
	if surge == 0 && unavailable == 0 {
		return newFieldError(ReasonRequiredField, "maxUnavailable", "maxSurge and maxUnavailable cannot both be zero")
	}
	return nil
}

// VerifyVersion checks the manifest version against a region's version scheme.
func (m *Manifest) VerifyVersion(scheme config.VersionScheme) error {
	if m.Version == nil {
		return forService(m.Name, requiredField("version"))
	}
	return forService(m.Name, ValidateVersion(*m.Version, scheme))
}

// ValidateVersion checks a version string against a version scheme.
func ValidateVersion(version string, scheme config.VersionScheme) error {
	if _, err := semver.StrictNewVersion(version); err == nil {
		return nil
	}
	if scheme != config.VersionSchemeSemver && gitShaPattern.MatchString(version) {
		return nil
	}
	expected := "a semantic version"
	if scheme != config.VersionSchemeSemver {
		expected = "a semantic version or a 40 character git sha"
	}
	return newFieldError(ReasonInvalidVersion, "version", "%q is not %s", version, expected)
}

func parseIntOrPercent(field string, value *string, fallback string) (intstr.IntOrString, error) {
	raw := fallback
	if value != nil {
		raw = *value
	}
	v := intstr.Parse(raw)
	if v.Type == intstr.String {
		if _, err := intstr.GetScaledValueFromIntOrPercent(&v, 100, false); err != nil {
			return v, &fieldError{reason: ReasonRequiredField, field: field,
				message: fmt.Sprintf("%q is neither an integer nor a percentage", raw), err: err}
		}
	}
	return v, nil
}
