package manifest

import "kubeship/pkg/merge"

// AuthorizationSource is the JWT policy block of a gateway.
type AuthorizationSource struct {
	AllowedAudiences   []string `yaml:"allowedAudiences,omitempty"`
	AllowAnonymous     *bool    `yaml:"allowAnonymous,omitempty"`
	AllowInvalidTokens *bool    `yaml:"allowInvalidTokens,omitempty"`
	RequiredScopes     []string `yaml:"requiredScopes,omitempty"`
	AllowCookies       *bool    `yaml:"allowCookies,omitempty"`
}

// Build validates the policy. Invalid tokens can only be tolerated when
// anonymous access is allowed as well.
func (s AuthorizationSource) Build() (*Authorization, error) {
	if len(s.AllowedAudiences) == 0 {
		return nil, newFieldError(ReasonInvalidAuthorization, "allowedAudiences",
			"allowedAudiences must contain at least one audience")
	}
	auth := &Authorization{
		AllowedAudiences:   s.AllowedAudiences,
		AllowAnonymous:     merge.Deref(s.AllowAnonymous, false),
		AllowInvalidTokens: merge.Deref(s.AllowInvalidTokens, false),
		RequiredScopes:     s.RequiredScopes,
		AllowCookies:       merge.Deref(s.AllowCookies, false),
	}
	if auth.AllowInvalidTokens && !auth.AllowAnonymous {
		return nil, newFieldError(ReasonInvalidAuthorization, "allowInvalidTokens",
			"allowInvalidTokens requires allowAnonymous")
	}
	return auth, nil
}
