package template

import "kubeship/internal/manifest"

// MergeContexts merges multiple contexts into a single context
// Later contexts override values from earlier contexts
func MergeContexts(contexts ...map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})

	for _, ctx := range contexts {
		for key, value := range ctx {
			result[key] = value
		}
	}

	return result
}

// ManifestContext exposes the parts of a resolved manifest that config
// templates may reference.
func ManifestContext(m *manifest.Manifest) map[string]interface{} {
	env := make(map[string]string, len(m.Env))
	for k, v := range m.Env {
		env[k] = v
	}

	ctx := map[string]interface{}{
		"name":        m.Name,
		"region":      m.Region,
		"environment": m.Environment,
		"namespace":   m.Namespace,
		"image":       m.Image,
		"version":     "",
		"env":         env,
		"team":        m.Metadata.Team,
	}
	if m.Version != nil {
		ctx["version"] = *m.Version
	}
	if m.Kafka != nil {
		ctx["kafka"] = m.Kafka
	}
	if m.Gateway != nil {
		ctx["gateway"] = m.Gateway
	}
	return ctx
}
