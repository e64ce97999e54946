package template

import (
	"bytes"
	"fmt"
	"sort"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"kubeship/internal/manifest"
)

// Engine renders config file templates with the sprig function library.
type Engine struct {
	funcs template.FuncMap
}

// New creates a new template engine
func New() *Engine {
	return &Engine{funcs: sprig.TxtFuncMap()}
}

// Render executes text as a template named name against context. Referencing
// a key that is not in context is an error.
func (e *Engine) Render(name, text string, context map[string]interface{}) (string, error) {
	tmpl, err := template.New(name).Funcs(e.funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, context); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.String(), nil
}

// Replace renders every string found in value, recursing into maps and slices.
// Non-templatable types are returned as-is.
func (e *Engine) Replace(value interface{}, context map[string]interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return e.Render("value", v, context)
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, val := range v {
			replaced, err := e.Replace(val, context)
			if err != nil {
				return nil, fmt.Errorf("error in key '%s': %w", key, err)
			}
			result[key] = replaced
		}
		return result, nil
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, val := range v {
			replaced, err := e.Replace(val, context)
			if err != nil {
				return nil, fmt.Errorf("error at index %d: %w", i, err)
			}
			result[i] = replaced
		}
		return result, nil
	default:
		return value, nil
	}
}

// RenderConfigs renders the config files of m in place, using ManifestContext
// merged with extra. A manifest without configs is left untouched.
func (e *Engine) RenderConfigs(m *manifest.Manifest, extra map[string]interface{}) error {
	if m.Configs == nil {
		return nil
	}

	ctx := MergeContexts(ManifestContext(m), extra)
	for i := range m.Configs.Files {
		file := &m.Configs.Files[i]
		rendered, err := e.Render(file.Name, file.Value, ctx)
		if err != nil {
			return fmt.Errorf("service %s: %w", m.Name, err)
		}
		file.Value = rendered
	}
	return nil
}

// ValidateContext ensures all required variables are present in the context
func (e *Engine) ValidateContext(required []string, context map[string]interface{}) error {
	var missing []string
	for _, key := range required {
		if _, ok := context[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing template variables: %v", missing)
	}
	return nil
}
