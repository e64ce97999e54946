package upgrade

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"sigs.k8s.io/yaml"

	"kubeship/internal/manifest"
	"kubeship/internal/template"
)

// ValuesFileName is the name of the values artifact of a service.
func ValuesFileName(service string) string {
	return service + ".values.yml"
}

// RenderValues renders m into the values artifact document. Config file
// templates are executed; m itself is not modified.
func RenderValues(m *manifest.Manifest, engine *template.Engine) ([]byte, error) {
	c := m.Clone()
	if m.Configs != nil {
		configs := *m.Configs
		configs.Files = slices.Clone(m.Configs.Files)
		c.Configs = &configs
	}
	if err := engine.RenderConfigs(c, nil); err != nil {
		return nil, err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal values of %s: %w", m.Name, err)
	}
	return data, nil
}

// WriteValues renders m and writes the artifact into dir. It returns the
// path of the written file.
func WriteValues(dir string, m *manifest.Manifest, engine *template.Engine) (string, error) {
	data, err := RenderValues(m, engine)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, ValuesFileName(m.Name))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write values file %s: %w", path, err)
	}
	return path, nil
}
