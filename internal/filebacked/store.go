// Package filebacked reads service manifests from a configuration directory.
package filebacked

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"kubeship/internal/config"
	"kubeship/internal/manifest"
	"kubeship/pkg/logging"
)

const (
	servicesDir  = "services"
	templatesDir = "templates"
	manifestFile = "manifest.yml"
)

// Store reads services/<name>/ layer files and templates below a root
// directory. It holds no state and is safe for concurrent use.
type Store struct {
	root string
}

// NewStore creates a Store rooted at the configuration directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the configuration directory.
func (s *Store) Root() string {
	return s.root
}

// ServiceDir returns the directory holding a service's layer files.
func (s *Store) ServiceDir(name string) string {
	return filepath.Join(s.root, servicesDir, name)
}

// Names lists every service with a manifest.yml, sorted.
func (s *Store) Names() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, servicesDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read services directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.ServiceDir(entry.Name()), manifestFile)); err != nil {
			logging.Debug("Config", "Skipping %s: no %s", entry.Name(), manifestFile)
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Source reads the service file and the override layers that apply to the
// region, environment file first. Missing override files are skipped.
func (s *Store) Source(name string, region *config.Region) (manifest.ManifestSource, []manifest.ManifestOverrides, error) {
	var src manifest.ManifestSource
	if err := s.decode(name, manifestFile, "service", &src, true); err != nil {
		return src, nil, err
	}

	var layers []manifest.ManifestOverrides
	if region == nil {
		return src, layers, nil
	}
	for _, l := range []struct{ file, layer string }{
		{region.Environment + ".yml", "environment"},
		{region.Name + ".yml", "region"},
	} {
		var ov manifest.ManifestOverrides
		if err := s.decode(name, l.file, l.layer, &ov, false); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return src, nil, err
		}
		layers = append(layers, ov)
	}
	return src, layers, nil
}

// Load resolves the full manifest of a service in a region.
func (s *Store) Load(name string, conf *config.Config, region *config.Region) (*manifest.Manifest, error) {
	src, layers, err := s.Source(name, region)
	if err != nil {
		return nil, err
	}
	m, err := manifest.Build(src, layers, conf, region, s)
	if err != nil {
		return nil, err
	}
	logging.Debug("Resolver", "Resolved %s in %s (namespace %s)", m.Name, region.Name, m.Namespace)
	return m, nil
}

// LoadSimple resolves the listing view of a service in a region.
func (s *Store) LoadSimple(name string, conf *config.Config, region *config.Region) (*manifest.SimpleManifest, error) {
	src, layers, err := s.Source(name, region)
	if err != nil {
		return nil, err
	}
	return manifest.BuildSimple(src, layers, conf, region)
}

// Available lists the simple manifests of services enabled in a region.
func (s *Store) Available(conf *config.Config, region *config.Region) ([]manifest.SimpleManifest, error) {
	names, err := s.Names()
	if err != nil {
		return nil, err
	}
	var out []manifest.SimpleManifest
	for _, name := range names {
		sm, err := s.LoadSimple(name, conf, region)
		if err != nil {
			return nil, err
		}
		if sm.Enabled {
			out = append(out, *sm)
		}
	}
	return out, nil
}

// All lists the base manifests of every service.
func (s *Store) All(conf *config.Config) ([]manifest.BaseManifest, error) {
	names, err := s.Names()
	if err != nil {
		return nil, err
	}
	out := make([]manifest.BaseManifest, 0, len(names))
	for _, name := range names {
		src, _, err := s.Source(name, nil)
		if err != nil {
			return nil, err
		}
		base, err := manifest.BuildBase(src, conf)
		if err != nil {
			return nil, err
		}
		out = append(out, *base)
	}
	return out, nil
}

// ReadTemplate returns the named template from the service directory, or
// from the shared templates directory when the service has no copy.
func (s *Store) ReadTemplate(service, name string) (string, error) {
	if strings.Contains(name, "..") || filepath.IsAbs(name) {
		return "", fmt.Errorf("template name %q escapes the configuration directory", name)
	}
	for _, path := range []string{
		filepath.Join(s.ServiceDir(service), name),
		filepath.Join(s.root, templatesDir, name),
	} {
		data, err := os.ReadFile(path)
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to read template %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("template %s for %s: %w", name, service, fs.ErrNotExist)
}

func (s *Store) decode(service, file, layer string, out interface{}, required bool) error {
	path := filepath.Join(s.ServiceDir(service), file)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return err
		}
		return fmt.Errorf("service %s: %w", service,
			config.NewConfigurationErrorWithDetails(path, layer, "io", "cannot read layer file", err.Error(), nil))
	}
	if err := config.UnmarshalStrict(data, out); err != nil {
		return fmt.Errorf("service %s: %w", service,
			config.NewConfigurationErrorWithDetails(path, layer, "parse", "invalid layer file", err.Error(),
				[]string{"remove or rename fields that are not part of the manifest schema"}))
	}
	return nil
}
