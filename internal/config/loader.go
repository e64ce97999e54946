package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"kubeship/pkg/logging"
)

const configFileName = "config.yaml"

// GetDefaultConfigPath returns the configuration directory: $KUBESHIP_CONFIG_PATH
// when set, the working directory otherwise.
func GetDefaultConfigPath() string {
	if p := os.Getenv(DefaultConfigPathEnv); p != "" {
		return p
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// LoadConfig loads, defaults and validates config.yaml from configPath.
func LoadConfig(configPath string) (*Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	cfg := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NewConfigurationError(configFilePath, "global", "io", "config.yaml not found")
		}
		return nil, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}

	if err := UnmarshalStrict(data, &cfg); err != nil {
		return nil, NewConfigurationErrorWithDetails(configFilePath, "global", "parse",
			"config.yaml is malformed", err.Error(),
			[]string{"check field names against the documented camelCase keys"})
	}
	if cfg.Clusters == nil {
		cfg.Clusters = make(map[string]Cluster)
	}
	applyDefaults(&cfg)

	if errs := cfg.Validate(); errs.HasErrors() {
		return nil, FormatValidationError("config", configFilePath, errs)
	}

	logging.Info("Config", "Loaded configuration from %s (%d regions, %d teams)",
		configFilePath, len(cfg.Regions), len(cfg.Teams))
	return &cfg, nil
}

// UnmarshalStrict decodes YAML into out, rejecting fields that out does not declare.
// An empty document leaves out untouched.
func UnmarshalStrict(data []byte, out interface{}) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

// Region returns the region with the given name.
func (c *Config) Region(name string) (*Region, error) {
	for i := range c.Regions {
		if c.Regions[i].Name == name {
			return &c.Regions[i], nil
		}
	}
	return nil, fmt.Errorf("region %q is not defined in %s", name, configFileName)
}

// Team returns the team with the given name.
func (c *Config) Team(name string) (*Team, bool) {
	for i := range c.Teams {
		if c.Teams[i].Name == name {
			return &c.Teams[i], true
		}
	}
	return nil, false
}

// ClusterFor returns the cluster backing a region.
func (c *Config) ClusterFor(region *Region) (string, Cluster, error) {
	if region.Cluster != "" {
		cl, ok := c.Clusters[region.Cluster]
		if !ok {
			return "", Cluster{}, fmt.Errorf("region %s references unknown cluster %q", region.Name, region.Cluster)
		}
		return region.Cluster, cl, nil
	}
	for name, cl := range c.Clusters {
		for _, r := range cl.Regions {
			if r == region.Name {
				return name, cl, nil
			}
		}
	}
	return "", Cluster{}, fmt.Errorf("no cluster serves region %s", region.Name)
}
