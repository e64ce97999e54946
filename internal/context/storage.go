package context

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	contextsFileName = "contexts.yaml"
	// userConfigDir is the subdirectory under home for kubeship configuration.
	userConfigDir = ".config/kubeship"
)

// Storage provides thread-safe access to the contexts file.
type Storage struct {
	mu         sync.RWMutex
	configPath string
}

// NewStorage creates a Storage rooted at ~/.config/kubeship.
func NewStorage() (*Storage, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to determine home directory: %w", err)
	}
	return &Storage{configPath: filepath.Join(homeDir, userConfigDir)}, nil
}

// NewStorageWithPath creates a Storage rooted at configPath.
func NewStorageWithPath(configPath string) *Storage {
	return &Storage{configPath: configPath}
}

func (s *Storage) getContextsFilePath() string {
	return filepath.Join(s.configPath, contextsFileName)
}

// Load reads the contexts file. A missing file is an empty configuration.
func (s *Storage) Load() (*ContextConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadLocked()
}

func (s *Storage) loadLocked() (*ContextConfig, error) {
	data, err := os.ReadFile(s.getContextsFilePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ContextConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read contexts file: %w", err)
	}

	var config ContextConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse contexts file: %w", err)
	}
	return &config, nil
}

// Save writes the contexts file, creating its directory when needed.
func (s *Storage) Save(config *ContextConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveLocked(config)
}

func (s *Storage) saveLocked(config *ContextConfig) error {
	if err := os.MkdirAll(s.configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal contexts config: %w", err)
	}

	if err := os.WriteFile(s.getContextsFilePath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write contexts file: %w", err)
	}
	return nil
}

// GetCurrentContext returns the selected context, or nil if none is selected.
func (s *Storage) GetCurrentContext() (*Context, error) {
	config, err := s.Load()
	if err != nil {
		return nil, err
	}
	if config.CurrentContext == "" {
		return nil, nil
	}
	return config.GetContext(config.CurrentContext), nil
}

// SetCurrentContext selects the named context.
func (s *Storage) SetCurrentContext(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	config, err := s.loadLocked()
	if err != nil {
		return err
	}
	if !config.HasContext(name) {
		return &ContextNotFoundError{Name: name}
	}

	config.CurrentContext = name
	return s.saveLocked(config)
}

// SetContext adds the context or replaces an existing one of the same name.
func (s *Storage) SetContext(ctx Context) error {
	if err := ValidateContextName(ctx.Name); err != nil {
		return err
	}
	if ctx.Region == "" {
		return fmt.Errorf("region cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	config, err := s.loadLocked()
	if err != nil {
		return err
	}

	config.AddOrUpdateContext(ctx)
	return s.saveLocked(config)
}

// DeleteContext removes a context by name.
func (s *Storage) DeleteContext(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	config, err := s.loadLocked()
	if err != nil {
		return err
	}
	if !config.RemoveContext(name) {
		return &ContextNotFoundError{Name: name}
	}
	return s.saveLocked(config)
}

// GetContext returns the named context, or nil if it does not exist.
func (s *Storage) GetContext(name string) (*Context, error) {
	config, err := s.Load()
	if err != nil {
		return nil, err
	}
	return config.GetContext(name), nil
}

// Resolve returns the context in effect: the named one if name is set, else
// the one named by KUBESHIP_CONTEXT, else the current context. It returns nil
// when nothing is selected.
func (s *Storage) Resolve(name string) (*Context, error) {
	if name == "" {
		name = os.Getenv(ContextEnvVar)
	}
	if name == "" {
		return s.GetCurrentContext()
	}

	ctx, err := s.GetContext(name)
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		return nil, &ContextNotFoundError{Name: name}
	}
	return ctx, nil
}
