package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/crate-pusher/game/engine"
	"github.com/wricardo/crate-pusher/game/service"
)

var (
	ErrConfigNotFound = service.ErrConfigNotFound
	ErrInvalidConfig  = service.ErrInvalidConfig
)

// Extensions tried, in order, when a name is given without one
var extensions = []string{".json", ".yaml", ".yml"}

// Manager handles game configuration loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.Options
	configs       map[string]*engine.Options
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	// Ensure config directory exists
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.Options),
	}

	m.loadDefaultConfig()
	return m, nil
}

// LoadConfig loads a configuration by name. The name may carry a .json,
// .yaml or .yml extension; without one each is tried in that order.
func (m *Manager) LoadConfig(name string) (*engine.Options, error) {
	id := configID(name)

	m.mu.RLock()
	// Check cache first
	if opts, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return opts, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if opts, exists := m.configs[id]; exists {
		return opts, nil
	}

	path, err := m.resolve(name)
	if err != nil {
		return nil, err
	}
	opts, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	m.configs[id] = opts
	return opts, nil
}

// LoadFile reads a single preset from path, fills in defaults and validates
// it. A preset without a name is named after its file.
func LoadFile(path string) (*engine.Options, error) {
	opts, err := parseFile(path)
	if err != nil {
		return nil, err
	}
	if opts.Name == "" {
		opts.Name = configID(filepath.Base(path))
	}
	opts.ApplyDefaults()

	if err := engine.ValidateOptions(opts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return opts, nil
}

// resolve finds the file backing name
func (m *Manager) resolve(name string) (string, error) {
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidConfig, name)
	}
	candidates := []string{name}
	if !hasKnownExt(name) {
		candidates = candidates[:0]
		for _, ext := range extensions {
			candidates = append(candidates, name+ext)
		}
	}
	for _, c := range candidates {
		path := filepath.Join(m.configDir, c)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrConfigNotFound, name)
}

// parseFile decodes a JSON or YAML options file
func parseFile(path string) (*engine.Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var opts engine.Options
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &opts); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &opts); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	return &opts, nil
}

func hasKnownExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range extensions {
		if ext == known {
			return true
		}
	}
	return false
}

// configID strips a known extension from name
func configID(name string) string {
	if hasKnownExt(name) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}

// ListConfigs returns information about all available configurations
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var configs []*service.ConfigInfo
	seen := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() || !hasKnownExt(entry.Name()) {
			continue
		}

		id := configID(entry.Name())
		if seen[id] {
			continue
		}

		// Try to load the config to get details
		opts, err := m.LoadConfig(entry.Name())
		if err != nil {
			// Skip invalid configs
			continue
		}
		seen[id] = true

		configs = append(configs, &service.ConfigInfo{
			Filename:    entry.Name(),
			ConfigID:    id,
			Name:        opts.Name,
			Description: opts.Description,
			GridWidth:   opts.GridWidth,
			GridHeight:  opts.GridHeight,
			MinCrates:   opts.MinCrates,
			MaxCrates:   opts.MaxCrates,
		})
	}

	return configs, nil
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *engine.Options {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default configuration by name
func (m *Manager) SetDefault(name string) error {
	opts, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = opts
	return nil
}

// RefreshCache drops every cached configuration and reloads the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*engine.Options)
	m.mu.Unlock()

	m.loadDefaultConfig()
	return nil
}

// loadDefaultConfig picks classic, then the first loadable file, then the
// built-in defaults
func (m *Manager) loadDefaultConfig() {
	opts, err := m.LoadConfig("classic")
	if err != nil {
		configs, listErr := m.ListConfigs()
		if listErr != nil || len(configs) == 0 {
			opts = m.createMinimalConfig()
		} else if opts, err = m.LoadConfig(configs[0].Filename); err != nil {
			opts = m.createMinimalConfig()
		}
	}

	m.mu.Lock()
	m.defaultConfig = opts
	m.mu.Unlock()
}

// SaveConfig saves a configuration to disk as JSON
func (m *Manager) SaveConfig(name string, opts *engine.Options) error {
	if opts == nil {
		return fmt.Errorf("%w: options cannot be nil", ErrInvalidConfig)
	}
	id := configID(name)
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: bad name %q", ErrInvalidConfig, name)
	}

	saved := *opts
	if saved.Name == "" {
		saved.Name = id
	}
	saved.ApplyDefaults()
	if err := engine.ValidateOptions(&saved); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	data, err := json.MarshalIndent(&saved, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(m.configDir, id+".json")
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[id] = &saved
	m.mu.Unlock()

	return nil
}

// createMinimalConfig returns the built-in configuration
func (m *Manager) createMinimalConfig() *engine.Options {
	opts := engine.DefaultOptions()
	return &opts
}
