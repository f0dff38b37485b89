package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/parking-lot-game/game/engine"
	"github.com/wricardo/parking-lot-game/game/service"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// DefaultConfigID is the puzzle preferred as the default when present
const DefaultConfigID = "classic"

// Manager handles puzzle configuration loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.PuzzleConfig
	defaultID     string
	configs       map[string]*engine.PuzzleConfig
	log           logrus.FieldLogger
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
		configs:   make(map[string]*engine.PuzzleConfig),
		log:       logrus.WithField("component", "config"),
	}

	m.loadDefaultConfig()
	return m, nil
}

// LoadConfig loads a configuration by name
func (m *Manager) LoadConfig(name string) (*engine.PuzzleConfig, error) {
	name = strings.TrimSuffix(name, ".json")
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return nil, fmt.Errorf("%w: invalid name %q", ErrConfigNotFound, name)
	}

	m.mu.RLock()
	// Check cache first
	if config, exists := m.configs[name]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(name)
}

// loadLocked reads, validates and caches a config; the write lock must be held
func (m *Manager) loadLocked(name string) (*engine.PuzzleConfig, error) {
	// Double-check after acquiring write lock
	if config, exists := m.configs[name]; exists {
		return config, nil
	}

	data, err := os.ReadFile(filepath.Join(m.configDir, name+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, name)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := engine.DecodePuzzleConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := engine.ValidatePuzzleConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	m.configs[name] = config
	return config, nil
}

// ListConfigs returns information about all valid configurations, sorted by id
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	names, err := m.configNames()
	if err != nil {
		return nil, err
	}

	configs := make([]*service.ConfigInfo, 0, len(names))
	for _, name := range names {
		config, err := m.LoadConfig(name)
		if err != nil {
			m.log.WithError(err).WithField("config", name).Warn("skipping invalid config")
			continue
		}
		configs = append(configs, describe(name, config))
	}
	return configs, nil
}

func (m *Manager) configNames() ([]string, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// describe summarizes a config; the layout is known to parse
func describe(name string, config *engine.PuzzleConfig) *service.ConfigInfo {
	info := &service.ConfigInfo{
		Filename:    name + ".json",
		ConfigID:    name,
		Name:        config.Name,
		Description: config.Description,
		MaxMoves:    config.MaxMoves,
	}
	if lot, err := engine.NewLotFromConfig(config); err == nil {
		info.Width, info.Height = lot.Dimensions()
		info.Vehicles = len(lot.VehicleIDs())
		info.Exit = lot.Exit().String()
	}
	return info
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *engine.PuzzleConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// DefaultID returns the identifier of the default configuration
func (m *Manager) DefaultID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultID
}

// SetDefault sets the default configuration by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	m.defaultID = strings.TrimSuffix(name, ".json")
	return nil
}

// RefreshCache drops all cached configurations and re-resolves the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*engine.PuzzleConfig)
	m.mu.Unlock()

	m.loadDefaultConfig()
	return nil
}

// loadDefaultConfig prefers classic, then the first valid config, then the built-in puzzle
func (m *Manager) loadDefaultConfig() {
	id := DefaultConfigID
	config, err := m.LoadConfig(id)
	if err != nil {
		id = ""
		if names, listErr := m.configNames(); listErr == nil {
			for _, name := range names {
				if c, err := m.LoadConfig(name); err == nil {
					id, config = name, c
					break
				}
			}
		}
	}
	if id == "" {
		m.log.Warn("no valid puzzle configs found, using built-in default")
		config = engine.DefaultPuzzleConfig()
		id = config.Name
	}

	m.mu.Lock()
	m.defaultConfig = config
	m.defaultID = id
	m.mu.Unlock()
}

// SaveConfig validates and writes a configuration to disk
func (m *Manager) SaveConfig(name string, config *engine.PuzzleConfig) error {
	if err := engine.ValidatePuzzleConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	name = strings.TrimSuffix(name, ".json")
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: invalid name %q", ErrInvalidConfig, name)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.configDir, name+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[name] = config
	m.mu.Unlock()

	m.log.WithField("config", name).Info("config saved")
	return nil
}
