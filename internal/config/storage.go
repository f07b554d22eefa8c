package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"canopy/pkg/logging"
)

const (
	// DefaultConfigDirName is the directory under ~/.config holding canopy state.
	DefaultConfigDirName = "canopy"

	// ProvidersFileName is the allow-list file within the config directory.
	ProvidersFileName = "providers.yaml"
)

// DefaultConfigDir returns ~/.config/canopy.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", DefaultConfigDirName), nil
}

// providersFile is the on-disk shape of the allow-list.
type providersFile struct {
	ActiveProviders []string `yaml:"activeProviders"`
}

// ProviderList is the persisted allow-list of active discovery provider ids.
// It implements tree.ActiveProviders. Reads go to disk on every call so a
// running server observes external edits without restarting.
type ProviderList struct {
	mu         sync.RWMutex
	configPath string // empty means the default config directory
}

// NewProviderList creates a ProviderList backed by the default config directory.
func NewProviderList() *ProviderList {
	return &ProviderList{}
}

// NewProviderListWithPath creates a ProviderList backed by a custom config
// directory.
func NewProviderListWithPath(configPath string) *ProviderList {
	return &ProviderList{configPath: configPath}
}

func (l *ProviderList) filePath() (string, error) {
	dir := l.configPath
	if dir == "" {
		var err error
		dir, err = DefaultConfigDir()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, ProvidersFileName), nil
}

// Active returns the persisted allow-list. ok is false when the file has
// never been written, which callers treat as "all providers active".
func (l *ProviderList) Active() ([]string, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	path, err := l.filePath()
	if err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var file providersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, false, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return file.ActiveProviders, true, nil
}

// SetActive persists the allow-list, creating the config directory if needed.
func (l *ProviderList) SetActive(ids []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	path, err := l.filePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(providersFile{ActiveProviders: ids})
	if err != nil {
		return fmt.Errorf("failed to marshal provider list: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	logging.Info("Config", "Persisted %d active providers to %s", len(ids), path)
	return nil
}
