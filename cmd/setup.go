package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"canopy/internal/config"
	"canopy/internal/providers/documentdb"
	"canopy/internal/tree"
	"canopy/pkg/logging"
)

// topologyFileName is the optional demo topology definition inside the
// config directory.
const topologyFileName = "topology.yaml"

// resolveConfigDir returns the effective config directory for a command.
func resolveConfigDir(configPath string) (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.DefaultConfigDir()
}

func initLogging(debug bool) {
	level := logging.LevelInfo
	if debug {
		level = logging.LevelDebug
	}
	// stdout carries the MCP transport in serve mode; logs go to stderr.
	logging.InitForCLI(level, os.Stderr)
}

// buildRegistry registers the available discovery providers. The demo
// DocumentDB provider serves the topology from <configDir>/topology.yaml
// when present, the built-in sample otherwise.
func buildRegistry(configDir string) (*tree.Registry, error) {
	topo := documentdb.SampleTopology()
	topoPath := filepath.Join(configDir, topologyFileName)
	if data, err := os.ReadFile(topoPath); err == nil {
		topo, err = documentdb.LoadTopology(data)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", topoPath, err)
		}
		logging.Info("Bootstrap", "Loaded topology from %s", topoPath)
	}

	registry := tree.NewRegistry()
	if err := registry.Register(documentdb.New("docdb", topo)); err != nil {
		return nil, fmt.Errorf("failed to register provider: %w", err)
	}
	return registry, nil
}

// buildOrchestrator wires the provider registry and the persisted
// allow-list into a tree orchestrator for a command.
func buildOrchestrator(configDir string) (*tree.Orchestrator, error) {
	registry, err := buildRegistry(configDir)
	if err != nil {
		return nil, err
	}
	allowList := config.NewProviderListWithPath(configDir)
	return tree.NewOrchestrator(registry, allowList), nil
}

// providersSetup resolves the config directory and wires the registry and
// allow-list used by the providers subcommands.
func providersSetup() (string, *tree.Registry, *config.ProviderList, error) {
	configDir, err := resolveConfigDir(providersConfigPath)
	if err != nil {
		return "", nil, nil, err
	}
	registry, err := buildRegistry(configDir)
	if err != nil {
		return "", nil, nil, err
	}
	return configDir, registry, config.NewProviderListWithPath(configDir), nil
}
