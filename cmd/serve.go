package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"canopy/internal/config"
	"canopy/internal/mcpserver"
	"canopy/pkg/logging"
)

// serveDebug enables verbose logging across the application.
var serveDebug bool

// serveConfigPath specifies a custom configuration directory path.
var serveConfigPath string

// serveCmd starts the MCP server exposing the discovery tree over stdio.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the discovery tree to MCP clients over stdio",
	Long: `Starts an MCP server over stdio exposing the discovery tree:

  tree_roots     list root nodes of all active providers
  tree_children  expand a node
  tree_parent    resolve a node's parent
  tree_find      locate a node by tree id or resource id
  tree_refresh   invalidate a cached subtree (or the whole tree)
  tree_retry     clear a node's error state

The active provider allow-list is read from providers.yaml in the config
directory (default ~/.config/canopy, override with --config-path). Edits
to the allow-list while serving invalidate the tree automatically.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	initLogging(serveDebug)

	configDir, err := resolveConfigDir(serveConfigPath)
	if err != nil {
		return err
	}

	orchestrator, err := buildOrchestrator(configDir)
	if err != nil {
		return fmt.Errorf("failed to initialize tree engine: %w", err)
	}

	watcher := config.NewWatcher(configDir, orchestrator.NotifyConfigChange)
	if err := watcher.Start(); err != nil {
		// The config directory may not exist yet; serve without live
		// allow-list reloads rather than failing startup.
		logging.Warn("Bootstrap", "Config watching disabled: %v", err)
	} else {
		defer watcher.Stop()
	}

	server := mcpserver.New(orchestrator, rootCmd.Version)
	return server.ServeStdio(cmd.Context())
}

func init() {
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", "", "Custom configuration directory")
	rootCmd.AddCommand(serveCmd)
}
