package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the canopy application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "canopy",
	Short: "Browse heterogeneous resource hierarchies as one lazily-expanded tree",
	Long: `canopy exposes resource hierarchies contributed by pluggable discovery
providers (clusters, databases, collections) as a single lazily-expanded
tree with provider-namespaced identities, memoized relationships, and
deduplicated expansions.

Use 'canopy serve' to expose the tree to MCP clients over stdio, or
'canopy tree' to print the fully expanded demo tree.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. Called from the main
// package to inject the build version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "canopy version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
