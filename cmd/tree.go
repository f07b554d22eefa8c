package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"canopy/internal/tree"
)

// treeDebug enables verbose logging for the tree command.
var treeDebug bool

// treeConfigPath specifies a custom configuration directory path.
var treeConfigPath string

// treeMaxDepth bounds how deep the tree command expands.
var treeMaxDepth int

// treeCmd prints the fully expanded discovery tree as a table.
var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the expanded discovery tree",
	Long: `Expands the discovery tree breadth-first through the caching engine and
prints every node as a table row. Useful for inspecting what a connected
MCP client would see, including memoized error placeholders.`,
	Args: cobra.NoArgs,
	RunE: runTree,
}

func runTree(cmd *cobra.Command, args []string) error {
	initLogging(treeDebug)

	configDir, err := resolveConfigDir(treeConfigPath)
	if err != nil {
		return err
	}
	orchestrator, err := buildOrchestrator(configDir)
	if err != nil {
		return fmt.Errorf("failed to initialize tree engine: %w", err)
	}

	ctx := cmd.Context()
	roots, err := orchestrator.RootNodes(ctx)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"NODE", "LABEL", "RESOURCE ID"})

	type row struct {
		node  tree.Node
		depth int
	}
	// Depth-first so indentation reflects the hierarchy.
	stack := make([]row, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, row{node: roots[i]})
	}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		resourceID := ""
		if carrier, ok := current.node.(tree.ResourceCarrier); ok {
			resourceID = carrier.ResourceID()
		}
		indent := strings.Repeat("  ", current.depth)
		t.AppendRow(table.Row{current.node.ID(), indent + current.node.Label(), resourceID})

		if current.depth >= treeMaxDepth {
			continue
		}
		children, err := orchestrator.Children(ctx, current.node)
		if err != nil {
			return err
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, row{node: children[i], depth: current.depth + 1})
		}
	}

	t.Render()
	return nil
}

func init() {
	treeCmd.Flags().BoolVar(&treeDebug, "debug", false, "Enable debug logging")
	treeCmd.Flags().StringVar(&treeConfigPath, "config-path", "", "Custom configuration directory")
	treeCmd.Flags().IntVar(&treeMaxDepth, "max-depth", 8, "Maximum expansion depth")
	rootCmd.AddCommand(treeCmd)
}
