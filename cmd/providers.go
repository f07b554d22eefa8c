package cmd

import (
	"fmt"
	"os"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// providersConfigPath specifies a custom configuration directory path.
var providersConfigPath string

// providersCmd manages the persisted allow-list of active providers.
var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Manage the active provider allow-list",
	Long: `Lists, enables, and disables discovery providers. The allow-list is
persisted to providers.yaml in the config directory and filters which
providers contribute root nodes. When no allow-list has ever been
persisted, every registered provider is active.`,
}

var providersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered providers and whether they are active",
	Args:  cobra.NoArgs,
	RunE:  runProvidersList,
}

var providersEnableCmd = &cobra.Command{
	Use:   "enable <provider-id>",
	Short: "Add a provider to the allow-list",
	Args:  cobra.ExactArgs(1),
	RunE:  runProvidersEnable,
}

var providersDisableCmd = &cobra.Command{
	Use:   "disable <provider-id>",
	Short: "Remove a provider from the allow-list",
	Args:  cobra.ExactArgs(1),
	RunE:  runProvidersDisable,
}

func runProvidersList(cmd *cobra.Command, args []string) error {
	initLogging(false)

	_, registry, allowList, err := providersSetup()
	if err != nil {
		return err
	}

	active, restricted, err := allowList.Active()
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"PROVIDER", "ACTIVE"})
	for _, id := range registry.IDs() {
		isActive := !restricted || slices.Contains(active, id)
		t.AppendRow(table.Row{id, isActive})
	}
	t.Render()
	return nil
}

func runProvidersEnable(cmd *cobra.Command, args []string) error {
	initLogging(false)

	_, registry, allowList, err := providersSetup()
	if err != nil {
		return err
	}

	id := args[0]
	if _, ok := registry.Get(id); !ok {
		return fmt.Errorf("unknown provider %q (registered: %v)", id, registry.IDs())
	}

	active, restricted, err := allowList.Active()
	if err != nil {
		return err
	}
	if !restricted {
		// Materialize the implicit "all active" state before narrowing it.
		active = registry.IDs()
	}
	if !slices.Contains(active, id) {
		active = append(active, id)
	}
	return allowList.SetActive(active)
}

func runProvidersDisable(cmd *cobra.Command, args []string) error {
	initLogging(false)

	_, registry, allowList, err := providersSetup()
	if err != nil {
		return err
	}

	active, restricted, err := allowList.Active()
	if err != nil {
		return err
	}
	if !restricted {
		active = registry.IDs()
	}
	active = slices.DeleteFunc(active, func(existing string) bool {
		return existing == args[0]
	})
	return allowList.SetActive(active)
}

func init() {
	providersCmd.PersistentFlags().StringVar(&providersConfigPath, "config-path", "", "Custom configuration directory")
	providersCmd.AddCommand(providersListCmd)
	providersCmd.AddCommand(providersEnableCmd)
	providersCmd.AddCommand(providersDisableCmd)
	rootCmd.AddCommand(providersCmd)
}
