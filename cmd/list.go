package cmd

import (
	"github.com/spf13/cobra"

	"steward/internal/cli"
	"steward/internal/config"
	"steward/internal/state"
	"steward/pkg/logging"
)

// listCmd represents the list command.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the environment's services",
	Long: `List the services configured in the target environment with
their type, platform binding, the verbs each one supports, and whether
steward is tracking a started instance.

Examples:
  steward list
  steward -e production list`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	env, err := config.LoadEnvironment(flagProjectRoot, flagEnvironment)
	if err != nil {
		return err
	}

	// Listing is read-only; unreadable state reduces the output rather than
	// failing the command.
	tracked, err := state.NewStore(config.NewStorage(flagProjectRoot)).List(flagEnvironment)
	if err != nil {
		logging.Warn("List", "Failed to list state records for %s: %v", flagEnvironment, err)
		tracked = nil
	}

	cli.NewRenderer(cmd.OutOrStdout(), flagQuiet).RenderServices(env, tracked)
	return nil
}
