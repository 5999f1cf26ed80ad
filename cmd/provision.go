package cmd

import (
	"github.com/spf13/cobra"

	"steward/internal/api"
	"steward/internal/service"
)

var provisionDryRun bool

// provisionCmd represents the provision command.
var provisionCmd = &cobra.Command{
	Use:   "provision " + selectorHelp,
	Short: "Verify platform infrastructure for services",
	Long: `Verify that the infrastructure the selected services need exists
and is reachable: on the cloud platform this resolves the environment's
stack, confirms the service is registered in the cluster and surfaces the
stack outputs.

Examples:
  steward -e production provision all`,
	RunE: runProvision,
}

func init() {
	rootCmd.AddCommand(provisionCmd)
	provisionCmd.Flags().BoolVar(&provisionDryRun, "dry-run", false, "Show what would run without executing")
}

func runProvision(cmd *cobra.Command, args []string) error {
	return runVerb(cmd, api.CommandProvision, args, service.Options{DryRun: provisionDryRun})
}
