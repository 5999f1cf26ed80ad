package cmd

import (
	"github.com/spf13/cobra"

	"steward/internal/api"
	"steward/internal/service"
)

var stopDryRun bool

// stopCmd represents the stop command.
var stopCmd = &cobra.Command{
	Use:   "stop " + selectorHelp,
	Short: "Stop services",
	Long: `Stop the selected services and clear their persisted records.

Stopping a service that is not running succeeds and reports it as already
stopped.

Examples:
  steward stop all
  steward stop web`,
	RunE: runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
	stopCmd.Flags().BoolVar(&stopDryRun, "dry-run", false, "Show what would run without executing")
}

func runStop(cmd *cobra.Command, args []string) error {
	return runVerb(cmd, api.CommandStop, args, service.Options{DryRun: stopDryRun})
}
