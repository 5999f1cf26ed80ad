package cmd

import (
	"github.com/spf13/cobra"

	"steward/internal/api"
	"steward/internal/service"
)

var startDryRun bool

// startCmd represents the start command.
var startCmd = &cobra.Command{
	Use:   "start " + selectorHelp,
	Short: "Start services",
	Long: `Start the selected services on their bound platforms.

A successful start records the platform resource (pid, container id, ARN)
so later checks can verify the same instance is still the one running.

Examples:
  steward start all
  steward start web api
  steward -e production start worker`,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
	startCmd.Flags().BoolVar(&startDryRun, "dry-run", false, "Show what would run without executing")
}

func runStart(cmd *cobra.Command, args []string) error {
	return runVerb(cmd, api.CommandStart, args, service.Options{DryRun: startDryRun})
}
