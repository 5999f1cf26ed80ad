package cmd

import (
	"github.com/spf13/cobra"

	"steward/internal/api"
	"steward/internal/service"
)

var (
	updateWait       bool
	updateDryRun     bool
	updateSkipHealth bool
)

// updateCmd represents the update command.
var updateCmd = &cobra.Command{
	Use:   "update " + selectorHelp,
	Short: "Roll services to their latest revision",
	Long: `Update the selected services in place.

On the process and container platforms this is a stop-and-start; the result
reports "upgrade" when the image changed and "restart" otherwise. On the
cloud platform it triggers a rollout, and with --wait the rollout is
monitored to completion: task failures, image-pull slowness and timeouts
are detected and reported.

Examples:
  steward update api --wait
  steward -e production update all --wait`,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().BoolVarP(&updateWait, "wait", "w", false, "Wait for the rollout to reach a terminal state")
	updateCmd.Flags().BoolVar(&updateDryRun, "dry-run", false, "Show what would run without executing")
	updateCmd.Flags().BoolVar(&updateSkipHealth, "skip-health", false, "Skip health probing after the update")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	return runVerb(cmd, api.CommandUpdate, args, service.Options{
		WaitForCompletion: updateWait,
		DryRun:            updateDryRun,
		SkipHealthCheck:   updateSkipHealth,
	})
}
