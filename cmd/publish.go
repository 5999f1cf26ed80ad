package cmd

import (
	"github.com/spf13/cobra"

	"steward/internal/api"
	"steward/internal/service"
)

var publishDryRun bool

// publishCmd represents the publish command.
var publishCmd = &cobra.Command{
	Use:   "publish " + selectorHelp,
	Short: "Expose services at their public endpoint",
	Long: `Verify the selected services are live and report the public
endpoint they are reachable at, preferring the environment's configured
domain.

Only services declaring the publish capability are selected; others are
skipped by "all" and rejected by name.

Examples:
  steward -e production publish web`,
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
	publishCmd.Flags().BoolVar(&publishDryRun, "dry-run", false, "Show what would run without executing")
}

func runPublish(cmd *cobra.Command, args []string) error {
	return runVerb(cmd, api.CommandPublish, args, service.Options{DryRun: publishDryRun})
}
