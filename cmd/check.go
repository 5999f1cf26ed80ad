package cmd

import (
	"github.com/spf13/cobra"

	"steward/internal/api"
	"steward/internal/service"
)

var checkSkipHealth bool

// checkCmd represents the check command.
var checkCmd = &cobra.Command{
	Use:   "check " + selectorHelp,
	Short: "Check live status and drift",
	Long: `Report the live status of the selected services and classify it
against what steward last recorded.

A service that died outside steward has its stale record cleared; one that
runs without a record, or as a different instance than recorded, is flagged
as drift.

Examples:
  steward check all
  steward check database --skip-health`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkSkipHealth, "skip-health", false, "Skip health probing, report run state only")
}

func runCheck(cmd *cobra.Command, args []string) error {
	return runVerb(cmd, api.CommandCheck, args, service.Options{SkipHealthCheck: checkSkipHealth})
}
