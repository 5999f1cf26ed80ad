package cmd

import (
	"github.com/spf13/cobra"

	"steward/internal/api"
	"steward/internal/service"
)

// testCmd represents the test command.
var testCmd = &cobra.Command{
	Use:   "test " + selectorHelp,
	Short: "Run services' configured test commands",
	Long: `Run the test command each selected service declares in its
configuration, in that service's environment and working directory.

Only services declaring the test capability are selected.

Examples:
  steward test all
  steward test api`,
	RunE: runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	return runVerb(cmd, api.CommandTest, args, service.Options{})
}
