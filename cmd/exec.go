package cmd

import (
	"github.com/spf13/cobra"

	"steward/internal/api"
	"steward/internal/service"
)

// execCmd represents the exec command.
var execCmd = &cobra.Command{
	Use:   "exec SERVICE -- COMMAND [ARGS...]",
	Short: "Run a one-off command in a service's context",
	Long: `Run a command with the named service's environment variables and
working directory. Output streams to this terminal.

Unlike the other verbs, exec targets exactly one service.

Examples:
  steward exec api -- ./manage.py migrate
  steward exec worker -- env`,
	Args: cobra.MinimumNArgs(2),
	RunE: runExec,
}

func init() {
	rootCmd.AddCommand(execCmd)
}

func runExec(cmd *cobra.Command, args []string) error {
	return runVerb(cmd, api.CommandExec, args[:1], service.Options{ExecArgs: args[1:]})
}
