package cmd

import (
	"github.com/spf13/cobra"

	"steward/internal/api"
	"steward/internal/service"
)

var backupDryRun bool

// backupCmd represents the backup command.
var backupCmd = &cobra.Command{
	Use:   "backup " + selectorHelp,
	Short: "Take backups of stateful services",
	Long: `Take a point-in-time backup of the selected services. The backup
identifier is printed so it can be fed back into restore.

Only services declaring the backup capability (databases and filesystems by
default) are selected.

Examples:
  steward -e production backup database`,
	RunE: runBackup,
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().BoolVar(&backupDryRun, "dry-run", false, "Show what would run without executing")
}

func runBackup(cmd *cobra.Command, args []string) error {
	return runVerb(cmd, api.CommandBackup, args, service.Options{DryRun: backupDryRun})
}
