package cmd

import (
	"github.com/spf13/cobra"

	"steward/internal/api"
	"steward/internal/service"
)

var (
	restoreBackupID string
	restoreDryRun   bool
)

// restoreCmd represents the restore command.
var restoreCmd = &cobra.Command{
	Use:   "restore " + selectorHelp,
	Short: "Restore stateful services from a backup",
	Long: `Restore the selected services from the backup named by
--backup-id. On the managed-database platform the snapshot is materialized
as a new instance and its identifier is reported; switchover is a manual
step.

Examples:
  steward -e production restore database --backup-id steward-database-1a2b3c4d`,
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().StringVar(&restoreBackupID, "backup-id", "", "Backup identifier to restore from (required)")
	restoreCmd.Flags().BoolVar(&restoreDryRun, "dry-run", false, "Show what would run without executing")
	_ = restoreCmd.MarkFlagRequired("backup-id")
}

func runRestore(cmd *cobra.Command, args []string) error {
	return runVerb(cmd, api.CommandRestore, args, service.Options{
		BackupID: restoreBackupID,
		DryRun:   restoreDryRun,
	})
}
