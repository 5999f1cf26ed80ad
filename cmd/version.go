package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newVersionCmd creates the Cobra command for displaying the application
// version. The version itself is injected through SetVersion at build time.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of steward",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "steward version %s\n", rootCmd.Version)
		},
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
