package cmd

import (
	"github.com/spf13/cobra"

	"steward/internal/cli"
	"steward/internal/config"
	"steward/internal/state"
)

// watchCmd represents the watch command.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch for out-of-band state changes",
	Long: `Observe the environment's state directory and report records that
are edited or removed outside steward, for example by a manual cleanup or
another tool. Each change suggests a follow-up check.

Runs until interrupted.

Examples:
  steward watch
  steward -e production watch`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	// Loading the environment up front turns a typoed name into a config
	// error instead of a missing-directory one.
	if _, err := config.LoadEnvironment(flagProjectRoot, flagEnvironment); err != nil {
		return err
	}

	store := state.NewStore(config.NewStorage(flagProjectRoot))
	renderer := cli.NewRenderer(cmd.OutOrStdout(), flagQuiet)

	watcher := state.NewWatcher(store, flagEnvironment, 0)
	changes := make(chan state.ChangeEvent, 16)

	ctx := cmd.Context()
	if err := watcher.Start(ctx, changes); err != nil {
		return err
	}
	defer watcher.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-changes:
			renderer.RenderStateChange(evt)
		}
	}
}
