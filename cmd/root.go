package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"steward/internal/api"
	"steward/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution for every targeted
	// service.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error or at least one failed
	// service.
	ExitCodeError = 1
	// ExitCodeConfig indicates the environment configuration was missing or
	// invalid; nothing was executed.
	ExitCodeConfig = 2
)

var (
	flagEnvironment string
	flagProjectRoot string
	flagVerbose     bool
	flagQuiet       bool
)

// rootCmd represents the base command for the steward application.
var rootCmd = &cobra.Command{
	Use:   "steward",
	Short: "Manage service lifecycles across processes, containers and the cloud",
	Long: `steward runs one uniform verb set (start, stop, check, update, ...)
against the services of an environment, whatever platform each service is
bound to: a local process, a container, or a managed cloud service.

It remembers what it started, detects drift between that record and what is
actually running, and monitors cloud rollouts to completion.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelWarn
		if flagVerbose {
			level = logging.LevelDebug
		}
		logging.InitForCLI(level, os.Stderr)
	},
}

// SetVersion sets the version for the root command. Called from main to
// inject the build-time version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application. Interrupt and
// termination signals cancel the command's context so in-flight batches and
// rollout polling stop cleanly.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "steward version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps handled error types to semantic exit codes for scripting.
func getExitCode(err error) int {
	var configErr *api.ConfigError
	if errors.As(err, &configErr) {
		return ExitCodeConfig
	}
	if api.IsNotFound(err) {
		return ExitCodeConfig
	}
	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagEnvironment, "env", "e", "local", "Target environment name")
	rootCmd.PersistentFlags().StringVar(&flagProjectRoot, "project-root", ".", "Project root directory")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress non-essential output")
}
