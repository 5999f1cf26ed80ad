package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"steward/internal/service"
)

// runVerb is the shared execution path of every lifecycle subcommand: wire
// the runtime, run the batch, render it, and fail the command when any
// targeted service failed so the process exits non-zero.
func runVerb(cmd *cobra.Command, verb string, selector []string, opts service.Options) error {
	ctx := cmd.Context()
	opts.Verbose = flagVerbose

	rt, err := buildRuntime(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer rt.progress.Stop()

	batch, runErr := rt.orchestrator.Run(ctx, verb, selector, opts)
	rt.progress.Stop()
	rt.renderer.RenderBatch(batch)

	if runErr != nil {
		return runErr
	}
	if failed := batch.Failed(); failed > 0 {
		return fmt.Errorf("%s failed for %d of %d service(s)", verb, failed, len(batch.Results))
	}
	return nil
}

// selectorHelp is the shared Use suffix of selector-driven subcommands.
const selectorHelp = "[all | service...]"
