package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelcut/internal/daemon"
	"reelcut/internal/logging"
)

// newServeCommand runs the daemon in the foreground. It is the same process
// reelcutd runs, kept here so a single binary install can still serve.
func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the reelcut daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			d, err := daemon.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("create daemon: %w", err)
			}
			defer d.Close()

			runCtx := cmd.Context()
			if err := d.Start(runCtx); err != nil {
				return fmt.Errorf("start daemon: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", d.Addr())

			serveDone := make(chan error, 1)
			go func() { serveDone <- d.Wait() }()

			select {
			case <-runCtx.Done():
				return runCtx.Err()
			case err := <-serveDone:
				return err
			}
		},
	}
}
