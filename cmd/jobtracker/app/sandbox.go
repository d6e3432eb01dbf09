package app

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stacklok/jobtracker/internal/app"
)

const defaultGracefulTimeout = 30 * time.Second

func newSandboxCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Run a local in-memory job application service",
		Long: `Run a local in-memory job application service speaking the same HTTP API as the
real service. Accounts and applications are lost when the process exits.

The listen address, the token signing key and the metrics address are read
from the sandbox section of the configuration file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			appOpts := []app.SandboxAppOption{app.WithConfig(cfg)}
			if address, _ := cmd.Flags().GetString("address"); address != "" {
				appOpts = append(appOpts, app.WithAddress(address))
			}
			sandbox, err := app.NewSandboxApp(ctx, appOpts...)
			if err != nil {
				return fmt.Errorf("failed to create sandbox: %w", err)
			}

			errChan := make(chan error, 1)
			go func() {
				errChan <- sandbox.Start()
			}()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Sandbox listening on %s\n", sandbox.GetHTTPServer().Addr)

			select {
			case err := <-errChan:
				return err
			case <-ctx.Done():
			}

			timeout, _ := cmd.Flags().GetDuration("shutdown-timeout")
			if err := sandbox.Stop(timeout); err != nil {
				return fmt.Errorf("sandbox forced to shutdown: %w", err)
			}
			if err := <-errChan; err != nil {
				return err
			}
			slog.Info("Sandbox shutdown complete")
			return nil
		},
	}
	cmd.Flags().String("address", "", "Address to listen on (overrides the configuration)")
	cmd.Flags().Duration("shutdown-timeout", defaultGracefulTimeout, "Time allowed for in-flight requests on shutdown")
	return cmd
}
