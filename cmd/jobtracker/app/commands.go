// Package app provides the commands of the jobtracker command line client.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/jobtracker/internal/app"
	"github.com/stacklok/jobtracker/internal/applications"
	"github.com/stacklok/jobtracker/internal/config"
	"github.com/stacklok/jobtracker/internal/versions"
)

// EnvPrefix prefixes the environment variables read by the command line
const EnvPrefix = "JOBTRACKER"

// rootOptions is shared by every command of one root.
type rootOptions struct {
	v     *viper.Viper
	level *slog.LevelVar

	// clientOpts are appended to the options of every client (for testing)
	clientOpts []app.ClientOption
}

// NewRootCmd creates the root command. level, when not nil, is raised to
// debug by the --debug flag.
func NewRootCmd(level *slog.LevelVar) *cobra.Command {
	return newRootCmd(&rootOptions{v: viper.New(), level: level})
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "jobtracker",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Track job applications",
		Long: `jobtracker keeps a board of job applications in sync with the job application
service, and can run a local sandbox of that service.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if opts.level != nil && opts.v.GetBool("debug") {
				opts.level.Set(slog.LevelDebug)
			}
		},
		Run: func(cmd *cobra.Command, _ []string) {
			// If no subcommand is provided, print help
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}

	opts.v.SetEnvPrefix(EnvPrefix)
	opts.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	opts.v.AutomaticEnv()

	flags := rootCmd.PersistentFlags()
	flags.Bool("debug", false, "Enable debug logging")
	flags.String("config", "", "Path to configuration file (defaults to $XDG_CONFIG_HOME/jobtracker/config.yaml)")
	flags.String("base-url", "", "Base URL of the job application service")
	for _, name := range []string{"debug", "config", "base-url"} {
		if err := opts.v.BindPFlag(name, flags.Lookup(name)); err != nil {
			slog.Error("Error binding flag", "flag", name, "error", err)
		}
	}

	rootCmd.AddCommand(
		newBoardCmd(opts),
		newAddCmd(opts),
		newUpdateCmd(opts),
		newMoveCmd(opts),
		newDeleteCmd(opts),
		newReorderCmd(opts),
		newStatusCmd(opts),
		newDashboardCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newRegisterCmd(opts),
		newChangePasswordCmd(opts),
		newSandboxCmd(opts),
		newVersionCmd(opts),
	)
	return rootCmd
}

// loadConfig reads the configuration file selected by --config and applies
// the flag overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	opt := config.WithDefaultPath()
	if path := o.v.GetString("config"); path != "" {
		opt = config.WithConfigPath(path)
	}
	cfg, err := config.LoadConfig(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if baseURL := o.v.GetString("base-url"); baseURL != "" {
		if cfg.API == nil {
			cfg.API = &config.APIConfig{}
		}
		cfg.API.BaseURL = baseURL
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return cfg, nil
}

// withClient runs fn with a client built from the configuration and closes
// the client afterwards.
func (o *rootOptions) withClient(cmd *cobra.Command, fn func(ctx context.Context, c *app.Client) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client, err := app.NewClient(ctx, append([]app.ClientOption{app.WithClientConfig(cfg)}, o.clientOpts...)...)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer func() {
		if err := client.Close(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("Failed to close client", "error", err)
		}
	}()

	return explain(fn(ctx, client))
}

// explain adds a hint to errors the user can act on.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, applications.ErrAuth):
		return fmt.Errorf("%w (run 'jobtracker login' first)", err)
	case errors.Is(err, applications.ErrNetwork):
		return fmt.Errorf("%w (is the service running? see 'jobtracker sandbox')", err)
	default:
		return err
	}
}

func newVersionCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print version information of this binary. With --check, also ask the service
for its version and report whether the two are compatible.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return fmt.Errorf("failed to get format flag: %w", err)
			}
			check, err := cmd.Flags().GetBool("check")
			if err != nil {
				return fmt.Errorf("failed to get check flag: %w", err)
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				output, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to format version info as JSON: %w", err)
				}
				_, _ = fmt.Fprintln(out, string(output))
			} else {
				_, _ = fmt.Fprintf(out, "jobtracker %s (commit %s, built %s, %s, %s)\n",
					info.Version, valueOr(info.Commit, "unknown"), valueOr(info.BuildDate, "unknown"),
					info.GoVersion, info.Platform)
			}

			if !check {
				return nil
			}
			return opts.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				server, err := c.Remote.ServerVersion(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "service %s\n", server.Version)
				switch {
				case !versions.Compatible(info.Version, server.Version):
					return fmt.Errorf("service version %s is not compatible with client version %s",
						server.Version, info.Version)
				case versions.IsNewerVersion(server.Version, info.Version):
					_, _ = fmt.Fprintln(out, "a newer client release is available")
				}
				return nil
			})
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	cmd.Flags().Bool("check", false, "Compare with the version of the service")
	return cmd
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
