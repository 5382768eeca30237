// Package cmd implements the suanpan command line.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/suanpan/internal/config"
	"github.com/zjrosen/suanpan/internal/log"
	"github.com/zjrosen/suanpan/internal/telemetry"
)

// version is set at build time with -ldflags "-X github.com/zjrosen/suanpan/cmd.version=...".
var version = "dev"

const serviceName = "suanpan"

// rootOptions is state shared by every subcommand.
type rootOptions struct {
	configPath string
	verbose    bool

	v        *viper.Viper
	cfg      config.Config
	shutdown telemetry.Shutdown
}

func newRootCommand() (*cobra.Command, *rootOptions) {
	opts := &rootOptions{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "suanpan",
		Short: "A Chinese abacus you drive one bead at a time",
		Long: `suanpan models a 2/5 Chinese abacus. Each gesture toggles one bead; the
abacus settles the rod the way a hand would and carries tens to the left.

Gestures are written rod:class:index, for example 3:earth:0 or 0:h:1.
Rod 0 is the leftmost rod. Each heaven bead is worth five: bead 1 is the lower
one, and pushing the upper bead 0 adds five on top of it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: ./.suanpan.yaml, then "+config.DefaultConfigPath()+")")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging on stderr")

	cmd.AddCommand(newReplayCommand(opts))
	cmd.AddCommand(newConfigCommand(opts))
	cmd.AddCommand(newDemosCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd, opts
}

// setup loads config and starts logging and tracing for the command about to run.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.v, o.configPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading config", err)
	}
	o.cfg = cfg

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return WrapExitError(ExitCommandError, "log.level", err)
	}
	if o.verbose {
		level = slog.LevelDebug
	}
	if err := log.Configure(cmd.ErrOrStderr(), level, cfg.Log.Format); err != nil {
		return WrapExitError(ExitCommandError, "configuring logging", err)
	}

	shutdown, err := telemetry.Setup(cmd.Context(), telemetry.Options{
		ServiceName: serviceName,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		Writer:      cmd.ErrOrStderr(),
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "starting tracing", err)
	}
	o.shutdown = shutdown

	log.Debug(log.CatCLI, "Command starting", "command", cmd.CommandPath(), "rods", cfg.Rods, "overflow", cfg.Overflow)
	return nil
}

// teardown flushes spans. It runs whether or not the command succeeded.
func (o *rootOptions) teardown() {
	if o.shutdown == nil {
		return
	}
	if err := o.shutdown(context.Background()); err != nil {
		log.ErrorErr(log.CatTrace, "Failed to flush spans", err)
	}
	o.shutdown = nil
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, opts := newRootCommand()
	err := cmd.ExecuteContext(ctx)
	opts.teardown()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
	}
	return ExitCode(err)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the suanpan version",
		Args:  usageArgs(cobra.NoArgs),
		// No config needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "suanpan %s\n", version)
			return err
		},
	}
}
