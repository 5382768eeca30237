package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zjrosen/suanpan/demos"
	"github.com/zjrosen/suanpan/internal/abacus"
	"github.com/zjrosen/suanpan/internal/carry"
	"github.com/zjrosen/suanpan/internal/config"
	"github.com/zjrosen/suanpan/internal/gesture"
	"github.com/zjrosen/suanpan/internal/log"
	"github.com/zjrosen/suanpan/internal/report"
	"github.com/zjrosen/suanpan/internal/watcher"
)

// replayOptions holds flags for the replay command. Flags that mirror config
// keys are bound to viper and read back through rootOptions.cfg.
type replayOptions struct {
	*rootOptions
	file  string
	demo  string
	watch bool
}

// configFlags maps replay flags to the config keys they override.
var configFlags = map[string]string{
	"rods":      "rods",
	"overflow":  "overflow",
	"transient": "transient_changes",
	"format":    "output.format",
	"color":     "output.color",
	"steps":     "output.steps",
}

func newReplayCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &replayOptions{rootOptions: rootOpts}
	d := config.Defaults()

	cmd := &cobra.Command{
		Use:   "replay [gesture...]",
		Short: "Apply gestures to a fresh abacus and print the result",
		Long: `Apply gestures to a fresh abacus, settle every carry, and print the final
state.

Gestures come from --demo, then the arguments, then --file (use - for stdin).
A script file holds whitespace separated gestures; # starts a comment. A demo
sets the rod count it was written for unless --rods is given.

Exit codes:
  0 - All gestures applied
  1 - A carry left the leftmost rod under --overflow error
  2 - Bad flags, config, gesture or script file

Examples:
  suanpan replay 12:earth:0 12:earth:1
  suanpan replay --rods 2 --steps 1:h:1 1:e:0 1:e:1 1:e:2 1:e:3 1:e:4
  suanpan replay --file moves.txt --format json
  suanpan replay --file moves.txt --watch
  suanpan replay --demo carry-nine --steps`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "read gestures from a script file, - for stdin")
	cmd.Flags().StringVar(&opts.demo, "demo", "", "start with a bundled script (see suanpan demos)")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "re-run whenever --file changes")
	cmd.Flags().Int("rods", d.Rods, fmt.Sprintf("number of rods (1-%d)", abacus.MaxRods))
	cmd.Flags().String("overflow", d.Overflow, "leftmost carry policy (ignore|saturate|error)")
	cmd.Flags().Bool("transient", d.TransientChanges, "report intermediate bead moves")
	cmd.Flags().String("format", d.Output.Format, "output format (text|json|yaml)")
	cmd.Flags().Bool("color", d.Output.Color, "colour text output")
	cmd.Flags().Bool("steps", d.Output.Steps, "list every toggle and carry")

	for flag, key := range configFlags {
		_ = rootOpts.v.BindPFlag(key, cmd.Flags().Lookup(flag))
	}

	return cmd
}

func runReplay(cmd *cobra.Command, opts *replayOptions, args []string) error {
	if opts.demo != "" {
		d, err := demos.Lookup(opts.demo)
		if err != nil {
			return WrapExitError(ExitCommandError, "demo", err)
		}
		if d.Rods > 0 && !cmd.Flags().Changed("rods") {
			opts.cfg.Rods = d.Rods
		}
	}
	if opts.watch {
		if opts.file == "" || opts.file == "-" {
			return NewExitError(ExitCommandError, "--watch needs --file with a path")
		}
		return opts.watchScript(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args)
	}
	if opts.file == "" && opts.demo == "" && len(args) == 0 {
		return NewExitError(ExitCommandError, "no gestures: pass them as arguments or use --file or --demo")
	}

	gestures, err := opts.gestures(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	return opts.replay(cmd.Context(), cmd.OutOrStdout(), gestures)
}

// gestures collects the demo, argument and script gestures in that order.
func (o *replayOptions) gestures(stdin io.Reader, args []string) ([]gesture.Gesture, error) {
	var gs []gesture.Gesture
	if o.demo != "" {
		data, err := demos.Script(o.demo)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "demo", err)
		}
		if gs, err = gesture.ReadScript(bytes.NewReader(data)); err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("demo %s", o.demo), err)
		}
	}

	fromArgs, err := gesture.ParseAll(args)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "parsing arguments", err)
	}
	gs = append(gs, fromArgs...)
	if o.file == "" {
		return gs, nil
	}

	r := stdin
	if o.file != "-" {
		f, err := os.Open(o.file)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "opening script", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	script, err := gesture.ReadScript(r)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("reading %s", o.file), err)
	}
	return append(gs, script...), nil
}

// replay applies gestures to a fresh engine and writes the report. The report
// is written even when an overflow stops the replay.
func (o *replayOptions) replay(ctx context.Context, w io.Writer, gestures []gesture.Gesture) error {
	cfg := o.cfg
	policy, err := carry.ParsePolicy(cfg.Overflow)
	if err != nil {
		return WrapExitError(ExitCommandError, "overflow", err)
	}
	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return WrapExitError(ExitCommandError, "format", err)
	}
	engine, err := abacus.New(cfg.Rods, abacus.WithTransientChanges(cfg.TransientChanges))
	if err != nil {
		return WrapExitError(ExitCommandError, "rods", err)
	}

	session := uuid.NewString()
	logger := log.With("session", session)
	p := carry.New(engine, carry.WithPolicy(policy), carry.WithLogger(logger))
	logger.Info(log.CatCLI, "Replay started", "gestures", len(gestures), "rods", cfg.Rods, "policy", policy)

	snap := report.Capture(engine)
	snap.Session = session
	snap.Policy = policy

	var failed error
	for _, g := range gestures {
		res, err := p.Toggle(ctx, g.Rod, g.Class, g.Index)
		snap.Record(res, cfg.Output.Steps)
		if err == nil {
			continue
		}
		switch {
		case errors.Is(err, carry.ErrOverflow):
			failed = WrapExitError(ExitFailure, fmt.Sprintf("gesture %s", g), err)
		case errors.Is(err, abacus.ErrOutOfRange), errors.Is(err, abacus.ErrInvalidArgument):
			return WrapExitError(ExitCommandError, fmt.Sprintf("gesture %s", g), err)
		default:
			return fmt.Errorf("gesture %s: %w", g, err)
		}
		break
	}

	final := report.Capture(engine)
	snap.Value = final.Value
	snap.Rods = final.Rods
	logger.Info(log.CatCLI, "Replay finished", "value", snap.Value, "carries", snap.Carries, "overflowed", snap.Overflowed)

	if err := report.Write(w, format, snap, report.Options{Color: cfg.Output.Color}); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return failed
}

// watchScript replays the script now and again after every settled change
// until ctx is cancelled. Failed runs are reported on errw and do not end the watch.
func (o *replayOptions) watchScript(ctx context.Context, w, errw io.Writer, args []string) error {
	wt, err := watcher.New(o.file, o.cfg.Watch.Debounce)
	if err != nil {
		return WrapExitError(ExitCommandError, "watching script", err)
	}
	defer func() { _ = wt.Close() }()

	run := func(ctx context.Context) error {
		gs, err := o.gestures(nil, args)
		if err == nil {
			err = o.replay(ctx, w, gs)
		}
		if err != nil {
			fmt.Fprintln(errw, "Error:", err)
		}
		return nil
	}

	_ = run(ctx)
	log.Info(log.CatWatch, "Watching for changes", "path", o.file)
	return wt.Run(ctx, run)
}
