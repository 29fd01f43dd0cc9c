package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/signalnine/ubench/internal/docker"
	"github.com/signalnine/ubench/internal/host"
	"github.com/signalnine/ubench/internal/launch"
	"github.com/signalnine/ubench/internal/poll"
	"github.com/signalnine/ubench/internal/runner"
	"github.com/signalnine/ubench/internal/telemetry"
	"github.com/signalnine/ubench/internal/validation"
)

var (
	runFlags     optionFlags
	flagLauncher string
	flagImage    string
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark and save its results",
		Args:  cobra.NoArgs,
		RunE:  runBenchmark,
	}
	addOptionFlags(cmd, &runFlags)
	cmd.Flags().StringVar(&flagLauncher, "launcher", "shell", "how to start the benchmark (shell, docker)")
	cmd.Flags().StringVar(&flagImage, "image", "", "container image for --launcher docker")
	return cmd
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	log := newLogger(cmd.ErrOrStderr())
	opts, err := resolveOptions(cmd, &runFlags)
	if err != nil {
		return err
	}

	v := &validation.Validator{Env: host.System{}, Logger: log}
	if errs := v.Validate(opts); len(errs) > 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), errs.Error())
		return fmt.Errorf("invalid options: %d problem(s)", len(errs))
	}

	var launcher launch.Strategy
	switch flagLauncher {
	case "shell":
		launcher = &launch.Shell{}
	case "docker":
		if flagImage == "" {
			return fmt.Errorf("--image is required with --launcher docker")
		}
		launcher = &docker.Launcher{
			Image:  flagImage,
			UserID: fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid()),
			Logger: log,
		}
	default:
		return fmt.Errorf("unknown launcher %q (want shell or docker)", flagLauncher)
	}

	o := &runner.Orchestrator{
		Options:  opts,
		Launcher: launcher,
		Waiter:   poll.NewPoller(runner.PollInterval),
		Progress: cmd.OutOrStdout(),
		Logger:   log,
	}
	if opts.CollectdRRD {
		o.Telemetry = &telemetry.Collectd{Dir: opts.CollectdRRDDir, Logger: log}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	out, err := o.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nresults saved to %s (%d report files)\n", opts.OutputDir, len(out.Reports))
	return nil
}
