package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"code.cloudfoundry.org/clock"

	"github.com/signalnine/ubench/internal/config"
	"github.com/signalnine/ubench/internal/launch"
	"github.com/signalnine/ubench/internal/poll"
	"github.com/signalnine/ubench/internal/result"
)

var (
	ErrWrite           = errors.New("launcher script could not be written")
	ErrLaunch          = errors.New("launcher could not be started")
	ErrToolAborted     = errors.New("benchmark aborted")
	ErrToolExitNonZero = errors.New("benchmark failed")
	ErrToolCrashed     = errors.New("benchmark failed with errors")
	ErrFinalize        = errors.New("run could not be finalized")
)

// AbortMarker is printed by the benchmark when it gives up internally.
const AbortMarker = "aborting"

// PollInterval is how often a running benchmark is checked on.
const PollInterval = time.Second

// Telemetry is started before a run and stopped once the run is cleaned up.
type Telemetry interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context, outputDir string) error
}

// Outcome is how a run ended.
type Outcome struct {
	State State
	// ExitStatus is the benchmark's exit status, or -1 when none was recorded.
	ExitStatus int
	// Stderr holds the captured error output of a failed run.
	Stderr string
	// Reports are the finalized report files of a completed run.
	Reports []string
}

func (o *Outcome) Success() bool {
	return o.State == StateCompleted
}

// Orchestrator executes one validated configuration to completion. The
// benchmark runs detached; the orchestrator only watches the output
// directory. Runs against the same benchmark installation must not overlap.
type Orchestrator struct {
	Options  *config.Options
	Launcher launch.Strategy
	Waiter   poll.Waiter
	// Telemetry is optional.
	Telemetry Telemetry
	// Progress receives the benchmark's output as it is produced.
	Progress io.Writer
	Logger   *slog.Logger
	Clock    clock.Clock
}

// Run executes the benchmark. The returned error is nil exactly when the
// outcome is a success; otherwise it wraps one of the Err* sentinels or the
// context error. A cancelled run leaves the detached benchmark and its files
// in place for whoever cancelled it.
func (o *Orchestrator) Run(ctx context.Context) (*Outcome, error) {
	log := o.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	clk := o.Clock
	if clk == nil {
		clk = clock.NewClock()
	}
	opts := o.Options
	art := result.NewArtifacts(opts.OutputDir, opts.BenchmarkDir)
	out := &Outcome{State: StateInit, ExitStatus: -1}
	r := &run{log: log, out: out}

	if o.Telemetry != nil {
		if err := o.Telemetry.Start(ctx); err != nil {
			log.Warn("telemetry not started", "error", err)
		} else {
			defer func() {
				if err := o.Telemetry.Stop(context.WithoutCancel(ctx), opts.OutputDir); err != nil {
					log.Warn("telemetry not stopped", "error", err)
				}
			}()
		}
	}

	opts.StartedAt = clk.Now()
	if err := art.ClearResults(); err != nil {
		log.Warn("clearing benchmark results", "dir", art.ResultsDir, "error", err)
	}
	if err := art.Reset(); err != nil {
		log.Warn("removing stale run files", "dir", art.Dir, "error", err)
	}

	// A cancelled run keeps its handle open so the benchmark outlives it.
	var h launch.Handle
	cleanup := true
	defer func() {
		if !cleanup {
			return
		}
		if h != nil {
			if err := h.Close(); err != nil {
				log.Warn("releasing benchmark", "error", err)
			}
		}
		if err := art.Cleanup(); err != nil {
			log.Warn("removing run files", "dir", art.Dir, "error", err)
		}
		if err := art.ClearResults(); err != nil {
			log.Warn("clearing benchmark results", "dir", art.ResultsDir, "error", err)
		}
	}()

	script := &launch.Script{
		BenchmarkDir:   opts.BenchmarkDir,
		Tests:          opts.Tests,
		Copies:         opts.Copies,
		NoSingleThread: opts.NoSingleThread,
		NoMultiThread:  opts.NoMultiThread,
		OutFile:        art.Out,
		ErrFile:        art.Err,
		StatusFile:     art.Status,
	}
	if err := script.WriteFile(art.Run); err != nil {
		return r.fail(StateFailed, fmt.Errorf("%w: %v", ErrWrite, err))
	}
	r.transition(StateScriptWritten)
	log.Debug("generated launcher", "path", art.Run, "command", script.Command())

	launched, err := o.Launcher.Launch(ctx, launch.Job{
		Script:  art.Run,
		ErrFile: art.Err,
		Dirs:    []string{opts.BenchmarkDir, opts.OutputDir},
	})
	if err != nil {
		return r.fail(StateFailed, fmt.Errorf("%w: %v", ErrLaunch, err))
	}
	h = launched
	r.transition(StateLaunched)
	log.Info("benchmark started", "tests", strings.Join(opts.Tests, " "), "copies", opts.Copies, "status_file", art.Status)

	r.transition(StatePolling)
	tail := &Tail{Path: art.Out, W: o.Progress}
	echo := func() {
		if err := tail.Poll(); err != nil {
			log.Warn("reading benchmark output", "error", err)
		}
	}
	// The status file is authoritative; the liveness probe only catches a
	// launcher that died before writing it.
	err = o.Waiter.Wait(ctx, echo, poll.FileNotEmpty(art.Status), poll.Not(h.Alive))
	if err != nil {
		if ctx.Err() != nil {
			cleanup = false
			log.Warn("run cancelled, benchmark left running", "script", art.Run)
		}
		return r.fail(StateFailed, fmt.Errorf("waiting for benchmark: %w", err))
	}
	echo()

	out.ExitStatus = readStatus(art.Status)
	log.Debug("benchmark finished", "exit_status", out.ExitStatus)

	report, readErr := os.ReadFile(art.Out)
	switch {
	case readErr == nil && strings.Contains(string(report), AbortMarker):
		log.Error("benchmark aborted prematurely", "output", art.Out)
		return r.fail(StateAborted, fmt.Errorf("%w: check output %s", ErrToolAborted, art.Out))

	case readErr == nil && out.ExitStatus == 0:
		reports, err := o.finalize(art, clk)
		out.Reports = reports
		if err != nil {
			return r.fail(StateFailed, err)
		}
		r.transition(StateCompleted)
		log.Info("benchmark finished", "output", art.Out)
		return out, nil
	}

	if stderr, err := os.ReadFile(art.Err); err == nil && len(strings.TrimSpace(string(stderr))) > 0 {
		out.Stderr = strings.TrimSpace(string(stderr))
		log.Error("benchmark failed", "exit_status", out.ExitStatus, "stderr", out.Stderr)
		return r.fail(StateFailed, fmt.Errorf("%w: exit status %d: %s", ErrToolCrashed, out.ExitStatus, out.Stderr))
	}
	log.Error("benchmark failed", "exit_status", out.ExitStatus)
	return r.fail(StateFailed, fmt.Errorf("%w: exit status %d", ErrToolExitNonZero, out.ExitStatus))
}

// finalize moves the benchmark's reports next to the raw output and
// persists the configuration. Report moves are best effort; a snapshot that
// cannot be written fails the run.
func (o *Orchestrator) finalize(art *result.Artifacts, clk clock.Clock) ([]string, error) {
	log := o.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	reports, err := art.CollectReports()
	if err != nil {
		log.Warn("collecting benchmark reports", "error", err)
	}
	for _, p := range reports {
		log.Debug("report saved", "path", p)
	}
	o.Options.StoppedAt = clk.Now()
	if err := o.Options.Persist(art.Dir); err != nil {
		return reports, fmt.Errorf("%w: %w", ErrFinalize, err)
	}
	return reports, nil
}

// readStatus returns the exit status recorded in path, or -1.
func readStatus(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return -1
	}
	return n
}

type run struct {
	log *slog.Logger
	out *Outcome
}

func (r *run) transition(next State) {
	prev := r.out.State
	if !prev.CanTransitionTo(next) {
		r.log.Error("invalid state transition", "from", prev, "to", next)
	}
	r.out.State = next
	r.log.Debug("state", "from", prev, "to", next)
}

func (r *run) fail(state State, err error) (*Outcome, error) {
	r.transition(state)
	return r.out, err
}
