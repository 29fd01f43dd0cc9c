// Package validation checks run options and the environment before a
// benchmark is launched.
package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/signalnine/ubench/internal/config"
)

// Env is the slice of the host the validator needs to look at.
type Env interface {
	Getwd() (string, error)
	Privileged() bool
	DaemonRunning(name string) bool
}

// Errors maps an option name to a human-readable problem with it.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("--%s: %s", k, e[k]))
	}
	return strings.Join(lines, "\n")
}

// Err returns e as an error, or nil when there are no problems.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Validator runs every check against a set of options.
type Validator struct {
	Env    Env
	Logger *slog.Logger
}

// Validate runs every check and returns all problems found. It never stops
// at the first failure. When opts.BenchmarkDir is empty and a benchmark
// installation is discovered, the discovered path is stored in opts.
func (v *Validator) Validate(opts *config.Options) Errors {
	errs := Errors{}
	log := v.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	if opts.Copies < 1 || opts.Copies > config.MaxCopies {
		errs["multicore_copies"] = fmt.Sprintf("must be between 1 and %d, got %d", config.MaxCopies, opts.Copies)
	}

	if msg := checkWritableDir(opts.OutputDir); msg != "" {
		errs["output"] = msg
	}

	if len(opts.Tests) == 0 {
		errs["test"] = "at least one test is required"
	} else {
		for _, t := range opts.Tests {
			if !slices.Contains(config.AllTests, t) {
				errs["test"] = fmt.Sprintf("%q is not a valid test; valid tests are: %s", t, strings.Join(config.AllTests, " "))
				break
			}
		}
	}

	if opts.NoMultiThread && opts.NoSingleThread {
		errs["nomultithread"] = "Both --nomultithread and --nosinglethread cannot be set"
	}

	if opts.BenchmarkDir == "" {
		log.Debug("UnixBench directory not set, looking up directory hierarchy")
		starts := []string{opts.OutputDir}
		if wd, err := v.Env.Getwd(); err == nil && wd != opts.OutputDir {
			starts = append(starts, wd)
		}
		if dir := Discover(log, starts...); dir != "" {
			opts.BenchmarkDir = dir
		}
	}
	if msg := checkBenchmarkDir(opts.BenchmarkDir); msg != "" {
		errs["unixbench_dir"] = msg
	} else {
		log.Debug("UnixBench directory is valid", "dir", opts.BenchmarkDir)
	}

	if opts.CollectdRRD {
		switch {
		case !v.Env.Privileged():
			errs["collectd_rrd"] = "sudo privilege is required to use this option"
		case !v.Env.DaemonRunning("collectd"):
			errs["collectd_rrd"] = "collectd is not running"
		}
		switch {
		case !isDir(opts.CollectdRRDDir):
			errs["collectd_rrd_dir"] = fmt.Sprintf("The directory %s does not exist", opts.CollectdRRDDir)
		case !hasSubdir(opts.CollectdRRDDir):
			errs["collectd_rrd_dir"] = fmt.Sprintf("The directory %s is empty", opts.CollectdRRDDir)
		}
	}

	return errs
}

// Discover walks up from each start directory looking for a UnixBench
// installation (a child directory named UnixBench in any letter case that
// contains an executable Run script). It returns the first one found, or "".
func Discover(log *slog.Logger, starts ...string) string {
	for _, start := range starts {
		if start == "" {
			continue
		}
		dir, err := filepath.Abs(start)
		if err != nil {
			continue
		}
		for {
			if found := benchmarkChild(dir); found != "" {
				log.Debug("UnixBench found", "dir", found)
				return found
			}
			log.Debug("UnixBench not found", "dir", dir)
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	return ""
}

func benchmarkChild(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if !strings.EqualFold(e.Name(), "UnixBench") {
			continue
		}
		candidate := filepath.Join(dir, e.Name())
		if isDir(candidate) && unix.Access(filepath.Join(candidate, "Run"), unix.X_OK) == nil {
			return candidate
		}
	}
	return ""
}

func checkWritableDir(dir string) string {
	switch {
	case dir == "":
		return "is required"
	case !isDir(dir):
		return fmt.Sprintf("%s is not a directory", dir)
	case unix.Access(dir, unix.W_OK) != nil:
		return fmt.Sprintf("%s is not writable", dir)
	}
	return ""
}

func checkBenchmarkDir(dir string) string {
	if dir == "" {
		return "--unixbench_dir is required"
	}
	if !isDir(dir) {
		return fmt.Sprintf("--unixbench_dir %s is not valid", dir)
	}
	run := filepath.Join(dir, "Run")
	if !exists(run) || unix.Access(run, unix.X_OK) != nil {
		return fmt.Sprintf("--unixbench_dir %s does not contain Run or Run is not executable", dir)
	}
	if pgms := filepath.Join(dir, "pgms"); !isDir(pgms) {
		return fmt.Sprintf("Required directory %s does not exist", pgms)
	}
	results := filepath.Join(dir, "results")
	if !isDir(results) || unix.Access(results, unix.W_OK) != nil {
		return fmt.Sprintf("--unixbench_dir %s is not valid because %s is not writable", dir, results)
	}
	return ""
}

func hasSubdir(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.IsDir() {
			return true
		}
	}
	return false
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
