// Package result knows where a run's files live and turns a finished
// output directory back into a flat result record.
package result

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Files in a run's output directory.
const (
	RunFile    = "unixbench.run"
	OutFile    = "unixbench.out"
	ErrFile    = "unixbench.err"
	StatusFile = "unixbench.status"
	LogFile    = "unixbench.log"
	HTMLFile   = "unixbench.html"
	TextFile   = "unixbench.txt"
)

// Artifacts are the per-run paths in an output directory plus the
// benchmark's own results directory, which is shared scratch space.
type Artifacts struct {
	Dir        string
	ResultsDir string
	Run        string
	Out        string
	Err        string
	Status     string
}

func NewArtifacts(outputDir, benchmarkDir string) *Artifacts {
	return &Artifacts{
		Dir:        outputDir,
		ResultsDir: filepath.Join(benchmarkDir, "results"),
		Run:        filepath.Join(outputDir, RunFile),
		Out:        filepath.Join(outputDir, OutFile),
		Err:        filepath.Join(outputDir, ErrFile),
		Status:     filepath.Join(outputDir, StatusFile),
	}
}

// Reset deletes whatever a previous attempt left at these paths.
func (a *Artifacts) Reset() error {
	return removeAll(a.Out, a.Err, a.Status, a.Run)
}

// Cleanup deletes the transient files of a run. The raw output stays.
func (a *Artifacts) Cleanup() error {
	return removeAll(a.Err, a.Status, a.Run)
}

// ClearResults deletes every file in the benchmark's results directory.
func (a *Artifacts) ClearResults() error {
	entries, err := os.ReadDir(a.ResultsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", a.ResultsDir, err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() {
			paths = append(paths, filepath.Join(a.ResultsDir, e.Name()))
		}
	}
	return removeAll(paths...)
}

// ReportName maps a file the benchmark wrote into its results directory to
// its name in the output directory, or "" when the file is not a report.
// Reports are the dash-named files; .log and .html keep their kind and
// anything else is treated as the text report.
func ReportName(name string) string {
	switch {
	case !strings.Contains(name, "-"):
		return ""
	case strings.HasSuffix(name, "log"):
		return LogFile
	case strings.HasSuffix(name, "html"):
		return HTMLFile
	default:
		return TextFile
	}
}

// CollectReports moves the benchmark's reports into the output directory
// and returns the paths they were moved to. Every report is attempted;
// failures are joined into the returned error.
func (a *Artifacts) CollectReports() ([]string, error) {
	entries, err := os.ReadDir(a.ResultsDir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", a.ResultsDir, err)
	}
	var (
		moved []string
		errs  []error
	)
	for _, e := range entries {
		dest := ReportName(e.Name())
		if dest == "" || e.IsDir() {
			continue
		}
		dest = filepath.Join(a.Dir, dest)
		if err := move(filepath.Join(a.ResultsDir, e.Name()), dest); err != nil {
			errs = append(errs, err)
			continue
		}
		moved = append(moved, dest)
	}
	return moved, errors.Join(errs...)
}

func removeAll(paths ...string) error {
	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// move renames src to dst, copying when they sit on different filesystems.
func move(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("moving %s: %w", src, err)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("moving %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("moving %s: %w", src, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return os.Remove(src)
}
