// Package launch writes the launcher script for a run and starts it
// detached from the calling process.
package launch

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alessio/shellescape"
)

// Script describes the launcher for one benchmark invocation. The benchmark
// is never run directly: its stdout goes to OutFile, its stderr is appended
// to ErrFile and its exit status lands in StatusFile, so the caller only has
// to watch the filesystem.
type Script struct {
	BenchmarkDir   string
	Tests          []string
	Copies         int
	NoSingleThread bool
	NoMultiThread  bool
	OutFile        string
	ErrFile        string
	StatusFile     string
}

// Command returns the benchmark invocation line.
func (s *Script) Command() string {
	var b strings.Builder
	b.WriteString("./Run")
	if !s.NoSingleThread {
		b.WriteString(" -c 1")
	}
	if !(s.NoMultiThread && s.Copies > 1) {
		b.WriteString(" -c " + strconv.Itoa(s.Copies))
	}
	for _, t := range s.Tests {
		b.WriteString(" " + shellescape.Quote(t))
	}
	fmt.Fprintf(&b, " >%s 2>>%s", shellescape.Quote(s.OutFile), shellescape.Quote(s.ErrFile))
	return b.String()
}

// Render returns the full launcher script.
func (s *Script) Render() string {
	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	fmt.Fprintf(&b, "cd %s\n", shellescape.Quote(s.BenchmarkDir))
	// Run refuses more than 16 copies unless its limit is patched.
	b.WriteString("sed -i 's/=> 16/=> 640/g' Run\n")
	b.WriteString(s.Command() + "\n")
	fmt.Fprintf(&b, "echo $? >%s\n", shellescape.Quote(s.StatusFile))
	return b.String()
}

// WriteFile writes the rendered script to path and makes it executable.
func (s *Script) WriteFile(path string) error {
	if err := os.WriteFile(path, []byte(s.Render()), 0o755); err != nil {
		return fmt.Errorf("writing launcher %s: %w", path, err)
	}
	// WriteFile leaves the mode of an existing file alone.
	if err := os.Chmod(path, 0o755); err != nil {
		return fmt.Errorf("chmod launcher %s: %w", path, err)
	}
	return nil
}
