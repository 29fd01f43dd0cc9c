package launch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// Job is a launcher script on disk, ready to start.
type Job struct {
	Script  string
	ErrFile string
	// Dirs lists directories the script reads or writes. Strategies that
	// isolate the script must expose them at the same paths.
	Dirs []string
}

// Strategy starts a launcher script without waiting for it.
type Strategy interface {
	Launch(ctx context.Context, job Job) (Handle, error)
}

// Handle tracks one launched script.
type Handle interface {
	// Alive reports whether anything started by the launch is still running.
	Alive(ctx context.Context) (bool, error)
	Close() error
}

// Shell runs the script through nice in a new process group, with its own
// stdout discarded and its stderr appended to the job's error file.
type Shell struct {
	// Nice is the niceness increment passed to nice.
	Nice int
}

func (s *Shell) Launch(ctx context.Context, job Job) (Handle, error) {
	if err := os.Chmod(job.Script, 0o755); err != nil {
		return nil, fmt.Errorf("chmod launcher: %w", err)
	}
	errFile, err := os.OpenFile(job.ErrFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", job.ErrFile, err)
	}

	// Not tied to ctx: the benchmark outlives a cancelled caller and must be
	// stopped by killing its process group.
	cmd := exec.Command("nice", "-n", fmt.Sprint(s.Nice), job.Script)
	cmd.Stderr = errFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		errFile.Close()
		return nil, fmt.Errorf("starting launcher: %w", err)
	}

	// Reap the launcher; liveness is judged on the process group.
	go cmd.Wait()
	return &shellHandle{pgid: cmd.Process.Pid, errFile: errFile}, nil
}

type shellHandle struct {
	pgid    int
	errFile *os.File
}

// Alive probes the whole process group, so workers that outlive the
// launcher still count as running.
func (h *shellHandle) Alive(context.Context) (bool, error) {
	err := unix.Kill(-h.pgid, 0)
	switch {
	case err == nil, errors.Is(err, unix.EPERM):
		return true, nil
	case errors.Is(err, unix.ESRCH):
		return false, nil
	default:
		return false, fmt.Errorf("probing process group %d: %w", h.pgid, err)
	}
}

func (h *shellHandle) Close() error {
	return h.errFile.Close()
}
