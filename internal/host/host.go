// Package host reports facts about the machine a benchmark runs on.
package host

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"
)

// Facts are host-derived defaults for a run.
type Facts struct {
	CPU     string
	Memory  string
	OS      string
	Cores   int
	WorkDir string
}

// Detect collects Facts for the current machine. Individual probes that fail
// leave their field empty rather than failing the whole detection.
func Detect(ctx context.Context) *Facts {
	f := &Facts{}
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		f.CPU = strings.TrimSpace(infos[0].ModelName)
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		f.Cores = n
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		f.Memory = FormatMemory(vm.Total)
	}
	if info, err := host.InfoWithContext(ctx); err == nil {
		f.OS = strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
		if f.OS == "" {
			f.OS = info.OS
		}
	}
	if wd, err := os.Getwd(); err == nil {
		f.WorkDir = wd
	}
	return f
}

// FormatMemory renders a byte count as whole gigabytes, or megabytes when
// the machine has less than one gigabyte.
func FormatMemory(total uint64) string {
	const mb = 1 << 20
	const gb = 1 << 30
	if total >= gb {
		return fmt.Sprintf("%d GB", (total+gb/2)/gb)
	}
	return fmt.Sprintf("%d MB", (total+mb/2)/mb)
}

// System is the live Env used by validation.
type System struct{}

func (System) Getwd() (string, error) {
	return os.Getwd()
}

// Privileged reports whether the process is root or may sudo without a
// password prompt.
func (System) Privileged() bool {
	if unix.Geteuid() == 0 {
		return true
	}
	return exec.Command("sudo", "-n", "true").Run() == nil
}

// DaemonRunning reports whether a process named name is in the process table.
func (System) DaemonRunning(name string) bool {
	procs, err := process.Processes()
	if err != nil {
		return false
	}
	for _, p := range procs {
		n, err := p.Name()
		if err != nil {
			continue
		}
		if n == name {
			return true
		}
	}
	return false
}
