package launch_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/signalnine/ubench/internal/launch"
)

func requireShell(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"bash", "nice"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not available: %v", bin, err)
		}
	}
}

func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "unixbench.run")
	if err := os.WriteFile(path, []byte("#!/bin/bash\n"+body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func waitDead(t *testing.T, h launch.Handle) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		alive, err := h.Alive(context.Background())
		if err != nil {
			t.Fatalf("Alive: %v", err)
		}
		if !alive {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("launched script still alive after 10s")
}

func TestShellLaunch(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	status := filepath.Join(dir, "unixbench.status")
	errFile := filepath.Join(dir, "unixbench.err")
	script := writeScript(t, dir, "echo to-stdout\necho to-stderr >&2\necho 0 >"+status+"\n")

	h, err := (&launch.Shell{}).Launch(context.Background(), launch.Job{Script: script, ErrFile: errFile})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	defer h.Close()
	waitDead(t, h)

	if _, err := os.Stat(status); err != nil {
		t.Errorf("status file not written: %v", err)
	}
	data, err := os.ReadFile(errFile)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "to-stderr" {
		t.Errorf("err file: got %q, want only the stderr line", data)
	}
}

func TestShellLaunchAppendsStderr(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	errFile := filepath.Join(dir, "unixbench.err")
	if err := os.WriteFile(errFile, []byte("earlier\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	script := writeScript(t, dir, "echo later >&2\n")
	h, err := (&launch.Shell{}).Launch(context.Background(), launch.Job{Script: script, ErrFile: errFile})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	defer h.Close()
	waitDead(t, h)
	data, _ := os.ReadFile(errFile)
	if string(data) != "earlier\nlater\n" {
		t.Errorf("err file: got %q", data)
	}
}

func TestShellAliveTracksGroup(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	// The launcher exits at once but leaves a worker in its process group.
	script := writeScript(t, dir, "sleep 1 &\nexit 0\n")
	h, err := (&launch.Shell{}).Launch(context.Background(), launch.Job{Script: script, ErrFile: filepath.Join(dir, "err")})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	defer h.Close()
	time.Sleep(200 * time.Millisecond)
	alive, err := h.Alive(context.Background())
	if err != nil {
		t.Fatalf("Alive: %v", err)
	}
	if !alive {
		t.Error("expected group to be alive while the background worker runs")
	}
	waitDead(t, h)
}

func TestShellLaunchMissingScript(t *testing.T) {
	dir := t.TempDir()
	_, err := (&launch.Shell{}).Launch(context.Background(), launch.Job{
		Script:  filepath.Join(dir, "missing.run"),
		ErrFile: filepath.Join(dir, "err"),
	})
	if err == nil {
		t.Error("expected error launching a missing script")
	}
}
