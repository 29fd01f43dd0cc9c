package docker_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/moby/moby/api/types/mount"

	"github.com/signalnine/ubench/internal/docker"
	"github.com/signalnine/ubench/internal/launch"
)

func TestMounts(t *testing.T) {
	job := launch.Job{
		Script:  "/out/unixbench.run",
		ErrFile: "/out/unixbench.err",
		Dirs:    []string{"/opt/UnixBench", "/out"},
	}
	want := []mount.Mount{
		{Type: mount.TypeBind, Source: "/opt/UnixBench", Target: "/opt/UnixBench"},
		{Type: mount.TypeBind, Source: "/out", Target: "/out"},
	}
	if diff := cmp.Diff(want, docker.Mounts(job)); diff != "" {
		t.Errorf("mounts mismatch (-want +got):\n%s", diff)
	}
}

func TestCommand(t *testing.T) {
	got := docker.Command(launch.Job{Script: "/my out/unixbench.run", ErrFile: "/my out/unixbench.err"})
	want := []string{"sh", "-c", "nice -n 0 '/my out/unixbench.run' >/dev/null 2>>'/my out/unixbench.err'"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("command mismatch (-want +got):\n%s", diff)
	}
}

func TestLaunch(t *testing.T) {
	if os.Getenv("UBENCH_DOCKER_TESTS") == "" {
		t.Skip("set UBENCH_DOCKER_TESTS=1 to run Docker tests")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	dir := t.TempDir()
	status := filepath.Join(dir, "unixbench.status")
	script := filepath.Join(dir, "unixbench.run")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho oops >&2\necho 0 >"+status+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	job := launch.Job{Script: script, ErrFile: filepath.Join(dir, "unixbench.err"), Dirs: []string{dir}}

	h, err := (&docker.Launcher{Image: "alpine:latest"}).Launch(ctx, job)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	defer h.Close()

	for {
		alive, err := h.Alive(ctx)
		if err != nil {
			t.Fatalf("Alive: %v", err)
		}
		if !alive {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if _, err := os.Stat(status); err != nil {
		t.Errorf("status file not written: %v", err)
	}
	data, _ := os.ReadFile(job.ErrFile)
	if strings.TrimSpace(string(data)) != "oops" {
		t.Errorf("err file: got %q", data)
	}
}
