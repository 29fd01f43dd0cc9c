// Package docker launches the benchmark's launcher script inside a
// container instead of on the host.
package docker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alessio/shellescape"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"

	"github.com/signalnine/ubench/internal/launch"
)

// Launcher runs a launcher script in Image. Every directory the job names,
// plus the script's own directory, is bind-mounted at the same path so the
// script's absolute paths keep working.
type Launcher struct {
	Image       string
	CPULimit    float64
	MemoryLimit int64
	// UserID runs the container as uid:gid. Empty means the image default.
	UserID string
	Logger *slog.Logger
}

// Mounts returns the bind mounts for job, without duplicates.
func Mounts(job launch.Job) []mount.Mount {
	seen := map[string]bool{}
	var mounts []mount.Mount
	for _, dir := range append(append([]string(nil), job.Dirs...), filepath.Dir(job.Script), filepath.Dir(job.ErrFile)) {
		if dir == "" || seen[dir] {
			continue
		}
		seen[dir] = true
		mounts = append(mounts, mount.Mount{Type: mount.TypeBind, Source: dir, Target: dir})
	}
	return mounts
}

// Command is the in-container equivalent of the host launch: the script
// under nice, its stdout discarded and its stderr appended to the job's
// error file.
func Command(job launch.Job) []string {
	return []string{"sh", "-c", fmt.Sprintf("nice -n 0 %s >/dev/null 2>>%s",
		shellescape.Quote(job.Script), shellescape.Quote(job.ErrFile))}
}

func (l *Launcher) Launch(ctx context.Context, job launch.Job) (launch.Handle, error) {
	log := l.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if err := os.Chmod(job.Script, 0o755); err != nil {
		return nil, fmt.Errorf("chmod launcher: %w", err)
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}

	initTrue := true
	hostCfg := &container.HostConfig{
		Mounts: Mounts(job),
		Init:   &initTrue,
	}
	if l.CPULimit > 0 {
		hostCfg.NanoCPUs = int64(l.CPULimit * 1e9)
	}
	if l.MemoryLimit > 0 {
		hostCfg.Memory = l.MemoryLimit
	}
	containerCfg := &container.Config{
		Image:  l.Image,
		Cmd:    Command(job),
		Labels: map[string]string{"ubench": "true"},
	}
	if l.UserID != "" {
		containerCfg.User = l.UserID
	}

	createResp, err := cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     containerCfg,
		HostConfig: hostCfg,
	})
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("creating container: %w", err)
	}
	h := &containerHandle{cli: cli, id: createResp.ID, log: log, done: make(chan struct{}), status: -1}

	if _, err := cli.ContainerStart(ctx, h.id, client.ContainerStartOptions{}); err != nil {
		h.Close()
		return nil, fmt.Errorf("starting container: %w", err)
	}
	log.Debug("benchmark container started", "id", h.id, "image", l.Image)

	waitResult := cli.ContainerWait(ctx, h.id, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})
	go func() {
		defer close(h.done)
		for {
			select {
			case err := <-waitResult.Error:
				if err != nil {
					h.err = err
					return
				}
				// nil error means no error on this channel; wait for result
			case status := <-waitResult.Result:
				h.status = int(status.StatusCode)
				h.logTail()
				return
			}
		}
	}()
	return h, nil
}

type containerHandle struct {
	cli  *client.Client
	id   string
	log  *slog.Logger
	done chan struct{}

	// Written before done is closed.
	status int
	err    error
}

func (h *containerHandle) Alive(context.Context) (bool, error) {
	select {
	case <-h.done:
		if h.err != nil {
			return false, fmt.Errorf("waiting for container %s: %w", h.id, h.err)
		}
		return false, nil
	default:
		return true, nil
	}
}

func (h *containerHandle) logTail() {
	logReader, _ := h.cli.ContainerLogs(context.Background(), h.id, client.ContainerLogsOptions{ShowStdout: true, ShowStderr: true, Tail: "100"})
	if logReader == nil {
		return
	}
	defer logReader.Close()
	logData, _ := io.ReadAll(logReader)
	if len(logData) > 0 {
		h.log.Debug("benchmark container logs", "id", h.id, "logs", string(logData))
	}
	h.log.Debug("benchmark container exited", "id", h.id, "status", h.status)
}

// Close removes the container, killing it if it is still running, and
// releases the client.
func (h *containerHandle) Close() error {
	defer h.cli.Close()
	if _, err := h.cli.ContainerRemove(context.Background(), h.id, client.ContainerRemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("removing container %s: %w", h.id, err)
	}
	return nil
}
