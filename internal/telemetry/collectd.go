// Package telemetry captures collectd data around a benchmark run.
package telemetry

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"code.cloudfoundry.org/clock"
)

// ArchiveName is the file Stop writes into the output directory.
const ArchiveName = "collectd-rrd.tar.gz"

// Collectd archives the RRD files collectd updated while a run was in
// progress. collectd itself must already be running.
type Collectd struct {
	Dir    string
	Clock  clock.Clock
	Logger *slog.Logger

	started time.Time
}

func (c *Collectd) Start(ctx context.Context) error {
	if c.Clock == nil {
		c.Clock = clock.NewClock()
	}
	if fi, err := os.Stat(c.Dir); err != nil || !fi.IsDir() {
		return fmt.Errorf("collectd rrd dir %s is not a directory", c.Dir)
	}
	c.started = c.Clock.Now()
	c.logger().Debug("collectd capture started", "dir", c.Dir)
	return nil
}

// Stop writes every .rrd file under Dir modified since Start into
// outputDir/collectd-rrd.tar.gz, keeping paths relative to Dir.
func (c *Collectd) Stop(ctx context.Context, outputDir string) error {
	if c.started.IsZero() {
		return fmt.Errorf("collectd capture was not started")
	}
	path := filepath.Join(outputDir, ArchiveName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	n, err := c.archive(ctx, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("archiving %s: %w", c.Dir, err)
	}
	c.logger().Info("collectd data saved", "path", path, "files", n)
	return nil
}

func (c *Collectd) archive(ctx context.Context, w io.Writer) (int, error) {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)
	n := 0
	err := filepath.WalkDir(c.Dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".rrd") {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		if fi.ModTime().Before(c.started) {
			return nil
		}
		rel, err := filepath.Rel(c.Dir, p)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(fi, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		src, err := os.Open(p)
		if err != nil {
			return err
		}
		defer src.Close()
		if _, err := io.Copy(tw, src); err != nil {
			return err
		}
		n++
		return nil
	})
	if err != nil {
		return n, err
	}
	if err := tw.Close(); err != nil {
		return n, err
	}
	return n, gz.Close()
}

func (c *Collectd) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}
