package result_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/signalnine/ubench/internal/config"
	"github.com/signalnine/ubench/internal/result"
)

const multicoreReport = `   BYTE UNIX Benchmarks (Version 5.1.3)
Benchmark Run: Sat Oct 17 2026 09:00:00 - 09:30:00
4 CPUs in system; running 1 parallel copy of tests
System Benchmarks Index Score                                        1736.6

Benchmark Run: Sat Oct 17 2026 09:30:00 - 10:00:00
4 CPUs in system; running 4 parallel copies of tests
System Benchmarks Index Score                                        6921.1
`

func writeRun(t *testing.T, report string) string {
	t.Helper()
	dir := t.TempDir()
	opts := &config.Options{
		Tests:     []string{"dhry2reg"},
		Copies:    4,
		OutputDir: dir,
		Metadata:  config.Metadata{RunID: "run-1", Provider: "aws"},
		StoppedAt: time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC),
	}
	if err := opts.Persist(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, result.OutFile), []byte(report), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestRetrieve(t *testing.T) {
	dir := writeRun(t, multicoreReport)
	r, err := result.Retrieve(dir)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	checks := map[string]string{
		"score":            "1736.6",
		"multicore_score":  "6921.1",
		"test":             "dhry2reg",
		"multicore_copies": "4",
		"meta_provider":    "aws",
		"test_stopped":     "2026-10-17 10:00:00",
	}
	for k, want := range checks {
		if got := r.Fields[k]; got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
	if s, ok := r.Score(); !ok || s != 1736.6 {
		t.Errorf("Score: got (%v, %v)", s, ok)
	}
	if s, ok := r.MulticoreScore(); !ok || s != 6921.1 {
		t.Errorf("MulticoreScore: got (%v, %v)", s, ok)
	}
	if r.RunID() != "run-1" {
		t.Errorf("RunID: got %q", r.RunID())
	}
}

func TestRetrieveWithoutScore(t *testing.T) {
	r, err := result.Retrieve(writeRun(t, "Run: nothing useful\n"))
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if _, ok := r.Score(); ok {
		t.Error("expected no score")
	}
	if r.Fields["test"] != "dhry2reg" {
		t.Errorf("configuration fields missing: %v", r.Fields)
	}
}

func TestRetrieveErrors(t *testing.T) {
	if _, err := result.Retrieve(t.TempDir()); !errors.Is(err, result.ErrNoOutput) {
		t.Errorf("empty dir: got %v, want ErrNoOutput", err)
	}
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, result.OutFile), []byte(multicoreReport), 0o644)
	if _, err := result.Retrieve(dir); !errors.Is(err, config.ErrNotFound) {
		t.Errorf("missing snapshot: got %v, want ErrNotFound", err)
	}
}
