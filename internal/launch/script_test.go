package launch_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/signalnine/ubench/internal/launch"
)

func TestScriptCommand(t *testing.T) {
	base := launch.Script{
		Tests:      []string{"dhry2reg", "pipe"},
		Copies:     4,
		OutFile:    "/out/unixbench.out",
		ErrFile:    "/out/unixbench.err",
		StatusFile: "/out/unixbench.status",
	}
	tests := []struct {
		name   string
		mutate func(s *launch.Script)
		want   string
	}{
		{
			name: "both passes",
			want: "./Run -c 1 -c 4 dhry2reg pipe >/out/unixbench.out 2>>/out/unixbench.err",
		},
		{
			name:   "no single thread",
			mutate: func(s *launch.Script) { s.NoSingleThread = true },
			want:   "./Run -c 4 dhry2reg pipe >/out/unixbench.out 2>>/out/unixbench.err",
		},
		{
			name:   "no multi thread",
			mutate: func(s *launch.Script) { s.NoMultiThread = true },
			want:   "./Run -c 1 dhry2reg pipe >/out/unixbench.out 2>>/out/unixbench.err",
		},
		{
			name: "single copy keeps explicit count",
			mutate: func(s *launch.Script) {
				s.Copies = 1
				s.NoMultiThread = true
			},
			want: "./Run -c 1 -c 1 dhry2reg pipe >/out/unixbench.out 2>>/out/unixbench.err",
		},
		{
			name: "paths with spaces are quoted",
			mutate: func(s *launch.Script) {
				s.OutFile = "/my out/unixbench.out"
				s.ErrFile = "/my out/unixbench.err"
			},
			want: "./Run -c 1 -c 4 dhry2reg pipe >'/my out/unixbench.out' 2>>'/my out/unixbench.err'",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			s.Tests = append([]string(nil), base.Tests...)
			if tt.mutate != nil {
				tt.mutate(&s)
			}
			if diff := cmp.Diff(tt.want, s.Command()); diff != "" {
				t.Errorf("command mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScriptRender(t *testing.T) {
	s := &launch.Script{
		BenchmarkDir: "/opt/UnixBench",
		Tests:        []string{"dhry2reg"},
		Copies:       2,
		OutFile:      "/out/unixbench.out",
		ErrFile:      "/out/unixbench.err",
		StatusFile:   "/out/unixbench.status",
	}
	want := "#!/bin/bash\n" +
		"cd /opt/UnixBench\n" +
		"sed -i 's/=> 16/=> 640/g' Run\n" +
		"./Run -c 1 -c 2 dhry2reg >/out/unixbench.out 2>>/out/unixbench.err\n" +
		"echo $? >/out/unixbench.status\n"
	if diff := cmp.Diff(want, s.Render()); diff != "" {
		t.Errorf("script mismatch (-want +got):\n%s", diff)
	}
}

func TestScriptWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unixbench.run")
	if err := os.WriteFile(path, []byte("stale"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := &launch.Script{BenchmarkDir: "/opt/UnixBench", Tests: []string{"pipe"}, Copies: 1}
	if err := s.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0o755 {
		t.Errorf("mode: got %v, want 0755", fi.Mode().Perm())
	}
	data, _ := os.ReadFile(path)
	if string(data) != s.Render() {
		t.Errorf("file content does not match Render:\n%s", data)
	}
}

func TestScriptWriteFileMissingDir(t *testing.T) {
	s := &launch.Script{}
	if err := s.WriteFile(filepath.Join(t.TempDir(), "missing", "unixbench.run")); err == nil {
		t.Error("expected error writing into a missing directory")
	}
}
