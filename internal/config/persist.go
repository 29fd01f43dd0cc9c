package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Persist atomically writes the options snapshot into dir.
func (o *Options) Persist(dir string) error {
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrIO, dir)
	}
	if err := unix.Access(dir, unix.W_OK); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrIO, dir, err)
	}
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling options: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+OptionsFile+".")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: writing %s: %v", ErrIO, tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: closing %s: %v", ErrIO, tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, OptionsFile)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

// LoadPersisted reads the snapshot a completed run wrote into dir.
func LoadPersisted(dir string) (*Options, error) {
	path := filepath.Join(dir, OptionsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	var opts Options
	if err := json.Unmarshal(data, &opts); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return &opts, nil
}
