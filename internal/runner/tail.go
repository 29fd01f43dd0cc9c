package runner

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// Tail copies bytes appended to a file since the previous call. Each byte
// is written to W at most once, in file order.
type Tail struct {
	Path string
	W    io.Writer

	offset int64
}

// Poll writes any new bytes. A missing file is not an error: the
// benchmark may not have created it yet.
func (t *Tail) Poll() error {
	f, err := os.Open(t.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("opening %s: %w", t.Path, err)
	}
	defer f.Close()
	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return fmt.Errorf("seeking %s: %w", t.Path, err)
	}
	w := t.W
	if w == nil {
		w = io.Discard
	}
	n, err := io.Copy(w, f)
	t.offset += n
	if err != nil {
		return fmt.Errorf("reading %s: %w", t.Path, err)
	}
	return nil
}

// Offset is the number of bytes written so far.
func (t *Tail) Offset() int64 {
	return t.offset
}
