package result

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/signalnine/ubench/internal/config"
	"github.com/signalnine/ubench/internal/score"
)

// ErrNoOutput is returned for a directory without a raw benchmark report.
var ErrNoOutput = errors.New("no benchmark output")

// Result is one finished run flattened for reporting: its configuration
// fields merged with the metrics parsed from its raw output.
type Result struct {
	Dir    string
	Fields map[string]string
}

// Retrieve reloads the configuration snapshot in dir and re-parses the raw
// output next to it. A report without an Index Score yields a result with
// no metrics, not an error.
func Retrieve(dir string) (*Result, error) {
	out := filepath.Join(dir, OutFile)
	if _, err := os.Stat(out); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", dir, ErrNoOutput)
		}
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	opts, err := config.LoadPersisted(dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	metrics, err := score.ParseFile(out)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	fields := opts.Fields()
	for k, v := range metrics {
		fields[k] = v
	}
	return &Result{Dir: dir, Fields: fields}, nil
}

// Score returns the single-copy index score.
func (r *Result) Score() (float64, bool) {
	return r.float(score.Score)
}

// MulticoreScore returns the parallel-copies index score.
func (r *Result) MulticoreScore() (float64, bool) {
	return r.float(score.MulticoreScore)
}

func (r *Result) RunID() string {
	return r.Fields["meta_run_id"]
}

func (r *Result) float(key string) (float64, bool) {
	v, ok := r.Fields[key]
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}
