// Package score extracts index scores from UnixBench text reports.
package score

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/acarl005/stripansi"
)

// Metric names produced by Parse.
const (
	Score          = "score"
	MulticoreScore = "multicore_score"
)

var (
	indexScoreRe = regexp.MustCompile(`(?sU)Index Score.*\s+([0-9.]+)(?:\s|$)`)
	parallelRe   = regexp.MustCompile(`running\s+[0-9]+\s+parallel copies`)
)

// Metrics maps a metric name to its value as printed by the benchmark.
type Metrics map[string]string

// Parse returns the aggregate index scores found in report. The first
// "Index Score" value is the single-copy score; the second is reported as the
// multicore score only when the report shows a parallel-copies pass. A report
// without any index score yields empty metrics.
func Parse(report string) Metrics {
	report = stripansi.Strip(report)
	metrics := Metrics{}
	matches := indexScoreRe.FindAllStringSubmatch(report, -1)
	if len(matches) == 0 {
		return metrics
	}
	metrics[Score] = strings.TrimSpace(matches[0][1])
	if len(matches) > 1 && parallelRe.MatchString(report) {
		metrics[MulticoreScore] = strings.TrimSpace(matches[1][1])
	}
	return metrics
}

// ParseFile reads the report at path and parses it.
func ParseFile(path string) (Metrics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	return Parse(string(data)), nil
}
