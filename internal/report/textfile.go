package report

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalnine/ubench/internal/result"
)

// WriteTextfile exports the index scores of results in the Prometheus
// textfile format, for node_exporter's textfile collector.
func WriteTextfile(path string, results []*result.Result) error {
	reg := prometheus.NewRegistry()
	scores := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ubench_index_score",
		Help: "UnixBench System Benchmarks Index Score",
	}, []string{"run_id", "kind"})
	copies := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ubench_copies",
		Help: "Parallel copies used for the multicore pass",
	}, []string{"run_id"})
	reg.MustRegister(scores, copies)

	for _, r := range results {
		id := r.RunID()
		if s, ok := r.Score(); ok {
			scores.WithLabelValues(id, "single").Set(s)
		}
		if s, ok := r.MulticoreScore(); ok {
			scores.WithLabelValues(id, "multicore").Set(s)
			var n float64
			if _, err := fmt.Sscan(r.Fields["multicore_copies"], &n); err == nil {
				copies.WithLabelValues(id).Set(n)
			}
		}
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("writing textfile %s: %w", path, err)
	}
	return nil
}
