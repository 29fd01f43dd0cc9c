package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/ubench/internal/report"
	"github.com/signalnine/ubench/internal/result"
	"github.com/signalnine/ubench/internal/runner"
)

var (
	flagFormat   string
	flagTextfile string
	flagParallel int
)

func newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results [output-dir...]",
		Short: "Show the results of finished runs",
		Long:  "Reload the saved options of each output directory, re-parse its benchmark output and print the combined results.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			log := newLogger(cmd.ErrOrStderr())
			// Each job writes only its own slot.
			results := make([]*result.Result, len(args))
			jobs := make([]runner.Job, len(args))
			for i, dir := range args {
				jobs[i] = func(context.Context) error {
					r, err := result.Retrieve(dir)
					if err != nil {
						return err
					}
					results[i] = r
					return nil
				}
			}
			for _, err := range runner.RunPool(cmd.Context(), flagParallel, jobs) {
				log.Warn("skipping run", "error", err)
			}

			var found []*result.Result
			for _, r := range results {
				if r != nil {
					found = append(found, r)
				}
			}
			if len(found) == 0 {
				return fmt.Errorf("no results found")
			}
			if flagTextfile != "" {
				if err := report.WriteTextfile(flagTextfile, found); err != nil {
					return err
				}
			}
			return report.Write(found, flagFormat, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&flagFormat, "format", report.FormatTable, "output format (table, markdown, json, kv)")
	cmd.Flags().StringVar(&flagTextfile, "textfile", "", "also write scores to this Prometheus textfile")
	cmd.Flags().IntVar(&flagParallel, "parallel", 4, "directories to read concurrently")
	return cmd
}
