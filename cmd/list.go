package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/signalnine/ubench/internal/config"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available tests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Tests (* runs by default):")
			for _, t := range config.AllTests {
				mark := " "
				if slices.Contains(config.DefaultTests, t) {
					mark = "*"
				}
				fmt.Fprintf(w, "  %s %s\n", mark, t)
			}
			return nil
		},
	}
}
