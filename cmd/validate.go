package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/signalnine/ubench/internal/host"
	"github.com/signalnine/ubench/internal/validation"
)

var (
	validateFlags optionFlags
	flagShow      bool
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check run options without running the benchmark",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := resolveOptions(cmd, &validateFlags)
			if err != nil {
				return err
			}
			v := &validation.Validator{Env: host.System{}, Logger: newLogger(cmd.ErrOrStderr())}
			errs := v.Validate(opts)
			if flagShow {
				data, err := yaml.Marshal(opts)
				if err != nil {
					return fmt.Errorf("marshaling options: %w", err)
				}
				fmt.Fprint(cmd.OutOrStdout(), string(data))
			}
			if len(errs) > 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), errs.Error())
				return fmt.Errorf("invalid options: %d problem(s)", len(errs))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "options are valid")
			return nil
		},
	}
	addOptionFlags(cmd, &validateFlags)
	cmd.Flags().BoolVar(&flagShow, "show", false, "print the resolved options as YAML")
	return cmd
}
