package cmd

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/signalnine/ubench/internal/config"
)

var (
	cfgFile     string
	flagVerbose bool
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ubench",
		Short:        "Run UnixBench and collect its index scores",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "ubench.yaml", "defaults file (YAML, or TOML with a .toml extension)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "show debug output")
	root.AddCommand(newRunCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newResultsCmd())
	root.AddCommand(newListCmd())
	return root
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadDefaults reads the defaults file. The default path may be absent; a
// path given with --config must exist.
func loadDefaults(cmd *cobra.Command) (*config.Options, error) {
	opts, err := config.LoadFile(cfgFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
			return nil, nil
		}
		return nil, err
	}
	return opts, nil
}
