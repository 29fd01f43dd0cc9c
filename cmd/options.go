package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/signalnine/ubench/internal/config"
	"github.com/signalnine/ubench/internal/host"
)

// optionFlags holds the run options given on the command line. Flag names
// match the keys of the defaults file and the options snapshot.
type optionFlags struct {
	opts  config.Options
	tests []string
}

func addOptionFlags(cmd *cobra.Command, f *optionFlags) {
	fl := cmd.Flags()
	fl.StringSliceVar(&f.tests, "test", nil, "tests to run, comma or space separated (default: a curated subset)")
	fl.IntVar(&f.opts.Copies, "multicore_copies", 0, "copies for the multicore pass (default: CPU cores)")
	fl.BoolVar(&f.opts.NoSingleThread, "nosinglethread", false, "skip the single copy pass")
	fl.BoolVar(&f.opts.NoMultiThread, "nomultithread", false, "skip the multicore pass")
	fl.StringVar(&f.opts.BenchmarkDir, "unixbench_dir", "", "UnixBench installation (default: searched upward from output and the working directory)")
	fl.StringVar(&f.opts.OutputDir, "output", "", "directory for results (default: working directory)")
	fl.BoolVar(&f.opts.CollectdRRD, "collectd_rrd", false, "archive collectd RRD data for the run")
	fl.StringVar(&f.opts.CollectdRRDDir, "collectd_rrd_dir", "", "collectd RRD directory (default "+config.DefaultCollectdRRDDir+")")

	m := &f.opts.Metadata
	fl.StringVar(&m.Burst, "meta_burst", "", "burstable instance description")
	fl.StringVar(&m.ComputeService, "meta_compute_service", "", "compute service name")
	fl.StringVar(&m.ComputeServiceID, "meta_compute_service_id", "", "compute service identifier")
	fl.StringVar(&m.CPU, "meta_cpu", "", "CPU description (default: detected)")
	fl.StringVar(&m.InstanceID, "meta_instance_id", "", "instance type")
	fl.StringVar(&m.Memory, "meta_memory", "", "memory description (default: detected)")
	fl.StringVar(&m.OS, "meta_os", "", "operating system (default: detected)")
	fl.StringVar(&m.Provider, "meta_provider", "", "service provider")
	fl.StringVar(&m.ProviderID, "meta_provider_id", "", "service provider identifier")
	fl.StringVar(&m.Region, "meta_region", "", "service region")
	fl.StringVar(&m.ResourceID, "meta_resource_id", "", "resource identifier")
	fl.StringVar(&m.RunID, "meta_run_id", "", "run identifier (default: random UUID)")
	fl.StringVar(&m.StorageConfig, "meta_storage_config", "", "storage configuration")
	fl.StringVar(&m.TestID, "meta_test_id", "", "test identifier")
}

// resolveOptions merges the command line over the defaults file over the
// host-derived defaults.
func resolveOptions(cmd *cobra.Command, f *optionFlags) (*config.Options, error) {
	file, err := loadDefaults(cmd)
	if err != nil {
		return nil, err
	}
	explicit := f.opts
	explicit.Tests = splitTests(f.tests)
	explicit.Verbose = flagVerbose
	return config.Resolve(&explicit, file, host.Detect(cmd.Context())), nil
}

// splitTests accepts test names separated by commas, spaces or repeated
// flags.
func splitTests(values []string) []string {
	var tests []string
	for _, v := range values {
		tests = append(tests, strings.Fields(v)...)
	}
	return tests
}
