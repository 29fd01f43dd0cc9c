package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/signalnine/ubench/internal/host"
)

// OptionsFile is the name of the configuration snapshot written to a run's
// output directory when the run completes.
const OptionsFile = ".options"

// MaxCopies is the highest concurrency the benchmark is allowed to run with.
const MaxCopies = 640

// NotSpecified is the default for descriptive metadata nobody supplied.
const NotSpecified = "Not Specified"

// DefaultCollectdRRDDir is where collectd keeps its RRD files by default.
const DefaultCollectdRRDDir = "/var/lib/collectd/rrd"

// TimeLayout is the layout used when timestamps are flattened for reporting.
const TimeLayout = "2006-01-02 15:04:05"

var (
	ErrNotFound = errors.New("options snapshot not found")
	ErrCorrupt  = errors.New("options snapshot corrupt")
	ErrIO       = errors.New("options snapshot not writable")
)

// AllTests is every test name the benchmark accepts.
var AllTests = []string{
	"dhry2reg", "whetstone-double", "syscall", "pipe", "context1", "spawn", "execl",
	"fstime-w", "fstime-r", "fstime", "fsbuffer-w", "fsbuffer-r", "fsbuffer",
	"fsdisk-w", "fsdisk-r", "fsdisk", "shell1", "shell8", "shell16",
	"short", "int", "long", "float", "double", "arithoh", "C", "dc", "hanoi", "grep", "sysexec",
}

// DefaultTests is the subset run when no tests are requested.
var DefaultTests = []string{
	"dhry2reg", "whetstone-double", "execl", "fstime", "fsbuffer", "fsdisk",
	"pipe", "spawn", "syscall", "shell1", "shell8",
}

// Options is the resolved configuration of one run.
type Options struct {
	Tests          []string `json:"test" yaml:"test" toml:"test"`
	Copies         int      `json:"multicore_copies" yaml:"multicore_copies" toml:"multicore_copies"`
	NoSingleThread bool     `json:"nosinglethread,omitempty" yaml:"nosinglethread" toml:"nosinglethread"`
	NoMultiThread  bool     `json:"nomultithread,omitempty" yaml:"nomultithread" toml:"nomultithread"`
	BenchmarkDir   string   `json:"unixbench_dir,omitempty" yaml:"unixbench_dir" toml:"unixbench_dir"`
	OutputDir      string   `json:"output" yaml:"output" toml:"output"`
	CollectdRRD    bool     `json:"collectd_rrd,omitempty" yaml:"collectd_rrd" toml:"collectd_rrd"`
	CollectdRRDDir string   `json:"collectd_rrd_dir,omitempty" yaml:"collectd_rrd_dir" toml:"collectd_rrd_dir"`
	Verbose        bool     `json:"verbose,omitempty" yaml:"verbose" toml:"verbose"`

	Metadata `yaml:",inline"`

	StartedAt time.Time `json:"test_started" yaml:"-" toml:"-"`
	StoppedAt time.Time `json:"test_stopped" yaml:"-" toml:"-"`
}

// Metadata is descriptive information carried through to reports unchanged.
type Metadata struct {
	Burst            string `json:"meta_burst,omitempty" yaml:"meta_burst" toml:"meta_burst"`
	ComputeService   string `json:"meta_compute_service,omitempty" yaml:"meta_compute_service" toml:"meta_compute_service"`
	ComputeServiceID string `json:"meta_compute_service_id,omitempty" yaml:"meta_compute_service_id" toml:"meta_compute_service_id"`
	CPU              string `json:"meta_cpu,omitempty" yaml:"meta_cpu" toml:"meta_cpu"`
	InstanceID       string `json:"meta_instance_id,omitempty" yaml:"meta_instance_id" toml:"meta_instance_id"`
	Memory           string `json:"meta_memory,omitempty" yaml:"meta_memory" toml:"meta_memory"`
	OS               string `json:"meta_os,omitempty" yaml:"meta_os" toml:"meta_os"`
	Provider         string `json:"meta_provider,omitempty" yaml:"meta_provider" toml:"meta_provider"`
	ProviderID       string `json:"meta_provider_id,omitempty" yaml:"meta_provider_id" toml:"meta_provider_id"`
	Region           string `json:"meta_region,omitempty" yaml:"meta_region" toml:"meta_region"`
	ResourceID       string `json:"meta_resource_id,omitempty" yaml:"meta_resource_id" toml:"meta_resource_id"`
	RunID            string `json:"meta_run_id,omitempty" yaml:"meta_run_id" toml:"meta_run_id"`
	StorageConfig    string `json:"meta_storage_config,omitempty" yaml:"meta_storage_config" toml:"meta_storage_config"`
	TestID           string `json:"meta_test_id,omitempty" yaml:"meta_test_id" toml:"meta_test_id"`
}

// LoadFile reads a defaults file. Files ending in .toml are decoded as TOML,
// everything else as YAML.
func LoadFile(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var opts Options
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &opts); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &opts); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &opts, nil
}

// Resolve merges explicit over file over the defaults table and returns the
// resulting options. file and facts may be nil.
func Resolve(explicit, file *Options, facts *host.Facts) *Options {
	opts := &Options{}
	if explicit != nil {
		*opts = *explicit
		opts.Tests = append([]string(nil), explicit.Tests...)
	}
	if file != nil {
		mergeMissing(opts, file)
	}
	if facts == nil {
		facts = &host.Facts{}
	}
	mergeMissing(opts, defaults(facts))

	if len(opts.Tests) == 0 {
		opts.Tests = append([]string(nil), DefaultTests...)
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	// A single copy makes the multi-threaded pass meaningless.
	if opts.Copies == 1 {
		opts.NoMultiThread = true
		opts.NoSingleThread = false
	}
	return opts
}

func defaults(facts *host.Facts) *Options {
	return &Options{
		Copies:         facts.Cores,
		OutputDir:      facts.WorkDir,
		CollectdRRDDir: DefaultCollectdRRDDir,
		Metadata: Metadata{
			ComputeService: NotSpecified,
			CPU:            facts.CPU,
			InstanceID:     NotSpecified,
			Memory:         facts.Memory,
			OS:             facts.OS,
			Provider:       NotSpecified,
			StorageConfig:  NotSpecified,
		},
	}
}

func mergeMissing(dst, src *Options) {
	if len(dst.Tests) == 0 && len(src.Tests) > 0 {
		dst.Tests = append([]string(nil), src.Tests...)
	}
	if dst.Copies == 0 {
		dst.Copies = src.Copies
	}
	dst.NoSingleThread = dst.NoSingleThread || src.NoSingleThread
	dst.NoMultiThread = dst.NoMultiThread || src.NoMultiThread
	dst.CollectdRRD = dst.CollectdRRD || src.CollectdRRD
	dst.Verbose = dst.Verbose || src.Verbose
	fill(&dst.BenchmarkDir, src.BenchmarkDir)
	fill(&dst.OutputDir, src.OutputDir)
	fill(&dst.CollectdRRDDir, src.CollectdRRDDir)

	m, s := &dst.Metadata, &src.Metadata
	fill(&m.Burst, s.Burst)
	fill(&m.ComputeService, s.ComputeService)
	fill(&m.ComputeServiceID, s.ComputeServiceID)
	fill(&m.CPU, s.CPU)
	fill(&m.InstanceID, s.InstanceID)
	fill(&m.Memory, s.Memory)
	fill(&m.OS, s.OS)
	fill(&m.Provider, s.Provider)
	fill(&m.ProviderID, s.ProviderID)
	fill(&m.Region, s.Region)
	fill(&m.ResourceID, s.ResourceID)
	fill(&m.RunID, s.RunID)
	fill(&m.StorageConfig, s.StorageConfig)
	fill(&m.TestID, s.TestID)
}

func fill(dst *string, src string) {
	if *dst == "" {
		*dst = src
	}
}

// Fields flattens the options into the key/value form used by reports.
// Unset values are omitted.
func (o *Options) Fields() map[string]string {
	f := map[string]string{}
	set := func(k, v string) {
		if v != "" {
			f[k] = v
		}
	}
	flag := func(k string, v bool) {
		if v {
			f[k] = "1"
		}
	}
	set("test", strings.Join(o.Tests, " "))
	if o.Copies > 0 {
		f["multicore_copies"] = strconv.Itoa(o.Copies)
	}
	flag("nosinglethread", o.NoSingleThread)
	flag("nomultithread", o.NoMultiThread)
	flag("collectd_rrd", o.CollectdRRD)
	set("unixbench_dir", o.BenchmarkDir)
	set("output", o.OutputDir)
	set("collectd_rrd_dir", o.CollectdRRDDir)

	m := o.Metadata
	set("meta_burst", m.Burst)
	set("meta_compute_service", m.ComputeService)
	set("meta_compute_service_id", m.ComputeServiceID)
	set("meta_cpu", m.CPU)
	set("meta_instance_id", m.InstanceID)
	set("meta_memory", m.Memory)
	set("meta_os", m.OS)
	set("meta_provider", m.Provider)
	set("meta_provider_id", m.ProviderID)
	set("meta_region", m.Region)
	set("meta_resource_id", m.ResourceID)
	set("meta_run_id", m.RunID)
	set("meta_storage_config", m.StorageConfig)
	set("meta_test_id", m.TestID)

	if !o.StartedAt.IsZero() {
		f["test_started"] = o.StartedAt.UTC().Format(TimeLayout)
	}
	if !o.StoppedAt.IsZero() {
		f["test_stopped"] = o.StoppedAt.UTC().Format(TimeLayout)
	}
	return f
}
