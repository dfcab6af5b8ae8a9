package flags

import (
	"fmt"
	"runtime"
	"time"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"

	"github.com/zenc-lang/zc-conform/runner"
)

const EnvVarPrefix = "ZC_CONFORM"

var (
	DefaultBackends  = []string{"gcc", "clang", "zig", "tcc"}
	DefaultPurgeExts = []string{".log", ".c"}
)

var (
	CC = &cli.StringFlag{
		Name:    "cc",
		Value:   "gcc",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CC"),
		Usage:   "C compiler backend passed to the driver",
	}
	TestDir = &cli.StringFlag{
		Name:    "dir",
		Value:   "tests",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "DIR"),
		Usage:   "Directory containing .zc tests, searched recursively",
	}
	Jobs = &cli.IntFlag{
		Name:    "jobs",
		Aliases: []string{"j"},
		Value:   runtime.NumCPU(),
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "JOBS"),
		Usage:   "Number of tests to run in parallel (0 = one per CPU)",
	}
	Timeout = &cli.DurationFlag{
		Name:    "timeout",
		Value:   runner.DefaultTestTimeout,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TIMEOUT"),
		Usage:   "Wall clock limit for a single test (e.g. '30s', '2m')",
	}
	Compiler = &cli.StringFlag{
		Name:    "compiler",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "COMPILER"),
		Usage:   "Path to the zc driver. When unset the search dirs are tried in order",
	}
	SearchDirs = &cli.StringSliceFlag{
		Name:    "search-dirs",
		Value:   cli.NewStringSlice(runner.DefaultSearchDirs...),
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SEARCH_DIRS"),
		Usage:   "Directories searched, in order, for the zc driver",
	}
	ConfigFile = &cli.StringFlag{
		Name:    "config",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONFIG"),
		Usage:   "Path to a YAML file with default settings (eg. 'conform.yaml')",
	}
	MetricsFile = &cli.StringFlag{
		Name:    "metrics-file",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "METRICS_FILE"),
		Usage:   "Write Prometheus metrics in text format to this file after the run",
	}
	NoColor = &cli.BoolFlag{
		Name:    "no-color",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "NO_COLOR"),
		Usage:   "Disable coloured PASS/FAIL output",
	}

	Backends = &cli.StringSliceFlag{
		Name:    "backends",
		Value:   cli.NewStringSlice(DefaultBackends...),
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "BACKENDS"),
		Usage:   "C compiler backends to test, in order. Backends not found on PATH are skipped",
	}
	Cooldown = &cli.DurationFlag{
		Name:    "cooldown",
		Value:   time.Second,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "COOLDOWN"),
		Usage:   "Pause between consecutive backend suites",
	}
	PurgeExts = &cli.StringSliceFlag{
		Name:    "purge-ext",
		Value:   cli.NewStringSlice(DefaultPurgeExts...),
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PURGE_EXT"),
		Usage:   "File extensions removed from the test directory before the matrix runs",
	}
)

var suiteFlags = []cli.Flag{
	CC,
	TestDir,
	Jobs,
	Timeout,
	Compiler,
	SearchDirs,
	ConfigFile,
	MetricsFile,
	NoColor,
}

var matrixFlags = []cli.Flag{
	Backends,
	Cooldown,
	PurgeExts,
}

// Flags are accepted by the root command.
var Flags []cli.Flag

// MatrixFlags are accepted by the matrix command in addition to Flags.
var MatrixFlags []cli.Flag

func init() {
	Flags = append(Flags, suiteFlags...)
	Flags = append(Flags, oplog.CLIFlags(EnvVarPrefix)...)

	MatrixFlags = append(MatrixFlags, matrixFlags...)
}

// Validate checks flag values that urfave/cli cannot check by type alone.
func Validate(ctx *cli.Context) error {
	if ctx.Int(Jobs.Name) < 0 {
		return fmt.Errorf("flag %s cannot be negative", Jobs.Name)
	}
	if ctx.Duration(Timeout.Name) <= 0 {
		return fmt.Errorf("flag %s must be positive", Timeout.Name)
	}
	if ctx.IsSet(Cooldown.Name) && ctx.Duration(Cooldown.Name) < 0 {
		return fmt.Errorf("flag %s cannot be negative", Cooldown.Name)
	}
	return nil
}
