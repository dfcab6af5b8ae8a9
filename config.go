package conform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/zenc-lang/zc-conform/flags"
)

// Config holds the application configuration
type Config struct {
	Backend     string        // C compiler backend for a single suite
	TestDir     string        // Absolute path of the test root
	Jobs        int           // Number of concurrent test workers (0 = one per CPU)
	Timeout     time.Duration // Wall clock limit per test
	Compiler    string        // Explicit compiler path, searched for when empty
	SearchDirs  []string      // Directories searched for the compiler, in order
	ExtraArgs   []string      // Arguments passed through to every compiler invocation
	MetricsFile string        // Prometheus textfile written after the run, if set
	Color       bool          // Colour PASS/FAIL on the console
	Backends    []string      // Backends tried by the matrix command, in order
	Cooldown    time.Duration // Pause between consecutive matrix suites
	PurgeExts   []string      // Extensions purged from TestDir before the matrix runs
	Log         log.Logger
}

// FileConfig is the optional YAML settings file. Zero values leave the flag default in place.
type FileConfig struct {
	Backend    string        `yaml:"cc"`
	TestDir    string        `yaml:"dir"`
	Jobs       int           `yaml:"jobs"`
	Timeout    time.Duration `yaml:"timeout"`
	Compiler   string        `yaml:"compiler"`
	SearchDirs []string      `yaml:"search_dirs"`
	ExtraArgs  []string      `yaml:"args"`
	Backends   []string      `yaml:"backends"`
	Cooldown   time.Duration `yaml:"cooldown"`
	PurgeExts  []string      `yaml:"purge_ext"`
}

// LoadFileConfig reads and strictly decodes a YAML settings file.
func LoadFileConfig(path string) (*FileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	var cfg FileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if cfg.Jobs < 0 {
		return nil, fmt.Errorf("config file %s: jobs cannot be negative", path)
	}
	if cfg.Timeout < 0 || cfg.Cooldown < 0 {
		return nil, fmt.Errorf("config file %s: durations cannot be negative", path)
	}
	return &cfg, nil
}

// NewConfig creates a new Config from cli context. Flags set on the command line or
// through the environment win over the config file, which wins over flag defaults.
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.Validate(ctx); err != nil {
		return nil, err
	}

	file := &FileConfig{}
	if path := ctx.String(flags.ConfigFile.Name); path != "" {
		loaded, err := LoadFileConfig(path)
		if err != nil {
			return nil, err
		}
		file = loaded
	}

	cfg := &Config{
		Backend:     pickString(ctx, flags.CC.Name, file.Backend),
		TestDir:     pickString(ctx, flags.TestDir.Name, file.TestDir),
		Jobs:        ctx.Int(flags.Jobs.Name),
		Timeout:     pickDuration(ctx, flags.Timeout.Name, file.Timeout),
		Compiler:    pickString(ctx, flags.Compiler.Name, file.Compiler),
		SearchDirs:  pickSlice(ctx, flags.SearchDirs.Name, file.SearchDirs),
		ExtraArgs:   ctx.Args().Slice(),
		MetricsFile: ctx.String(flags.MetricsFile.Name),
		Color:       !ctx.Bool(flags.NoColor.Name),
		Backends:    pickSlice(ctx, flags.Backends.Name, file.Backends),
		Cooldown:    pickDuration(ctx, flags.Cooldown.Name, file.Cooldown),
		PurgeExts:   pickSlice(ctx, flags.PurgeExts.Name, file.PurgeExts),
		Log:         log,
	}
	if !ctx.IsSet(flags.Jobs.Name) && file.Jobs > 0 {
		cfg.Jobs = file.Jobs
	}
	if len(cfg.ExtraArgs) == 0 {
		cfg.ExtraArgs = file.ExtraArgs
	}

	if cfg.Backend == "" {
		return nil, errors.New("backend cannot be empty")
	}
	if cfg.TestDir == "" {
		return nil, errors.New("test directory is required")
	}
	absTestDir, err := filepath.Abs(cfg.TestDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for test directory '%s': %w", cfg.TestDir, err)
	}
	cfg.TestDir = absTestDir

	return cfg, nil
}

func pickString(ctx *cli.Context, name, fromFile string) string {
	if ctx.IsSet(name) || fromFile == "" {
		return ctx.String(name)
	}
	return fromFile
}

func pickDuration(ctx *cli.Context, name string, fromFile time.Duration) time.Duration {
	if ctx.IsSet(name) || fromFile == 0 {
		return ctx.Duration(name)
	}
	return fromFile
}

func pickSlice(ctx *cli.Context, name string, fromFile []string) []string {
	if ctx.IsSet(name) || len(fromFile) == 0 {
		return ctx.StringSlice(name)
	}
	return fromFile
}
