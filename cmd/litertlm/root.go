package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"litertlm/internal/common/fsutil"
	"litertlm/internal/config"
	"litertlm/internal/litert"
	"litertlm/internal/manager"
	"litertlm/internal/registry"
	"litertlm/pkg/types"
)

const (
	defaultAddr      = ":8080"
	defaultModelsDir = "~/models/litertlm"
)

// cli is the state shared by all subcommands.
type cli struct {
	configPath string
	// flags holds flag values; cfg is flags merged over the config file.
	flags config.Config
	cfg   config.Config
	cors  struct{ origins, methods, headers string }

	log    zerolog.Logger
	stderr io.Writer
	// load builds engines; nil uses the linked native library.
	load manager.Loader
}

func newCLI() *cli {
	return &cli{stderr: os.Stderr, log: zerolog.Nop()}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "litertlm",
		Short:         "Serve and run LiteRT-LM models",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd.Flags())
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "Config file (.yaml, .json or .toml)")
	pf.StringVar(&c.flags.LogLevel, "log-level", "info", "Log level (trace, debug, info, warn, error, disabled)")
	pf.StringVar(&c.flags.ModelsDir, "models-dir", defaultModelsDir, "Directory to scan for model files")
	pf.StringVar(&c.flags.Backend, "backend", litert.CPU.String(), "Execution backend (cpu, gpu)")

	root.AddCommand(
		newServeCmd(c),
		newChatCmd(c),
		newBatchCmd(c),
		newBenchCmd(c),
		newModelsCmd(c),
	)
	return root
}

// setup merges the config file under the flags, applies environment
// overrides, validates, and builds the logger.
func (c *cli) setup(fs *pflag.FlagSet) error {
	c.flags.CORSAllowedOrigins = splitCSV(c.cors.origins)
	c.flags.CORSAllowedMethods = splitCSV(c.cors.methods)
	c.flags.CORSAllowedHeaders = splitCSV(c.cors.headers)

	var file config.Config
	if c.configPath != "" {
		var err error
		if file, err = config.Load(c.configPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	c.cfg = mergeConfig(c.flags, file, fs)
	if !fs.Changed("addr") {
		if v := os.Getenv("LITERTLM_ADDR"); v != "" {
			c.cfg.Addr = v
		}
	}
	if !fs.Changed("log-level") {
		if v := os.Getenv("LITERTLM_LOG_LEVEL"); v != "" {
			c.cfg.LogLevel = v
		}
	}
	if err := c.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	lvl, err := zerolog.ParseLevel(c.cfg.LogLevel)
	if err != nil || c.cfg.LogLevel == "" {
		lvl = zerolog.InfoLevel
	}
	c.log = zerolog.New(zerolog.ConsoleWriter{Out: c.stderr, TimeFormat: time.Kitchen}).
		Level(lvl).With().Timestamp().Logger()
	return nil
}

// fileOverlays copy a config file value over the flag default when the flag
// was not set explicitly and the file sets the field.
var fileOverlays = []struct {
	flag  string
	apply func(dst *config.Config, file config.Config)
}{
	{"addr", func(d *config.Config, f config.Config) { setStr(&d.Addr, f.Addr) }},
	{"models-dir", func(d *config.Config, f config.Config) { setStr(&d.ModelsDir, f.ModelsDir) }},
	{"backend", func(d *config.Config, f config.Config) { setStr(&d.Backend, f.Backend) }},
	{"log-level", func(d *config.Config, f config.Config) { setStr(&d.LogLevel, f.LogLevel) }},
	{"default-model", func(d *config.Config, f config.Config) { setStr(&d.DefaultModel, f.DefaultModel) }},
	{"budget-mb", func(d *config.Config, f config.Config) { setInt(&d.BudgetMB, f.BudgetMB) }},
	{"margin-mb", func(d *config.Config, f config.Config) { setInt(&d.MarginMB, f.MarginMB) }},
	{"max-queue-depth", func(d *config.Config, f config.Config) { setInt(&d.MaxQueueDepth, f.MaxQueueDepth) }},
	{"max-concurrent", func(d *config.Config, f config.Config) { setInt(&d.MaxConcurrent, f.MaxConcurrent) }},
	{"max-wait", func(d *config.Config, f config.Config) { setStr(&d.MaxWait, f.MaxWait) }},
	{"drain-timeout", func(d *config.Config, f config.Config) { setStr(&d.DrainTimeout, f.DrainTimeout) }},
	{"load-retries", func(d *config.Config, f config.Config) { setInt(&d.LoadRetries, f.LoadRetries) }},
	{"state-file", func(d *config.Config, f config.Config) { setStr(&d.StateFile, f.StateFile) }},
	{"cors", func(d *config.Config, f config.Config) { d.CORSEnabled = d.CORSEnabled || f.CORSEnabled }},
	{"cors-origins", func(d *config.Config, f config.Config) { setStrs(&d.CORSAllowedOrigins, f.CORSAllowedOrigins) }},
	{"cors-methods", func(d *config.Config, f config.Config) { setStrs(&d.CORSAllowedMethods, f.CORSAllowedMethods) }},
	{"cors-headers", func(d *config.Config, f config.Config) { setStrs(&d.CORSAllowedHeaders, f.CORSAllowedHeaders) }},
	{"max-body-bytes", func(d *config.Config, f config.Config) {
		if f.MaxBodyBytes != 0 {
			d.MaxBodyBytes = f.MaxBodyBytes
		}
	}},
	{"infer-timeout-seconds", func(d *config.Config, f config.Config) { setInt(&d.InferTimeoutSeconds, f.InferTimeoutSeconds) }},
}

// mergeConfig layers file under flags: explicitly set flags win, then file
// values, then flag defaults.
func mergeConfig(flags, file config.Config, fs *pflag.FlagSet) config.Config {
	out := flags
	for _, o := range fileOverlays {
		if !fs.Changed(o.flag) {
			o.apply(&out, file)
		}
	}
	return out
}

func setStr(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setStrs(dst *[]string, v []string) {
	if len(v) > 0 {
		*dst = append([]string(nil), v...)
	}
}

func (c *cli) backend() litert.Backend {
	b, err := litert.ParseBackend(c.cfg.Backend)
	if err != nil {
		// Validate already rejected anything else
		return litert.CPU
	}
	return b
}

// loader returns the engine constructor for one-off commands.
func (c *cli) loader() manager.Loader {
	if c.load != nil {
		return c.load
	}
	return func(path string, backend litert.Backend) (*litert.Engine, error) {
		return litert.Load(path, backend, litert.WithLogger(c.log))
	}
}

// resolveModel accepts a registry ID, a bare model name, or a file path
// (with ~ expansion).
func (c *cli) resolveModel(arg string) (types.Model, error) {
	models, err := registry.LoadDir(c.cfg.ModelsDir)
	if err == nil {
		for _, m := range models {
			if m.ID == arg || m.Name == arg {
				return m, nil
			}
		}
	}
	if p, size, ok := fsutil.ModelFile(arg); ok {
		return types.Model{ID: arg, Name: arg, Path: p, SizeBytes: size}, nil
	}
	if err != nil {
		return types.Model{}, fmt.Errorf("model %q not found: %w", arg, err)
	}
	return types.Model{}, manager.ErrModelNotFound(arg)
}

// loadModel resolves arg and loads an engine for it.
func (c *cli) loadModel(arg string) (*litert.Engine, types.Model, error) {
	mdl, err := c.resolveModel(arg)
	if err != nil {
		return nil, mdl, err
	}
	c.log.Info().Str("model", mdl.ID).Str("backend", c.backend().String()).Msg("loading model")
	start := time.Now()
	eng, err := c.loader()(mdl.Path, c.backend())
	if err != nil {
		return nil, mdl, err
	}
	c.log.Info().Dur("took", time.Since(start)).Msg("model loaded")
	return eng, mdl, nil
}
