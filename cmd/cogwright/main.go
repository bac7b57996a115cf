// Command cogwright serves the meshing tools over MCP and runs them from the
// command line.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chazu/cogwright/pkg/config"
	"github.com/chazu/cogwright/pkg/engine"
	"github.com/chazu/cogwright/pkg/logging"
	"github.com/chazu/cogwright/pkg/modcache"
	"github.com/chazu/cogwright/pkg/partlib"
	"github.com/chazu/cogwright/pkg/tools"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// Global flags
	envFile   string
	logLevel  string
	logFormat string
	catalog   string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cogwright",
	Short: "Pitch geometry, rack and pinion linkages and meshing diagnostics",
	Long: `cogwright computes where gears and racks must sit so their teeth mesh.

Run "cogwright serve" to expose the tools to an agent over MCP on stdio, or
call them directly with the measure, linkage, diagnose, eval, params and
render commands. Configuration comes from COGWRIGHT_* environment variables
and an optional .env file; flags override both.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		if envFile != "" {
			files = append(files, envFile)
		}
		loaded, err := config.Load(files...)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("log-level") {
			loaded.LogLevel = logLevel
		}
		if flags.Changed("log-format") {
			loaded.LogFormat = logFormat
		}
		if flags.Changed("catalog") {
			loaded.PartCatalog = catalog
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded

		logger, err = logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&envFile, "env-file", "", "dotenv file to load (default .env)")
	pf.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	pf.StringVar(&logFormat, "log-format", "json", "log format: json or console")
	pf.StringVar(&catalog, "catalog", "", "YAML part catalog overriding the stock gear and rack")

	rootCmd.AddCommand(serveCmd, measureCmd, linkageCmd, diagnoseCmd, evalCmd, paramsCmd, renderCmd)
}

// newEngine builds a script engine whose includes go through a module cache.
func newEngine(lib partlib.Library) (*engine.Engine, error) {
	cache, err := modcache.New(cfg.ModuleCacheSize,
		modcache.WithMaxAge(cfg.ModuleMaxAge),
		modcache.WithFetcher(&modcache.HTTPFetcher{Client: &http.Client{Timeout: cfg.ModuleFetchTimeout}}),
		modcache.WithLogger(logger.Named("modcache")),
	)
	if err != nil {
		return nil, err
	}
	return engine.NewEngine(
		engine.WithLibrary(lib),
		engine.WithModules(cache),
		engine.WithTimeout(cfg.EvalTimeout),
		engine.WithLogger(logger.Named("engine")),
	), nil
}

// newToolbox wires the configured library, tolerances and engine.
func newToolbox() (*tools.Toolbox, error) {
	lib, err := cfg.Library()
	if err != nil {
		return nil, err
	}
	eng, err := newEngine(lib)
	if err != nil {
		return nil, err
	}
	return tools.New(
		tools.WithLibrary(lib),
		tools.WithRadiusTolerance(cfg.LinkageRadiusTolerance),
		tools.WithDiagnosticDefaults(cfg.DiagnosticSamples, cfg.DiagnosticTolerance),
		tools.WithEngine(eng),
		tools.WithLogger(logger.Named("tools")),
	), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
