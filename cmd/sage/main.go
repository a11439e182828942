package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sambeau/sage/config"
	"github.com/sambeau/sage/pkg/sage"
	"github.com/sambeau/sage/pkg/sage/history"
	"github.com/sambeau/sage/pkg/sage/rewriter"
)

// Version information, set at build time via -ldflags
var (
	Version = "dev"     // -X main.Version=$(git describe --tags --always)
	Commit  = "unknown" // -X main.Commit=$(git rev-parse --short HEAD)
)

// errDiagnostics is returned when a check reported problems. The problems
// have already been printed.
var errDiagnostics = errors.New("diagnostics reported")

func main() {
	ctx := context.Background()
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv)
	switch {
	case err == nil:
	case errors.Is(err, errDiagnostics):
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point, designed for testability (Mat Ryer pattern)
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	if len(args) == 0 {
		printUsage(stderr)
		return fmt.Errorf("missing command")
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch args[0] {
	case "check":
		return runCheckCommand(ctx, args[1:], stdout, stderr, getenv)
	case "dump":
		return runDumpCommand(args[1:], stdout, stderr, getenv)
	case "describe":
		return runDescribeCommand(args[1:], stdout, stderr, getenv)
	case "watch":
		return runWatchCommand(ctx, args[1:], stdout, stderr, getenv)
	case "repl":
		return runReplCommand(args[1:], stdout, stderr, getenv)
	case "history":
		return runHistoryCommand(args[1:], stdout, stderr, getenv)
	case "help", "-h", "--help", "-help":
		printUsage(stdout)
		return nil
	case "version", "--version", "-version", "-V":
		fmt.Fprintf(stdout, "sage version %s (%s)\n", Version, Commit)
		return nil
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `sage - Tag helper rewriting for Razor-style templates

Usage:
  sage <command> [options] [args]

Commands:
  check [paths...]     Rewrite templates and report diagnostics
  dump <file>          Print the rewritten tree of one template
  describe <tag>       Show the tag helpers registered for a tag
  watch [paths...]     Re-check templates whenever they change
  repl                 Rewrite snippets interactively
  history [file]       Show recorded check runs
  version              Show version
  help                 Show this help

Common Options:
  --config PATH        Path to config file (default: auto-detect)
  --registry PATH      Tag helper descriptor file (repeatable, adds to config)
  --prefix PREFIX      Tag prefix that marks tag helpers (e.g. "th:")
  --verbose            Log at debug level

Config Resolution:
  1. --config flag
  2. SAGE_CONFIG environment variable
  3. ./sage.yaml
  4. ~/.config/sage/sage.yaml
  Without a config file the defaults are used.

Exit Status:
  0  no diagnostics
  1  the command failed
  2  check or dump reported diagnostics

Examples:
  sage check views/                          Check every template under views/
  sage check --json page.cshtml              Report diagnostics as JSON
  sage dump --normalized page.cshtml         Show the page with tag helpers rewritten
  sage describe --html input > input.html    Render descriptor docs as HTML
  sage watch --registry mvc.yaml.gz views/   Re-check on every save

`)
}

// commonFlags are accepted by every command that builds an engine
type commonFlags struct {
	configPath string
	registries []string
	prefix     string
	verbose    bool
}

func (c *commonFlags) register(flags *flag.FlagSet) {
	flags.StringVar(&c.configPath, "config", "", "Path to config file")
	flags.Func("registry", "Tag helper descriptor file (repeatable)", func(s string) error {
		c.registries = append(c.registries, s)
		return nil
	})
	flags.StringVar(&c.prefix, "prefix", "", "Tag helper prefix")
	flags.BoolVar(&c.verbose, "verbose", false, "Log at debug level")
}

// parseFlags parses args, printing usage for -h and flag errors. Flags may
// follow positional arguments.
func parseFlags(flags *flag.FlagSet, args []string, stdout, stderr io.Writer) (bool, error) {
	flags.SetOutput(io.Discard)
	var positional []string
	for {
		if err := flags.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				printUsage(stdout)
				return false, nil
			}
			printUsage(stderr)
			return false, err
		}
		if flags.NArg() == 0 {
			break
		}
		positional = append(positional, flags.Arg(0))
		args = flags.Args()[1:]
	}
	// Re-parse with the positional arguments only so flags.Args sees them.
	flags.Parse(append([]string{"--"}, positional...))
	return true, nil
}

// env is everything a command needs once config is loaded
type env struct {
	cfg        *config.Config
	configFile string
	logger     sage.Logger
	engine     *sage.Engine
	closeLog   func() error
}

// loadEnv loads config, applies CLI overrides, and builds the engine.
func loadEnv(common *commonFlags, stdout, stderr io.Writer, getenv func(string) string) (*env, error) {
	cfg, configFile, err := config.LoadWithPath(common.configPath, getenv)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	// Apply CLI overrides
	cfg.Registry.Files = append(cfg.Registry.Files, common.registries...)
	if common.prefix != "" {
		cfg.Registry.Prefix = common.prefix
	}
	if common.verbose {
		cfg.Logging.Level = "debug"
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	logger, closeLog, err := buildLogger(cfg.Logging, stdout, stderr)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, configFile: configFile, logger: logger, closeLog: closeLog}
	if err := e.buildEngine(); err != nil {
		closeLog()
		return nil, err
	}
	if configFile != "" {
		logger.LogLine(sage.LevelDebug, "config: "+configFile)
	}
	return e, nil
}

// buildEngine (re)loads the registry and creates a fresh engine.
func (e *env) buildEngine() error {
	registry, err := sage.LoadRegistry(e.cfg.Registry.Prefix, e.cfg.Registry.Files...)
	if err != nil {
		return fmt.Errorf("loading tag helpers: %w", err)
	}
	e.logger.LogLine(sage.LevelDebug, fmt.Sprintf("registry: %d tag helpers from %d files", registry.Len(), len(e.cfg.Registry.Files)))

	e.engine = sage.New(registry, &sage.Options{
		Rewrite: &rewriter.Options{TransitionTag: e.cfg.Rewrite.TransitionTag},
		Logger:  e.logger,
		Workers: e.cfg.Check.Workers,
	})
	return nil
}

// openHistory opens the history database configured for this env.
func (e *env) openHistory() (*history.History, error) {
	maxSize, _ := config.ParseSize(e.cfg.History.MaxSize)
	h, err := history.Open(e.cfg.BaseDir, history.Config{
		Path:        e.cfg.History.Path,
		MaxSize:     maxSize,
		TruncatePct: e.cfg.History.TruncatePct,
	})
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	return h, nil
}

func (e *env) close() {
	if e.closeLog != nil {
		e.closeLog()
	}
}

// buildLogger creates the logger described by cfg.
func buildLogger(cfg config.LoggingConfig, stdout, stderr io.Writer) (sage.Logger, func() error, error) {
	level, err := sage.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer
	closeFn := func() error { return nil }
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		w = stderr
	case "stdout":
		w = stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		w = f
		closeFn = f.Close
	}

	var logger sage.Logger
	if cfg.Format == "json" {
		logger = sage.JSONLogger(w)
	} else {
		logger = sage.WriterLogger(w)
	}
	return sage.FilterLogger(logger, level), closeFn, nil
}
