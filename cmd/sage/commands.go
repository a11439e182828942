package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/sambeau/sage/pkg/sage"
	"github.com/sambeau/sage/pkg/sage/repl"
	"github.com/sambeau/sage/pkg/sage/taghelper"
	"github.com/sambeau/sage/pkg/sage/watch"
)

// runDumpCommand prints one template after rewriting
func runDumpCommand(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("sage dump", flag.ContinueOnError)
	var common commonFlags
	common.register(flags)
	var (
		source     = flags.Bool("source", false, "Print the source rebuilt from the tree")
		normalized = flags.Bool("normalized", false, "Print tag helpers written out from their attributes")
		eval       = flags.String("e", "", "Dump a template snippet instead of a file")
	)
	if ok, err := parseFlags(flags, args, stdout, stderr); !ok {
		return err
	}

	if *eval == "" && flags.NArg() != 1 {
		return fmt.Errorf("usage: sage dump [--source|--normalized] <file> | -e <snippet>")
	}

	e, err := loadEnv(&common, stdout, stderr, getenv)
	if err != nil {
		return err
	}
	defer e.close()

	var res *sage.Result
	if *eval != "" {
		res = e.engine.Process("<snippet>", *eval)
	} else {
		res, err = e.engine.ProcessFile(flags.Arg(0))
		if err != nil {
			return err
		}
	}

	switch {
	case *source:
		io.WriteString(stdout, res.Source)
	case *normalized:
		io.WriteString(stdout, res.Normalized())
	default:
		io.WriteString(stdout, res.Tree())
	}

	for _, d := range res.Diagnostics {
		fmt.Fprintln(stderr, d.PrettyString())
	}
	if res.HasDiagnostics() {
		return errDiagnostics
	}
	return nil
}

// runDescribeCommand shows the descriptors registered for a tag
func runDescribeCommand(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("sage describe", flag.ContinueOnError)
	var common commonFlags
	common.register(flags)
	var (
		html = flags.Bool("html", false, "Render as HTML")
		list = flags.Bool("list", false, "List every registered tag")
	)
	if ok, err := parseFlags(flags, args, stdout, stderr); !ok {
		return err
	}

	e, err := loadEnv(&common, stdout, stderr, getenv)
	if err != nil {
		return err
	}
	defer e.close()

	registry := e.engine.Registry()
	if *list || flags.NArg() == 0 {
		if registry.Len() == 0 {
			fmt.Fprintln(stdout, "No tag helpers registered.")
			return nil
		}
		for _, tag := range registry.Tags() {
			fmt.Fprintf(stdout, "%s%s\n", registry.Prefix(), tag)
		}
		return nil
	}

	tag := flags.Arg(0)
	ds, diag := e.engine.Describe(tag)
	if diag != nil {
		fmt.Fprintln(stderr, diag.PrettyString())
		return fmt.Errorf("unknown tag: %s", tag)
	}

	if *html {
		return taghelper.RenderHTML(stdout, tag, ds)
	}
	_, err = io.WriteString(stdout, taghelper.Markdown(tag, ds))
	return err
}

// runWatchCommand checks templates, then re-checks each one as it changes.
// Descriptor files are watched too; a change reloads the registry.
func runWatchCommand(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("sage watch", flag.ContinueOnError)
	var common commonFlags
	common.register(flags)
	if ok, err := parseFlags(flags, args, stdout, stderr); !ok {
		return err
	}

	e, err := loadEnv(&common, stdout, stderr, getenv)
	if err != nil {
		return err
	}
	defer e.close()

	roots := flags.Args()
	if len(roots) == 0 {
		roots = []string{"."}
	}

	paths, err := collectFiles(roots, e.cfg.Check.Extensions)
	if err != nil {
		return err
	}
	results, err := e.engine.ProcessFiles(ctx, paths)
	if err != nil {
		return err
	}

	pretty := isTerminal(stdout)
	for _, res := range results {
		printDiagnostics(stdout, res, pretty)
	}
	if e.cfg.History.Enabled {
		if err := recordResults(e, results); err != nil {
			e.logger.LogLine(sage.LevelWarn, err.Error())
		}
	}

	descriptors := make(map[string]bool)
	for _, f := range e.cfg.Registry.Files {
		if abs, err := filepath.Abs(f); err == nil {
			descriptors[abs] = true
		}
	}

	check := func(path string) {
		if descriptors[path] {
			if err := e.buildEngine(); err != nil {
				e.logger.LogLine(sage.LevelError, err.Error())
				return
			}
			e.logger.LogLine(sage.LevelInfo, "reloaded tag helpers from "+path)
			return
		}

		res, err := e.engine.ProcessFile(path)
		if err != nil {
			e.logger.LogLine(sage.LevelError, err.Error())
			return
		}
		if res.HasDiagnostics() {
			printDiagnostics(stdout, res, pretty)
		} else {
			fmt.Fprintf(stdout, "%s: ok (%s)\n", path, plural(len(res.TagHelpers), "tag helper"))
		}
		if e.cfg.History.Enabled {
			if err := recordResults(e, []*sage.Result{res}); err != nil {
				e.logger.LogLine(sage.LevelWarn, err.Error())
			}
		}
	}

	watched := append(append([]string{}, roots...), e.cfg.Registry.Files...)
	w, err := watch.New(watched, &watch.Options{
		Extensions: e.cfg.Check.Extensions,
		Debounce:   e.cfg.Watch.Debounce,
		Logger:     e.logger,
	}, check)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Watching %s for changes (Ctrl+C to stop)\n", plural(len(paths), "template"))
	return w.Run(ctx)
}

// runReplCommand starts the interactive shell
func runReplCommand(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("sage repl", flag.ContinueOnError)
	var common commonFlags
	common.register(flags)
	if ok, err := parseFlags(flags, args, stdout, stderr); !ok {
		return err
	}

	e, err := loadEnv(&common, stdout, stderr, getenv)
	if err != nil {
		return err
	}
	defer e.close()

	repl.Start(stdout, e.engine, Version)
	return nil
}

// runHistoryCommand lists recorded check runs
func runHistoryCommand(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("sage history", flag.ContinueOnError)
	var common commonFlags
	common.register(flags)
	var (
		limit     = flags.Int("limit", 20, "Maximum number of runs to show")
		clearRuns = flags.Bool("clear", false, "Delete recorded runs")
		full      = flags.Bool("diagnostics", false, "Show the diagnostics of each run")
	)
	if ok, err := parseFlags(flags, args, stdout, stderr); !ok {
		return err
	}

	e, err := loadEnv(&common, stdout, stderr, getenv)
	if err != nil {
		return err
	}
	defer e.close()

	h, err := e.openHistory()
	if err != nil {
		return err
	}
	defer h.Close()

	file := ""
	if flags.NArg() > 0 {
		file = flags.Arg(0)
	}

	if *clearRuns {
		n, err := h.Count(file)
		if err != nil {
			return err
		}
		if err := h.Clear(file); err != nil {
			return fmt.Errorf("clearing history: %w", err)
		}
		fmt.Fprintf(stdout, "Deleted %s.\n", plural(n, "run"))
		return nil
	}

	runs, err := h.Runs(file, *limit)
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "No runs recorded.")
		return nil
	}

	fmt.Fprintf(stdout, "%-6s %-16s %-8s %-8s %-6s %s\n", "ID", "CHECKED", "HELPERS", "RECOVER", "DIAGS", "FILE")
	fmt.Fprintln(stdout, strings.Repeat("-", 80))
	for _, r := range runs {
		fmt.Fprintf(stdout, "%-6d %-16s %-8d %-8d %-6d %s\n",
			r.ID, humanize.Time(r.CheckedAt), r.TagHelpers, r.Recovered, len(r.Diagnostics), r.File)
		if *full {
			for _, d := range r.Diagnostics {
				fmt.Fprintf(stdout, "       %d:%d %s %s\n", d.Line, d.Column, d.Code, d.Message)
			}
		}
	}

	total, err := h.Count(file)
	if err != nil {
		return err
	}
	size := "unknown size"
	if info, err := os.Stat(h.Path()); err == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}
	fmt.Fprintf(stdout, "\nShowing %d of %s (%s)\n", len(runs), plural(total, "run"), size)
	return nil
}
