package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/sambeau/sage/config"
	"github.com/sambeau/sage/pkg/sage"
	sageerrors "github.com/sambeau/sage/pkg/sage/errors"
	"github.com/sambeau/sage/pkg/sage/history"
)

// fileReport is one checked file in --json output
type fileReport struct {
	File        string                   `json:"file"`
	TagHelpers  int                      `json:"tagHelpers"`
	Recovered   int                      `json:"recovered"`
	Diagnostics []*sageerrors.Diagnostic `json:"diagnostics"`
}

func runCheckCommand(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("sage check", flag.ContinueOnError)
	var common commonFlags
	common.register(flags)
	var (
		jsonOutput = flags.Bool("json", false, "Report diagnostics as JSON")
		quiet      = flags.Bool("quiet", false, "Only print diagnostics, no summary")
		pretty     = flags.Bool("pretty", false, "Show source context (default when stdout is a terminal)")
		plain      = flags.Bool("plain", false, "One line per diagnostic")
	)
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
	if len(paths) == 0 {
		return fmt.Errorf("no templates found (extensions: %s)", strings.Join(e.cfg.Check.Extensions, ", "))
	}

	start := time.Now()
	results, err := e.engine.ProcessFiles(ctx, paths)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if e.cfg.History.Enabled {
		if err := recordResults(e, results); err != nil {
			e.logger.LogLine(sage.LevelWarn, err.Error())
		}
	}

	if *jsonOutput {
		if err := writeJSONReport(stdout, results); err != nil {
			return err
		}
	} else {
		usePretty := *pretty || (!*plain && isTerminal(stdout))
		for _, res := range results {
			printDiagnostics(stdout, res, usePretty)
		}
		if !*quiet {
			printSummary(stdout, results, elapsed)
		}
	}

	for _, res := range results {
		if res.HasDiagnostics() {
			return errDiagnostics
		}
	}
	return nil
}

// collectFiles expands roots into template files. Files named explicitly are
// kept whatever their extension; directories are walked for matching files,
// skipping hidden directories.
func collectFiles(roots []string, extensions config.StringOrSlice) ([]string, error) {
	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = true
	}

	var paths []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		var found []string
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") && path != root {
					return filepath.SkipDir
				}
				return nil
			}
			if exts[strings.ToLower(filepath.Ext(path))] {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}
		sort.Strings(found)
		for _, p := range found {
			add(p)
		}
	}
	return paths, nil
}

func recordResults(e *env, results []*sage.Result) error {
	h, err := e.openHistory()
	if err != nil {
		return err
	}
	defer h.Close()

	for _, res := range results {
		if err := recordResult(h, res); err != nil {
			return err
		}
	}
	return nil
}

func recordResult(h *history.History, res *sage.Result) error {
	_, err := h.Record(history.Run{
		File:        res.Name,
		TagHelpers:  res.Stats.TagHelpers,
		Recovered:   res.Stats.Recovered,
		Diagnostics: res.Diagnostics,
	})
	return err
}

func writeJSONReport(w io.Writer, results []*sage.Result) error {
	reports := make([]fileReport, len(results))
	for i, res := range results {
		reports[i] = fileReport{
			File:        res.Name,
			TagHelpers:  res.Stats.TagHelpers,
			Recovered:   res.Stats.Recovered,
			Diagnostics: res.Diagnostics,
		}
		if reports[i].Diagnostics == nil {
			reports[i].Diagnostics = []*sageerrors.Diagnostic{}
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

// printDiagnostics writes the diagnostics of one result, either one line
// each or with the offending source line and a pointer.
func printDiagnostics(w io.Writer, res *sage.Result, pretty bool) {
	if !pretty {
		for _, d := range res.Diagnostics {
			fmt.Fprintf(w, "%s:%d:%d: %s %s\n", d.File, d.Line, d.Column, d.Code, d.Message)
		}
		return
	}

	lines := strings.Split(res.Source, "\n")
	for _, d := range res.Diagnostics {
		fmt.Fprintln(w, d.PrettyString())
		printSourceContext(w, lines, d.Line, d.Column)
		fmt.Fprintln(w)
	}
}

// printSourceContext prints the source line and error pointer
func printSourceContext(w io.Writer, lines []string, lineNum, colNum int) {
	if lineNum <= 0 || lineNum > len(lines) {
		return
	}

	sourceLine := strings.TrimRight(lines[lineNum-1], "\r")

	// Calculate how many columns to trim from the left
	trimCount := 0
	for i := 0; i < len(sourceLine); i++ {
		if sourceLine[i] == '\t' {
			trimCount += 8
		} else if sourceLine[i] == ' ' {
			trimCount++
		} else {
			break
		}
	}

	fmt.Fprintf(w, "    %s\n", strings.TrimLeft(sourceLine, " \t"))

	if colNum > 0 {
		// Visual column, counting tabs as 8
		visualCol := 0
		for i := 0; i < colNum-1 && i < len(sourceLine); i++ {
			if sourceLine[i] == '\t' {
				visualCol += 8
			} else {
				visualCol++
			}
		}
		adjustedCol := max(visualCol-trimCount, 0)
		fmt.Fprintf(w, "    %s^\n", strings.Repeat(" ", adjustedCol))
	}
}

func printSummary(w io.Writer, results []*sage.Result, elapsed time.Duration) {
	var helpers, recovered, diags, failed int
	var bytes uint64
	for _, res := range results {
		helpers += res.Stats.TagHelpers
		recovered += res.Stats.Recovered
		diags += len(res.Diagnostics)
		bytes += uint64(len(res.Source))
		if res.HasDiagnostics() {
			failed++
		}
	}

	fmt.Fprintf(w, "Checked %s (%s) in %s: %s, %s recovered, %s in %s\n",
		plural(len(results), "file"),
		humanize.Bytes(bytes),
		elapsed.Round(time.Millisecond),
		plural(helpers, "tag helper"),
		humanize.Comma(int64(recovered)),
		plural(diags, "diagnostic"),
		plural(failed, "file"),
	)
}

func plural(n int, noun string) string {
	s := humanize.Comma(int64(n)) + " " + noun
	if n != 1 {
		s += "s"
	}
	return s
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
