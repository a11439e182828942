// Package sage parses Razor-style templates and rewrites the elements that
// match registered tag helpers.
//
// An Engine ties the pieces together: the markup parser builds a syntax
// tree, the rewriter replaces matching tags with tag helper nodes, and every
// problem found along the way is returned as a diagnostic rather than an
// error.
package sage

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/sambeau/sage/pkg/sage/errors"
	"github.com/sambeau/sage/pkg/sage/format"
	"github.com/sambeau/sage/pkg/sage/markup"
	"github.com/sambeau/sage/pkg/sage/rewriter"
	"github.com/sambeau/sage/pkg/sage/syntax"
	"github.com/sambeau/sage/pkg/sage/taghelper"
)

// Options configures an Engine.
type Options struct {
	Rewrite *rewriter.Options // nil uses rewriter.DefaultOptions
	Logger  Logger            // nil discards log output
	Workers int               // files processed at once by ProcessFiles; 0 means GOMAXPROCS
}

// Engine processes documents against a tag helper registry. It is safe for
// concurrent use.
type Engine struct {
	registry *taghelper.Registry
	rewrite  *rewriter.Options
	logger   Logger
	workers  int
}

// Result is the outcome of processing one document.
type Result struct {
	Name        string
	Source      string
	Root        *syntax.Block
	Diagnostics []*errors.Diagnostic
	Stats       rewriter.Stats
	TagHelpers  []*syntax.TagHelperBlock // in document order
	Elapsed     time.Duration
}

// HasDiagnostics reports whether processing found any problems.
func (r *Result) HasDiagnostics() bool {
	return len(r.Diagnostics) > 0
}

// Tree returns the rewritten tree as an indented outline.
func (r *Result) Tree() string {
	return format.Tree(r.Root)
}

// Normalized returns the document with tag helpers written out from their
// rewritten attributes.
func (r *Result) Normalized() string {
	return format.Normalized(r.Root)
}

// New creates an Engine. A nil opts uses the defaults.
func New(registry *taghelper.Registry, opts *Options) *Engine {
	if opts == nil {
		opts = &Options{}
	}
	e := &Engine{
		registry: registry,
		rewrite:  opts.Rewrite,
		logger:   opts.Logger,
		workers:  opts.Workers,
	}
	if e.logger == nil {
		e.logger = NullLogger()
	}
	if e.workers <= 0 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	return e
}

// Registry returns the engine's tag helper registry.
func (e *Engine) Registry() *taghelper.Registry {
	return e.registry
}

// Process parses and rewrites src. name labels diagnostics and log lines.
func (e *Engine) Process(name, src string) *Result {
	start := time.Now()

	var sink errors.ErrorSink
	root := markup.Parse(src, &sink)

	rw := rewriter.New(e.registry, &sink, e.rewrite)
	out := rw.Rewrite(root)

	res := &Result{
		Name:   name,
		Source: src,
		Root:   out,
		Stats:  rw.Stats(),
	}
	for _, d := range sink.Errors() {
		res.Diagnostics = append(res.Diagnostics, d.WithFile(name))
	}
	syntax.Walk(out, func(n syntax.Node) bool {
		if th, ok := n.(*syntax.TagHelperBlock); ok {
			res.TagHelpers = append(res.TagHelpers, th)
		}
		return true
	})
	res.Elapsed = time.Since(start)

	e.logger.LogLine(LevelDebug, fmt.Sprintf("%s: %d tag helpers, %d recovered, %d diagnostics in %s",
		name, res.Stats.TagHelpers, res.Stats.Recovered, len(res.Diagnostics), res.Elapsed))
	return res
}

// ProcessFile reads and processes the file at path.
func (e *Engine) ProcessFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return e.Process(path, string(data)), nil
}

// ProcessFiles processes paths concurrently and returns their results in
// the same order. It stops at the first file that cannot be read or when ctx
// is cancelled.
func (e *Engine) ProcessFiles(ctx context.Context, paths []string) ([]*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]*Result, len(paths))
	sem := make(chan struct{}, e.workers)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

loop:
	for i, path := range paths {
		select {
		case <-ctx.Done():
			break loop
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}
			res, err := e.ProcessFile(path)
			if err != nil {
				fail(err)
				return
			}
			results[i] = res
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Describe returns the descriptors registered for tagName. When there are
// none it returns an undefined tag helper diagnostic suggesting the closest
// registered tag.
func (e *Engine) Describe(tagName string) ([]*taghelper.Descriptor, *errors.Diagnostic) {
	if ds := e.registry.TagHelpers(tagName); len(ds) > 0 {
		return ds, nil
	}
	known := e.registry.Tags()
	if p := e.registry.Prefix(); p != "" {
		for i, t := range known {
			known[i] = p + t
		}
	}
	return nil, errors.NewUnknownTag(tagName, known)
}
