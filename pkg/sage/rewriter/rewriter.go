// Package rewriter turns element tags that match tag helper descriptors into
// TagHelperBlock nodes.
//
// The tree is rebuilt bottom-up. Every block being rebuilt and every tag
// helper whose end tag has not been seen yet owns a frame on a single stack;
// children are appended to the top frame. Closing a tag helper pops its
// frame and appends the finished node to the frame below.
//
// Malformed input never stops a rewrite. Tag helpers left open when their
// enclosing block ends, or skipped over by a later end tag, are closed with
// whatever children they collected, and a diagnostic is reported.
package rewriter

import (
	"fmt"
	"strings"

	"github.com/sambeau/sage/pkg/sage/errors"
	"github.com/sambeau/sage/pkg/sage/syntax"
	"github.com/sambeau/sage/pkg/sage/taghelper"
)

// DefaultTransitionTag is the pseudo-tag the parser uses to switch from code
// back to markup.
const DefaultTransitionTag = "text"

// Options configures a Rewriter.
type Options struct {
	// TransitionTag is the name of the transition pseudo-tag.
	TransitionTag string

	// IsTransition reports whether a tag is the transition pseudo-tag rather
	// than markup. first is the tag's first span. The default matches
	// TransitionTag case-insensitively when first is a transition span.
	IsTransition func(tagName string, first *syntax.Span) bool
}

// DefaultOptions returns the default rewriter options.
func DefaultOptions() *Options {
	return &Options{TransitionTag: DefaultTransitionTag}
}

// Stats counts what a rewrite did.
type Stats struct {
	TagHelpers int // tag helper nodes produced
	Recovered  int // tag helpers closed early plus stray end tags
}

type frame struct {
	helper   *tagHelperBuilder // nil for a block being rebuilt
	typ      syntax.BlockType
	gen      syntax.Generator
	children []syntax.Node
}

// Rewriter rewrites parse trees. It keeps per-rewrite state, so a Rewriter
// must not be used by two goroutines at once; separate Rewriters may run in
// parallel.
type Rewriter struct {
	provider taghelper.Provider
	sink     errors.Sink
	opts     Options

	frames []*frame
	stats  Stats
}

// New creates a Rewriter. A nil opts uses DefaultOptions.
func New(provider taghelper.Provider, sink errors.Sink, opts *Options) *Rewriter {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts
	if o.TransitionTag == "" {
		o.TransitionTag = DefaultTransitionTag
	}
	if o.IsTransition == nil {
		tag := o.TransitionTag
		o.IsTransition = func(tagName string, first *syntax.Span) bool {
			return strings.EqualFold(tagName, tag) && first.Kind == syntax.TransitionKind
		}
	}
	return &Rewriter{provider: provider, sink: sink, opts: o}
}

// Rewrite is a convenience for New(provider, sink, opts).Rewrite(root).
func Rewrite(root *syntax.Block, provider taghelper.Provider, sink errors.Sink, opts *Options) *syntax.Block {
	return New(provider, sink, opts).Rewrite(root)
}

// Rewrite returns a copy of root with tag helpers substituted for the tags
// they match. root is not modified.
func (r *Rewriter) Rewrite(root *syntax.Block) *syntax.Block {
	r.frames = r.frames[:0]
	r.stats = Stats{}
	out := r.rewriteLevel(root)
	if len(r.frames) != 0 {
		panic(fmt.Sprintf("rewriter: %d frames left open after rewrite", len(r.frames)))
	}
	return out
}

// Stats returns the counts for the most recent Rewrite.
func (r *Rewriter) Stats() Stats {
	return r.stats
}

func (r *Rewriter) rewriteLevel(block *syntax.Block) *syntax.Block {
	r.push(&frame{typ: block.Type, gen: block.Generator})
	baseline := len(r.frames) - 1

	for _, child := range block.Children {
		switch c := child.(type) {
		case *syntax.Block:
			if c.Type == syntax.TagBlock {
				r.rewriteTag(c, baseline)
			} else {
				r.append(r.rewriteLevel(c))
			}
		default:
			r.append(child)
		}
	}

	for len(r.frames)-1 > baseline {
		r.forceClose()
	}

	f := r.pop()
	if f.helper != nil {
		panic("rewriter: level frame holds a tag helper")
	}
	return &syntax.Block{Type: f.typ, Generator: f.gen, Children: f.children}
}

// rewriteTag handles a Tag block met at the level whose frame is at
// baseline.
func (r *Rewriter) rewriteTag(tag *syntax.Block, baseline int) {
	name, ok := syntax.TagName(tag)
	if !ok {
		r.append(tag)
		return
	}

	if r.opts.IsTransition(name, tag.Children[0].(*syntax.Span)) {
		r.append(tag)
		return
	}

	descriptors := r.provider.TagHelpers(name)
	if len(descriptors) == 0 {
		r.append(tag)
		return
	}

	if !syntax.IsEndTag(tag) {
		valid := r.validTagStructure(name, tag)
		b := newTagHelperBuilder(name, tag, valid, descriptors, r.sink)
		r.push(&frame{helper: b, typ: syntax.TagHelperBlockType, gen: syntax.TagHelperGenerator{}})
		if b.selfClosing {
			r.close(nil)
		}
		return
	}

	top := len(r.frames) - 1
	if top > baseline && taghelper.SameTag(r.frames[top].helper.tagName, name) {
		r.validTagStructure(name, tag)
		r.close(tag)
		return
	}

	for i := top - 1; i > baseline; i-- {
		if !taghelper.SameTag(r.frames[i].helper.tagName, name) {
			continue
		}
		for len(r.frames)-1 > i {
			r.forceClose()
		}
		r.validTagStructure(name, tag)
		r.close(tag)
		return
	}

	// No start tag for this end tag in scope; keep it as markup.
	r.sink.OnError(tag.Pos(), errors.MalformedTagHelper, map[string]any{"Tag": name})
	r.stats.Recovered++
	r.append(tag)
}

// validTagStructure reports whether tag ends in a close angle, reporting a
// diagnostic if it does not.
func (r *Rewriter) validTagStructure(name string, tag *syntax.Block) bool {
	if last, ok := tag.Children[len(tag.Children)-1].(*syntax.Span); ok && last.Kind == syntax.Markup {
		if n := len(last.Symbols); n > 0 && last.Symbols[n-1].Type == syntax.CloseAngle {
			return true
		}
	}
	r.sink.OnError(tag.Pos(), errors.MissingCloseAngle, map[string]any{"Tag": name})
	return false
}

// close finishes the tag helper on top of the stack and appends it to its
// parent.
func (r *Rewriter) close(endTag *syntax.Block) {
	f := r.pop()
	if f.helper == nil {
		panic("rewriter: closing a tag helper that was never opened")
	}
	r.stats.TagHelpers++
	r.append(f.helper.build(f.children, endTag))
}

// forceClose closes the top tag helper without an end tag.
func (r *Rewriter) forceClose() {
	f := r.frames[len(r.frames)-1]
	if f.helper == nil {
		panic("rewriter: closing a tag helper that was never opened")
	}
	r.sink.OnError(f.helper.start, errors.MalformedTagHelper, map[string]any{"Tag": f.helper.tagName})
	r.stats.Recovered++
	r.close(nil)
}

func (r *Rewriter) push(f *frame) {
	r.frames = append(r.frames, f)
}

func (r *Rewriter) pop() *frame {
	if len(r.frames) == 0 {
		panic("rewriter: pop from empty frame stack")
	}
	f := r.frames[len(r.frames)-1]
	r.frames[len(r.frames)-1] = nil
	r.frames = r.frames[:len(r.frames)-1]
	return f
}

func (r *Rewriter) append(n syntax.Node) {
	if len(r.frames) == 0 {
		panic("rewriter: append with no open frame")
	}
	f := r.frames[len(r.frames)-1]
	f.children = append(f.children, n)
}
