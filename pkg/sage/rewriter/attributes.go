package rewriter

import (
	"strings"

	"github.com/sambeau/sage/pkg/sage/errors"
	"github.com/sambeau/sage/pkg/sage/syntax"
	"github.com/sambeau/sage/pkg/sage/taghelper"
)

// attributeTypes maps lower-cased attribute names to their declared property
// types across every descriptor matched for a tag.
type attributeTypes map[string]string

// newAttributeTypes builds the table from descriptors. When several
// descriptors declare the same attribute the first declaration wins.
func newAttributeTypes(descriptors []*taghelper.Descriptor) attributeTypes {
	types := make(attributeTypes)
	for _, d := range descriptors {
		for _, a := range d.Attributes {
			key := strings.ToLower(a.Name)
			if _, ok := types[key]; !ok {
				types[key] = a.TypeName
			}
		}
	}
	return types
}

// isCode reports whether the value of the named attribute holds code: the
// attribute is declared and bound to a non-string property.
func (t attributeTypes) isCode(name string) bool {
	typeName, ok := t[strings.ToLower(name)]
	return ok && typeName != taghelper.StringType
}

// parseAttribute turns one attribute child of a start tag into a named value.
// On failure a diagnostic is reported and ok is false.
func parseAttribute(tagName string, child syntax.Node, types attributeTypes, sink errors.Sink) (syntax.Attribute, bool) {
	switch n := child.(type) {
	case *syntax.Span:
		return parseSpanAttribute(tagName, n, types, sink)
	case *syntax.Block:
		return parseBlockAttribute(tagName, n, types, sink)
	default:
		sink.OnError(child.Pos(), errors.CodeInDeclaration, map[string]any{"Tag": tagName})
		return syntax.Attribute{}, false
	}
}

// parseSpanAttribute handles attributes written as a single span, such as
// ` class=btn`, ` class="btn"` or a minimized ` checked`.
func parseSpanAttribute(tagName string, span *syntax.Span, types attributeTypes, sink errors.Sink) (syntax.Attribute, bool) {
	var (
		name       string
		haveName   bool
		afterEq    bool
		skipLast   bool
		valueStart = span.Start
		value      []syntax.Symbol
	)

	syms := span.Symbols
	for i := 0; i < len(syms); i++ {
		sym := syms[i]
		switch {
		case afterEq:
			if skipLast && i == len(syms)-1 {
				continue
			}
			if len(value) == 0 {
				valueStart = sym.Start
			}
			value = append(value, sym)
		case sym.Type == syntax.Equals:
			afterEq = true
			valueStart = sym.Start.Advance(sym.Content)
			for i+1 < len(syms) && (syms[i+1].Type == syntax.Whitespace || syms[i+1].Type == syntax.NewLine) {
				i++
				valueStart = syms[i].Start.Advance(syms[i].Content)
			}
			if i+1 < len(syms) && syms[i+1].Type.IsQuote() {
				i++
				skipLast = true
				valueStart = syms[i].Start.Advance(syms[i].Content)
			}
		case !haveName && sym.Type == syntax.Text:
			name = sym.Content
			haveName = true
			valueStart = sym.Start.Advance(sym.Content)
		}
	}

	if !haveName {
		sink.OnError(span.Start, errors.MalformedAttribute, map[string]any{"Tag": tagName})
		return syntax.Attribute{}, false
	}

	v := &syntax.Span{
		Kind:      span.Kind,
		Start:     valueStart,
		Symbols:   value,
		Generator: span.Generator,
	}
	if types.isCode(name) {
		v.Kind = syntax.CodeKind
	}
	return syntax.Attribute{Name: name, Value: v}, true
}

// parseBlockAttribute handles attributes whose value mixes literal text with
// code. The block is [name prefix, value parts..., closing quote].
func parseBlockAttribute(tagName string, block *syntax.Block, types attributeTypes, sink errors.Sink) (syntax.Attribute, bool) {
	if len(block.Children) == 0 {
		sink.OnError(block.Pos(), errors.MalformedAttribute, map[string]any{"Tag": tagName})
		return syntax.Attribute{}, false
	}

	first, ok := block.Children[0].(*syntax.Span)
	if !ok || first.Kind != syntax.Markup {
		sink.OnError(block.Children[0].Pos(), errors.CodeInDeclaration, map[string]any{"Tag": tagName})
		return syntax.Attribute{}, false
	}

	if len(block.Children) == 1 {
		return parseSpanAttribute(tagName, first, types, sink)
	}

	name, ok := firstText(first)
	if !ok {
		sink.OnError(first.Start, errors.MalformedAttribute, map[string]any{"Tag": tagName})
		return syntax.Attribute{}, false
	}

	children := block.Children[1:]
	if last, ok := children[len(children)-1].(*syntax.Span); ok {
		// Malformed values such as `bar="false'` end in a span holding more
		// than the quote; that text belongs to the value.
		if len(last.Symbols) == 1 && last.Symbols[0].Type.IsQuote() {
			children = children[:len(children)-1]
		}
	}

	value := rebuildGenerators(&syntax.Block{
		Type:      block.Type,
		Generator: block.Generator,
		Children:  children,
	})

	var v syntax.Node = value
	if len(value.Children) == 1 {
		if span, ok := value.Children[0].(*syntax.Span); ok {
			v = span
		}
	}
	if types.isCode(name) {
		v = toCode(v)
	}
	return syntax.Attribute{Name: name, Value: v}, true
}

func firstText(span *syntax.Span) (string, bool) {
	for _, sym := range span.Symbols {
		if sym.Type == syntax.Text {
			return sym.Content, true
		}
	}
	return "", false
}

// rebuildGenerators strips attribute-specific code generation from a value
// block so its parts generate as ordinary tag helper content.
func rebuildGenerators(block *syntax.Block) *syntax.Block {
	out := &syntax.Block{
		Type:      block.Type,
		Generator: block.Generator,
		Children:  make([]syntax.Node, len(block.Children)),
	}

	_, dynamic := block.Generator.(syntax.DynamicAttributeGenerator)
	switch block.Generator.(type) {
	case syntax.DynamicAttributeGenerator, syntax.AttributeBlockGenerator:
		out.Generator = nil
	}

	for i, child := range block.Children {
		switch c := child.(type) {
		case *syntax.Block:
			out.Children[i] = rebuildGenerators(c)
		case *syntax.Span:
			var gen syntax.Generator
			if lit, ok := c.Generator.(syntax.LiteralAttributeGenerator); ok {
				gen = lit.ValueGenerator
				if gen == nil {
					gen = syntax.MarkupGenerator{}
				}
			} else if dynamic && c.Generator == nil {
				gen = syntax.MarkupGenerator{}
			}
			if gen != nil {
				copy := *c
				copy.Generator = gen
				out.Children[i] = &copy
			} else {
				out.Children[i] = c
			}
		default:
			out.Children[i] = child
		}
	}
	return out
}

// toCode returns a copy of n whose top-level markup leaves are marked as
// code. Transition markers and nested blocks keep their kinds.
func toCode(n syntax.Node) syntax.Node {
	switch n := n.(type) {
	case *syntax.Span:
		return markupToCode(n)
	case *syntax.Block:
		out := &syntax.Block{
			Type:      n.Type,
			Generator: n.Generator,
			Children:  make([]syntax.Node, len(n.Children)),
		}
		for i, c := range n.Children {
			if span, ok := c.(*syntax.Span); ok {
				out.Children[i] = markupToCode(span)
			} else {
				out.Children[i] = c
			}
		}
		return out
	default:
		return n
	}
}

func markupToCode(span *syntax.Span) *syntax.Span {
	if span.Kind != syntax.Markup {
		return span
	}
	copy := *span
	copy.Kind = syntax.CodeKind
	return &copy
}
