package markup

import (
	"strings"

	"github.com/sambeau/sage/pkg/sage/errors"
	"github.com/sambeau/sage/pkg/sage/syntax"
)

// TextTag is the pseudo-tag that switches a statement block back to markup.
const TextTag = "text"

// Parser builds a syntax tree from template source.
type Parser struct {
	src  string
	pos  int             // end of the text already emitted as spans
	loc  syntax.Location // location of pos
	sink errors.Sink
}

// Parse parses src and returns its root Markup block. Problems are reported
// to sink; the tree always covers the whole of src.
func Parse(src string, sink errors.Sink) *syntax.Block {
	p := &Parser{src: src, sink: sink}
	return &syntax.Block{
		Type:     syntax.MarkupBlock,
		Children: p.parseMarkup(nil),
	}
}

// transition says what an '@' starts.
type transition int

const (
	noTransition transition = iota
	escapedTransition
	implicitTransition
	explicitTransition
	statementTransition
	commentTransition
)

// transitionAt classifies the '@' at i.
func (p *Parser) transitionAt(i int) transition {
	src := p.src
	if i > 0 && isAlnum(src[i-1]) {
		return noTransition // e-mail address
	}
	if i+1 >= len(src) {
		return noTransition
	}
	switch c := src[i+1]; {
	case c == '@':
		return escapedTransition
	case c == '(':
		return explicitTransition
	case c == '{':
		return statementTransition
	case c == '*':
		return commentTransition
	case isIdentStart(c):
		return implicitTransition
	}
	return noTransition
}

// parseMarkup parses markup until the end of input or until stop reports
// true at a position where a new node could begin.
func (p *Parser) parseMarkup(stop func(i int) bool) []syntax.Node {
	var nodes []syntax.Node
	i := p.pos
	flush := func() {
		if i > p.pos {
			nodes = append(nodes, p.span(syntax.Markup, syntax.MarkupGenerator{}, i))
		}
	}

	for i < len(p.src) {
		if stop != nil && stop(i) {
			break
		}
		switch p.src[i] {
		case '<':
			if strings.HasPrefix(p.src[i:], "<!--") {
				flush()
				nodes = append(nodes, p.parseComment())
				i = p.pos
				continue
			}
			if isTagStart(p.src, i) {
				flush()
				tag, name, raw := p.parseTag()
				nodes = append(nodes, tag)
				if raw {
					if text := p.parseRawText(name); text != nil {
						nodes = append(nodes, text)
					}
				}
				i = p.pos
				continue
			}
		case '@':
			if t := p.transitionAt(i); t != noTransition {
				flush()
				nodes = append(nodes, p.parseTransition(t))
				i = p.pos
				continue
			}
		}
		i++
	}
	flush()
	return nodes
}

func (p *Parser) parseComment() syntax.Node {
	start := p.loc
	end := strings.Index(p.src[p.pos+4:], "-->")
	if end < 0 {
		p.sink.OnError(start, errors.UnterminatedComment, nil)
		end = len(p.src)
	} else {
		end = p.pos + 4 + end + 3
	}
	return &syntax.Block{
		Type:     syntax.CommentBlock,
		Children: []syntax.Node{p.span(syntax.Markup, syntax.MarkupGenerator{}, end)},
	}
}

// parseTag parses a start or end tag at p.pos. raw is true for a complete
// script or style start tag, whose content is not markup.
func (p *Parser) parseTag() (tag *syntax.Block, name string, raw bool) {
	src := p.src
	tag = &syntax.Block{Type: syntax.TagBlock}
	gen := syntax.MarkupGenerator{}

	if src[p.pos+1] == '/' {
		nameEnd := scanName(src, p.pos+2)
		name = src[p.pos+2 : nameEnd]
		end := nameEnd
		if j := skipSpace(src, nameEnd); j < len(src) && src[j] == '>' {
			end = j + 1
		}
		tag.Children = append(tag.Children, p.span(syntax.Markup, gen, end))
		return tag, name, false
	}

	nameEnd := scanName(src, p.pos+1)
	name = src[p.pos+1 : nameEnd]

	// A tag without attributes is a single span.
	if j := skipSpace(src, nameEnd); j >= len(src) || src[j] == '<' {
		tag.Children = append(tag.Children, p.span(syntax.Markup, gen, nameEnd))
		return tag, name, false
	} else if end, selfClosing, ok := closerAt(src, j); ok {
		tag.Children = append(tag.Children, p.span(syntax.Markup, gen, end))
		return tag, name, !selfClosing && isRawTextTag(name)
	}

	tag.Children = append(tag.Children, p.span(syntax.Markup, gen, nameEnd))
	for {
		j := skipSpace(src, p.pos)
		if j >= len(src) || src[j] == '<' {
			return tag, name, false
		}
		if end, selfClosing, ok := closerAt(src, j); ok {
			tag.Children = append(tag.Children, p.span(syntax.Markup, gen, end))
			return tag, name, !selfClosing && isRawTextTag(name)
		}
		tag.Children = append(tag.Children, p.parseAttribute(j))
	}
}

// closerAt reports whether a tag closer (">" or "/>") starts at i.
func closerAt(src string, i int) (end int, selfClosing, ok bool) {
	switch {
	case src[i] == '>':
		return i + 1, false, true
	case src[i] == '/' && i+1 < len(src) && src[i+1] == '>':
		return i + 2, true, true
	}
	return 0, false, false
}

// parseAttribute parses one attribute, with its leading whitespace, from
// p.pos. nameStart is the first non-space byte.
func (p *Parser) parseAttribute(nameStart int) syntax.Node {
	src := p.src

	if src[nameStart] == '@' {
		if t := p.transitionAt(nameStart); t == implicitTransition || t == explicitTransition {
			// Code where an attribute should be: <input @checked />.
			dynamic := &syntax.Block{Type: syntax.MarkupBlock}
			if nameStart > p.pos {
				dynamic.Children = append(dynamic.Children, p.span(syntax.Markup, nil, nameStart))
			}
			dynamic.Children = append(dynamic.Children, p.parseTransition(t))
			return &syntax.Block{Type: syntax.MarkupBlock, Children: []syntax.Node{dynamic}}
		}
	}

	nameEnd := scanAttributeName(src, nameStart)
	if nameEnd == nameStart {
		return p.span(syntax.Markup, syntax.MarkupGenerator{}, scanJunk(src, nameStart))
	}
	// Whitespace may surround the '=': <p class = "x">.
	eq := skipSpace(src, nameEnd)
	if eq >= len(src) || src[eq] != '=' {
		return p.span(syntax.Markup, syntax.MarkupGenerator{}, nameEnd)
	}
	if q := skipSpace(src, eq+1); q < len(src) && (src[q] == '"' || src[q] == '\'') {
		return p.parseQuotedAttribute(src[nameStart:nameEnd], q+1, src[q])
	}
	return p.span(syntax.Markup, syntax.MarkupGenerator{}, scanUnquoted(src, skipSpace(src, eq+1)))
}

// parseQuotedAttribute parses ` name="value"` from p.pos. valueStart is the
// byte after the opening quote.
func (p *Parser) parseQuotedAttribute(name string, valueStart int, quote byte) syntax.Node {
	src := p.src
	prefix := syntax.Tagged{Value: src[p.pos:valueStart], Location: p.loc}
	attr := &syntax.Block{Type: syntax.MarkupBlock}
	attr.Children = append(attr.Children, p.span(syntax.Markup, nil, valueStart))

	for p.pos < len(src) && src[p.pos] != quote {
		attr.Children = append(attr.Children, p.parseValuePart(quote))
	}

	gen := syntax.AttributeBlockGenerator{Name: name, Prefix: prefix}
	if p.pos < len(src) {
		gen.Suffix = syntax.Tagged{Value: string(quote), Location: p.loc}
		attr.Children = append(attr.Children, p.span(syntax.Markup, nil, p.pos+1))
	} else {
		p.sink.OnError(prefix.Location, errors.UnterminatedValue, map[string]any{
			"Name":  name,
			"Quote": string(quote),
		})
	}
	attr.Generator = gen
	return attr
}

// parseValuePart parses one piece of a quoted attribute value: whitespace
// followed by a word, an escaped '@', or a code expression.
func (p *Parser) parseValuePart(quote byte) syntax.Node {
	src := p.src
	ws := skipSpace(src, p.pos)
	prefix := syntax.Tagged{Value: src[p.pos:ws], Location: p.loc}

	if ws < len(src) && src[ws] == '@' {
		switch t := p.transitionAt(ws); t {
		case escapedTransition:
			escaped := &syntax.Block{Type: syntax.MarkupBlock}
			value := syntax.Tagged{Value: "@", Location: p.locAt(ws)}
			escaped.Children = append(escaped.Children,
				p.span(syntax.Markup, syntax.LiteralAttributeGenerator{Prefix: prefix, Value: value}, ws+1),
				p.span(syntax.Markup, nil, ws+2))
			return escaped
		case implicitTransition, explicitTransition:
			dynamic := &syntax.Block{Type: syntax.MarkupBlock}
			dynamic.Generator = syntax.DynamicAttributeGenerator{Prefix: prefix, ValueStart: p.locAt(ws)}
			if ws > p.pos {
				dynamic.Children = append(dynamic.Children, p.span(syntax.Markup, nil, ws))
			}
			dynamic.Children = append(dynamic.Children, p.parseTransition(t))
			return dynamic
		}
	}

	end := ws
	for end < len(src) && src[end] != quote && !isSpace(src[end]) {
		if src[end] == '@' && end > ws && p.transitionAt(end) != noTransition {
			break
		}
		end++
	}
	value := syntax.Tagged{Value: src[ws:end], Location: p.locAt(ws)}
	return p.span(syntax.Markup, syntax.LiteralAttributeGenerator{Prefix: prefix, Value: value}, end)
}

// parseRawText consumes the content of a script or style element.
func (p *Parser) parseRawText(name string) syntax.Node {
	end := indexFold(p.src, "</"+name, p.pos)
	if end < 0 {
		end = len(p.src)
	}
	if end == p.pos {
		return nil
	}
	return p.span(syntax.Markup, syntax.MarkupGenerator{}, end)
}

// parseTransition parses the code construct introduced by the '@' at p.pos.
func (p *Parser) parseTransition(t transition) syntax.Node {
	start := p.loc
	src := p.src

	switch t {
	case escapedTransition:
		return &syntax.Block{
			Type: syntax.MarkupBlock,
			Children: []syntax.Node{
				p.span(syntax.Markup, syntax.MarkupGenerator{}, p.pos+1),
				p.span(syntax.Markup, nil, p.pos+1),
			},
		}

	case commentTransition:
		end := strings.Index(src[p.pos+2:], "*@")
		if end < 0 {
			p.sink.OnError(start, errors.UnterminatedComment, nil)
			end = len(src)
		} else {
			end = p.pos + 2 + end + 2
		}
		return &syntax.Block{
			Type:     syntax.CommentBlock,
			Children: []syntax.Node{p.span(syntax.Markup, nil, end)},
		}

	case explicitTransition:
		at := p.transitionSpan()
		end, ok := scanBalanced(src, p.pos, '(', ')')
		if !ok {
			p.sink.OnError(start, errors.UnterminatedExpr, map[string]any{"Expected": ")"})
		}
		return &syntax.Block{
			Type:     syntax.ExpressionBlock,
			Children: []syntax.Node{at, p.codeSpan(syntax.ExpressionGenerator{}, end)},
		}

	case implicitTransition:
		at := p.transitionSpan()
		end, missing := p.scanImplicit(p.pos)
		if missing != 0 {
			p.sink.OnError(start, errors.UnterminatedExpr, map[string]any{"Expected": string(missing)})
		}
		return &syntax.Block{
			Type:     syntax.ExpressionBlock,
			Children: []syntax.Node{at, p.codeSpan(syntax.ExpressionGenerator{}, end)},
		}

	case statementTransition:
		return p.parseStatement()
	}

	panic("markup: parseTransition called without a transition")
}

// parseStatement parses @{ ... }. Code is opaque apart from <text> sections,
// which hold markup.
func (p *Parser) parseStatement() syntax.Node {
	start := p.loc
	src := p.src
	block := &syntax.Block{Type: syntax.StatementBlock}
	block.Children = append(block.Children, p.transitionSpan())

	depth := 0
	i := p.pos
	for i < len(src) {
		switch c := src[i]; c {
		case '"', '\'':
			i = skipString(src, i)
			continue
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				block.Children = append(block.Children, p.codeSpan(syntax.StatementGenerator{}, i+1))
				return block
			}
		case '<':
			if hasPrefixFold(src[i:], "<"+TextTag+">") {
				if i > p.pos {
					block.Children = append(block.Children, p.codeSpan(syntax.StatementGenerator{}, i))
				}
				block.Children = append(block.Children, p.parseTextSection())
				i = p.pos
				continue
			}
		}
		i++
	}

	p.sink.OnError(start, errors.UnterminatedBlock, nil)
	if i > p.pos {
		block.Children = append(block.Children, p.codeSpan(syntax.StatementGenerator{}, i))
	}
	return block
}

// parseTextSection parses <text>...</text> inside a statement block. The
// pseudo-tags are marked as transitions so they are never taken for markup.
func (p *Parser) parseTextSection() syntax.Node {
	closeTag := "</" + TextTag + ">"
	section := &syntax.Block{Type: syntax.MarkupBlock}
	section.Children = append(section.Children, &syntax.Block{
		Type:     syntax.TagBlock,
		Children: []syntax.Node{p.span(syntax.TransitionKind, nil, p.pos+len(TextTag)+2)},
	})
	section.Children = append(section.Children, p.parseMarkup(func(i int) bool {
		return hasPrefixFold(p.src[i:], closeTag)
	})...)
	if hasPrefixFold(p.src[p.pos:], closeTag) {
		section.Children = append(section.Children, &syntax.Block{
			Type:     syntax.TagBlock,
			Children: []syntax.Node{p.span(syntax.TransitionKind, nil, p.pos+len(closeTag))},
		})
	}
	return section
}

// scanImplicit returns the end of an implicit expression starting at i:
// an identifier followed by any number of .member, [index] and (call)
// suffixes. missing is the unmatched closing bracket, or 0.
func (p *Parser) scanImplicit(i int) (end int, missing byte) {
	src := p.src
	i = scanIdent(src, i)
	for i < len(src) {
		switch c := src[i]; {
		case c == '.' && i+1 < len(src) && isIdentStart(src[i+1]):
			i = scanIdent(src, i+1)
		case c == '[' || c == '(':
			close := byte(']')
			if c == '(' {
				close = ')'
			}
			end, ok := scanBalanced(src, i, c, close)
			if !ok {
				return end, close
			}
			i = end
		default:
			return i, 0
		}
	}
	return i, 0
}

// span emits src[p.pos:end] as a span of markup symbols.
func (p *Parser) span(kind syntax.SpanKind, gen syntax.Generator, end int) *syntax.Span {
	s := &syntax.Span{
		Kind:      kind,
		Start:     p.loc,
		Symbols:   TokenizeAt(p.src[p.pos:end], p.loc),
		Generator: gen,
	}
	p.advance(end)
	return s
}

// codeSpan emits src[p.pos:end] as a single code symbol.
func (p *Parser) codeSpan(gen syntax.Generator, end int) *syntax.Span {
	s := &syntax.Span{Kind: syntax.CodeKind, Start: p.loc, Generator: gen}
	if end > p.pos {
		s.Symbols = []syntax.Symbol{{Type: syntax.Code, Content: p.src[p.pos:end], Start: p.loc}}
	}
	p.advance(end)
	return s
}

// transitionSpan emits the '@' at p.pos.
func (p *Parser) transitionSpan() *syntax.Span {
	return p.span(syntax.TransitionKind, nil, p.pos+1)
}

func (p *Parser) advance(end int) {
	p.loc = p.loc.Advance(p.src[p.pos:end])
	p.pos = end
}

// locAt returns the location of byte i, which must not be before p.pos.
func (p *Parser) locAt(i int) syntax.Location {
	return p.loc.Advance(p.src[p.pos:i])
}
