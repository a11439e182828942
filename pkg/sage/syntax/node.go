package syntax

import (
	"strings"

	"github.com/sambeau/sage/pkg/sage/taghelper"
)

// Node is any node in the parse tree: *Span, *Block or *TagHelperBlock.
type Node interface {
	Pos() Location
	node()
}

// SpanKind says what a span's text is.
type SpanKind int

const (
	Markup SpanKind = iota
	CodeKind
	TransitionKind
)

func (k SpanKind) String() string {
	switch k {
	case Markup:
		return "Markup"
	case CodeKind:
		return "Code"
	case TransitionKind:
		return "Transition"
	default:
		return "Unknown"
	}
}

// BlockType is the structural type of a block.
type BlockType int

const (
	MarkupBlock BlockType = iota
	TagBlock
	ExpressionBlock
	StatementBlock
	CommentBlock
	TagHelperBlockType
)

func (t BlockType) String() string {
	switch t {
	case MarkupBlock:
		return "Markup"
	case TagBlock:
		return "Tag"
	case ExpressionBlock:
		return "Expression"
	case StatementBlock:
		return "Statement"
	case CommentBlock:
		return "Comment"
	case TagHelperBlockType:
		return "TagHelper"
	default:
		return "Unknown"
	}
}

// Span is a leaf: a contiguous run of source symbols.
type Span struct {
	Kind      SpanKind
	Start     Location
	Symbols   []Symbol
	Generator Generator
}

func (s *Span) Pos() Location { return s.Start }
func (*Span) node()           {}

// Content returns the source text of the span.
func (s *Span) Content() string {
	var sb strings.Builder
	for _, sym := range s.Symbols {
		sb.WriteString(sym.Content)
	}
	return sb.String()
}

// Block is a composite node.
type Block struct {
	Type      BlockType
	Generator Generator
	Children  []Node
}

// Pos returns the position of the first child, or Zero for an empty block.
func (b *Block) Pos() Location {
	if len(b.Children) == 0 {
		return Zero
	}
	return b.Children[0].Pos()
}
func (*Block) node() {}

// Attribute is a named tag helper attribute. Value is a *Span for plain
// values and a *Block when the value mixes in code.
type Attribute struct {
	Name  string
	Value Node
}

// TagHelperBlock is an element rewritten into a tag helper. It is built once
// by the rewriter and not modified afterwards.
type TagHelperBlock struct {
	TagName     string
	Descriptors []*taghelper.Descriptor
	Attributes  []Attribute
	SelfClosing bool
	Start       Location

	// SourceStartTag and SourceEndTag are the unrewritten tag blocks, kept
	// for diagnostics and formatting. SourceEndTag is nil for self-closing
	// and force-closed tag helpers.
	SourceStartTag *Block
	SourceEndTag   *Block

	Children  []Node
	Generator Generator
}

func (t *TagHelperBlock) Pos() Location { return t.Start }
func (*TagHelperBlock) node()           {}

// Attribute returns the value of the named attribute. Names are compared
// case-insensitively.
func (t *TagHelperBlock) Attribute(name string) (Node, bool) {
	for _, a := range t.Attributes {
		if strings.EqualFold(a.Name, name) {
			return a.Value, true
		}
	}
	return nil, false
}

// Content returns the source text covered by n. Tag helpers are rendered
// from their source start and end tags.
func Content(n Node) string {
	var sb strings.Builder
	writeContent(&sb, n)
	return sb.String()
}

func writeContent(sb *strings.Builder, n Node) {
	switch n := n.(type) {
	case *Span:
		sb.WriteString(n.Content())
	case *Block:
		for _, c := range n.Children {
			writeContent(sb, c)
		}
	case *TagHelperBlock:
		if n.SourceStartTag != nil {
			writeContent(sb, n.SourceStartTag)
		}
		for _, c := range n.Children {
			writeContent(sb, c)
		}
		if n.SourceEndTag != nil {
			writeContent(sb, n.SourceEndTag)
		}
	}
}

// FirstSpan returns the first descendant span of n, or nil.
func FirstSpan(n Node) *Span {
	switch n := n.(type) {
	case *Span:
		return n
	case *Block:
		for _, c := range n.Children {
			if s := FirstSpan(c); s != nil {
				return s
			}
		}
	case *TagHelperBlock:
		if n.SourceStartTag != nil {
			return FirstSpan(n.SourceStartTag)
		}
	}
	return nil
}

// LastSpan returns the last descendant span of n, or nil.
func LastSpan(n Node) *Span {
	switch n := n.(type) {
	case *Span:
		return n
	case *Block:
		for i := len(n.Children) - 1; i >= 0; i-- {
			if s := LastSpan(n.Children[i]); s != nil {
				return s
			}
		}
	case *TagHelperBlock:
		if n.SourceEndTag != nil {
			return LastSpan(n.SourceEndTag)
		}
		if n.SourceStartTag != nil {
			return LastSpan(n.SourceStartTag)
		}
	}
	return nil
}

// Walk visits n and its descendants depth-first. If fn returns false the
// children of that node are skipped. Attribute values of tag helpers are
// visited before their children.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch n := n.(type) {
	case *Block:
		for _, c := range n.Children {
			Walk(c, fn)
		}
	case *TagHelperBlock:
		for _, a := range n.Attributes {
			Walk(a.Value, fn)
		}
		for _, c := range n.Children {
			Walk(c, fn)
		}
	}
}
