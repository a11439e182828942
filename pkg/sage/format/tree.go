package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sambeau/sage/pkg/sage/syntax"
)

// Tree renders n as an indented outline, one node per line:
//
//	Block Markup
//	  TagHelper p (0:0,0) [PTagHelper]
//	    @class
//	      Span Markup (10:0,10) "btn" gen=Markup
//	    Span Markup (15:0,15) "text" gen=Markup
func Tree(n syntax.Node) string {
	p := NewPrinter()
	p.tree(n)
	return p.String()
}

func (p *Printer) tree(n syntax.Node) {
	switch n := n.(type) {
	case nil:
		p.line("<nil>")
	case *syntax.Span:
		p.line(spanLine(n))
	case *syntax.Block:
		head := "Block " + n.Type.String()
		if n.Generator != nil {
			head += " gen=" + n.Generator.String()
		}
		p.line(head)
		p.indentInc()
		for _, c := range n.Children {
			p.tree(c)
		}
		p.indentDec()
	case *syntax.TagHelperBlock:
		p.line(tagHelperLine(n))
		p.indentInc()
		for _, a := range n.Attributes {
			p.line("@" + a.Name)
			p.indentInc()
			p.tree(a.Value)
			p.indentDec()
		}
		for _, c := range n.Children {
			p.tree(c)
		}
		p.indentDec()
	}
}

func spanLine(s *syntax.Span) string {
	line := fmt.Sprintf("Span %s %s %s", s.Kind, s.Start, strconv.Quote(truncate(s.Content(), MaxContentWidth)))
	if s.Generator != nil {
		line += " gen=" + s.Generator.String()
	}
	return line
}

func tagHelperLine(t *syntax.TagHelperBlock) string {
	var sb strings.Builder
	sb.WriteString("TagHelper ")
	sb.WriteString(t.TagName)
	sb.WriteString(" ")
	sb.WriteString(t.Start.String())
	if t.SelfClosing {
		sb.WriteString(" self-closing")
	} else if t.SourceEndTag == nil {
		sb.WriteString(" unclosed")
	}
	if len(t.Descriptors) > 0 {
		names := make([]string, len(t.Descriptors))
		for i, d := range t.Descriptors {
			names[i] = d.TypeName
		}
		sb.WriteString(" [")
		sb.WriteString(strings.Join(names, ", "))
		sb.WriteString("]")
	}
	return sb.String()
}
