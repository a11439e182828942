package format

import (
	"github.com/sambeau/sage/pkg/sage/syntax"
)

// Source returns the source text n was parsed from. Rewriting does not
// change it: tag helpers are written out from their original tags.
func Source(n syntax.Node) string {
	return syntax.Content(n)
}

// Normalized renders n as markup in which every tag helper is rebuilt from
// its rewritten attributes. Dropped attributes disappear, duplicates appear
// once with their final value, and tag helpers closed early get an end tag.
func Normalized(n syntax.Node) string {
	p := NewPrinter()
	p.normalized(n)
	return p.String()
}

func (p *Printer) normalized(n syntax.Node) {
	switch n := n.(type) {
	case *syntax.Span:
		p.write(n.Content())
	case *syntax.Block:
		for _, c := range n.Children {
			p.normalized(c)
		}
	case *syntax.TagHelperBlock:
		p.write("<")
		p.write(n.TagName)
		for _, a := range n.Attributes {
			p.write(" ")
			p.write(a.Name)
			p.write(`="`)
			p.write(syntax.Content(a.Value))
			p.write(`"`)
		}
		if n.SelfClosing {
			p.write(" />")
			return
		}
		p.write(">")
		for _, c := range n.Children {
			p.normalized(c)
		}
		p.write("</")
		p.write(n.TagName)
		p.write(">")
	}
}
