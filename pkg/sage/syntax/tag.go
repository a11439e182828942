package syntax

// IsTag reports whether n is a tag-shaped block: a Tag block whose first
// child is a span starting with '<'.
func IsTag(n Node) (*Block, bool) {
	b, ok := n.(*Block)
	if !ok || b.Type != TagBlock || len(b.Children) == 0 {
		return nil, false
	}
	first, ok := b.Children[0].(*Span)
	if !ok || len(first.Symbols) == 0 || first.Symbols[0].Type != OpenAngle {
		return nil, false
	}
	return b, true
}

// TagName returns the element name of a tag block. The name is the first
// text or whitespace symbol of the first span; a tag whose first such symbol
// is whitespace ("< p>") has no name.
func TagName(b *Block) (string, bool) {
	if _, ok := IsTag(b); !ok {
		return "", false
	}
	first := b.Children[0].(*Span)
	for _, sym := range first.Symbols {
		switch sym.Type {
		case Text:
			return sym.Content, true
		case Whitespace:
			return "", false
		}
	}
	return "", false
}

// IsEndTag reports whether b is a closing tag ("</p>").
func IsEndTag(b *Block) bool {
	if _, ok := IsTag(b); !ok {
		return false
	}
	first := b.Children[0].(*Span)
	if len(first.Symbols) < 2 {
		return false
	}
	return first.Symbols[1].Type == ForwardSlash
}
