package rewriter

import (
	"strings"

	"github.com/sambeau/sage/pkg/sage/errors"
	"github.com/sambeau/sage/pkg/sage/syntax"
	"github.com/sambeau/sage/pkg/sage/taghelper"
)

// tagHelperBuilder holds a tag helper whose start tag has been seen. Its
// children are collected by the frame that owns it.
type tagHelperBuilder struct {
	tagName     string
	descriptors []*taghelper.Descriptor
	attributes  []syntax.Attribute
	selfClosing bool
	start       syntax.Location
	startTag    *syntax.Block
}

// newTagHelperBuilder parses the attributes of a start tag. validStructure
// says whether the tag ends in a close angle; when it does the last child is
// the closer and is not an attribute.
func newTagHelperBuilder(tagName string, tag *syntax.Block, validStructure bool, descriptors []*taghelper.Descriptor, sink errors.Sink) *tagHelperBuilder {
	b := &tagHelperBuilder{
		tagName:     tagName,
		descriptors: descriptors,
		selfClosing: isSelfClosing(tag),
		start:       tag.Children[0].Pos(),
		startTag:    tag,
	}

	end := len(tag.Children)
	if validStructure {
		end--
	}
	if end < 1 {
		end = 1
	}

	types := newAttributeTypes(descriptors)
	for _, child := range tag.Children[1:end] {
		attr, ok := parseAttribute(tagName, child, types, sink)
		if !ok {
			continue
		}
		b.setAttribute(attr)
	}
	return b
}

// setAttribute adds attr, or replaces the value of an attribute with the
// same name. A replaced attribute keeps its original name and position.
func (b *tagHelperBuilder) setAttribute(attr syntax.Attribute) {
	for i := range b.attributes {
		if strings.EqualFold(b.attributes[i].Name, attr.Name) {
			b.attributes[i].Value = attr.Value
			return
		}
	}
	b.attributes = append(b.attributes, attr)
}

// build finalizes the tag helper. endTag is nil when the tag helper is self
// closing or was closed because its end tag never came.
func (b *tagHelperBuilder) build(children []syntax.Node, endTag *syntax.Block) *syntax.TagHelperBlock {
	return &syntax.TagHelperBlock{
		TagName:        b.tagName,
		Descriptors:    b.descriptors,
		Attributes:     b.attributes,
		SelfClosing:    b.selfClosing,
		Start:          b.start,
		SourceStartTag: b.startTag,
		SourceEndTag:   endTag,
		Children:       children,
		Generator:      syntax.TagHelperGenerator{},
	}
}

func isSelfClosing(tag *syntax.Block) bool {
	last := syntax.LastSpan(tag)
	return last != nil && strings.HasSuffix(last.Content(), "/>")
}
