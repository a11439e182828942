package syntax

// Generator annotates a node with the code generation it needs. The set of
// generators is closed; a nil Generator is the null annotation.
type Generator interface {
	generator()
	String() string
}

// Tagged is a piece of source text together with where it started.
type Tagged struct {
	Value    string
	Location Location
}

// MarkupGenerator writes its span verbatim to the output.
type MarkupGenerator struct{}

// ExpressionGenerator writes the value of a code expression.
type ExpressionGenerator struct{}

// StatementGenerator emits a code statement.
type StatementGenerator struct{}

// AttributeBlockGenerator marks a block as an HTML attribute whose value is
// rendered piecewise between Prefix and Suffix.
type AttributeBlockGenerator struct {
	Name   string
	Prefix Tagged
	Suffix Tagged
}

// DynamicAttributeGenerator marks a block as a code-valued part of an HTML
// attribute value.
type DynamicAttributeGenerator struct {
	Prefix     Tagged
	ValueStart Location
}

// LiteralAttributeGenerator marks a span as a literal part of an HTML
// attribute value. ValueGenerator, when set, replaces it once the attribute
// no longer needs attribute-specific generation.
type LiteralAttributeGenerator struct {
	Prefix         Tagged
	Value          Tagged
	ValueGenerator Generator
}

// TagHelperGenerator marks a tag helper block.
type TagHelperGenerator struct{}

func (MarkupGenerator) generator()           {}
func (ExpressionGenerator) generator()       {}
func (StatementGenerator) generator()        {}
func (AttributeBlockGenerator) generator()   {}
func (DynamicAttributeGenerator) generator() {}
func (LiteralAttributeGenerator) generator() {}
func (TagHelperGenerator) generator()        {}

func (MarkupGenerator) String() string     { return "Markup" }
func (ExpressionGenerator) String() string { return "Expression" }
func (StatementGenerator) String() string  { return "Statement" }
func (g AttributeBlockGenerator) String() string {
	return "Attr:" + g.Name
}
func (DynamicAttributeGenerator) String() string { return "DynAttr" }
func (g LiteralAttributeGenerator) String() string {
	return "LitAttr:" + g.Value.Value
}
func (TagHelperGenerator) String() string { return "TagHelper" }

// GeneratorString returns g.String(), or "None" for the null annotation.
func GeneratorString(g Generator) string {
	if g == nil {
		return "None"
	}
	return g.String()
}
