package rewriter

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sambeau/sage/pkg/sage/errors"
	"github.com/sambeau/sage/pkg/sage/syntax"
	"github.com/sambeau/sage/pkg/sage/taghelper"
)

func TestParseSpanAttribute(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantName  string
		wantValue string
		wantStart int
	}{
		{"double quoted", ` class="btn"`, "class", "btn", 8},
		{"single quoted", ` class='a b'`, "class", "a b", 8},
		{"unquoted", " a=1", "a", "1", 3},
		{"empty quoted", ` a=""`, "a", "", 4},
		{"empty unquoted", " a=", "a", "", 3},
		{"minimized", " checked", "checked", "", 8},
		{"spaced unquoted", " a = 1", "a", "1", 5},
		{"spaced quoted", ` class = "btn"`, "class", "btn", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sink errors.ErrorSink
			span := markupSpan(tt.input, 0, syntax.MarkupGenerator{})
			attr, ok := parseSpanAttribute("p", span, attributeTypes{}, &sink)
			if !ok {
				t.Fatalf("parseSpanAttribute(%q) failed: %v", tt.input, sink.Errors())
			}
			if attr.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", attr.Name, tt.wantName)
			}
			v := attr.Value.(*syntax.Span)
			if got := v.Content(); got != tt.wantValue {
				t.Errorf("value = %q, want %q", got, tt.wantValue)
			}
			if v.Start != loc(tt.wantStart) {
				t.Errorf("value start = %s, want %s", v.Start, loc(tt.wantStart))
			}
			if v.Kind != syntax.Markup || v.Generator != (syntax.MarkupGenerator{}) {
				t.Errorf("value kind, generator = %s, %s", v.Kind, syntax.GeneratorString(v.Generator))
			}
		})
	}
}

func TestParseSpanAttribute_Malformed(t *testing.T) {
	for _, input := range []string{` ="x"`, " ", " ="} {
		var sink errors.ErrorSink
		span := markupSpan(input, 3, syntax.MarkupGenerator{})
		if _, ok := parseSpanAttribute("p", span, attributeTypes{}, &sink); ok {
			t.Errorf("parseSpanAttribute(%q) succeeded", input)
			continue
		}
		diags := sink.Errors()
		if len(diags) != 1 || diags[0].Code != errors.MalformedAttribute || diags[0].Offset != 3 {
			t.Errorf("parseSpanAttribute(%q) diagnostics = %v", input, diags)
		}
	}
}

func TestParseSpanAttribute_CodeType(t *testing.T) {
	types := newAttributeTypes([]*taghelper.Descriptor{desc("p", "Count:int")})
	span := markupSpan(` count="5"`, 0, syntax.MarkupGenerator{})

	attr, ok := parseSpanAttribute("p", span, types, &errors.ErrorSink{})
	if !ok {
		t.Fatal("parseSpanAttribute() failed")
	}
	if v := attr.Value.(*syntax.Span); v.Kind != syntax.CodeKind {
		t.Errorf("value kind = %s, want Code", v.Kind)
	}
	if span.Kind != syntax.Markup {
		t.Error("parseSpanAttribute() modified its input")
	}
}

func TestParseBlockAttribute_CodeFirst(t *testing.T) {
	block := &syntax.Block{
		Type: syntax.MarkupBlock,
		Children: []syntax.Node{
			&syntax.Block{Type: syntax.ExpressionBlock, Children: []syntax.Node{
				&syntax.Span{Kind: syntax.TransitionKind, Start: loc(4), Symbols: []syntax.Symbol{{Type: syntax.Transition, Content: "@", Start: loc(4)}}},
			}},
		},
	}
	var sink errors.ErrorSink
	if _, ok := parseBlockAttribute("p", block, attributeTypes{}, &sink); ok {
		t.Fatal("parseBlockAttribute() succeeded")
	}
	if diags := sink.Errors(); len(diags) != 1 || diags[0].Code != errors.CodeInDeclaration {
		t.Errorf("diagnostics = %v, want one %s", diags, errors.CodeInDeclaration)
	}
}

func TestParseBlockAttribute_KeepsUnmatchedQuote(t *testing.T) {
	// ` a="x'`: the last part holds more than a lone quote and stays in the
	// value.
	block := &syntax.Block{
		Type:      syntax.MarkupBlock,
		Generator: syntax.AttributeBlockGenerator{Name: "a"},
		Children: []syntax.Node{
			markupSpan(` a="`, 0, nil),
			markupSpan(`x'`, 4, syntax.LiteralAttributeGenerator{}),
		},
	}
	attr, ok := parseBlockAttribute("p", block, attributeTypes{}, &errors.ErrorSink{})
	if !ok {
		t.Fatal("parseBlockAttribute() failed")
	}
	want := markupSpan(`x'`, 4, syntax.MarkupGenerator{})
	if diff := cmp.Diff(want, attr.Value); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}
}

func TestRebuildGenerators(t *testing.T) {
	inner := &syntax.Span{Kind: syntax.CodeKind, Start: loc(9), Generator: syntax.ExpressionGenerator{}}
	block := &syntax.Block{
		Type:      syntax.MarkupBlock,
		Generator: syntax.AttributeBlockGenerator{Name: "a"},
		Children: []syntax.Node{
			markupSpan("x", 4, syntax.LiteralAttributeGenerator{ValueGenerator: syntax.ExpressionGenerator{}}),
			markupSpan("y", 5, nil),
			&syntax.Block{
				Type:      syntax.MarkupBlock,
				Generator: syntax.DynamicAttributeGenerator{},
				Children:  []syntax.Node{markupSpan(" ", 7, nil), inner},
			},
		},
	}

	got := rebuildGenerators(block)
	want := &syntax.Block{
		Type: syntax.MarkupBlock,
		Children: []syntax.Node{
			markupSpan("x", 4, syntax.ExpressionGenerator{}),
			markupSpan("y", 5, nil),
			&syntax.Block{
				Type:     syntax.MarkupBlock,
				Children: []syntax.Node{markupSpan(" ", 7, syntax.MarkupGenerator{}), inner},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rebuildGenerators() mismatch (-want +got):\n%s", diff)
	}
	if block.Generator == nil {
		t.Error("rebuildGenerators() modified its input")
	}
}

func TestAttributeTypes(t *testing.T) {
	types := newAttributeTypes([]*taghelper.Descriptor{
		desc("p", "Count:int", "title:string"),
		desc("*", "count:string", "Other:bool"),
	})

	tests := []struct {
		name string
		want bool
	}{
		{"count", true},
		{"COUNT", true},
		{"title", false},
		{"other", true},
		{"undeclared", false},
	}
	for _, tt := range tests {
		if got := types.isCode(tt.name); got != tt.want {
			t.Errorf("isCode(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
