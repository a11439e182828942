package markup

import (
	"strings"
	"testing"

	"github.com/sambeau/sage/pkg/sage/errors"
	"github.com/sambeau/sage/pkg/sage/format"
	"github.com/sambeau/sage/pkg/sage/syntax"
)

func TestTokenize(t *testing.T) {
	input := `<p class="a b">`
	want := []struct {
		typ     syntax.SymbolType
		content string
	}{
		{syntax.OpenAngle, "<"},
		{syntax.Text, "p"},
		{syntax.Whitespace, " "},
		{syntax.Text, "class"},
		{syntax.Equals, "="},
		{syntax.DoubleQuote, `"`},
		{syntax.Text, "a"},
		{syntax.Whitespace, " "},
		{syntax.Text, "b"},
		{syntax.DoubleQuote, `"`},
		{syntax.CloseAngle, ">"},
	}

	got := Tokenize(input)
	if len(got) != len(want) {
		t.Fatalf("Tokenize() returned %d symbols, want %d: %v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Type != w.typ || got[i].Content != w.content {
			t.Errorf("symbol[%d] = %s %q, want %s %q", i, got[i].Type, got[i].Content, w.typ, w.content)
		}
	}
	if got[3].Start.AbsoluteIndex != 3 {
		t.Errorf("symbol[3].Start = %s, want offset 3", got[3].Start)
	}
}

func TestTokenize_NewLines(t *testing.T) {
	got := Tokenize("a\r\nb\nc")
	types := []syntax.SymbolType{syntax.Text, syntax.NewLine, syntax.Text, syntax.NewLine, syntax.Text}
	if len(got) != len(types) {
		t.Fatalf("Tokenize() returned %d symbols, want %d", len(got), len(types))
	}
	for i, typ := range types {
		if got[i].Type != typ {
			t.Errorf("symbol[%d].Type = %s, want %s", i, got[i].Type, typ)
		}
	}

	c := got[4].Start
	if c.AbsoluteIndex != 5 || c.LineIndex != 2 || c.CharacterIndex != 0 {
		t.Errorf("c.Start = %s, want (5:2,0)", c)
	}
}

func TestTokenizeAt(t *testing.T) {
	start := syntax.Location{AbsoluteIndex: 10, LineIndex: 1, CharacterIndex: 4}
	got := TokenizeAt("x y", start)
	if len(got) != 3 {
		t.Fatalf("TokenizeAt() returned %d symbols, want 3", len(got))
	}
	if got[2].Start != (syntax.Location{AbsoluteIndex: 12, LineIndex: 1, CharacterIndex: 6}) {
		t.Errorf("y.Start = %s, want (12:1,6)", got[2].Start)
	}
}

func parse(t *testing.T, src string) (*syntax.Block, []*errors.Diagnostic) {
	t.Helper()
	var sink errors.ErrorSink
	root := Parse(src, &sink)
	if got := format.Source(root); got != src {
		t.Errorf("Source(Parse(%q)) = %q", src, got)
	}
	return root, sink.Errors()
}

func TestParse_Trees(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "tag with quoted attribute",
			input: `<p class="btn">x</p>`,
			want: `Block Markup
  Block Tag
    Span Markup (0:0,0) "<p" gen=Markup
    Block Markup gen=Attr:class
      Span Markup (2:0,2) " class=\""
      Span Markup (10:0,10) "btn" gen=LitAttr:btn
      Span Markup (13:0,13) "\""
    Span Markup (14:0,14) ">" gen=Markup
  Span Markup (15:0,15) "x" gen=Markup
  Block Tag
    Span Markup (16:0,16) "</p>" gen=Markup
`,
		},
		{
			name:  "implicit expression",
			input: "Hi @user.Name!",
			want: `Block Markup
  Span Markup (0:0,0) "Hi " gen=Markup
  Block Expression
    Span Transition (3:0,3) "@"
    Span Code (4:0,4) "user.Name" gen=Expression
  Span Markup (13:0,13) "!" gen=Markup
`,
		},
		{
			name:  "statement with text section",
			input: "@{ var x = 1; <text>Hi</text> }",
			want: `Block Markup
  Block Statement
    Span Transition (0:0,0) "@"
    Span Code (1:0,1) "{ var x = 1; " gen=Statement
    Block Markup
      Block Tag
        Span Transition (14:0,14) "<text>"
      Span Markup (20:0,20) "Hi" gen=Markup
      Block Tag
        Span Transition (22:0,22) "</text>"
    Span Code (29:0,29) " }" gen=Statement
`,
		},
		{
			name:  "dynamic attribute value",
			input: `<a title="Time: @now">`,
			want: `Block Markup
  Block Tag
    Span Markup (0:0,0) "<a" gen=Markup
    Block Markup gen=Attr:title
      Span Markup (2:0,2) " title=\""
      Span Markup (10:0,10) "Time:" gen=LitAttr:Time:
      Block Markup gen=DynAttr
        Span Markup (15:0,15) " "
        Block Expression
          Span Transition (16:0,16) "@"
          Span Code (17:0,17) "now" gen=Expression
      Span Markup (20:0,20) "\""
    Span Markup (21:0,21) ">" gen=Markup
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, diags := parse(t, tt.input)
			if len(diags) != 0 {
				t.Errorf("unexpected diagnostics: %v", diags)
			}
			if got := format.Tree(root); got != tt.want {
				t.Errorf("Tree() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestParse_TagShapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		spans []string // content of each child of the first tag block
	}{
		{"plain start tag", "<p>", []string{"<p>"}},
		{"end tag", "</p>", []string{"</p>"}},
		{"self closing without attributes", "<br />", []string{"<br />"}},
		{"unclosed without attributes", "<p", []string{"<p"}},
		{"minimized and unquoted", "<input checked value=x />", []string{"<input", " checked", " value=x", " />"}},
		{"junk attribute", `<p ="x">`, []string{"<p", ` ="x"`, ">"}},
		{"unclosed before next tag", `<p a="1"<b>`, []string{"<p", ` a="1"`}},
		{"prefixed name", `<th:p a=1>`, []string{"<th:p", " a=1", ">"}},
		{"spaced equals", `<p class = "btn" a = 1 b>`, []string{"<p", ` class = "btn"`, " a = 1", " b", ">"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, _ := parse(t, tt.input)
			tag, ok := syntax.IsTag(root.Children[0])
			if !ok {
				t.Fatalf("first child is %T, want a tag block", root.Children[0])
			}
			if len(tag.Children) != len(tt.spans) {
				t.Fatalf("tag has %d children, want %d:\n%s", len(tag.Children), len(tt.spans), format.Tree(tag))
			}
			for i, want := range tt.spans {
				if got := syntax.Content(tag.Children[i]); got != want {
					t.Errorf("child[%d] = %q, want %q", i, got, want)
				}
			}
		})
	}
}

func TestParse_CodeInTagDeclaration(t *testing.T) {
	root, _ := parse(t, "<input @checked />")
	tag, _ := syntax.IsTag(root.Children[0])
	if len(tag.Children) != 3 {
		t.Fatalf("tag has %d children, want 3:\n%s", len(tag.Children), format.Tree(tag))
	}
	attr, ok := tag.Children[1].(*syntax.Block)
	if !ok {
		t.Fatalf("attribute is %T, want *syntax.Block", tag.Children[1])
	}
	if _, ok := attr.Children[0].(*syntax.Block); !ok {
		t.Errorf("attribute's first child is %T, want a block", attr.Children[0])
	}
}

func TestParse_TextNodes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int // number of root children
	}{
		{"email is text", "mail me@example.com now", 1},
		{"lone at sign", "a @ b", 1},
		{"less-than in text", "1 < 2", 1},
		{"escaped transition", "x @@ y", 3},
		{"comment", "a<!-- <p> -->b", 3},
		{"razor comment", "a @* @x *@b", 3},
		{"script content", "<script>if (a<b) {}</script>", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, diags := parse(t, tt.input)
			if len(diags) != 0 {
				t.Errorf("unexpected diagnostics: %v", diags)
			}
			if len(root.Children) != tt.want {
				t.Errorf("root has %d children, want %d:\n%s", len(root.Children), tt.want, format.Tree(root))
			}
		})
	}
}

func TestParse_Expressions(t *testing.T) {
	tests := []struct {
		input string
		code  string
	}{
		{"@x", "x"},
		{"@x.y.z.", "x.y.z"},
		{`@Bag["val"] ok`, `Bag["val"]`},
		{"@Format(a, (b)) ok", "Format(a, (b))"},
		{"@(11 + 1) ok", "(11 + 1)"},
		{`@(")") ok`, `(")")`},
	}

	for _, tt := range tests {
		root, diags := parse(t, tt.input)
		if len(diags) != 0 {
			t.Errorf("Parse(%q) diagnostics: %v", tt.input, diags)
		}
		expr, ok := root.Children[0].(*syntax.Block)
		if !ok || expr.Type != syntax.ExpressionBlock {
			t.Errorf("Parse(%q) first child is not an expression block", tt.input)
			continue
		}
		if got := syntax.Content(expr.Children[1]); got != tt.code {
			t.Errorf("Parse(%q) code = %q, want %q", tt.input, got, tt.code)
		}
	}
}

func TestParse_Diagnostics(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  string
	}{
		{"unterminated comment", "a <!-- b", errors.UnterminatedComment},
		{"unterminated razor comment", "a @* b", errors.UnterminatedComment},
		{"unterminated explicit expression", "@(a + b", errors.UnterminatedExpr},
		{"unterminated implicit call", "@Format(a", errors.UnterminatedExpr},
		{"unterminated statement", "@{ if (x) { y(); }", errors.UnterminatedBlock},
		{"unterminated attribute value", `<p class="a`, errors.UnterminatedValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := parse(t, tt.input)
			if len(diags) != 1 {
				t.Fatalf("got %d diagnostics, want 1: %v", len(diags), diags)
			}
			if diags[0].Code != tt.code {
				t.Errorf("Code = %q, want %q", diags[0].Code, tt.code)
			}
		})
	}
}

func TestParse_Locations(t *testing.T) {
	root, _ := parse(t, "line one\n  <p>\r\n</p>")
	var starts []string
	syntax.Walk(root, func(n syntax.Node) bool {
		if b, ok := syntax.IsTag(n); ok {
			starts = append(starts, b.Pos().String())
		}
		return true
	})
	want := "(11:1,2) (16:2,0)"
	if got := strings.Join(starts, " "); got != want {
		t.Errorf("tag starts = %s, want %s", got, want)
	}
}
