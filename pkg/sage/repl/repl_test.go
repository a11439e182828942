package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sambeau/sage/pkg/sage"
	"github.com/sambeau/sage/pkg/sage/taghelper"
)

func testSession(prefix string) (*session, *bytes.Buffer) {
	registry := taghelper.NewRegistry(prefix,
		&taghelper.Descriptor{
			TagName:    "form",
			TypeName:   "FormTagHelper",
			Attributes: []taghelper.AttributeDescriptor{{Name: "action", PropertyName: "Action", TypeName: "string"}},
		},
		&taghelper.Descriptor{TagName: "Form", TypeName: "AntiforgeryTagHelper"},
		&taghelper.Descriptor{TagName: "footer", TypeName: "FooterTagHelper"},
	)
	var out bytes.Buffer
	return newSession(sage.New(registry, nil), &out), &out
}

func TestNeedsMoreInput(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", false},
		{"plain text", false},
		{"<p>hi</p>", false},
		{"<p>", true},
		{"<p><br>", true},
		{"<br>", false},
		{"<input type=\"text\">", false},
		{"<foo />", false},
		{"<p", true},
		{"<p title=\"a > b\">", true},
		{"<p title=\"a > b\"></p>", false},
		{"@{", true},
		{"@{ var x = 1; }", false},
		{"<p title=\"{\"></p>", false},
		{"<!-- <p>", true},
		{"<!-- <p> --> done", false},
		{"a < b", false},
		{"</p>", false},
		{"<form>\n  <input />\n</form>", false},
	}

	for _, tt := range tests {
		if got := needsMoreInput(tt.input); got != tt.want {
			t.Errorf("needsMoreInput(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestComplete(t *testing.T) {
	s, _ := testSession("")

	tests := []struct {
		line string
		want []string
	}{
		{"", nil},
		{"<fo", []string{"<footer", "<form"}},
		{"<p>x</fo", []string{"<p>x</footer", "<p>x</form"}},
		{"text <FOR", []string{"text <form"}},
		{":de", []string{":describe"}},
		{"<fo ", nil},
		{"<zz", nil},
	}

	for _, tt := range tests {
		got := s.complete(tt.line)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("complete(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestComplete_Prefix(t *testing.T) {
	s, _ := testSession("th:")
	got := s.complete("<th:fo")
	if len(got) != 2 || got[0] != "<th:footer" {
		t.Errorf("complete(<th:fo) = %q", got)
	}
}

func TestEval(t *testing.T) {
	s, out := testSession("")

	s.eval(`<form action="/go">hi</form>`)
	if !strings.Contains(out.String(), "TagHelper form") {
		t.Errorf("tree output = %q", out.String())
	}

	out.Reset()
	s.command(":source")
	s.eval(`<form action="/go">hi</form>`)
	if got, want := out.String(), "Output mode: source\n<form action=\"/go\">hi</form>\n"; got != want {
		t.Errorf("source output = %q, want %q", got, want)
	}

	out.Reset()
	s.command(":normalized")
	s.eval(`<form  action='/go' >hi</form>`)
	if !strings.HasSuffix(out.String(), "<form action=\"/go\">hi</form>\n") {
		t.Errorf("normalized output = %q", out.String())
	}

	out.Reset()
	s.command(":tree")
	s.eval(`<form>`)
	if !strings.Contains(out.String(), "Tag helper error [TAG-0004]") {
		t.Errorf("expected diagnostic in output, got %q", out.String())
	}
}

func TestCommand(t *testing.T) {
	s, out := testSession("")

	tests := []struct {
		cmd      string
		want     string
		wantQuit bool
	}{
		{":help", "REPL Commands:", false},
		{":tags", "  form: FormTagHelper, AntiforgeryTagHelper\n", false},
		{":describe form", "## FormTagHelper", false},
		{":describe fomr", "Did you mean", false},
		{":describe", "Usage: :describe <tag>", false},
		{":bogus", "Unknown command: :bogus", false},
		{":quit", "", true},
	}

	for _, tt := range tests {
		out.Reset()
		quit := s.command(tt.cmd)
		if quit != tt.wantQuit {
			t.Errorf("command(%q) quit = %v, want %v", tt.cmd, quit, tt.wantQuit)
		}
		if !strings.Contains(out.String(), tt.want) {
			t.Errorf("command(%q) output = %q, want it to contain %q", tt.cmd, out.String(), tt.want)
		}
	}
}

func TestCommand_NoTags(t *testing.T) {
	var out bytes.Buffer
	s := newSession(sage.New(taghelper.NewRegistry(""), nil), &out)
	s.command(":tags")
	if out.String() != "(no tag helpers registered)\n" {
		t.Errorf(":tags output = %q", out.String())
	}
}
