package errors

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/sambeau/sage/pkg/sage/syntax"
)

func TestDiagnostic_String(t *testing.T) {
	tests := []struct {
		name     string
		diag     *Diagnostic
		expected string
	}{
		{
			name:     "message only",
			diag:     &Diagnostic{Message: "something went wrong"},
			expected: "something went wrong",
		},
		{
			name: "with line and column",
			diag: &Diagnostic{
				Message: "unexpected tag",
				Line:    5,
				Column:  10,
			},
			expected: "line 5, column 10: unexpected tag",
		},
		{
			name: "with file",
			diag: &Diagnostic{
				Message: "missing close angle",
				File:    "index.cshtml",
				Line:    3,
				Column:  1,
			},
			expected: "index.cshtml: line 3, column 1: missing close angle",
		},
		{
			name: "with hints",
			diag: &Diagnostic{
				Message: "malformed tag helper",
				Hints:   []string{"<p ... />", "<p ...></p>"},
			},
			expected: "malformed tag helper\n  <p ... />\n  <p ...></p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.diag.String()
			if got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDiagnostic_PrettyString(t *testing.T) {
	d := &Diagnostic{
		Class:   ClassTagHelper,
		Code:    MissingCloseAngle,
		Message: "Missing close angle for tag helper 'p'.",
		File:    "index.cshtml",
		Line:    2,
		Column:  7,
	}

	got := d.PrettyString()
	for _, want := range []string{
		"Tag helper error [TAG-0003]",
		"in: index.cshtml",
		"at: line 2, column 7",
		"Missing close angle for tag helper 'p'.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("PrettyString() = %q, should contain %q", got, want)
		}
	}
}

func TestDiagnostic_ToJSON(t *testing.T) {
	d := NewAt(syntax.Location{AbsoluteIndex: 12, LineIndex: 1, CharacterIndex: 4},
		MalformedTagHelper, map[string]any{"Tag": "strong"})

	jsonBytes, err := d.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(jsonBytes, &parsed); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	if parsed["class"] != "taghelper" {
		t.Errorf("class = %v, want %v", parsed["class"], "taghelper")
	}
	if parsed["code"] != "TAG-0004" {
		t.Errorf("code = %v, want %v", parsed["code"], "TAG-0004")
	}
	if parsed["offset"].(float64) != 12 {
		t.Errorf("offset = %v, want %v", parsed["offset"], 12)
	}
}

func TestNew_WithCatalog(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		data      map[string]any
		wantClass ErrorClass
		wantMsg   string
	}{
		{
			name:      "malformed attribute",
			code:      MalformedAttribute,
			data:      map[string]any{"Tag": "p"},
			wantClass: ClassTagHelper,
			wantMsg:   "TagHelper attributes must be well-formed.",
		},
		{
			name:      "code in declaration",
			code:      CodeInDeclaration,
			data:      map[string]any{"Tag": "input"},
			wantClass: ClassTagHelper,
			wantMsg:   "The tag helper 'input' must not have code in the element's attribute declaration area.",
		},
		{
			name:      "missing close angle",
			code:      MissingCloseAngle,
			data:      map[string]any{"Tag": "p"},
			wantClass: ClassTagHelper,
			wantMsg:   "Missing close angle for tag helper 'p'.",
		},
		{
			name:      "malformed tag helper",
			code:      MalformedTagHelper,
			data:      map[string]any{"Tag": "strong"},
			wantClass: ClassTagHelper,
			wantMsg:   "Found a malformed 'strong' tag helper. Tag helpers must have a start and end tag or be self closing.",
		},
		{
			name:      "unterminated comment",
			code:      UnterminatedComment,
			wantClass: ClassParse,
			wantMsg:   "unterminated comment, expected '-->'",
		},
		{
			name:      "unknown code",
			code:      "UNKNOWN-9999",
			data:      map[string]any{"message": "custom message"},
			wantClass: ClassTagHelper,
			wantMsg:   "custom message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(tt.code, tt.data)
			if d.Class != tt.wantClass {
				t.Errorf("Class = %v, want %v", d.Class, tt.wantClass)
			}
			if d.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", d.Message, tt.wantMsg)
			}
			if d.Code != tt.code {
				t.Errorf("Code = %q, want %q", d.Code, tt.code)
			}
		})
	}
}

func TestNew_RendersHints(t *testing.T) {
	d := New(MalformedTagHelper, map[string]any{"Tag": "strong"})
	want := []string{"<strong ... />", "<strong ...></strong>"}
	if len(d.Hints) != len(want) {
		t.Fatalf("len(Hints) = %d, want %d", len(d.Hints), len(want))
	}
	for i := range want {
		if d.Hints[i] != want[i] {
			t.Errorf("Hints[%d] = %q, want %q", i, d.Hints[i], want[i])
		}
	}
}

func TestNewAt(t *testing.T) {
	loc := syntax.Location{AbsoluteIndex: 12, LineIndex: 1, CharacterIndex: 4}
	d := NewAt(loc, MissingCloseAngle, map[string]any{"Tag": "p"})

	if d.Line != 2 || d.Column != 5 {
		t.Errorf("Position = (%d, %d), want (2, 5)", d.Line, d.Column)
	}
	if d.Offset != 12 {
		t.Errorf("Offset = %d, want 12", d.Offset)
	}

	withFile := d.WithFile("page.cshtml")
	want := "page.cshtml: line 2, column 5: Missing close angle for tag helper 'p'."
	if withFile.Error() != want {
		t.Errorf("Error() = %q, want %q", withFile.Error(), want)
	}
	if d.File != "" {
		t.Error("WithFile modified the original")
	}
}

func TestNewUnknownTag(t *testing.T) {
	d := NewUnknownTag("buton", []string{"form", "button", "input"})
	if d.Message != "no tag helper is registered for 'buton'" {
		t.Errorf("Message = %q", d.Message)
	}
	if len(d.Hints) != 1 || d.Hints[0] != "Did you mean `button`?" {
		t.Errorf("Hints = %q, want [Did you mean `button`?]", d.Hints)
	}

	d = NewUnknownTag("xyz", []string{"form", "button"})
	if len(d.Hints) != 0 {
		t.Errorf("Hints = %q, want none", d.Hints)
	}
}

func TestErrorSink_OrdersByOffset(t *testing.T) {
	var sink ErrorSink
	sink.OnError(syntax.Location{AbsoluteIndex: 10}, MalformedTagHelper, map[string]any{"Tag": "a"})
	sink.OnError(syntax.Location{AbsoluteIndex: 2}, MissingCloseAngle, map[string]any{"Tag": "b"})
	sink.OnError(syntax.Location{AbsoluteIndex: 10}, MalformedTagHelper, map[string]any{"Tag": "c"})

	got := sink.Errors()
	wantTags := []string{"b", "a", "c"}
	if len(got) != len(wantTags) {
		t.Fatalf("len(Errors()) = %d, want %d", len(got), len(wantTags))
	}
	for i, want := range wantTags {
		if got[i].Data["Tag"] != want {
			t.Errorf("Errors()[%d].Data[Tag] = %v, want %q", i, got[i].Data["Tag"], want)
		}
	}

	sink.Reset()
	if sink.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", sink.Len())
	}
}

func TestErrorSink_Concurrent(t *testing.T) {
	var sink ErrorSink
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				sink.OnError(syntax.Location{AbsoluteIndex: i*100 + j}, MalformedTagHelper, map[string]any{"Tag": "p"})
			}
		}(i)
	}
	wg.Wait()

	if sink.Len() != 400 {
		t.Errorf("Len() = %d, want 400", sink.Len())
	}
}

func TestSinkFunc(t *testing.T) {
	var codes []string
	var s Sink = SinkFunc(func(_ syntax.Location, code string, _ map[string]any) {
		codes = append(codes, code)
	})
	s.OnError(syntax.Zero, MalformedAttribute, nil)
	if len(codes) != 1 || codes[0] != MalformedAttribute {
		t.Errorf("codes = %q, want [%s]", codes, MalformedAttribute)
	}
}

// ============================================================================
// Fuzzy Matching Tests
// ============================================================================

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"abc", "ab", 1},
		{"kitten", "sitting", 3},
		{"lable", "label", 2},
	}

	for _, tt := range tests {
		got := levenshteinDistance(tt.a, tt.b)
		if got != tt.want {
			t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFindClosestMatch(t *testing.T) {
	tags := []string{"input", "label", "select", "textarea", "form", "button"}

	tests := []struct {
		input string
		want  string
	}{
		{"inptu", "input"},
		{"lable", "label"},
		{"buton", "button"},
		{"form", ""}, // exact match
		{"FORM", ""}, // exact match, case-insensitive
		{"xyz", ""},
		{"", ""},
	}

	for _, tt := range tests {
		got := FindClosestMatch(tt.input, tags)
		if got != tt.want {
			t.Errorf("FindClosestMatch(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}

	if got := FindClosestMatch("test", nil); got != "" {
		t.Errorf("FindClosestMatch with nil candidates = %q, want empty", got)
	}
}

func TestFindTopMatches(t *testing.T) {
	tags := []string{"input", "inputs", "inpt", "label"}

	got := FindTopMatches("input", tags, 3)
	if len(got) != 2 {
		t.Fatalf("FindTopMatches() = %q, want 2 matches", got)
	}
	for _, m := range got {
		if m == "input" {
			t.Error("FindTopMatches() returned the exact match")
		}
	}

	if got := FindTopMatches("", tags, 3); got != nil {
		t.Errorf("FindTopMatches(empty) = %q, want nil", got)
	}
}
