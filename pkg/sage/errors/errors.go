// Package errors provides structured diagnostics for sage.
//
// Diagnostics are data, not Go errors: the parser and the tag helper
// rewriter report them through a Sink and keep going. Each diagnostic is
// built from a catalog entry whose message is a text/template rendered with
// the data supplied by the reporter.
package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/sambeau/sage/pkg/sage/syntax"
)

// ErrorClass categorizes diagnostics for filtering and display.
type ErrorClass string

const (
	ClassParse     ErrorClass = "parse"     // Markup parser errors
	ClassTagHelper ErrorClass = "taghelper" // Tag helper rewrite errors
	ClassUndefined ErrorClass = "undefined" // Not found/registered
)

// Diagnostic is a single problem found in a document.
type Diagnostic struct {
	Class   ErrorClass     `json:"class"`           // Error category
	Code    string         `json:"code"`            // Error code (e.g., "TAG-0004")
	Message string         `json:"message"`         // Human-readable message
	Hints   []string       `json:"hints,omitempty"` // Suggestions for fixing
	Line    int            `json:"line"`            // 1-based line (0 if unknown)
	Column  int            `json:"column"`          // 1-based column (0 if unknown)
	Offset  int            `json:"offset"`          // 0-based byte offset
	File    string         `json:"file,omitempty"`  // File path (if known)
	Data    map[string]any `json:"data,omitempty"`  // Template variables
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	return d.String()
}

// String returns a formatted string representation of the diagnostic.
func (d *Diagnostic) String() string {
	var sb strings.Builder

	if d.File != "" {
		sb.WriteString(d.File)
		sb.WriteString(": ")
	}
	if d.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d, column %d: ", d.Line, d.Column))
	}

	sb.WriteString(d.Message)

	for _, hint := range d.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// PrettyString returns a multi-line formatted string for display.
func (d *Diagnostic) PrettyString() string {
	var sb strings.Builder

	switch d.Class {
	case ClassParse:
		sb.WriteString("Parser error")
	case ClassTagHelper:
		sb.WriteString("Tag helper error")
	default:
		sb.WriteString("Error")
	}
	if d.Code != "" {
		sb.WriteString(" [")
		sb.WriteString(d.Code)
		sb.WriteString("]")
	}

	if d.File != "" {
		sb.WriteString(":\n  in: ")
		sb.WriteString(d.File)
		if d.Line > 0 {
			sb.WriteString(fmt.Sprintf("\n  at: line %d, column %d", d.Line, d.Column))
		}
		sb.WriteString("\n  ")
	} else if d.Line > 0 {
		sb.WriteString(fmt.Sprintf(": line %d, column %d\n  ", d.Line, d.Column))
	} else {
		sb.WriteString(":\n  ")
	}

	sb.WriteString(d.Message)

	for _, hint := range d.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// ToJSON returns the diagnostic as JSON bytes.
func (d *Diagnostic) ToJSON() ([]byte, error) {
	return json.Marshal(d)
}

// WithFile returns a copy of the diagnostic with the file path set.
func (d *Diagnostic) WithFile(file string) *Diagnostic {
	copy := *d
	copy.File = file
	return &copy
}

// IsParseError returns true if this came from the markup parser.
func (d *Diagnostic) IsParseError() bool {
	return d.Class == ClassParse
}

// ErrorDef defines a diagnostic in the catalog.
type ErrorDef struct {
	Class    ErrorClass // Error category
	Template string     // Message template with {{.placeholders}}
	Hints    []string   // Hint templates (may use {{.placeholders}})
}

// Tag helper diagnostic codes.
const (
	MalformedAttribute  = "TAG-0001"
	CodeInDeclaration   = "TAG-0002"
	MissingCloseAngle   = "TAG-0003"
	MalformedTagHelper  = "TAG-0004"
	UnterminatedComment = "PARSE-0001"
	UnterminatedExpr    = "PARSE-0002"
	UnterminatedBlock   = "PARSE-0003"
	UnterminatedValue   = "PARSE-0004"
	UnknownTagHelper    = "UNDEF-0001"
)

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// ========================================
	// Tag helper errors (TAG-0xxx)
	// ========================================
	MalformedAttribute: {
		Class:    ClassTagHelper,
		Template: "TagHelper attributes must be well-formed.",
		Hints:    []string{"in tag helper '{{.Tag}}'"},
	},
	CodeInDeclaration: {
		Class:    ClassTagHelper,
		Template: "The tag helper '{{.Tag}}' must not have code in the element's attribute declaration area.",
	},
	MissingCloseAngle: {
		Class:    ClassTagHelper,
		Template: "Missing close angle for tag helper '{{.Tag}}'.",
	},
	MalformedTagHelper: {
		Class:    ClassTagHelper,
		Template: "Found a malformed '{{.Tag}}' tag helper. Tag helpers must have a start and end tag or be self closing.",
		Hints:    []string{"<{{.Tag}} ... />", "<{{.Tag}} ...></{{.Tag}}>"},
	},

	// ========================================
	// Parse errors (PARSE-0xxx)
	// ========================================
	UnterminatedComment: {
		Class:    ClassParse,
		Template: "unterminated comment, expected '-->'",
	},
	UnterminatedExpr: {
		Class:    ClassParse,
		Template: "unterminated code expression, expected '{{.Expected}}'",
	},
	UnterminatedBlock: {
		Class:    ClassParse,
		Template: "unterminated code block, expected '}'",
	},
	UnterminatedValue: {
		Class:    ClassParse,
		Template: "unterminated value for attribute '{{.Name}}', expected {{.Quote}}",
	},

	// ========================================
	// Undefined errors (UNDEF-0xxx)
	// ========================================
	UnknownTagHelper: {
		Class:    ClassUndefined,
		Template: "no tag helper is registered for '{{.Tag}}'",
	},
}

// New creates a Diagnostic from a catalog code and template data.
func New(code string, data map[string]any) *Diagnostic {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["message"].(string); ok {
				msg = m
			}
		}
		return &Diagnostic{
			Class:   ClassTagHelper,
			Code:    code,
			Message: msg,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &Diagnostic{
		Class:   def.Class,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Data:    data,
	}
}

// NewAt creates a Diagnostic positioned at loc.
func NewAt(loc syntax.Location, code string, data map[string]any) *Diagnostic {
	d := New(code, data)
	d.Line = loc.Line()
	d.Column = loc.Column()
	d.Offset = loc.AbsoluteIndex
	return d
}

// NewUnknownTag creates an undefined tag helper error, with a "Did you
// mean?" hint when one of the known tags is close enough.
func NewUnknownTag(tag string, known []string) *Diagnostic {
	d := New(UnknownTagHelper, map[string]any{"Tag": tag})
	if suggestion := FindClosestMatch(tag, known); suggestion != "" {
		d.Hints = append(d.Hints, "Did you mean `"+suggestion+"`?")
	}
	return d
}

func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return buf.String()
}

// Sink receives diagnostics as they are found.
type Sink interface {
	OnError(loc syntax.Location, code string, data map[string]any)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(loc syntax.Location, code string, data map[string]any)

func (f SinkFunc) OnError(loc syntax.Location, code string, data map[string]any) {
	f(loc, code, data)
}

// ErrorSink collects diagnostics. It is safe for concurrent use, so a single
// sink may be shared by independent rewrites.
type ErrorSink struct {
	mu    sync.Mutex
	diags []*Diagnostic
}

// OnError records a diagnostic.
func (s *ErrorSink) OnError(loc syntax.Location, code string, data map[string]any) {
	d := NewAt(loc, code, data)
	s.mu.Lock()
	s.diags = append(s.diags, d)
	s.mu.Unlock()
}

// Errors returns the collected diagnostics ordered by source offset.
// Diagnostics at the same offset keep the order they were reported in.
func (s *ErrorSink) Errors() []*Diagnostic {
	s.mu.Lock()
	out := make([]*Diagnostic, len(s.diags))
	copy(out, s.diags)
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Offset < out[j].Offset
	})
	return out
}

// Len returns the number of collected diagnostics.
func (s *ErrorSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.diags)
}

// Reset discards all collected diagnostics.
func (s *ErrorSink) Reset() {
	s.mu.Lock()
	s.diags = nil
	s.mu.Unlock()
}
