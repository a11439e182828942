// Package format renders syntax trees as text: an indented outline for
// inspection, the original source, or normalized markup in which tag helpers
// are written out from their rewritten attributes.
package format

import (
	"strings"
	"unicode/utf8"
)

// Indentation and truncation settings for outlines.
const (
	IndentString    = "  "
	MaxContentWidth = 60 // longer span contents are truncated in outlines
)

// Printer manages formatting state and output
type Printer struct {
	output  strings.Builder
	indent  int // Current indentation level
	linePos int // Current position in the current line
}

// NewPrinter creates a new Printer instance
func NewPrinter() *Printer {
	return &Printer{}
}

// String returns the formatted output
func (p *Printer) String() string {
	return p.output.String()
}

// Reset clears the printer state for reuse
func (p *Printer) Reset() {
	p.output.Reset()
	p.indent = 0
	p.linePos = 0
}

// write appends a string to the output and updates line position
func (p *Printer) write(s string) {
	p.output.WriteString(s)
	if idx := strings.LastIndex(s, "\n"); idx >= 0 {
		p.linePos = len(s) - idx - 1
	} else {
		p.linePos += len(s)
	}
}

// line writes one indented line.
func (p *Printer) line(s string) {
	if p.linePos != 0 {
		p.newline()
	}
	p.writeIndent()
	p.write(s)
	p.newline()
}

// newline writes a newline character and resets line position
func (p *Printer) newline() {
	p.output.WriteString("\n")
	p.linePos = 0
}

// writeIndent writes the current indentation
func (p *Printer) writeIndent() {
	p.write(strings.Repeat(IndentString, p.indent))
}

// indentInc increases the indentation level
func (p *Printer) indentInc() {
	p.indent++
}

// indentDec decreases the indentation level
func (p *Printer) indentDec() {
	if p.indent > 0 {
		p.indent--
	}
}

// truncate returns at most n bytes of s, cut on a rune boundary, adding
// "..." if truncated.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
