// Package syntax defines the parse tree shared by the markup parser, the
// tag helper rewriter and everything downstream of them.
//
// A tree is made of three kinds of node: spans (leaves holding a run of
// source symbols), blocks (composites with a structural type) and tag helper
// blocks (the typed nodes produced by the rewriter).
package syntax

import "fmt"

// Location is a zero-based position in a source document.
type Location struct {
	AbsoluteIndex  int // byte offset from the start of the document
	LineIndex      int
	CharacterIndex int // byte offset from the start of the line
}

// Zero is the location of the first byte of a document.
var Zero = Location{}

// Advance returns the location reached after reading text from l.
// "\r\n" counts as a single line break.
func (l Location) Advance(text string) Location {
	for i := 0; i < len(text); i++ {
		l.AbsoluteIndex++
		switch text[i] {
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				l.CharacterIndex++
				continue
			}
			l.LineIndex++
			l.CharacterIndex = 0
		case '\n':
			l.LineIndex++
			l.CharacterIndex = 0
		default:
			l.CharacterIndex++
		}
	}
	return l
}

// Line returns the 1-based line number.
func (l Location) Line() int { return l.LineIndex + 1 }

// Column returns the 1-based column number.
func (l Location) Column() int { return l.CharacterIndex + 1 }

func (l Location) String() string {
	return fmt.Sprintf("(%d:%d,%d)", l.AbsoluteIndex, l.LineIndex, l.CharacterIndex)
}
