// Package markup parses Razor-flavoured templates into syntax trees.
//
// The parser understands just enough HTML to find tags, attributes and
// comments, and just enough of the embedded code syntax to find where code
// starts and stops: implicit expressions (@user.Name), explicit expressions
// (@(a + b)), statement blocks (@{ ... }), escapes (@@) and comments
// (@* ... *@). Code itself is opaque.
package markup

import (
	"github.com/sambeau/sage/pkg/sage/syntax"
)

// Lexer splits markup text into symbols.
type Lexer struct {
	input string
	pos   int
	loc   syntax.Location
}

// NewLexer creates a lexer for input starting at the beginning of a document.
func NewLexer(input string) *Lexer {
	return NewLexerAt(input, syntax.Zero)
}

// NewLexerAt creates a lexer for input that starts at loc in its document.
func NewLexerAt(input string, loc syntax.Location) *Lexer {
	return &Lexer{input: input, loc: loc}
}

// Next returns the next symbol, or false at the end of input.
func (l *Lexer) Next() (syntax.Symbol, bool) {
	if l.pos >= len(l.input) {
		return syntax.Symbol{}, false
	}

	start := l.pos
	typ := syntax.Text

	switch ch := l.input[l.pos]; {
	case ch == ' ' || ch == '\t' || ch == '\f':
		typ = syntax.Whitespace
		for l.pos < len(l.input) && isBlank(l.input[l.pos]) {
			l.pos++
		}
	case ch == '\r':
		typ = syntax.NewLine
		l.pos++
		if l.pos < len(l.input) && l.input[l.pos] == '\n' {
			l.pos++
		}
	case ch == '\n':
		typ = syntax.NewLine
		l.pos++
	default:
		if t, ok := punctuation[ch]; ok {
			typ = t
			l.pos++
			break
		}
		for l.pos < len(l.input) && isTextByte(l.input[l.pos]) {
			l.pos++
		}
	}

	sym := syntax.Symbol{Type: typ, Content: l.input[start:l.pos], Start: l.loc}
	l.loc = l.loc.Advance(sym.Content)
	return sym, true
}

var punctuation = map[byte]syntax.SymbolType{
	'<':  syntax.OpenAngle,
	'>':  syntax.CloseAngle,
	'/':  syntax.ForwardSlash,
	'!':  syntax.Bang,
	'?':  syntax.QuestionMark,
	'=':  syntax.Equals,
	'"':  syntax.DoubleQuote,
	'\'': syntax.SingleQuote,
	'@':  syntax.Transition,
}

func isBlank(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\f'
}

// isTextByte reports whether ch continues a Text symbol. Multi-byte UTF-8
// sequences never contain ASCII bytes, so they stay inside one symbol.
func isTextByte(ch byte) bool {
	if isBlank(ch) || ch == '\r' || ch == '\n' {
		return false
	}
	_, punct := punctuation[ch]
	return !punct
}

// Tokenize splits input into symbols positioned from the start of a document.
func Tokenize(input string) []syntax.Symbol {
	return TokenizeAt(input, syntax.Zero)
}

// TokenizeAt splits input into symbols positioned from loc.
func TokenizeAt(input string, loc syntax.Location) []syntax.Symbol {
	l := NewLexerAt(input, loc)
	var syms []syntax.Symbol
	for {
		sym, ok := l.Next()
		if !ok {
			return syms
		}
		syms = append(syms, sym)
	}
}
