package syntax

import "fmt"

// SymbolType classifies a lexical symbol inside a span.
type SymbolType int

const (
	Unknown SymbolType = iota
	Text
	Whitespace
	NewLine
	OpenAngle    // <
	CloseAngle   // >
	ForwardSlash // /
	Bang         // !
	QuestionMark // ?
	Equals       // =
	DoubleQuote  // "
	SingleQuote  // '
	Transition   // @
	Code         // a run of embedded code
)

// String returns a string representation of the symbol type
func (t SymbolType) String() string {
	switch t {
	case Text:
		return "Text"
	case Whitespace:
		return "Whitespace"
	case NewLine:
		return "NewLine"
	case OpenAngle:
		return "OpenAngle"
	case CloseAngle:
		return "CloseAngle"
	case ForwardSlash:
		return "ForwardSlash"
	case Bang:
		return "Bang"
	case QuestionMark:
		return "QuestionMark"
	case Equals:
		return "Equals"
	case DoubleQuote:
		return "DoubleQuote"
	case SingleQuote:
		return "SingleQuote"
	case Transition:
		return "Transition"
	case Code:
		return "Code"
	default:
		return "Unknown"
	}
}

// IsQuote reports whether t is a single or double quote.
func (t SymbolType) IsQuote() bool {
	return t == DoubleQuote || t == SingleQuote
}

// Symbol is a single lexical symbol. Start is its absolute position in the
// source document, independent of the span that holds it.
type Symbol struct {
	Type    SymbolType
	Content string
	Start   Location
}

func (s Symbol) String() string {
	return fmt.Sprintf("%s %q %s", s.Type, s.Content, s.Start)
}
