package markup

import "strings"

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f'
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isAlnum(ch byte) bool {
	return isLetter(ch) || isDigit(ch)
}

func isIdentStart(ch byte) bool {
	return isLetter(ch) || ch == '_'
}

func isIdentByte(ch byte) bool {
	return isAlnum(ch) || ch == '_'
}

// isTagStart reports whether the '<' at i opens a start or end tag.
func isTagStart(src string, i int) bool {
	if i+1 >= len(src) {
		return false
	}
	if src[i+1] == '/' {
		return i+2 < len(src) && isLetter(src[i+2])
	}
	return isLetter(src[i+1])
}

// isNameByte reports whether ch may appear in an element name. Colons allow
// prefixed names such as th:input.
func isNameByte(ch byte) bool {
	return isAlnum(ch) || ch == '-' || ch == '_' || ch == ':' || ch == '.' || ch >= 0x80
}

func scanName(src string, i int) int {
	for i < len(src) && isNameByte(src[i]) {
		i++
	}
	return i
}

func scanIdent(src string, i int) int {
	for i < len(src) && isIdentByte(src[i]) {
		i++
	}
	return i
}

func skipSpace(src string, i int) int {
	for i < len(src) && isSpace(src[i]) {
		i++
	}
	return i
}

// scanAttributeName returns the end of the attribute name starting at i.
func scanAttributeName(src string, i int) int {
	for i < len(src) {
		switch ch := src[i]; {
		case isSpace(ch), ch == '=', ch == '>', ch == '<', ch == '/', ch == '"', ch == '\'', ch == '@':
			return i
		}
		i++
	}
	return i
}

// scanJunk returns the end of text in an attribute position that cannot
// start a name, such as `="value"`. It always consumes at least one byte.
func scanJunk(src string, i int) int {
	start := i
	for i < len(src) {
		ch := src[i]
		if isSpace(ch) || ch == '>' || ch == '<' {
			break
		}
		if ch == '/' && i+1 < len(src) && src[i+1] == '>' {
			break
		}
		i++
	}
	if i == start {
		i++
	}
	return i
}

// scanUnquoted returns the end of an unquoted attribute value.
func scanUnquoted(src string, i int) int {
	for i < len(src) {
		ch := src[i]
		if isSpace(ch) || ch == '>' || ch == '<' {
			break
		}
		if ch == '/' && i+1 < len(src) && src[i+1] == '>' {
			break
		}
		i++
	}
	return i
}

// skipString returns the index after the string literal opening at i.
func skipString(src string, i int) int {
	quote := src[i]
	for i++; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case quote:
			return i + 1
		case '\n':
			return i
		}
	}
	return len(src)
}

// scanBalanced returns the index after the bracket matching the open
// bracket at i, skipping string literals. ok is false if input ends first.
func scanBalanced(src string, i int, open, close byte) (int, bool) {
	depth := 0
	for i < len(src) {
		switch ch := src[i]; ch {
		case '"', '\'':
			i = skipString(src, i)
			continue
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
		i++
	}
	return len(src), false
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// indexFold returns the index of the first case-insensitive match of sub in
// s at or after from, or -1.
func indexFold(s, sub string, from int) int {
	for i := from; i+len(sub) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

func isRawTextTag(name string) bool {
	return strings.EqualFold(name, "script") || strings.EqualFold(name, "style")
}
