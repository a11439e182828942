// Package repl is an interactive shell that rewrites template snippets as
// they are typed and shows the resulting tree.
package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"github.com/sambeau/sage/pkg/sage"
	"github.com/sambeau/sage/pkg/sage/taghelper"
)

const PROMPT = ">> "
const CONTINUATION_PROMPT = ".. "

const SAGE_LOGO = `
█▀ ▄▀█ █▀▀ █▀▀
▄█ █▀█ █▄█ ██▄ `

// Mode selects what is printed for each snippet.
type Mode int

const (
	ModeTree Mode = iota
	ModeSource
	ModeNormalized
)

var modeNames = map[Mode]string{
	ModeTree:       "tree",
	ModeSource:     "source",
	ModeNormalized: "normalized",
}

var commands = []string{":help", ":tree", ":source", ":normalized", ":tags", ":describe", ":quit"}

// voidElements never take an end tag, so they do not hold input open.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "link": true, "meta": true, "source": true,
	"track": true, "wbr": true,
}

// session holds the state of one REPL run
type session struct {
	engine *sage.Engine
	out    io.Writer
	mode   Mode
	words  []string // completion candidates
}

func newSession(engine *sage.Engine, out io.Writer) *session {
	s := &session{engine: engine, out: out}
	prefix := engine.Registry().Prefix()
	for _, tag := range engine.Registry().Tags() {
		s.words = append(s.words, "<"+prefix+tag, "</"+prefix+tag)
	}
	s.words = append(s.words, commands...)
	sort.Strings(s.words)
	return s
}

// Start starts the REPL with line editing, history, and tab completion
func Start(out io.Writer, engine *sage.Engine, version string) {
	line := liner.NewLiner()
	defer line.Close()

	// Enable Ctrl+C to abort current line
	line.SetCtrlCAborts(true)

	s := newSession(engine, out)
	line.SetCompleter(s.complete)

	// Load command history from file
	historyFile := filepath.Join(os.TempDir(), ".sage_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	// Save history on exit
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintf(out, "%s", SAGE_LOGO)
	fmt.Fprintln(out, "v", version)
	fmt.Fprintln(out, "")
	fmt.Fprintf(out, "%d tag helpers registered\n", engine.Registry().Len())
	fmt.Fprintln(out, "Type 'exit' or Ctrl+D to quit")
	fmt.Fprintln(out, "Use Tab for completion, ↑↓ for history")
	fmt.Fprintln(out, "Type ':help' for REPL commands")
	fmt.Fprintln(out, "")

	var inputBuffer strings.Builder

	for {
		currentPrompt := PROMPT
		if inputBuffer.Len() > 0 {
			currentPrompt = CONTINUATION_PROMPT
		}
		input, err := line.Prompt(currentPrompt)
		if err != nil {
			if err == liner.ErrPromptAborted {
				// Ctrl+C - clear any buffered input and return to main prompt
				if inputBuffer.Len() > 0 {
					fmt.Fprintln(out, "^C (cleared)")
				} else {
					fmt.Fprintln(out, "^C")
				}
				inputBuffer.Reset()
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}

		trimmed := strings.TrimSpace(input)
		if inputBuffer.Len() == 0 && (trimmed == "exit" || trimmed == "quit") {
			fmt.Fprintln(out, "Goodbye!")
			return
		}

		// Handle REPL commands (start with :)
		if inputBuffer.Len() == 0 && strings.HasPrefix(trimmed, ":") {
			if quit := s.command(trimmed); quit {
				fmt.Fprintln(out, "Goodbye!")
				return
			}
			continue
		}

		if inputBuffer.Len() == 0 && trimmed == "" {
			continue
		}

		// An empty line submits whatever is buffered, complete or not.
		if trimmed != "" {
			if inputBuffer.Len() > 0 {
				inputBuffer.WriteString("\n")
			}
			inputBuffer.WriteString(input)
			if needsMoreInput(inputBuffer.String()) {
				continue
			}
		}

		fullInput := inputBuffer.String()
		line.AppendHistory(fullInput)
		s.eval(fullInput)
		inputBuffer.Reset()
	}
}

// eval rewrites one snippet and prints it in the current mode.
func (s *session) eval(input string) {
	res := s.engine.Process("<repl>", input)

	switch s.mode {
	case ModeSource:
		io.WriteString(s.out, res.Source+"\n")
	case ModeNormalized:
		io.WriteString(s.out, res.Normalized()+"\n")
	default:
		io.WriteString(s.out, res.Tree())
	}

	for _, d := range res.Diagnostics {
		io.WriteString(s.out, d.PrettyString())
		io.WriteString(s.out, "\n")
	}
}

// command handles REPL meta-commands that start with ':'. It reports
// whether the REPL should exit.
func (s *session) command(cmd string) bool {
	name, arg, _ := strings.Cut(cmd, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case ":help", ":h", ":?":
		fmt.Fprintln(s.out, "REPL Commands:")
		fmt.Fprintln(s.out, "  :help, :h, :?     Show this help")
		fmt.Fprintln(s.out, "  :tree             Show the rewritten tree (default)")
		fmt.Fprintln(s.out, "  :source           Echo the source rebuilt from the tree")
		fmt.Fprintln(s.out, "  :normalized       Show tag helpers written out from their attributes")
		fmt.Fprintln(s.out, "  :tags             List registered tag helpers")
		fmt.Fprintln(s.out, "  :describe <tag>   Show the descriptors for a tag")
		fmt.Fprintln(s.out, "  :quit, exit       Exit the REPL")
		fmt.Fprintln(s.out, "")
		fmt.Fprintln(s.out, "Input continues while tags or @{ blocks are open.")
		fmt.Fprintln(s.out, "Enter an empty line to process it anyway.")

	case ":tree":
		s.setMode(ModeTree)
	case ":source":
		s.setMode(ModeSource)
	case ":normalized":
		s.setMode(ModeNormalized)

	case ":tags":
		s.printTags()

	case ":describe", ":d":
		if arg == "" {
			fmt.Fprintln(s.out, "Usage: :describe <tag>")
			break
		}
		ds, diag := s.engine.Describe(arg)
		if diag != nil {
			io.WriteString(s.out, diag.PrettyString()+"\n")
			break
		}
		io.WriteString(s.out, taghelper.Markdown(arg, ds))

	case ":quit", ":q":
		return true

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
	return false
}

func (s *session) setMode(m Mode) {
	s.mode = m
	fmt.Fprintf(s.out, "Output mode: %s\n", modeNames[m])
}

// printTags lists every registered tag with the types that handle it
func (s *session) printTags() {
	registry := s.engine.Registry()
	tags := registry.Tags()
	if len(tags) == 0 {
		fmt.Fprintln(s.out, "(no tag helpers registered)")
		return
	}
	sort.Strings(tags)
	for _, tag := range tags {
		var types []string
		for _, d := range registry.TagHelpers(registry.Prefix() + tag) {
			if strings.EqualFold(d.TagName, tag) {
				types = append(types, d.TypeName)
			}
		}
		fmt.Fprintf(s.out, "  %s%s: %s\n", registry.Prefix(), tag, strings.Join(types, ", "))
	}
}

// complete returns whole-line completions for the word being typed
func (s *session) complete(line string) []string {
	if strings.TrimSpace(line) == "" {
		return nil
	}

	// Don't complete if line ends with whitespace (including tabs from pasting)
	if last := line[len(line)-1]; last == ' ' || last == '\t' {
		return nil
	}

	start := strings.LastIndexAny(line, " \t>") + 1
	if i := strings.LastIndex(line, "<"); i > start {
		start = i
	}
	word := line[start:]

	var matches []string
	for _, w := range s.words {
		if strings.HasPrefix(strings.ToLower(w), strings.ToLower(word)) {
			matches = append(matches, line[:start]+w)
		}
	}
	return matches
}

// needsMoreInput checks for open tags, unclosed @{ blocks, or an unfinished tag
func needsMoreInput(input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}

	braceCount := 0
	tagCount := 0

	for i := 0; i < len(input); i++ {
		ch := input[i]

		switch ch {
		case '{':
			braceCount++
		case '}':
			braceCount--
		case '<':
			if strings.HasPrefix(input[i:], "<!--") {
				end := strings.Index(input[i+4:], "-->")
				if end < 0 {
					return true
				}
				i += 4 + end + 2
				continue
			}
			if i+1 >= len(input) {
				return true
			}
			closing := input[i+1] == '/'
			nameStart := i + 1
			if closing {
				nameStart++
			}
			if nameStart >= len(input) || !isTagNameStart(input[nameStart]) {
				continue
			}
			tagEnd := findTagEnd(input, i)
			if tagEnd < 0 {
				return true // Tag not closed yet
			}
			name := tagName(input[nameStart:tagEnd])
			switch {
			case closing:
				tagCount--
			case input[tagEnd-1] == '/', voidElements[strings.ToLower(name)]:
				// Self-closing or void
			default:
				tagCount++
			}
			i = tagEnd
		}
	}

	return braceCount > 0 || tagCount > 0
}

// isTagNameStart checks if a character can start a tag name (letter or underscore)
func isTagNameStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func tagName(s string) string {
	if i := strings.IndexAny(s, " \t\r\n/>"); i >= 0 {
		return s[:i]
	}
	return s
}

// findTagEnd finds the position of the closing '>' for a tag starting at pos
func findTagEnd(input string, pos int) int {
	inQuote := false
	quoteChar := byte(0)
	for i := pos + 1; i < len(input); i++ {
		ch := input[i]
		if inQuote {
			if ch == quoteChar {
				inQuote = false
			}
			continue
		}
		if ch == '"' || ch == '\'' {
			inQuote = true
			quoteChar = ch
			continue
		}
		if ch == '>' {
			return i
		}
	}
	return -1
}
