package taghelper

import (
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Markdown documents the tag helpers registered for one tag: a heading per
// descriptor, its doc text, and a table of bound attributes.
func Markdown(tagName string, descriptors []*Descriptor) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# `<%s>`\n", tagName)

	for _, d := range descriptors {
		sb.WriteString("\n## ")
		sb.WriteString(d.TypeName)
		if d.Assembly != "" {
			fmt.Fprintf(&sb, " (%s)", d.Assembly)
		}
		if d.IsCatchAll() {
			sb.WriteString(" *(all elements)*")
		}
		sb.WriteString("\n")

		if doc := strings.TrimSpace(d.Doc); doc != "" {
			sb.WriteString("\n")
			sb.WriteString(doc)
			sb.WriteString("\n")
		}

		if len(d.Attributes) == 0 {
			continue
		}
		sb.WriteString("\n| Attribute | Property | Type | |\n|---|---|---|---|\n")
		for _, a := range d.Attributes {
			fmt.Fprintf(&sb, "| `%s` | %s | `%s` | %s |\n",
				a.Name, a.PropertyName, a.TypeName, tableCell(a.Doc))
		}
	}
	return sb.String()
}

// RenderHTML writes the Markdown documentation for tagName as HTML.
func RenderHTML(w io.Writer, tagName string, descriptors []*Descriptor) error {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(Markdown(tagName, descriptors)), w); err != nil {
		return fmt.Errorf("rendering docs for <%s>: %w", tagName, err)
	}
	return nil
}

// tableCell flattens s onto one line and escapes pipes.
func tableCell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
