// Package taghelper describes tag helpers and resolves tag names to them.
//
// A Descriptor says which element a tag helper applies to and which of its
// attributes are bound to typed properties. The rewriter only needs a
// Provider; Registry is the concrete provider used by the engine, loaded
// from YAML descriptor files.
package taghelper

import "strings"

// StringType is the declared type name of string-valued properties.
// Attributes bound to any other type hold code rather than markup.
const StringType = "string"

// AttributeDescriptor binds an HTML attribute to a tag helper property.
type AttributeDescriptor struct {
	Name         string `yaml:"name"`
	PropertyName string `yaml:"property"`
	TypeName     string `yaml:"type"`
	Doc          string `yaml:"doc"` // markdown
}

// IsStringProperty reports whether the bound property is a string.
func (a AttributeDescriptor) IsStringProperty() bool {
	return a.TypeName == StringType
}

// Descriptor describes one tag helper. A TagName of "*" applies to every
// element.
type Descriptor struct {
	TagName    string                `yaml:"tag"`
	TypeName   string                `yaml:"type"`
	Assembly   string                `yaml:"assembly"`
	Attributes []AttributeDescriptor `yaml:"attributes"`
	Doc        string                `yaml:"doc"` // markdown
}

// CatchAll is the tag name of descriptors that apply to every element.
const CatchAll = "*"

// IsCatchAll reports whether d applies to every element.
func (d *Descriptor) IsCatchAll() bool {
	return d.TagName == CatchAll
}

// Attribute returns the attribute descriptor for name, compared
// case-insensitively.
func (d *Descriptor) Attribute(name string) (AttributeDescriptor, bool) {
	for _, a := range d.Attributes {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return AttributeDescriptor{}, false
}

// Provider resolves a tag name to the tag helpers that apply to it. An
// empty result means the element is not a tag helper. Results must not
// change during a rewrite.
type Provider interface {
	TagHelpers(tagName string) []*Descriptor
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(tagName string) []*Descriptor

func (f ProviderFunc) TagHelpers(tagName string) []*Descriptor {
	return f(tagName)
}
