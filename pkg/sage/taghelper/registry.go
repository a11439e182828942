package taghelper

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Registry is a Provider over a fixed set of descriptors. It is immutable
// once built and safe for concurrent lookups.
type Registry struct {
	prefix   string
	byTag    map[string][]*Descriptor
	catchAll []*Descriptor
	all      []*Descriptor
	tags     []string
}

// NewRegistry builds a registry. When prefix is non-empty only tags written
// with the prefix ("th:input") resolve, and the prefix is stripped before
// lookup.
func NewRegistry(prefix string, descriptors ...*Descriptor) *Registry {
	r := &Registry{
		prefix: prefix,
		byTag:  make(map[string][]*Descriptor),
	}
	seen := make(map[*Descriptor]bool)
	for _, d := range descriptors {
		if d == nil || seen[d] {
			continue
		}
		seen[d] = true
		r.all = append(r.all, d)
		if d.IsCatchAll() {
			r.catchAll = append(r.catchAll, d)
			continue
		}
		key := fold(d.TagName)
		if _, ok := r.byTag[key]; !ok {
			r.tags = append(r.tags, d.TagName)
		}
		r.byTag[key] = append(r.byTag[key], d)
	}
	sort.Strings(r.tags)
	return r
}

// fold returns the case-folded form of s. A Caser is stateful, so one is
// made per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

// SameTag reports whether two tag names are equal under the folding used
// for descriptor lookup.
func SameTag(a, b string) bool {
	return a == b || fold(a) == fold(b)
}

// TagHelpers returns the descriptors for tagName: tag-specific ones in
// registration order followed by catch-alls.
func (r *Registry) TagHelpers(tagName string) []*Descriptor {
	name, ok := r.stripPrefix(tagName)
	if !ok || name == "" {
		return nil
	}
	specific := r.byTag[fold(name)]
	if len(specific) == 0 && len(r.catchAll) == 0 {
		return nil
	}
	out := make([]*Descriptor, 0, len(specific)+len(r.catchAll))
	out = append(out, specific...)
	out = append(out, r.catchAll...)
	return out
}

func (r *Registry) stripPrefix(tagName string) (string, bool) {
	if r.prefix == "" {
		return tagName, true
	}
	if len(tagName) < len(r.prefix) || !strings.EqualFold(tagName[:len(r.prefix)], r.prefix) {
		return "", false
	}
	return tagName[len(r.prefix):], true
}

// Prefix returns the tag prefix, or "" when none is required.
func (r *Registry) Prefix() string {
	return r.prefix
}

// Tags returns the distinct tag names with specific descriptors, sorted,
// without the prefix.
func (r *Registry) Tags() []string {
	out := make([]string, len(r.tags))
	copy(out, r.tags)
	return out
}

// Descriptors returns every registered descriptor in registration order.
func (r *Registry) Descriptors() []*Descriptor {
	out := make([]*Descriptor, len(r.all))
	copy(out, r.all)
	return out
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	return len(r.all)
}
