package sage

import (
	"fmt"
	"strings"

	"github.com/sambeau/sage/pkg/sage/taghelper"
)

// LoadRegistry builds a registry from descriptor files, in order. A
// non-empty prefix overrides the prefixes the files declare; otherwise the
// files must agree on one.
func LoadRegistry(prefix string, paths ...string) (*taghelper.Registry, error) {
	var (
		descriptors []*taghelper.Descriptor
		filePrefix  string
		prefixFrom  string
		errs        []string
	)

	for _, path := range paths {
		f, err := taghelper.LoadFile(path)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, f.TagHelpers...)

		if f.Prefix == "" || prefix != "" {
			continue
		}
		if prefixFrom == "" {
			filePrefix, prefixFrom = f.Prefix, path
		} else if !strings.EqualFold(f.Prefix, filePrefix) {
			errs = append(errs, fmt.Sprintf("%s: prefix %q conflicts with %q from %s", path, f.Prefix, filePrefix, prefixFrom))
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("registry errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	if prefix == "" {
		prefix = filePrefix
	}
	return taghelper.NewRegistry(prefix, descriptors...), nil
}
