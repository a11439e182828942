package taghelper

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

// File is the contents of a YAML descriptor file:
//
//	prefix: "th:"
//	taghelpers:
//	  - tag: input
//	    type: InputTagHelper
//	    attributes:
//	      - name: checked
//	        property: Checked
//	        type: bool
type File struct {
	Prefix     string        `yaml:"prefix"`
	TagHelpers []*Descriptor `yaml:"taghelpers"`
}

// LoadFile reads a descriptor file from disk. Files ending in .gz or .zst
// are decompressed first.
func LoadFile(path string) (*File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading descriptor file: %w", err)
	}
	defer file.Close()

	var r io.Reader = file
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	case ".zst":
		zr, err := zstd.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}

	f, err := Load(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Load parses and validates a descriptor file. Missing property names
// default to the attribute name and missing types to string.
func Load(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parsing descriptors: %w", err)
	}

	applyDefaults(&f)
	if err := validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

func applyDefaults(f *File) {
	for _, d := range f.TagHelpers {
		if d == nil {
			continue
		}
		for i := range d.Attributes {
			a := &d.Attributes[i]
			if a.PropertyName == "" {
				a.PropertyName = a.Name
			}
			if a.TypeName == "" {
				a.TypeName = StringType
			}
		}
	}
}

func validate(f *File) error {
	var errs []string

	if strings.ContainsAny(f.Prefix, " \t<>/=\"'") {
		errs = append(errs, fmt.Sprintf("invalid prefix %q", f.Prefix))
	}

	for i, d := range f.TagHelpers {
		if d == nil {
			errs = append(errs, fmt.Sprintf("taghelpers[%d]: empty entry", i))
			continue
		}
		if d.TagName == "" {
			errs = append(errs, fmt.Sprintf("taghelpers[%d]: tag is required", i))
		} else if strings.ContainsAny(d.TagName, " \t<>/=\"'") {
			errs = append(errs, fmt.Sprintf("taghelpers[%d]: invalid tag %q", i, d.TagName))
		}
		seen := make(map[string]bool)
		for j, a := range d.Attributes {
			if a.Name == "" {
				errs = append(errs, fmt.Sprintf("taghelpers[%d].attributes[%d]: name is required", i, j))
				continue
			}
			key := strings.ToLower(a.Name)
			if seen[key] {
				errs = append(errs, fmt.Sprintf("taghelpers[%d].attributes[%d]: duplicate attribute %q", i, j, a.Name))
			}
			seen[key] = true
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("descriptor errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
