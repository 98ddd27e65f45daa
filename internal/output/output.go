// Package output provides output formatters for theme listings.
package output

import (
	"fmt"
	"io"
	"time"
)

// Entry is one file in the themes directory.
type Entry struct {
	Name      string    `json:"name" yaml:"name"`
	Path      string    `json:"path" yaml:"path"`
	Fragment  bool      `json:"fragment" yaml:"fragment"`
	Encrypted bool      `json:"encrypted" yaml:"encrypted"`
	Size      int64     `json:"size" yaml:"size"`
	Modified  time.Time `json:"modified" yaml:"modified"`
}

// Kind returns "fragment" for import-only files and "theme" otherwise.
func (e Entry) Kind() string {
	if e.Fragment {
		return "fragment"
	}
	return "theme"
}

// Formatter formats theme entries for output.
type Formatter interface {
	// Format writes formatted entries to the writer.
	Format(w io.Writer, entries []Entry) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain FormatType = "plain"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
	FormatNames FormatType = "names"
)

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) (Formatter, error) {
	switch format {
	case FormatPlain, "":
		return NewPlainFormatter(opts), nil
	case FormatJSON:
		return NewJSONFormatter(), nil
	case FormatYAML:
		return NewYAMLFormatter(), nil
	case FormatNames:
		return NewNamesFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (plain, json, yaml, names)", format)
	}
}

// FormatterOptions configures plain output.
type FormatterOptions struct {
	Color bool      // Style the header
	Now   time.Time // Reference for relative times; zero means time.Now
}
