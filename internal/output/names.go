package output

import (
	"fmt"
	"io"
)

// NamesFormatter outputs just the file names, one per line.
// Useful for piping to other commands (e.g., themectl resolve).
type NamesFormatter struct{}

// NewNamesFormatter creates a new names formatter.
func NewNamesFormatter() *NamesFormatter {
	return &NamesFormatter{}
}

// Format writes entry names to the writer, one per line.
func (f *NamesFormatter) Format(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		if _, err := fmt.Fprintln(w, e.Name); err != nil {
			return err
		}
	}
	return nil
}
