package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// PlainFormatter formats entries as an aligned table.
type PlainFormatter struct {
	opts FormatterOptions
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	return &PlainFormatter{opts: opts}
}

// Format writes entries as plain text, one per line under a header.
func (f *PlainFormatter) Format(w io.Writer, entries []Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no themes installed")
		return err
	}

	now := f.opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	nameWidth := len("NAME")
	for _, e := range entries {
		nameWidth = max(nameWidth, len(e.Name))
	}

	header := fmt.Sprintf("%-*s  %-8s  %-9s  %8s  %s", nameWidth, "NAME", "KIND", "ENCRYPTED", "SIZE", "MODIFIED")
	if f.opts.Color {
		header = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Render(header)
	}

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n")
	for _, e := range entries {
		encrypted := "no"
		if e.Encrypted {
			encrypted = "yes"
		}
		sb.WriteString(fmt.Sprintf("%-*s  %-8s  %-9s  %8s  %s\n",
			nameWidth, e.Name,
			e.Kind(),
			encrypted,
			humanize.Bytes(uint64(max(e.Size, 0))),
			humanize.RelTime(e.Modified, now, "ago", "from now"),
		))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
