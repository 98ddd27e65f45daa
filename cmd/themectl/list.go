package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/themectl/internal/output"
	"github.com/jmylchreest/themectl/internal/crypt"
	"github.com/jmylchreest/themectl/internal/theme"
)

var listOpts struct {
	format    string
	fragments bool
	sortBy    string
	sortOrder string
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the files in the themes directory",
	Long: `List the files in the themes directory with their kind, size and age.

The ENCRYPTED column reports whether a file looks encrypted; it is a content
heuristic, not a guarantee.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listOpts.format, "output", "o", "plain",
		"Output format (plain, json, yaml, names)")
	listCmd.Flags().BoolVar(&listOpts.fragments, "fragments", true,
		"Include .theme.css fragments")
	listCmd.Flags().StringVar(&listOpts.sortBy, "sort", "name",
		"Sort by field (name, size, modified)")
	listCmd.Flags().StringVar(&listOpts.sortOrder, "order", "asc",
		"Sort order (asc, desc)")
}

func runList(cmd *cobra.Command, args []string) error {
	formatter, err := output.NewFormatter(output.FormatType(listOpts.format), output.FormatterOptions{
		Color: isTerminal(os.Stdout),
	})
	if err != nil {
		return err
	}

	field, err := output.ParseSortField(listOpts.sortBy)
	if err != nil {
		return err
	}
	order, err := output.ParseSortOrder(listOpts.sortOrder)
	if err != nil {
		return err
	}

	files, err := theme.ListFiles(cfg.ThemesDir())
	if err != nil {
		return err
	}

	entries := make([]output.Entry, 0, len(files))
	for _, f := range files {
		if f.Fragment && !listOpts.fragments {
			continue
		}
		entry := output.Entry{
			Name:     f.Name,
			Path:     f.Path,
			Fragment: f.Fragment,
			Size:     f.Size,
			Modified: f.ModTime,
		}
		if raw, err := os.ReadFile(f.Path); err == nil {
			entry.Encrypted = crypt.LooksEncrypted(raw)
		} else {
			logger.Warn("failed to read theme", "path", f.Path, "error", err)
		}
		entries = append(entries, entry)
	}

	output.Sort(entries, output.SortOptions{Field: field, Order: order})
	return formatter.Format(cmd.OutOrStdout(), entries)
}
