// Package dialog provides file selection surfaces for the theme importer.
package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jmylchreest/themectl/internal/theme"
)

// Args is a non-interactive dialog that "selects" a fixed list of paths,
// typically taken from the command line. Paths may be globs.
type Args struct {
	paths  []string
	logger *slog.Logger
}

// NewArgs creates an Args dialog over paths.
func NewArgs(paths []string, logger *slog.Logger) *Args {
	if logger == nil {
		logger = slog.Default()
	}
	return &Args{paths: paths, logger: logger}
}

// Open expands the configured paths and keeps the regular files that match
// one of the filters. Without Multiple only the first match is returned.
// It returns theme.ErrDialogCancelled when nothing is selected.
func (a *Args) Open(ctx context.Context, parent theme.Window, opts theme.OpenOptions) ([]string, error) {
	var selected []string
	for _, arg := range a.paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", arg, err)
		}
		if matches == nil {
			matches = []string{arg}
		}

		for _, path := range matches {
			info, err := os.Stat(path)
			if err != nil {
				return nil, err
			}
			if !info.Mode().IsRegular() {
				a.logger.Debug("skipping non-regular file", "path", path)
				continue
			}
			ok, err := matchesFilters(filepath.Base(path), opts.Filters)
			if err != nil {
				return nil, err
			}
			if !ok {
				a.logger.Warn("file does not match filter, skipping", "path", path)
				continue
			}
			selected = append(selected, path)
		}
	}

	if len(selected) == 0 {
		return nil, theme.ErrDialogCancelled
	}
	if !opts.Multiple {
		selected = selected[:1]
	}
	return selected, nil
}

// matchesFilters reports whether name matches any filter pattern. No
// filters accepts everything.
func matchesFilters(name string, filters []theme.FileFilter) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}
	for _, f := range filters {
		for _, pattern := range f.Patterns {
			ok, err := filepath.Match(pattern, name)
			if err != nil {
				return false, fmt.Errorf("invalid filter %q: %w", pattern, err)
			}
			if ok {
				return true, nil
			}
		}
	}
	return false, nil
}
