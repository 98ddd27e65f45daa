package theme

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// ErrDialogCancelled is returned by a Dialog when the user dismisses it.
var ErrDialogCancelled = errors.New("dialog cancelled")

// Window is an optional parent for a file dialog.
type Window any

// FileFilter restricts a file dialog to names matching Patterns.
type FileFilter struct {
	Name     string
	Patterns []string
}

// OpenOptions configures a file selection.
type OpenOptions struct {
	Title    string
	Filters  []FileFilter
	Multiple bool
}

// Dialog asks the user for files to open.
type Dialog interface {
	Open(ctx context.Context, parent Window, opts OpenOptions) ([]string, error)
}

// Importer copies user-selected fragments into the themes directory.
type Importer struct {
	dir    string
	enc    Encrypter
	dialog Dialog
	logger *slog.Logger
}

// NewImporter creates an Importer writing into dir. enc may be nil, in which
// case files are copied unchanged.
func NewImporter(dir string, enc Encrypter, dialog Dialog, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		dir:    dir,
		enc:    enc,
		dialog: dialog,
		logger: logger,
	}
}

// SelectOptions are the dialog options used by Add.
func SelectOptions() OpenOptions {
	return OpenOptions{
		Title:    "Add theme",
		Filters:  []FileFilter{{Name: "Themes", Patterns: []string{"*" + FragmentSuffix}}},
		Multiple: true,
	}
}

// Add asks the user for theme files and stores each of them in the themes
// directory. A cancelled dialog is not an error. Returns the written paths.
func (i *Importer) Add(ctx context.Context, parent Window) ([]string, error) {
	paths, err := i.dialog.Open(ctx, parent, SelectOptions())
	if err != nil {
		if errors.Is(err, ErrDialogCancelled) {
			i.logger.Debug("theme import cancelled")
			return nil, nil
		}
		return nil, fmt.Errorf("selecting themes: %w", err)
	}
	return i.Import(ctx, paths)
}

// Import stores each of paths in the themes directory under its base name,
// encrypting on the way in. A file already at its destination is skipped.
// All files are attempted; the first error is returned.
func (i *Importer) Import(ctx context.Context, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	if err := EnsureDir(i.dir); err != nil {
		return nil, err
	}

	written := make([]string, len(paths))
	var g errgroup.Group
	for n, src := range paths {
		g.Go(func() error {
			dest, err := i.importOne(src)
			written[n] = dest
			return err
		})
	}
	err := g.Wait()

	out := make([]string, 0, len(written))
	for _, dest := range written {
		if dest != "" {
			out = append(out, dest)
		}
	}
	return out, err
}

func (i *Importer) importOne(src string) (string, error) {
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", src, err)
	}
	dest := filepath.Join(i.dir, filepath.Base(absSrc))
	if absDest, err := filepath.Abs(dest); err == nil && absDest == absSrc {
		i.logger.Debug("theme already in place", "path", absSrc)
		return "", nil
	}

	raw, err := os.ReadFile(absSrc)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", src, err)
	}

	stored := raw
	if i.enc != nil {
		stored, err = i.enc.Encrypt(string(raw))
		if err != nil {
			return "", fmt.Errorf("encrypting %s: %w", src, err)
		}
	}

	if err := os.WriteFile(dest, stored, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", dest, err)
	}
	i.logger.Info("imported theme", "source", absSrc, "dest", dest)
	return dest, nil
}
