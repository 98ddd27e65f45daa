package theme

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FragmentSuffix marks files that are only loaded through @import.
const FragmentSuffix = ".theme.css"

// ErrEmptyChain is returned when import resolution is started without an
// originating locator.
var ErrEmptyChain = errors.New("resolution chain is empty")

// Target receives the final CSS of each theme file.
type Target interface {
	InsertCSS(ctx context.Context, css string) error
	Reload(ctx context.Context) error
}

// ContentFetcher returns the raw bytes behind a local path or URL.
type ContentFetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// Decrypter converts stored theme bytes into CSS text.
type Decrypter interface {
	Decrypt(ctx context.Context, raw []byte) (string, error)
}

// Encrypter converts CSS text into its stored form.
type Encrypter interface {
	Encrypt(plaintext string) ([]byte, error)
}

// CircularImportError reports an @import whose target is already part of the
// resolution chain. It is never retried.
type CircularImportError struct {
	Locator string
	Chain   []string
}

func (e *CircularImportError) Error() string {
	return fmt.Sprintf("circular reference: %s (chain: %s)", e.Locator, strings.Join(e.Chain, " -> "))
}

// FetchError reports an @import target that could not be read.
type FetchError struct {
	Locator string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to import %s: %v", e.Locator, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFragment reports whether name is an import-only fragment.
func IsFragment(name string) bool {
	return strings.HasSuffix(name, FragmentSuffix)
}

// File describes a regular file in the themes directory.
type File struct {
	Name     string
	Path     string
	Fragment bool
	Size     int64
	ModTime  time.Time
}

// ListFiles returns the regular files in dir in directory order.
// A missing directory yields an empty list.
func ListFiles(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing themes directory: %w", err)
	}

	files := make([]File, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between listing and stat
			continue
		}
		files = append(files, File{
			Name:     entry.Name(),
			Path:     filepath.Join(dir, entry.Name()),
			Fragment: IsFragment(entry.Name()),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
	}
	return files, nil
}

// EnsureDir creates the themes directory if it doesn't exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating themes directory: %w", err)
	}
	return nil
}
