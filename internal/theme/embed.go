package theme

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// StarterThemes contains the bundled example themes.
//
//go:embed starter/*.css
var StarterThemes embed.FS

// ListStarterThemes returns the file names of the bundled themes.
func ListStarterThemes() []string {
	entries, err := fs.ReadDir(StarterThemes, "starter")
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names
}

// SeedStarterThemes writes the bundled themes into dir, encrypting them with
// enc when it is non-nil. Existing files are never overwritten. Returns the
// paths that were written.
func SeedStarterThemes(dir string, enc Encrypter) ([]string, error) {
	if err := EnsureDir(dir); err != nil {
		return nil, err
	}

	var written []string
	for _, name := range ListStarterThemes() {
		dest := filepath.Join(dir, name)
		if _, err := os.Stat(dest); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return written, fmt.Errorf("checking %s: %w", dest, err)
		}

		data, err := StarterThemes.ReadFile("starter/" + name)
		if err != nil {
			return written, err
		}
		if enc != nil {
			data, err = enc.Encrypt(string(data))
			if err != nil {
				return written, fmt.Errorf("encrypting %s: %w", name, err)
			}
		}
		if err := os.WriteFile(dest, data, 0644); err != nil {
			return written, fmt.Errorf("writing %s: %w", dest, err)
		}
		written = append(written, dest)
	}
	return written, nil
}
