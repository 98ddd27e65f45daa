package extension

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// ManifestFile is the name of an unpacked extension's manifest.
const ManifestFile = "manifest.json"

// Manifest holds the fields of manifest.json that identify an extension.
type Manifest struct {
	ManifestVersion int    `json:"manifest_version" yaml:"manifest_version"`
	Name            string `json:"name" yaml:"name"`
	Version         string `json:"version" yaml:"version"`
	Description     string `json:"description,omitempty" yaml:"description,omitempty"`
	Path            string `json:"-" yaml:"path"`
}

// ReadManifest reads and validates the manifest of the extension in dir.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.Path = dir
	return &m, nil
}

// Validate checks the required manifest fields.
func (m *Manifest) Validate() error {
	var errs []error
	if m.ManifestVersion < 2 || m.ManifestVersion > 3 {
		errs = append(errs, fmt.Errorf("unsupported manifest_version %d", m.ManifestVersion))
	}
	if m.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if m.Version == "" {
		errs = append(errs, errors.New("version is required"))
	}
	return errors.Join(errs...)
}

// ManifestSession is a Session that accepts any directory holding a valid
// manifest and remembers what it loaded.
type ManifestSession struct {
	mu         sync.Mutex
	persistent bool
	loaded     []*Manifest
}

// NewManifestSession creates a ManifestSession.
func NewManifestSession(persistent bool) *ManifestSession {
	return &ManifestSession{persistent: persistent}
}

// LoadExtension validates the extension in path and records it.
func (s *ManifestSession) LoadExtension(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := ReadManifest(path)
	if err != nil {
		return fmt.Errorf("loading %s: %w", filepath.Base(path), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = append(s.loaded, m)
	return nil
}

// IsPersistent reports whether the session keeps state on disk.
func (s *ManifestSession) IsPersistent() bool {
	return s.persistent
}

// Loaded returns the loaded extensions sorted by path.
func (s *ManifestSession) Loaded() []*Manifest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := slices.Clone(s.loaded)
	slices.SortFunc(out, func(a, b *Manifest) int {
		return cmp.Compare(a.Path, b.Path)
	})
	return out
}
