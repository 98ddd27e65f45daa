package extension

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExtension(t *testing.T, dir, name, manifest string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(path, 0755))
	if manifest != "" {
		require.NoError(t, os.WriteFile(filepath.Join(path, ManifestFile), []byte(manifest), 0644))
	}
	return path
}

func TestReadManifest(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		manifest string
		wantErr  string
	}{
		{"valid v3", `{"manifest_version":3,"name":"Dark Reader","version":"4.9.0"}`, ""},
		{"valid v2", `{"manifest_version":2,"name":"Legacy","version":"1.0"}`, ""},
		{"missing name", `{"manifest_version":3,"version":"1.0"}`, "name is required"},
		{"bad version", `{"manifest_version":1,"name":"Old","version":"1.0"}`, "unsupported manifest_version 1"},
		{"invalid json", `{`, "parsing manifest"},
		{"no manifest", "", "reading manifest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeExtension(t, dir, tt.name, tt.manifest)
			m, err := ReadManifest(path)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, path, m.Path)
			assert.NotEmpty(t, m.Name)
		})
	}
}

func TestManifestSession_WithLoadExtensions(t *testing.T) {
	dir := t.TempDir()
	writeExtension(t, dir, "b-ext", `{"manifest_version":3,"name":"B","version":"2.0"}`)
	writeExtension(t, dir, "a-ext", `{"manifest_version":3,"name":"A","version":"1.0"}`)
	writeExtension(t, dir, "broken", `{"manifest_version":3}`)

	session := NewManifestSession(true)
	result, err := LoadExtensions(context.Background(), session, dir, nil)

	require.NoError(t, err)
	assert.Len(t, result.Failed, 1)

	loaded := session.Loaded()
	require.Len(t, loaded, 2)
	assert.Equal(t, "A", loaded[0].Name)
	assert.Equal(t, "B", loaded[1].Name)
}

func TestManifestSession_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	path := writeExtension(t, dir, "ext", `{"manifest_version":3,"name":"A","version":"1.0"}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewManifestSession(true).LoadExtension(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}
