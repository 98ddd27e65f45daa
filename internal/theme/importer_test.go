package theme

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDialog struct {
	paths []string
	err   error
	opts  OpenOptions
}

func (d *stubDialog) Open(ctx context.Context, parent Window, opts OpenOptions) ([]string, error) {
	d.opts = opts
	return d.paths, d.err
}

func TestImporter_Add(t *testing.T) {
	src := t.TempDir()
	dir := t.TempDir()
	one := writeTheme(t, src, "one.theme.css", ".one{}")
	two := writeTheme(t, src, "two.theme.css", ".two{}")

	dialog := &stubDialog{paths: []string{one, two}}
	imp := NewImporter(dir, prefixCodec{}, dialog, nil)

	written, err := imp.Add(context.Background(), nil)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "one.theme.css"), filepath.Join(dir, "two.theme.css")}, written)

	data, err := os.ReadFile(filepath.Join(dir, "one.theme.css"))
	require.NoError(t, err)
	assert.Equal(t, prefixMarker+".one{}", string(data))

	assert.True(t, dialog.opts.Multiple)
	require.Len(t, dialog.opts.Filters, 1)
	assert.Equal(t, []string{"*.theme.css"}, dialog.opts.Filters[0].Patterns)
}

func TestImporter_WithoutEncryption(t *testing.T) {
	src := t.TempDir()
	dir := t.TempDir()
	path := writeTheme(t, src, "plain.theme.css", ".plain{}")

	written, err := NewImporter(dir, nil, &stubDialog{paths: []string{path}}, nil).Add(context.Background(), nil)

	require.NoError(t, err)
	require.Len(t, written, 1)
	data, err := os.ReadFile(written[0])
	require.NoError(t, err)
	assert.Equal(t, ".plain{}", string(data))
}

func TestImporter_SkipsFileAlreadyInPlace(t *testing.T) {
	dir := t.TempDir()
	path := writeTheme(t, dir, "here.theme.css", ".here{}")

	written, err := NewImporter(dir, prefixCodec{}, &stubDialog{paths: []string{path}}, nil).Add(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ".here{}", string(data), "file must not be re-encrypted over itself")
}

func TestImporter_Cancelled(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Themes")

	written, err := NewImporter(dir, nil, &stubDialog{err: ErrDialogCancelled}, nil).Add(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, written)
	assert.NoDirExists(t, dir)
}

func TestImporter_DialogError(t *testing.T) {
	boom := errors.New("no display")

	_, err := NewImporter(t.TempDir(), nil, &stubDialog{err: boom}, nil).Add(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
}

func TestImporter_PartialFailure(t *testing.T) {
	src := t.TempDir()
	dir := t.TempDir()
	good := writeTheme(t, src, "good.theme.css", ".good{}")
	missing := filepath.Join(src, "missing.theme.css")

	written, err := NewImporter(dir, nil, nil, nil).Import(context.Background(), []string{missing, good})

	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, []string{filepath.Join(dir, "good.theme.css")}, written)
}

func TestImporter_EncryptError(t *testing.T) {
	src := t.TempDir()
	path := writeTheme(t, src, "x.theme.css", ".x{}")

	_, err := NewImporter(t.TempDir(), prefixCodec{err: errors.New("locked")}, nil, nil).Import(context.Background(), []string{path})
	assert.ErrorContains(t, err, "locked")
}
