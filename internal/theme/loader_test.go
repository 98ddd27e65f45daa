package theme

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTheme(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestLoader(t *testing.T, dir string, gate Decrypter) *Loader {
	t.Helper()
	var opts []ResolverOption
	if gate != nil {
		opts = append(opts, WithImportDecrypter(gate))
	}
	l := NewLoader(LoaderOptions{
		Dir:         dir,
		Gate:        gate,
		Resolver:    NewResolver(diskFetcher{}, opts...),
		RetryBudget: DefaultRetryBudget,
	})
	t.Cleanup(l.Close)
	return l
}

func TestLoader_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "a.css", `@import "b.theme.css"; body{color:red;}`)
	writeTheme(t, dir, "b.theme.css", `a{background:blue;}`)

	target := newRecordingTarget()
	result, err := newTestLoader(t, dir, nil).Load(context.Background(), target)

	require.NoError(t, err)
	assert.Equal(t, []string{`a{background:blue;} body{color:red !important;}`}, target.Inserted())
	assert.Equal(t, []string{filepath.Join(dir, "a.css")}, result.Injected)
	assert.Equal(t, []string{"b.theme.css"}, result.Skipped)
	assert.Empty(t, result.Failed)
	assert.NotEmpty(t, result.ID)
}

func TestLoader_CreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Themes")

	target := newRecordingTarget()
	result, err := newTestLoader(t, dir, nil).Load(context.Background(), target)

	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Empty(t, target.Inserted())
	assert.Empty(t, result.Injected)
}

func TestLoader_FragmentsNeverInjected(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "only.theme.css", "body{color:red}")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.css"), 0755))

	target := newRecordingTarget()
	_, err := newTestLoader(t, dir, nil).Load(context.Background(), target)

	require.NoError(t, err)
	assert.Empty(t, target.Inserted())
}

func TestLoader_FailuresIsolatedPerFile(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "a.css", "a{color:red}")
	writeTheme(t, dir, "b.css", "@import \"missing.theme.css\";\nb{color:red}")
	writeTheme(t, dir, "c.css", "@import \"loop.theme.css\";")
	writeTheme(t, dir, "d.css", "d{margin:0}")
	writeTheme(t, dir, "loop.theme.css", "@import \"c.css\";")

	target := newRecordingTarget()
	l := NewLoader(LoaderOptions{Dir: dir, Resolver: NewResolver(diskFetcher{}), RetryBudget: 1})
	t.Cleanup(l.Close)

	result, err := l.Load(context.Background(), target)

	require.NoError(t, err)
	assert.Equal(t, []string{"a{color:red !important}", "d{margin:0}"}, target.Inserted())
	require.Len(t, result.Failed, 2)

	var fetchErr *FetchError
	assert.ErrorAs(t, result.Failed[filepath.Join(dir, "b.css")], &fetchErr)
	var circular *CircularImportError
	assert.ErrorAs(t, result.Failed[filepath.Join(dir, "c.css")], &circular)
}

func TestLoader_InjectionFailureIsolated(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "a.css", "a{margin:0}")
	writeTheme(t, dir, "b.css", "b{margin:0}")

	target := newRecordingTarget()
	target.failOn = "a{margin:0}"

	result, err := newTestLoader(t, dir, nil).Load(context.Background(), target)

	require.NoError(t, err)
	assert.Equal(t, []string{"b{margin:0}"}, target.Inserted())
	assert.Contains(t, result.Failed, filepath.Join(dir, "a.css"))
}

func TestLoader_DecryptsThemes(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "enc.css", prefixMarker+"body{color:red}")
	writeTheme(t, dir, "plain.css", "body{color:blue}")

	target := newRecordingTarget()
	result, err := newTestLoader(t, dir, prefixCodec{}).Load(context.Background(), target)

	require.NoError(t, err)
	assert.Equal(t, []string{"body{color:red !important}"}, target.Inserted())
	assert.Contains(t, result.Failed, filepath.Join(dir, "plain.css"))
}

func TestLoader_DecryptsImportedFragments(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "vars.theme.css", prefixMarker+":root{--bg:#000}")
	path := writeTheme(t, dir, "main.css", prefixMarker+"@import \"vars.theme.css\";\nbody{color:red}")

	css, err := newTestLoader(t, dir, prefixCodec{}).Process(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, ":root{--bg:#000}\nbody{color:red !important}", css)
}

func TestLoader_ProcessOrder(t *testing.T) {
	dir := t.TempDir()
	// Imported declarations are inlined as written.
	writeTheme(t, dir, "vars.theme.css", ":root{--bg:#000}")
	path := writeTheme(t, dir, "main.css", "@import \"vars.theme.css\";\n:root{--fg:#fff}")

	css, err := newTestLoader(t, dir, nil).Process(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, ":root{--bg:#000}\n:root{--fg:#fff !important}", css)
}

func TestLoader_ReloadsOnceOnChange(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "a.css", "a{margin:0}")

	target := newRecordingTarget()
	l := newTestLoader(t, dir, nil)
	_, err := l.Load(context.Background(), target)
	require.NoError(t, err)

	writeTheme(t, dir, "b.css", "b{margin:0}")

	select {
	case <-target.reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	// Further changes are ignored until the next Load.
	writeTheme(t, dir, "c.css", "c{margin:0}")
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, target.Reloads())
}

func TestLoader_LoadRearmsWatcher(t *testing.T) {
	dir := t.TempDir()

	target := newRecordingTarget()
	l := newTestLoader(t, dir, nil)

	for i := range 2 {
		_, err := l.Load(context.Background(), target)
		require.NoError(t, err)

		writeTheme(t, dir, "x.css", "x{margin:0}")
		select {
		case <-target.reloaded:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for reload %d", i+1)
		}
	}

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 2, target.Reloads())
}

func TestLoader_ListingErrorReturned(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	_, err := newTestLoader(t, path, nil).Load(context.Background(), newRecordingTarget())
	assert.Error(t, err)
}
