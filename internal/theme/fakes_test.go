package theme

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
)

var errFlaky = errors.New("connection reset")

// mapFetcher serves content from memory and can fail a locator a fixed
// number of times before succeeding.
type mapFetcher struct {
	mu       sync.Mutex
	content  map[string]string
	failures map[string]int
	calls    map[string]int
}

func newMapFetcher(content map[string]string) *mapFetcher {
	return &mapFetcher{
		content:  content,
		failures: make(map[string]int),
		calls:    make(map[string]int),
	}
}

func (f *mapFetcher) failTimes(locator string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[locator] = n
}

func (f *mapFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[locator]++
	if f.failures[locator] > 0 {
		f.failures[locator]--
		return nil, errFlaky
	}
	body, ok := f.content[locator]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", locator, os.ErrNotExist)
	}
	return []byte(body), nil
}

func (f *mapFetcher) callCount(locator string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[locator]
}

func (f *mapFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// diskFetcher reads local files.
type diskFetcher struct{}

func (diskFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	return os.ReadFile(locator)
}

// recordingTarget captures injected CSS and reloads.
type recordingTarget struct {
	mu       sync.Mutex
	inserted []string
	reloads  int
	reloaded chan struct{}
	failOn   string
}

func newRecordingTarget() *recordingTarget {
	return &recordingTarget{reloaded: make(chan struct{}, 16)}
}

func (r *recordingTarget) InsertCSS(ctx context.Context, css string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn != "" && css == r.failOn {
		return errors.New("insert rejected")
	}
	r.inserted = append(r.inserted, css)
	return nil
}

func (r *recordingTarget) Reload(ctx context.Context) error {
	r.mu.Lock()
	r.reloads++
	r.mu.Unlock()
	r.reloaded <- struct{}{}
	return nil
}

func (r *recordingTarget) Inserted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.inserted...)
}

func (r *recordingTarget) Reloads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reloads
}

// prefixCodec is a reversible stand-in for real encryption.
type prefixCodec struct {
	err error
}

const prefixMarker = "ENC:"

func (c prefixCodec) Encrypt(plaintext string) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	return []byte(prefixMarker + plaintext), nil
}

func (c prefixCodec) Decrypt(ctx context.Context, raw []byte) (string, error) {
	s := string(raw)
	if len(s) < len(prefixMarker) || s[:len(prefixMarker)] != prefixMarker {
		return "", errors.New("theme is not encrypted")
	}
	return s[len(prefixMarker):], nil
}
