// Package render provides targets that receive injected theme CSS.
package render

import (
	"context"
	"strings"
	"sync"
)

// ReloadFunc is run after a target has been cleared by Reload. It is
// expected to inject the themes again.
type ReloadFunc func(ctx context.Context) error

// Buffer is an in-memory render target.
type Buffer struct {
	reloadMu sync.Mutex // held from clearing until the hook returns
	mu       sync.RWMutex
	sheets   []string
	reloads  int
	onReload ReloadFunc
}

// NewBuffer creates an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// OnReload registers fn to run on every Reload.
func (b *Buffer) OnReload(fn ReloadFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onReload = fn
}

// InsertCSS appends a stylesheet.
func (b *Buffer) InsertCSS(ctx context.Context, css string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sheets = append(b.sheets, css)
	return nil
}

// Reload drops every injected stylesheet and runs the reload hook.
// Concurrent reloads run one after another.
func (b *Buffer) Reload(ctx context.Context) error {
	b.reloadMu.Lock()
	defer b.reloadMu.Unlock()

	b.mu.Lock()
	b.sheets = nil
	b.reloads++
	fn := b.onReload
	b.mu.Unlock()

	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// Sheets returns the injected stylesheets in insertion order.
func (b *Buffer) Sheets() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.sheets))
	copy(out, b.sheets)
	return out
}

// Reloads returns how many times Reload has been called.
func (b *Buffer) Reloads() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.reloads
}

// String joins the injected stylesheets, one per paragraph.
func (b *Buffer) String() string {
	return strings.Join(b.Sheets(), "\n\n")
}
