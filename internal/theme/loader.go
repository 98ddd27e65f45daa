package theme

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
)

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	// Dir is the managed themes directory.
	Dir string
	// Gate turns stored bytes into CSS.
	Gate Decrypter
	// Resolver expands @import statements.
	Resolver *Resolver
	// RetryBudget is the number of retried import passes per theme file.
	RetryBudget int
	Logger      *slog.Logger
}

// Loader injects the themes in a directory into a render target and reloads
// the target when the directory changes.
type Loader struct {
	mu          sync.Mutex
	logger      *slog.Logger
	dir         string
	gate        Decrypter
	resolver    *Resolver
	retryBudget int
	watcher     *Watcher
}

// PassResult summarises one load pass.
type PassResult struct {
	ID       string
	Injected []string
	Failed   map[string]error
	Skipped  []string
}

// NewLoader creates a Loader.
func NewLoader(opts LoaderOptions) *Loader {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger:      logger,
		dir:         opts.Dir,
		gate:        opts.Gate,
		resolver:    opts.Resolver,
		retryBudget: opts.RetryBudget,
	}
}

// Dir returns the managed themes directory.
func (l *Loader) Dir() string {
	return l.dir
}

// Load ensures the themes directory exists, arms a one-shot watcher that
// reloads target on the first change and injects every theme file.
//
// Errors creating, watching or listing the directory are returned. Failures
// of individual theme files are logged and reported in the result.
func (l *Loader) Load(ctx context.Context, target Target) (*PassResult, error) {
	if err := EnsureDir(l.dir); err != nil {
		return nil, err
	}

	if err := l.watch(target); err != nil {
		return nil, err
	}

	// An initiated pass runs to completion even if the watcher fires.
	return l.loadPass(context.WithoutCancel(ctx), target)
}

// watch replaces any previous watcher with a fresh one-shot watcher.
func (l *Loader) watch(target Target) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.watcher != nil {
		l.watcher.Stop()
		l.watcher = nil
	}

	w, err := NewWatcher(l.dir, l.logger)
	if err != nil {
		return err
	}
	w.Start(func(event fsnotify.Event) {
		l.logger.Info("themes changed, reloading", "file", event.Name)
		if err := target.Reload(context.Background()); err != nil {
			l.logger.Error("reload failed", "error", err)
		}
	})
	l.watcher = w
	return nil
}

type fileOutcome struct {
	css string
	err error
}

func (l *Loader) loadPass(ctx context.Context, target Target) (*PassResult, error) {
	started := time.Now()
	result := &PassResult{
		ID:     ulid.Make().String(),
		Failed: make(map[string]error),
	}
	logger := l.logger.With("pass", result.ID)

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("listing themes directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if IsFragment(entry.Name()) {
			result.Skipped = append(result.Skipped, entry.Name())
			continue
		}
		paths = append(paths, filepath.Join(l.dir, entry.Name()))
	}

	outcomes := make([]fileOutcome, len(paths))
	var g errgroup.Group
	for i, path := range paths {
		g.Go(func() error {
			css, err := l.Process(ctx, path)
			outcomes[i] = fileOutcome{css: css, err: err}
			return nil
		})
	}
	_ = g.Wait()

	for i, path := range paths {
		outcome := outcomes[i]
		if outcome.err == nil {
			outcome.err = target.InsertCSS(ctx, outcome.css)
		}
		if outcome.err != nil {
			logger.Error("failed to load theme", "path", path, "error", outcome.err)
			result.Failed[path] = outcome.err
			continue
		}
		result.Injected = append(result.Injected, path)
	}

	logger.Info("theme load pass complete",
		"dir", l.dir,
		"injected", len(result.Injected),
		"failed", len(result.Failed),
		"fragments", len(result.Skipped),
		"duration", time.Since(started),
	)
	return result, nil
}

// Process runs one theme file through decryption, the !important transform
// and import resolution, returning the CSS to inject.
func (l *Loader) Process(ctx context.Context, path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading theme: %w", err)
	}

	css := string(raw)
	if l.gate != nil {
		css, err = l.gate.Decrypt(ctx, raw)
		if err != nil {
			return "", fmt.Errorf("decrypting theme: %w", err)
		}
	}

	// Only the theme's own declarations are boosted; imported text is
	// inlined verbatim.
	css = Importantize(css)

	if l.resolver == nil || !hasImports(css) {
		return css, nil
	}
	return l.resolver.ParseImports(ctx, css, []string{path}, l.retryBudget)
}

// Close stops the active watcher, if any.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watcher != nil {
		l.watcher.Stop()
		l.watcher = nil
	}
}
