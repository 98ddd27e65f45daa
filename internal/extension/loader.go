// Package extension loads unpacked Chromium extensions into a browser session.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Session is the browser session extensions are loaded into.
type Session interface {
	LoadExtension(ctx context.Context, path string) error
	IsPersistent() bool
}

// Result lists what a call to LoadExtensions did.
type Result struct {
	Loaded []string
	Failed map[string]error
}

// LoadExtensions loads every subdirectory of dir as an unpacked extension.
//
// A missing dir is created and nothing is loaded. Extensions are only loaded
// into persistent sessions. Individual failures are logged and recorded but
// never stop the remaining extensions from loading.
func LoadExtensions(ctx context.Context, session Session, dir string, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	result := &Result{Failed: make(map[string]error)}

	if _, err := os.Stat(dir); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("checking extensions directory: %w", err)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating extensions directory: %w", err)
		}
		logger.Debug("created extensions directory", "dir", dir)
		return result, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing extensions directory: %w", err)
	}

	if !session.IsPersistent() {
		logger.Debug("session is not persistent, skipping extensions", "dir", dir)
		return result, nil
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		g.Go(func() error {
			err := session.LoadExtension(ctx, path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn("failed to load extension", "path", path, "error", err)
				result.Failed[path] = err
				return nil
			}
			logger.Info("loaded extension", "path", path)
			result.Loaded = append(result.Loaded, path)
			return nil
		})
	}
	_ = g.Wait()

	return result, nil
}
