// Package crypt provides optional transparent encryption of stored theme files.
//
// A Gate wraps a Capability and decides per file whether content is expected
// to be encrypted. The stored format carries no explicit tag: content is
// classified by whether it decodes cleanly as UTF-8 text.
package crypt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrUnencryptedTheme is returned when encryption is available but the stored
// content looks like plain text.
var ErrUnencryptedTheme = errors.New("theme not encrypted")

// Capability is a platform encryption service. Availability may change over
// time and is queried on every call.
type Capability interface {
	// IsAvailable reports whether Encrypt and Decrypt can be used right now.
	IsAvailable() bool
	// Ready reports whether platform initialisation has finished.
	Ready() bool
	// WhenReady blocks until initialisation has finished or ctx is done.
	WhenReady(ctx context.Context) error
	Encrypt(plaintext string) ([]byte, error)
	Decrypt(ciphertext []byte) (string, error)
}

// Gate applies the decrypt/encrypt policy for stored theme files.
type Gate struct {
	capability      Capability
	alwaysAvailable bool
	readyTimeout    time.Duration
	logger          *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithAlwaysAvailable marks the platform as one where encryption never needs
// to wait for initialisation.
func WithAlwaysAvailable(always bool) Option {
	return func(g *Gate) {
		g.alwaysAvailable = always
	}
}

// WithReadyTimeout bounds how long the gate waits for initialisation.
func WithReadyTimeout(d time.Duration) Option {
	return func(g *Gate) {
		g.readyTimeout = d
	}
}

// WithLogger sets the gate's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGate creates a Gate around capability. A nil capability behaves as
// Disabled.
func NewGate(capability Capability, opts ...Option) *Gate {
	if capability == nil {
		capability = Disabled{}
	}
	g := &Gate{
		capability: capability,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// LooksEncrypted reports whether raw contains the replacement-character marker
// that encrypted binary data produces when read as text. Any invalid UTF-8
// sequence or a literal U+FFFD counts.
func LooksEncrypted(raw []byte) bool {
	return strings.ContainsRune(string(raw), utf8.RuneError)
}

// available queries the capability, waiting once for platform initialisation
// when the first answer is negative. The capability is queried again after
// the wait even if the ready timeout expired; only cancellation of ctx itself
// is an error.
func (g *Gate) available(ctx context.Context) (bool, error) {
	if g.capability.IsAvailable() {
		return true, nil
	}
	if g.alwaysAvailable || g.capability.Ready() {
		return false, nil
	}

	g.logger.Debug("encryption not yet available, waiting for platform initialisation")
	if err := g.WaitReady(ctx); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		g.logger.Warn("encryption capability did not become ready in time", "error", err)
	}
	return g.capability.IsAvailable(), nil
}

// WaitReady blocks until the capability has finished initialising. It
// returns immediately on platforms where encryption is always available.
func (g *Gate) WaitReady(ctx context.Context) error {
	if g.alwaysAvailable || g.capability.Ready() {
		return nil
	}
	if g.readyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.readyTimeout)
		defer cancel()
	}
	if err := g.capability.WhenReady(ctx); err != nil {
		return fmt.Errorf("waiting for encryption capability: %w", err)
	}
	return nil
}

// Available reports whether stored themes are currently expected to be
// encrypted.
func (g *Gate) Available() bool {
	return g.capability.IsAvailable()
}

// Decrypt converts stored bytes to CSS text.
func (g *Gate) Decrypt(ctx context.Context, raw []byte) (string, error) {
	ok, err := g.available(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return string(raw), nil
	}

	if !LooksEncrypted(raw) {
		return "", ErrUnencryptedTheme
	}

	plaintext, err := g.capability.Decrypt(raw)
	if err != nil {
		return "", fmt.Errorf("decrypting theme: %w", err)
	}
	return plaintext, nil
}

// Encrypt converts CSS text to its stored form. Without an available
// capability the plaintext bytes are returned unchanged.
func (g *Gate) Encrypt(plaintext string) ([]byte, error) {
	if !g.capability.IsAvailable() {
		return []byte(plaintext), nil
	}

	data, err := g.capability.Encrypt(plaintext)
	if err != nil {
		return nil, fmt.Errorf("encrypting theme: %w", err)
	}
	return data, nil
}

// Disabled is a Capability that is never available.
type Disabled struct{}

func (Disabled) IsAvailable() bool                   { return false }
func (Disabled) Ready() bool                         { return true }
func (Disabled) WhenReady(ctx context.Context) error { return nil }

func (Disabled) Encrypt(string) ([]byte, error) {
	return nil, errors.New("encryption disabled")
}

func (Disabled) Decrypt([]byte) (string, error) {
	return "", errors.New("encryption disabled")
}
