package crypt

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Argon2id parameters for deriving the theme key from a passphrase.
const (
	Argon2Time    = 2
	Argon2Memory  = 19 * 1024
	Argon2Threads = 1
	SaltLen       = 16
)

// envelopeVersion leads every envelope. 0xFF never occurs in valid UTF-8, so
// sealed output always trips LooksEncrypted.
const envelopeVersion byte = 0xFF

// ErrInvalidEnvelope is returned for ciphertext that is too short or carries
// an unknown version byte.
var ErrInvalidEnvelope = errors.New("invalid encrypted envelope")

// Passphrase is a Capability keyed by an argon2id-derived key. Derivation runs
// in the background; the capability becomes ready once it has finished and
// available only if it succeeded.
type Passphrase struct {
	ready chan struct{}

	mu   sync.RWMutex
	aead cipher.AEAD
	err  error
}

// NewPassphrase starts deriving a key from passphrase and the salt stored at
// saltPath, creating the salt file if needed. An empty passphrase yields a
// capability that becomes ready but never available.
func NewPassphrase(passphrase, saltPath string, logger *slog.Logger) *Passphrase {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Passphrase{ready: make(chan struct{})}

	go func() {
		defer close(p.ready)

		if passphrase == "" {
			p.setErr(errors.New("no passphrase configured"))
			logger.Warn("theme encryption enabled but no passphrase set")
			return
		}

		salt, err := loadOrCreateSalt(saltPath)
		if err != nil {
			p.setErr(err)
			logger.Warn("failed to load encryption salt", "path", saltPath, "error", err)
			return
		}

		key := argon2.IDKey([]byte(passphrase), salt, Argon2Time, Argon2Memory, Argon2Threads, chacha20poly1305.KeySize)
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			p.setErr(err)
			return
		}

		p.mu.Lock()
		p.aead = aead
		p.mu.Unlock()
		logger.Debug("theme encryption key derived")
	}()

	return p
}

func (p *Passphrase) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

// Err returns the key derivation error, if any.
func (p *Passphrase) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

// IsAvailable reports whether a key has been derived.
func (p *Passphrase) IsAvailable() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.aead != nil
}

// Ready reports whether key derivation has finished.
func (p *Passphrase) Ready() bool {
	select {
	case <-p.ready:
		return true
	default:
		return false
	}
}

// WhenReady blocks until key derivation has finished.
func (p *Passphrase) WhenReady(ctx context.Context) error {
	select {
	case <-p.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Encrypt seals plaintext into an envelope: version, nonce, ciphertext.
func (p *Passphrase) Encrypt(plaintext string) ([]byte, error) {
	p.mu.RLock()
	aead := p.aead
	p.mu.RUnlock()
	if aead == nil {
		return nil, errors.New("encryption key not available")
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	out := make([]byte, 0, 1+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, envelopeVersion)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, []byte(plaintext), nil), nil
}

// Decrypt opens an envelope produced by Encrypt.
func (p *Passphrase) Decrypt(ciphertext []byte) (string, error) {
	p.mu.RLock()
	aead := p.aead
	p.mu.RUnlock()
	if aead == nil {
		return "", errors.New("encryption key not available")
	}

	nonceSize := aead.NonceSize()
	if len(ciphertext) < 1+nonceSize+chacha20poly1305.Overhead || ciphertext[0] != envelopeVersion {
		return "", ErrInvalidEnvelope
	}

	nonce := ciphertext[1 : 1+nonceSize]
	plaintext, err := aead.Open(nil, nonce, ciphertext[1+nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("opening envelope: %w", err)
	}
	return string(plaintext), nil
}

// loadOrCreateSalt reads the salt file, writing a fresh random salt if absent.
func loadOrCreateSalt(path string) ([]byte, error) {
	salt, err := os.ReadFile(path)
	if err == nil {
		if len(salt) != SaltLen {
			return nil, fmt.Errorf("salt file %s has %d bytes, want %d", path, len(salt), SaltLen)
		}
		return salt, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	salt = make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating salt directory: %w", err)
	}
	if err := os.WriteFile(path, salt, 0600); err != nil {
		return nil, fmt.Errorf("writing salt: %w", err)
	}
	return salt, nil
}
