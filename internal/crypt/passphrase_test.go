package crypt

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyPassphrase(t *testing.T, passphrase, saltPath string) *Passphrase {
	t.Helper()
	p := NewPassphrase(passphrase, saltPath, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, p.WhenReady(ctx))
	return p
}

func TestPassphrase_RoundTrip(t *testing.T) {
	saltPath := filepath.Join(t.TempDir(), "encryption.salt")
	p := readyPassphrase(t, "correct horse", saltPath)

	require.True(t, p.Ready())
	require.True(t, p.IsAvailable())
	require.NoError(t, p.Err())

	sealed, err := p.Encrypt("body { color: red; }")
	require.NoError(t, err)
	assert.True(t, LooksEncrypted(sealed), "sealed output must classify as encrypted")

	plain, err := p.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "body { color: red; }", plain)
}

func TestPassphrase_SaltPersisted(t *testing.T) {
	saltPath := filepath.Join(t.TempDir(), "nested", "encryption.salt")

	first := readyPassphrase(t, "secret", saltPath)
	sealed, err := first.Encrypt("a{}")
	require.NoError(t, err)

	salt, err := os.ReadFile(saltPath)
	require.NoError(t, err)
	assert.Len(t, salt, SaltLen)

	second := readyPassphrase(t, "secret", saltPath)
	plain, err := second.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "a{}", plain)
}

func TestPassphrase_WrongPassphrase(t *testing.T) {
	saltPath := filepath.Join(t.TempDir(), "encryption.salt")

	sealed, err := readyPassphrase(t, "right", saltPath).Encrypt("a{}")
	require.NoError(t, err)

	_, err = readyPassphrase(t, "wrong", saltPath).Decrypt(sealed)
	assert.Error(t, err)
}

func TestPassphrase_InvalidEnvelope(t *testing.T) {
	p := readyPassphrase(t, "secret", filepath.Join(t.TempDir(), "encryption.salt"))

	_, err := p.Decrypt([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrInvalidEnvelope)
}

func TestPassphrase_EmptyPassphraseNeverAvailable(t *testing.T) {
	p := readyPassphrase(t, "", filepath.Join(t.TempDir(), "encryption.salt"))

	assert.True(t, p.Ready())
	assert.False(t, p.IsAvailable())
	assert.Error(t, p.Err())

	// Through the gate, content passes through unchanged.
	gate := NewGate(p)
	got, err := gate.Decrypt(context.Background(), []byte("a{}"))
	require.NoError(t, err)
	assert.Equal(t, "a{}", got)
}

func TestPassphrase_CorruptSalt(t *testing.T) {
	saltPath := filepath.Join(t.TempDir(), "encryption.salt")
	require.NoError(t, os.WriteFile(saltPath, []byte("short"), 0600))

	p := readyPassphrase(t, "secret", saltPath)
	assert.False(t, p.IsAvailable())
	assert.Error(t, p.Err())
}

func TestGate_WithPassphrase(t *testing.T) {
	p := NewPassphrase("secret", filepath.Join(t.TempDir(), "encryption.salt"), nil)
	gate := NewGate(p)

	// Decrypt waits for derivation before classifying content.
	_, err := gate.Decrypt(context.Background(), []byte("body{}"))
	assert.ErrorIs(t, err, ErrUnencryptedTheme)

	stored, err := gate.Encrypt("body{color:blue}")
	require.NoError(t, err)

	got, err := gate.Decrypt(context.Background(), stored)
	require.NoError(t, err)
	assert.Equal(t, "body{color:blue}", got)
}
