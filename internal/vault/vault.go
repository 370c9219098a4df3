// Package vault stores org passwords encrypted at rest, keyed by account
// (org id). Each secret lives in its own file sealed with
// XChaCha20-Poly1305 under a key derived from the store's master key.
package vault

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrNotFound is returned when no secret is stored for an account.
var ErrNotFound = errors.New("secret not found")

const (
	saltLen = 16

	argonTime    uint32 = 3
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 1
)

// Vault persists secrets keyed by account.
type Vault interface {
	Get(accountKey string) (string, error)
	Save(accountKey, secret string) error
	Delete(accountKey string) error
}

// FileVault is the on-disk Vault implementation.
type FileVault struct {
	dir    string
	master []byte
}

// NewFileVault returns a vault rooted at dir, sealing secrets with keys
// derived from master.
func NewFileVault(dir string, master []byte) *FileVault {
	return &FileVault{dir: dir, master: master}
}

func (v *FileVault) path(accountKey string) string {
	// Account keys are org aliases; hex-escape anything path-hostile.
	return filepath.Join(v.dir, fmt.Sprintf("%x.secret", accountKey))
}

func (v *FileVault) deriveKey(salt []byte) []byte {
	return argon2.IDKey(v.master, salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
}

// Save seals and writes the secret for accountKey, replacing any previous
// value.
func (v *FileVault) Save(accountKey, secret string) error {
	if err := os.MkdirAll(v.dir, 0o700); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return err
	}

	aead, err := chacha20poly1305.NewX(v.deriveKey(salt))
	if err != nil {
		return err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return err
	}

	out := make([]byte, 0, saltLen+len(nonce)+len(secret)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, aead.Seal(nil, nonce, []byte(secret), []byte(accountKey))...)

	if err := os.WriteFile(v.path(accountKey), out, 0o600); err != nil {
		return fmt.Errorf("write secret for %q: %w", accountKey, err)
	}
	return nil
}

// Get opens and returns the secret for accountKey.
func (v *FileVault) Get(accountKey string) (string, error) {
	data, err := os.ReadFile(v.path(accountKey))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %q", ErrNotFound, accountKey)
		}
		return "", fmt.Errorf("read secret for %q: %w", accountKey, err)
	}

	if len(data) < saltLen+chacha20poly1305.NonceSizeX {
		return "", fmt.Errorf("secret for %q is corrupt", accountKey)
	}

	salt := data[:saltLen]
	nonce := data[saltLen : saltLen+chacha20poly1305.NonceSizeX]
	ct := data[saltLen+chacha20poly1305.NonceSizeX:]

	aead, err := chacha20poly1305.NewX(v.deriveKey(salt))
	if err != nil {
		return "", err
	}
	plain, err := aead.Open(nil, nonce, ct, []byte(accountKey))
	if err != nil {
		return "", fmt.Errorf("open secret for %q: %w", accountKey, err)
	}
	return string(plain), nil
}

// Delete removes the secret for accountKey. Deleting a missing secret is
// not an error.
func (v *FileVault) Delete(accountKey string) error {
	err := os.Remove(v.path(accountKey))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete secret for %q: %w", accountKey, err)
	}
	return nil
}
