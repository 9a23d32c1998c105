// Package credential seals the API token before it touches disk. The
// encryption key lives in the OS secret facility (macOS Keychain,
// Secret Service, Windows Credential Manager); the store only ever
// sees ciphertext. If the facility is unavailable, operations fail
// explicitly; there is no plaintext fallback.
package credential

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	keyring "github.com/zalando/go-keyring"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/avanrossum/asana-list/internal/asana"
)

// DefaultService is the keyring service name for this application.
const DefaultService = "asana-list"

const keyAccount = "token-encryption-key"

// ErrMalformed indicates a ciphertext too short to contain a nonce or
// one that fails authentication. Treated as "no credential" by callers.
var ErrMalformed = errors.New("credential: malformed or tampered ciphertext")

// Keeper encrypts and decrypts the API token with a key held in the
// OS keyring.
type Keeper struct {
	aead cipher.AEAD
}

// NewKeeper loads the encryption key from the keyring under the given
// service name, generating and storing a fresh 256-bit key on first
// use.
func NewKeeper(service string) (*Keeper, error) {
	encoded, err := keyring.Get(service, keyAccount)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		key := make([]byte, chacha20poly1305.KeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("credential: generating key: %w", err)
		}
		encoded = base64.StdEncoding.EncodeToString(key)
		if err := keyring.Set(service, keyAccount, encoded); err != nil {
			return nil, fmt.Errorf("credential: OS secret facility unavailable: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("credential: OS secret facility unavailable: %w", err)
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("credential: stored key is invalid")
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("credential: creating cipher: %w", err)
	}
	return &Keeper{aead: aead}, nil
}

// Seal encrypts a plaintext token. The result is nonce || ciphertext.
func (k *Keeper) Seal(token string) ([]byte, error) {
	nonce := make([]byte, k.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("credential: generating nonce: %w", err)
	}
	return k.aead.Seal(nonce, nonce, []byte(token), nil), nil
}

// Open decrypts a sealed token. The returned plaintext should live
// only as long as the request being signed.
func (k *Keeper) Open(box []byte) (string, error) {
	if len(box) < k.aead.NonceSize() {
		return "", ErrMalformed
	}
	nonce, ciphertext := box[:k.aead.NonceSize()], box[k.aead.NonceSize():]
	plaintext, err := k.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrMalformed
	}
	return string(plaintext), nil
}

// CiphertextReader is the slice of the settings store the Source needs.
type CiphertextReader interface {
	TokenCiphertext() ([]byte, error)
}

// StoreSource resolves the API token just-in-time: ciphertext from the
// store, decrypted in memory at the point of use. A missing ciphertext
// or a decryption failure both surface as asana.ErrNoCredential so the
// caller prompts for re-authentication instead of retrying.
type StoreSource struct {
	Store  CiphertextReader
	Keeper *Keeper
}

func (s *StoreSource) Token(ctx context.Context) (string, error) {
	box, err := s.Store.TokenCiphertext()
	if err != nil {
		return "", fmt.Errorf("credential: reading ciphertext: %w", err)
	}
	if len(box) == 0 {
		return "", asana.ErrNoCredential
	}
	token, err := s.Keeper.Open(box)
	if err != nil {
		return "", asana.ErrNoCredential
	}
	return token, nil
}
