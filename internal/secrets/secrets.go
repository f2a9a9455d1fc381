// Package secrets seals small secrets, platform access tokens and
// backup archives among them, with AES-256-GCM under an Argon2id
// passphrase-derived key. Each sealed value carries its own salt and
// nonce, so callers keep no key material beyond the passphrase.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	saltSize  = 16
	nonceSize = 12
	keySize   = 32
	argonTime = 3
	argonMem  = 64 * 1024
	argonPar  = 4
)

// ErrMalformed reports a sealed value too short to carry its salt and
// nonce.
var ErrMalformed = errors.New("sealed value too small")

// deriveKey stretches the passphrase into a 32-byte AES-256 key with
// Argon2id.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMem, argonPar, keySize)
}

// SealBytes encrypts plaintext under a key derived from the passphrase.
// Output format: [16-byte salt][12-byte nonce][AES-256-GCM ciphertext].
func SealBytes(passphrase string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	key := deriveKey(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// OpenBytes reverses SealBytes, reading the salt back from the first
// sixteen bytes of the sealed value.
func OpenBytes(passphrase string, sealed []byte) ([]byte, error) {
	if len(sealed) < saltSize+nonceSize {
		return nil, ErrMalformed
	}

	salt := sealed[:saltSize]
	nonce := sealed[saltSize : saltSize+nonceSize]
	ciphertext := sealed[saltSize+nonceSize:]

	key := deriveKey(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

// Vault seals and opens platform access tokens with a fixed
// passphrase.
type Vault struct {
	passphrase string
}

func NewVault(passphrase string) *Vault {
	return &Vault{passphrase: passphrase}
}

func (v *Vault) Seal(token string) ([]byte, error) {
	return SealBytes(v.passphrase, []byte(token))
}

func (v *Vault) Open(sealed []byte) (string, error) {
	plaintext, err := OpenBytes(v.passphrase, sealed)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
