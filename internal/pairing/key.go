package pairing

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the length of a pairing key in bytes.
const KeySize = 32

const hkdfInfo = "remotepad pairing key v1"

// ParseKey decodes a hex encoded key.
func ParseKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidKey, KeySize, len(key))
	}
	return key, nil
}

// DeriveKey stretches a shared passphrase into a key with HKDF-SHA256.
func DeriveKey(passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("%w: empty passphrase", ErrInvalidKey)
	}
	key := make([]byte, KeySize)
	r := hkdf.New(sha256.New, []byte(passphrase), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

// RandomKey returns a fresh random key.
func RandomKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

// ResolveKey picks the key from explicit hex material, then a passphrase,
// then a random per-process key. ephemeral reports the last case.
func ResolveKey(hexKey, passphrase string) (key []byte, ephemeral bool, err error) {
	switch {
	case hexKey != "":
		key, err = ParseKey(hexKey)
	case passphrase != "":
		key, err = DeriveKey(passphrase)
	default:
		key, err = RandomKey()
		ephemeral = true
	}
	return key, ephemeral, err
}
