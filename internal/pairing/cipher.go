package pairing

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Mode names the cipher used for pairing codes.
type Mode string

const (
	// ModeAESCBC is AES-256-CBC with PKCS#7 padding. It carries no
	// authentication tag, so a tampered code is only caught by padding and
	// payload validation.
	ModeAESCBC Mode = "aes-256-cbc"

	// ModeXChaCha20Poly1305 is authenticated encryption with a 24 byte nonce
	// in the IV slot.
	ModeXChaCha20Poly1305 Mode = "xchacha20-poly1305"

	// DefaultMode keeps codes readable by existing clients.
	DefaultMode = ModeAESCBC
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case "":
		return DefaultMode, nil
	case ModeAESCBC, ModeXChaCha20Poly1305:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
	}
}

type codeCipher interface {
	ivSize() int
	seal(iv, plaintext []byte) ([]byte, error)
	open(iv, ciphertext []byte) ([]byte, error)
}

func newCipher(mode Mode, key []byte) (codeCipher, error) {
	switch mode {
	case ModeAESCBC:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return cbcCipher{block: block}, nil
	case ModeXChaCha20Poly1305:
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return aeadCipher{aead: aead}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMode, mode)
	}
}

type cbcCipher struct {
	block cipher.Block
}

func (c cbcCipher) ivSize() int { return aes.BlockSize }

func (c cbcCipher) seal(iv, plaintext []byte) ([]byte, error) {
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out, padded)
	return out, nil
}

func (c cbcCipher) open(iv, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a positive multiple of %d", len(ciphertext), aes.BlockSize)
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out, aes.BlockSize)
}

type aeadCipher struct {
	aead cipher.AEAD
}

func (c aeadCipher) ivSize() int { return c.aead.NonceSize() }

func (c aeadCipher) seal(iv, plaintext []byte) ([]byte, error) {
	return c.aead.Seal(nil, iv, plaintext, nil), nil
}

func (c aeadCipher) open(iv, ciphertext []byte) ([]byte, error) {
	return c.aead.Open(nil, iv, ciphertext, nil)
}

var errBadPadding = errors.New("bad padding")

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(bytes.Clone(b), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, errBadPadding
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, errBadPadding
		}
	}
	return b[:len(b)-n], nil
}
