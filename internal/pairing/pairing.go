// Package pairing encodes the connection parameters of a host session into
// an encrypted, printable pairing code and decodes it again on the client.
//
// A code has the form base64(ciphertext) + "." + base64(iv). Both parts use
// the standard base64 alphabet, which never contains ".".
package pairing

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Separator joins the ciphertext and IV parts of a code.
const Separator = "."

// Payload is the plaintext carried by a pairing code.
type Payload struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
	Secret  string `json:"secret"`
}

// wirePayload accepts the legacy "ip" field in place of "address".
type wirePayload struct {
	Address string `json:"address"`
	IP      string `json:"ip"`
	Port    *int   `json:"port"`
	Secret  string `json:"secret"`
}

// Codec issues and reads pairing codes with one key and cipher mode.
// It is safe for concurrent use.
type Codec struct {
	mode   Mode
	cipher codeCipher
}

// NewCodec creates a codec. The key must be KeySize bytes.
func NewCodec(key []byte, mode Mode) (*Codec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidKey, KeySize, len(key))
	}
	if mode == "" {
		mode = DefaultMode
	}
	c, err := newCipher(mode, key)
	if err != nil {
		return nil, err
	}
	return &Codec{mode: mode, cipher: c}, nil
}

// Mode returns the cipher mode of the codec.
func (c *Codec) Mode() Mode {
	return c.mode
}

// Issue encrypts p with a fresh IV and returns the printable code.
func (c *Codec) Issue(p Payload) (string, error) {
	plaintext, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}

	iv := make([]byte, c.cipher.ivSize())
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	ciphertext, err := c.cipher.seal(iv, plaintext)
	if err != nil {
		return "", err
	}

	enc := base64.StdEncoding
	return enc.EncodeToString(ciphertext) + Separator + enc.EncodeToString(iv), nil
}

// Read decodes, decrypts and validates a code. Every failure wraps
// ErrInvalidCode.
func (c *Codec) Read(code string) (Payload, error) {
	parts := strings.Split(strings.TrimSpace(code), Separator)
	if len(parts) != 2 {
		return Payload{}, fmt.Errorf("%w: expected 2 parts, got %d", ErrInvalidCode, len(parts))
	}

	enc := base64.StdEncoding
	ciphertext, err := enc.DecodeString(parts[0])
	if err != nil {
		return Payload{}, fmt.Errorf("%w: ciphertext: %v", ErrInvalidCode, err)
	}
	iv, err := enc.DecodeString(parts[1])
	if err != nil {
		return Payload{}, fmt.Errorf("%w: iv: %v", ErrInvalidCode, err)
	}
	if len(iv) != c.cipher.ivSize() {
		return Payload{}, fmt.Errorf("%w: iv must be %d bytes, got %d", ErrInvalidCode, c.cipher.ivSize(), len(iv))
	}

	plaintext, err := c.cipher.open(iv, ciphertext)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}

	return parsePayload(plaintext)
}

func parsePayload(plaintext []byte) (Payload, error) {
	var w wirePayload
	if err := json.Unmarshal(plaintext, &w); err != nil {
		return Payload{}, fmt.Errorf("%w: payload: %v", ErrInvalidCode, err)
	}

	p := Payload{Address: w.Address, Secret: w.Secret}
	if p.Address == "" {
		p.Address = w.IP
	}
	if p.Address == "" {
		return Payload{}, fmt.Errorf("%w: missing address", ErrInvalidCode)
	}
	if w.Port == nil {
		return Payload{}, fmt.Errorf("%w: missing port", ErrInvalidCode)
	}
	if *w.Port < 1 || *w.Port > 65535 {
		return Payload{}, fmt.Errorf("%w: port %d out of range", ErrInvalidCode, *w.Port)
	}
	p.Port = *w.Port
	if p.Secret == "" {
		return Payload{}, fmt.Errorf("%w: missing secret", ErrInvalidCode)
	}
	return p, nil
}
