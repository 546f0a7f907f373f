package pairing

import "errors"

var (
	// ErrInvalidCode is returned when a pairing code cannot be decoded,
	// decrypted or validated
	ErrInvalidCode = errors.New("invalid pairing code")

	// ErrInvalidKey is returned when key material has the wrong size or encoding
	ErrInvalidKey = errors.New("invalid pairing key")

	// ErrUnsupportedMode is returned for an unknown cipher mode
	ErrUnsupportedMode = errors.New("unsupported cipher mode")
)
