package pairing

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func TestParseKey(t *testing.T) {
	hexKey := strings.Repeat("ab", KeySize)
	key, err := ParseKey(hexKey)
	if err != nil {
		t.Fatalf("ParseKey: %v", err)
	}
	if hex.EncodeToString(key) != hexKey {
		t.Errorf("ParseKey round trip mismatch")
	}

	for _, bad := range []string{"", "zz", "abcd"} {
		if _, err := ParseKey(bad); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("ParseKey(%q) error = %v, want ErrInvalidKey", bad, err)
		}
	}
}

func TestDeriveKeyIsDeterministic(t *testing.T) {
	a, err := DeriveKey("correct horse")
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	b, _ := DeriveKey("correct horse")
	c, _ := DeriveKey("battery staple")

	if len(a) != KeySize {
		t.Fatalf("expected %d byte key, got %d", KeySize, len(a))
	}
	if !bytes.Equal(a, b) {
		t.Error("expected the same passphrase to derive the same key")
	}
	if bytes.Equal(a, c) {
		t.Error("expected different passphrases to derive different keys")
	}
	if _, err := DeriveKey(""); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey for empty passphrase, got %v", err)
	}
}

func TestResolveKey(t *testing.T) {
	hexKey := strings.Repeat("01", KeySize)

	key, ephemeral, err := ResolveKey(hexKey, "ignored")
	if err != nil || ephemeral || key[0] != 0x01 {
		t.Errorf("hex key: got %x, %v, %v", key, ephemeral, err)
	}

	derived, _ := DeriveKey("shared")
	key, ephemeral, err = ResolveKey("", "shared")
	if err != nil || ephemeral || !bytes.Equal(key, derived) {
		t.Errorf("passphrase: got %x, %v, %v", key, ephemeral, err)
	}

	key, ephemeral, err = ResolveKey("", "")
	if err != nil || !ephemeral || len(key) != KeySize {
		t.Errorf("random: got %x, %v, %v", key, ephemeral, err)
	}
}

func TestSharedPassphraseInteroperates(t *testing.T) {
	hostKey, _ := DeriveKey("living room")
	clientKey, _ := DeriveKey("living room")

	host, _ := NewCodec(hostKey, ModeAESCBC)
	client, _ := NewCodec(clientKey, ModeAESCBC)

	want := Payload{Address: "192.168.0.5", Port: 3000, Secret: "cafe"}
	code, err := host.Issue(want)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	got, err := client.Read(code)
	if err != nil || got != want {
		t.Errorf("client.Read = %+v, %v", got, err)
	}
}
