package secrets

import (
	"bytes"
	"errors"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	plaintext := []byte("platform-oauth-token-abc123")

	sealed, err := SealBytes("passphrase", plaintext)
	if err != nil {
		t.Fatalf("SealBytes(): %v", err)
	}
	if bytes.Contains(sealed, plaintext) {
		t.Error("sealed value contains the plaintext")
	}

	opened, err := OpenBytes("passphrase", sealed)
	if err != nil {
		t.Fatalf("OpenBytes(): %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Errorf("opened = %q, want %q", opened, plaintext)
	}
}

func TestSealIsRandomized(t *testing.T) {
	a, err := SealBytes("passphrase", []byte("same input"))
	if err != nil {
		t.Fatalf("SealBytes(): %v", err)
	}
	b, err := SealBytes("passphrase", []byte("same input"))
	if err != nil {
		t.Fatalf("SealBytes(): %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("two seals of the same input produced identical output")
	}
}

func TestOpenWrongPassphrase(t *testing.T) {
	sealed, err := SealBytes("right", []byte("secret"))
	if err != nil {
		t.Fatalf("SealBytes(): %v", err)
	}
	if _, err := OpenBytes("wrong", sealed); err == nil {
		t.Error("OpenBytes() with wrong passphrase succeeded")
	}
}

func TestOpenTamperedValue(t *testing.T) {
	sealed, err := SealBytes("passphrase", []byte("secret"))
	if err != nil {
		t.Fatalf("SealBytes(): %v", err)
	}
	sealed[len(sealed)-1] ^= 0x01
	if _, err := OpenBytes("passphrase", sealed); err == nil {
		t.Error("OpenBytes() on tampered value succeeded")
	}
}

func TestOpenTooShort(t *testing.T) {
	if _, err := OpenBytes("passphrase", []byte("short")); !errors.Is(err, ErrMalformed) {
		t.Errorf("OpenBytes() error = %v, want ErrMalformed", err)
	}
}

func TestVaultRoundTrip(t *testing.T) {
	v := NewVault("session-secret")

	sealed, err := v.Seal("token-xyz")
	if err != nil {
		t.Fatalf("Seal(): %v", err)
	}
	token, err := v.Open(sealed)
	if err != nil {
		t.Fatalf("Open(): %v", err)
	}
	if token != "token-xyz" {
		t.Errorf("Open() = %q, want %q", token, "token-xyz")
	}
}
