package backup

import (
	"bytes"
	"errors"
	"testing"
)

func TestDeriveKeyDeterminism(t *testing.T) {
	salt := []byte("1234567890abcdef")

	key1 := DeriveKey("mypassphrase", salt)
	key2 := DeriveKey("mypassphrase", salt)

	if !bytes.Equal(key1, key2) {
		t.Error("same passphrase+salt should produce same key")
	}
	if len(key1) != keySize {
		t.Errorf("key length = %d, want %d", len(key1), keySize)
	}
	if bytes.Equal(key1, DeriveKey("other", salt)) {
		t.Error("different passphrases should produce different keys")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	original := []byte("SQLite format 3\x00 with some product rows in it")

	enc, err := Encrypt(original, "correct horse")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if len(enc) <= saltSize+nonceSize || bytes.Contains(enc, original) {
		t.Fatalf("ciphertext looks wrong: %d bytes", len(enc))
	}

	dec, err := Decrypt(enc, "correct horse")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(dec, original) {
		t.Errorf("decrypted = %q, want %q", dec, original)
	}

	again, err := Encrypt(original, "correct horse")
	if err != nil {
		t.Fatalf("encrypt again: %v", err)
	}
	if bytes.Equal(enc[:saltSize], again[:saltSize]) {
		t.Error("two snapshots share a salt")
	}
}

func TestDecryptFailures(t *testing.T) {
	enc, err := Encrypt([]byte("payload"), "secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	tampered := bytes.Clone(enc)
	tampered[len(tampered)-1] ^= 0xff

	for _, tc := range []struct {
		name       string
		data       []byte
		passphrase string
	}{
		{"wrong passphrase", enc, "guess"},
		{"tampered", tampered, "secret"},
		{"too small", enc[:10], "secret"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decrypt(tc.data, tc.passphrase); !errors.Is(err, ErrDecrypt) {
				t.Errorf("err = %v, want ErrDecrypt", err)
			}
		})
	}
}

func TestEncryptEmpty(t *testing.T) {
	enc, err := Encrypt(nil, "secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	dec, err := Decrypt(enc, "secret")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if len(dec) != 0 {
		t.Errorf("decrypted %d bytes, want 0", len(dec))
	}
}
