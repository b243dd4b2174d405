package kdf

import (
	"bytes"
	"testing"
)

func TestDeriveDeterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{0x01}, MinSaltLen)

	k1, err := Derive([]byte("correct horse"), salt, PresetDefault)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	k2, err := Derive([]byte("correct horse"), salt, PresetDefault)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}

	if !bytes.Equal(k1, k2) {
		t.Fatalf("same inputs produced different keys")
	}
	if len(k1) != KeyLen {
		t.Fatalf("expected %d byte key, got %d", KeyLen, len(k1))
	}
}

func TestDeriveDifferentPassphrasesDiffer(t *testing.T) {
	salt := bytes.Repeat([]byte{0x02}, MinSaltLen)

	k1, _ := Derive([]byte("pw1"), salt, PresetDefault)
	k2, _ := Derive([]byte("pw2"), salt, PresetDefault)

	if bytes.Equal(k1, k2) {
		t.Fatalf("different passphrases produced the same key")
	}
}

func TestDeriveRejectsShortSalt(t *testing.T) {
	if _, err := Derive([]byte("pw"), []byte("short"), PresetDefault); err == nil {
		t.Fatalf("expected error for short salt")
	}
}

func TestDeriveRejectsUnknownPreset(t *testing.T) {
	salt := bytes.Repeat([]byte{0x03}, MinSaltLen)
	if _, err := Derive([]byte("pw"), salt, 99); err == nil {
		t.Fatalf("expected error for unknown preset")
	}
}
