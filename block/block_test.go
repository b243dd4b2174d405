package block

import (
	"bytes"
	"testing"

	"github.com/oroko-systems/ringstore/cipher"
)

func generateRecipient(t *testing.T, id string, tags ...cipher.Tag) (RecipientKeySet, map[cipher.Tag][]byte) {
	t.Helper()
	set := RecipientKeySet{IdentityID: id, Keys: map[cipher.Tag][]byte{}}
	privs := map[cipher.Tag][]byte{}
	for _, tag := range tags {
		suite, ok := cipher.By(tag)
		if !ok {
			t.Fatalf("suite %s not registered", tag)
		}
		pub, priv, err := suite.GenerateKeyPair()
		if err != nil {
			t.Fatalf("generate keypair: %v", err)
		}
		set.Keys[tag] = pub
		privs[tag] = priv
	}
	return set, privs
}

func TestSealOpenRoundTripSingleSuite(t *testing.T) {
	alice, alicePriv := generateRecipient(t, "alice", cipher.EdX25519ChaCha20Poly1305)
	bob, bobPriv := generateRecipient(t, "bob", cipher.EdX25519ChaCha20Poly1305)

	plaintext := []byte(`{"name":"gmail","password":"x"}`)
	b, err := SealToRing(plaintext, []RecipientKeySet{alice, bob})
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	if len(b.Headers) != 1 {
		t.Fatalf("expected a single header when both recipients share a suite, got %d", len(b.Headers))
	}

	got, err := OpenWithIdentity(b, "alice", alicePriv)
	if err != nil {
		t.Fatalf("open as alice: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round-trip mismatch for alice")
	}

	got, err = OpenWithIdentity(b, "bob", bobPriv)
	if err != nil {
		t.Fatalf("open as bob: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round-trip mismatch for bob")
	}
}

func TestSealOpenMixedSuites(t *testing.T) {
	alice, alicePriv := generateRecipient(t, "alice", cipher.EdX25519ChaCha20Poly1305)
	carol, carolPriv := generateRecipient(t, "carol", cipher.RsaAesGcm)

	plaintext := []byte("mixed suite payload")
	b, err := SealToRing(plaintext, []RecipientKeySet{alice, carol})
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	if len(b.Headers) != 2 {
		t.Fatalf("expected two headers for disjoint suites, got %d", len(b.Headers))
	}

	for _, h := range b.Headers {
		for j := range h.Recipients {
			_ = j
		}
	}

	got, err := OpenWithIdentity(b, "alice", alicePriv)
	if err != nil {
		t.Fatalf("open as alice: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round-trip mismatch for alice")
	}

	got, err = OpenWithIdentity(b, "carol", carolPriv)
	if err != nil {
		t.Fatalf("open as carol: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round-trip mismatch for carol")
	}
}

func TestOpenRejectsNonRecipient(t *testing.T) {
	alice, _ := generateRecipient(t, "alice", cipher.EdX25519ChaCha20Poly1305)
	_, evePriv := generateRecipient(t, "eve", cipher.EdX25519ChaCha20Poly1305)

	b, err := SealToRing([]byte("secret"), []RecipientKeySet{alice})
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	if _, err := OpenWithIdentity(b, "eve", evePriv); err == nil {
		t.Fatalf("expected error opening as non-recipient")
	}
}

func TestEncodeDecodeRoundTripIsByteStable(t *testing.T) {
	alice, _ := generateRecipient(t, "alice", cipher.EdX25519ChaCha20Poly1305)
	bob, _ := generateRecipient(t, "bob", cipher.EdX25519ChaCha20Poly1305)

	b, err := SealToRing([]byte("payload"), []RecipientKeySet{bob, alice})
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	encoded1, err := Encode(b)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := Decode(encoded1)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	encoded2, err := Encode(decoded)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}

	if !bytes.Equal(encoded1, encoded2) {
		t.Fatalf("encode(decode(encode(b))) != encode(b)")
	}

	if ID(encoded1) != ID(encoded2) {
		t.Fatalf("block id not stable across round-trip")
	}
}

func TestIdIsContentAddressed(t *testing.T) {
	a := []byte("same bytes")
	b := []byte("same bytes")
	c := []byte("different bytes")

	if ID(a) != ID(b) {
		t.Fatalf("identical bytes produced different ids")
	}
	if ID(a) == ID(c) {
		t.Fatalf("different bytes produced the same id")
	}
}
