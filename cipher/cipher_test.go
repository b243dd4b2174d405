package cipher

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func randomBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}

func TestSuitesSealOpenDataKeyRoundTrip(t *testing.T) {
	for _, tag := range Tags() {
		tag := tag
		t.Run(tag.String(), func(t *testing.T) {
			suite, ok := By(tag)
			if !ok {
				t.Fatalf("suite %s not registered", tag)
			}

			pubA, privA, err := suite.GenerateKeyPair()
			if err != nil {
				t.Fatalf("generate keypair A: %v", err)
			}
			pubB, privB, err := suite.GenerateKeyPair()
			if err != nil {
				t.Fatalf("generate keypair B: %v", err)
			}

			dataKey := randomBytes(32)
			blockNonce := randomBytes(suite.NonceSize())

			commonKey, wrapped, err := suite.SealDataKey(dataKey, blockNonce, []Recipient{
				{IdentityID: "a", PublicKey: pubA},
				{IdentityID: "b", PublicKey: pubB},
			})
			if err != nil {
				t.Fatalf("seal data key: %v", err)
			}
			if len(wrapped) != 2 {
				t.Fatalf("expected 2 wrapped keys, got %d", len(wrapped))
			}

			var forA, forB []byte
			for _, w := range wrapped {
				switch w.IdentityID {
				case "a":
					forA = w.CryptedKey
				case "b":
					forB = w.CryptedKey
				}
			}

			openedA, err := suite.OpenDataKey(privA, commonKey, blockNonce, forA)
			if err != nil {
				t.Fatalf("open data key as a: %v", err)
			}
			if !bytes.Equal(openedA, dataKey) {
				t.Fatalf("recipient a recovered wrong data key")
			}

			openedB, err := suite.OpenDataKey(privB, commonKey, blockNonce, forB)
			if err != nil {
				t.Fatalf("open data key as b: %v", err)
			}
			if !bytes.Equal(openedB, dataKey) {
				t.Fatalf("recipient b recovered wrong data key")
			}

			// A must not be able to open B's wrapped key.
			if _, err := suite.OpenDataKey(privA, commonKey, blockNonce, forB); err == nil {
				t.Fatalf("identity a should not be able to open identity b's wrapped key")
			}
		})
	}
}

func TestSuitesAEADRoundTrip(t *testing.T) {
	for _, tag := range Tags() {
		suite, _ := By(tag)
		key := randomBytes(32)
		nonce := randomBytes(suite.NonceSize())
		plaintext := []byte("hunter2")
		aad := []byte("aad")

		ciphertext, err := suite.AEADSeal(key, nonce, plaintext, aad)
		if err != nil {
			t.Fatalf("%s: seal: %v", tag, err)
		}
		opened, err := suite.AEADOpen(key, nonce, ciphertext, aad)
		if err != nil {
			t.Fatalf("%s: open: %v", tag, err)
		}
		if !bytes.Equal(opened, plaintext) {
			t.Fatalf("%s: round-trip mismatch", tag)
		}

		if _, err := suite.AEADOpen(key, nonce, ciphertext, []byte("wrong-aad")); err == nil {
			t.Fatalf("%s: expected authentication failure on wrong aad", tag)
		}
	}
}

func TestSelectPrimaryPrefersHighestCommonSuite(t *testing.T) {
	tag, ok := SelectPrimary([][]Tag{
		{RsaAesGcm, EdX25519ChaCha20Poly1305},
		{RsaAesGcm, EdX25519ChaCha20Poly1305},
	})
	if !ok || tag != EdX25519ChaCha20Poly1305 {
		t.Fatalf("expected ed25519_x25519_chacha20_poly1305 to be selected, got %s ok=%v", tag, ok)
	}
}

func TestSelectPrimaryFallsBackWhenDisjoint(t *testing.T) {
	_, ok := SelectPrimary([][]Tag{
		{RsaAesGcm},
		{EdX25519ChaCha20Poly1305},
	})
	if ok {
		t.Fatalf("expected no common suite")
	}

	best := LargestCoverage([][]Tag{
		{RsaAesGcm},
		{RsaAesGcm},
		{EdX25519ChaCha20Poly1305},
	})
	if best != RsaAesGcm {
		t.Fatalf("expected rsa_aes_gcm to have largest coverage, got %s", best)
	}
}
