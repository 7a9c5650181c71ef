package identity

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	key, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	body := []byte("ping body")
	sig := key.Sign(body)

	pub := key.Public()
	if !pub.Verify(body, sig) {
		t.Fatal("expected signature to verify")
	}
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	key, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	body := []byte{0xAA, 0xBB}
	sig := key.Sign(body)

	tampered := []byte{0xAB, 0xBB}
	if key.Public().Verify(tampered, sig) {
		t.Fatal("expected tampered body to fail verification")
	}
}

func TestAddressIsDeterministic(t *testing.T) {
	key, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	a1 := key.Public().Address()
	a2 := key.Public().Address()
	if a1 != a2 {
		t.Fatal("expected address derivation to be deterministic")
	}
	if a1.IsZero() {
		t.Fatal("expected non-zero address")
	}
}

func TestPublicKeyCompressedRoundTrip(t *testing.T) {
	key, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	compressed := key.Public().Compressed()
	if len(compressed) != 33 {
		t.Fatalf("expected 33-byte compressed public key, got %d", len(compressed))
	}
	parsed, err := ParsePublicKey(compressed)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	if !parsed.Equal(key.Public()) {
		t.Fatal("expected parsed public key to equal original")
	}
}

func TestEncryptedKeystoreRoundTrip(t *testing.T) {
	key, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "node.key")

	if err := SaveEncrypted(path, key, "correct horse battery staple", 0, 0); err != nil {
		t.Fatalf("SaveEncrypted: %v", err)
	}

	loaded, err := LoadEncrypted(path, "correct horse battery staple")
	if err != nil {
		t.Fatalf("LoadEncrypted: %v", err)
	}
	if loaded.Public().Address() != key.Public().Address() {
		t.Fatal("expected decrypted key to match original")
	}

	if _, err := LoadEncrypted(path, "wrong passphrase"); err == nil {
		t.Fatal("expected wrong passphrase to fail decryption")
	}
}

func TestRandomAddressVaries(t *testing.T) {
	a1, err := RandomAddress()
	if err != nil {
		t.Fatalf("RandomAddress: %v", err)
	}
	a2, err := RandomAddress()
	if err != nil {
		t.Fatalf("RandomAddress: %v", err)
	}
	if a1 == a2 {
		t.Fatal("expected two random addresses to differ")
	}
}

func TestMain_keyFileDir(t *testing.T) {
	// SaveEncrypted must create missing parent directories.
	dir := t.TempDir()
	nested := filepath.Join(dir, "nested", "node.key")
	key, _ := Generate()
	if err := SaveEncrypted(nested, key, "pw", 0, 0); err != nil {
		t.Fatalf("SaveEncrypted into nested dir: %v", err)
	}
	if _, err := os.Stat(nested); err != nil {
		t.Fatalf("expected key file to exist: %v", err)
	}
}
