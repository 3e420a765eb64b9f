package utils

import "testing"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	encrypted, err := Encrypt([]byte("oauth-access-token"), key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if encrypted == "oauth-access-token" {
		t.Fatal("ciphertext equals plaintext")
	}

	decrypted, err := Decrypt(encrypted, key)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if decrypted != "oauth-access-token" {
		t.Errorf("got %q after round trip", decrypted)
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	encrypted, err := Encrypt([]byte("secret"), []byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if _, err := Decrypt(encrypted, []byte("ffffffffffffffffffffffffffffffff")); err == nil {
		t.Error("expected an error for the wrong key")
	}
}
