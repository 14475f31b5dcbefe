package secrets

import (
	"errors"
	"testing"
)

func TestNewCipherRequiresSecret(t *testing.T) {
	if _, err := NewCipher(""); err == nil {
		t.Error("Expected error for empty secret, got none")
	}

	cipher, err := NewCipher("deployment-secret")
	if err != nil {
		t.Fatalf("Failed to create cipher: %v", err)
	}
	if cipher == nil {
		t.Fatal("Expected non-nil cipher")
	}
}

func TestCipherRoundTrip(t *testing.T) {
	cipher, err := NewCipher("deployment-secret")
	if err != nil {
		t.Fatalf("Failed to create cipher: %v", err)
	}

	keys := []string{
		"rsk_live_abc123",
		"a",
		"key with spaces and ünïcode",
		"very-long-key-0123456789-0123456789-0123456789-0123456789",
	}

	for _, key := range keys {
		ciphertext, err := cipher.Encrypt(key)
		if err != nil {
			t.Fatalf("Failed to encrypt %q: %v", key, err)
		}
		if ciphertext == key {
			t.Errorf("Ciphertext must differ from plaintext for %q", key)
		}

		plaintext, err := cipher.Decrypt(ciphertext)
		if err != nil {
			t.Fatalf("Failed to decrypt %q: %v", key, err)
		}
		if plaintext != key {
			t.Errorf("Expected round-trip to recover %q, got %q", key, plaintext)
		}
	}
}

func TestCipherNoncesDiffer(t *testing.T) {
	cipher, err := NewCipher("deployment-secret")
	if err != nil {
		t.Fatalf("Failed to create cipher: %v", err)
	}

	first, err := cipher.Encrypt("same-key")
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}
	second, err := cipher.Encrypt("same-key")
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}

	if first == second {
		t.Error("Expected distinct ciphertexts for the same plaintext")
	}
}

func TestCipherWrongSecret(t *testing.T) {
	cipher, err := NewCipher("deployment-secret")
	if err != nil {
		t.Fatalf("Failed to create cipher: %v", err)
	}
	other, err := NewCipher("a-different-secret")
	if err != nil {
		t.Fatalf("Failed to create cipher: %v", err)
	}

	ciphertext, err := cipher.Encrypt("rsk_live_abc123")
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}

	if _, err := other.Decrypt(ciphertext); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Expected ErrDecryptionFailed with wrong secret, got %v", err)
	}
}

func TestCipherRejectsGarbage(t *testing.T) {
	cipher, err := NewCipher("deployment-secret")
	if err != nil {
		t.Fatalf("Failed to create cipher: %v", err)
	}

	tests := []struct {
		name       string
		ciphertext string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"too short", "YWJj"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := cipher.Decrypt(tt.ciphertext); !errors.Is(err, ErrDecryptionFailed) {
				t.Errorf("Expected ErrDecryptionFailed, got %v", err)
			}
		})
	}
}

func TestMaskSecret(t *testing.T) {
	if MaskSecret("") != "" {
		t.Error("Expected empty mask for empty string")
	}
	if MaskSecret("rsk_live_abc123") != "********" {
		t.Errorf("Expected fixed-width mask, got %q", MaskSecret("rsk_live_abc123"))
	}
}
