package credentials

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/venkytv/riverside-connector/internal/models"
	"github.com/venkytv/riverside-connector/pkg/secrets"
)

func newTestCipher(t *testing.T) *secrets.Cipher {
	t.Helper()
	cipher, err := secrets.NewCipher("test-secret")
	if err != nil {
		t.Fatalf("Failed to create cipher: %v", err)
	}
	return cipher
}

func storeCredential(t *testing.T, store Store, cipher *secrets.Cipher, kind models.OwnerKind, ownerID int64, apiKey string) {
	t.Helper()
	sealed, err := SealKey(cipher, apiKey)
	if err != nil {
		t.Fatalf("Failed to seal key: %v", err)
	}
	err = store.Upsert(context.Background(), &models.Credential{
		ID:        "cred",
		OwnerKind: kind,
		OwnerID:   ownerID,
		Key:       sealed,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Failed to store credential: %v", err)
	}
}

func TestResolverRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	cipher := newTestCipher(t)
	resolver := NewResolver(store, cipher, nil)

	storeCredential(t, store, cipher, models.OwnerUser, 7, "rsk_live_user7")

	apiKey, err := resolver.Resolve(context.Background(), 7, nil)
	if err != nil {
		t.Fatalf("Failed to resolve key: %v", err)
	}
	if apiKey != "rsk_live_user7" {
		t.Errorf("Expected key 'rsk_live_user7', got %q", apiKey)
	}
}

func TestResolverTeamTakesPrecedence(t *testing.T) {
	store := NewMemoryStore()
	cipher := newTestCipher(t)
	resolver := NewResolver(store, cipher, nil)

	storeCredential(t, store, cipher, models.OwnerUser, 7, "rsk_live_user7")
	storeCredential(t, store, cipher, models.OwnerTeam, 3, "rsk_live_team3")

	teamID := int64(3)
	apiKey, err := resolver.Resolve(context.Background(), 7, &teamID)
	if err != nil {
		t.Fatalf("Failed to resolve key: %v", err)
	}
	if apiKey != "rsk_live_team3" {
		t.Errorf("Expected team key, got %q", apiKey)
	}
}

func TestResolverTeamScopeDoesNotFallBack(t *testing.T) {
	store := NewMemoryStore()
	cipher := newTestCipher(t)
	resolver := NewResolver(store, cipher, nil)

	// Only a personal credential exists; a team context must not fall
	// back to it, since a team context implies team installation
	storeCredential(t, store, cipher, models.OwnerUser, 7, "rsk_live_user7")

	teamID := int64(3)
	_, err := resolver.Resolve(context.Background(), 7, &teamID)
	if !errors.Is(err, ErrNotInstalled) {
		t.Errorf("Expected ErrNotInstalled for team scope, got %v", err)
	}
}

func TestResolverNotInstalled(t *testing.T) {
	resolver := NewResolver(NewMemoryStore(), newTestCipher(t), nil)

	_, err := resolver.Resolve(context.Background(), 7, nil)
	if !errors.Is(err, ErrNotInstalled) {
		t.Errorf("Expected ErrNotInstalled, got %v", err)
	}
}

func TestResolverMalformedStoredKey(t *testing.T) {
	cipher := newTestCipher(t)

	tests := []struct {
		name string
		key  string
	}{
		{"not JSON", "rsk_live_plaintext"},
		{"missing api_key", `{"token":"x"}`},
		{"empty api_key", `{"api_key":""}`},
		{"undecryptable api_key", `{"api_key":"bm90LXJlYWwtY2lwaGVydGV4dA=="}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			err := store.Upsert(context.Background(), &models.Credential{
				ID:        "cred",
				OwnerKind: models.OwnerUser,
				OwnerID:   7,
				Key:       tt.key,
			})
			if err != nil {
				t.Fatalf("Failed to store credential: %v", err)
			}

			resolver := NewResolver(store, cipher, nil)
			apiKey, err := resolver.Resolve(context.Background(), 7, nil)
			if !errors.Is(err, ErrInvalidKey) {
				t.Errorf("Expected ErrInvalidKey, got %v", err)
			}
			if apiKey != "" {
				t.Errorf("Expected no key on validation failure, got %q", apiKey)
			}
		})
	}
}

func TestSealKeyRoundTrip(t *testing.T) {
	cipher := newTestCipher(t)

	sealed, err := SealKey(cipher, "rsk_live_abc123")
	if err != nil {
		t.Fatalf("Failed to seal key: %v", err)
	}
	if sealed == "" {
		t.Fatal("Expected non-empty sealed record")
	}

	store := NewMemoryStore()
	err = store.Upsert(context.Background(), &models.Credential{
		OwnerKind: models.OwnerUser,
		OwnerID:   1,
		Key:       sealed,
	})
	if err != nil {
		t.Fatalf("Failed to store credential: %v", err)
	}

	resolver := NewResolver(store, cipher, nil)
	apiKey, err := resolver.Resolve(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("Failed to resolve sealed key: %v", err)
	}
	if apiKey != "rsk_live_abc123" {
		t.Errorf("Expected original key back, got %q", apiKey)
	}
}
