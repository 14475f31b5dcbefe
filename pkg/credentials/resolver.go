package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/venkytv/riverside-connector/internal/models"
	"github.com/venkytv/riverside-connector/pkg/secrets"
)

var (
	// ErrNotInstalled indicates no credential exists for the resolved
	// scope; the caller has not installed the integration.
	ErrNotInstalled = errors.New("integration not installed")

	// ErrInvalidKey indicates the stored credential failed schema
	// validation or could not be decrypted. A garbage key is never
	// returned in its place.
	ErrInvalidKey = errors.New("invalid stored credential")
)

// keyRecord is the JSON document stored in Credential.Key. The api_key
// value is ciphertext produced by the secrets cipher.
type keyRecord struct {
	APIKey string `json:"api_key"`
}

// SealKey encrypts an API key and wraps it in the stored JSON document.
func SealKey(cipher *secrets.Cipher, apiKey string) (string, error) {
	encrypted, err := cipher.Encrypt(apiKey)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt API key: %w", err)
	}

	data, err := json.Marshal(keyRecord{APIKey: encrypted})
	if err != nil {
		return "", fmt.Errorf("failed to marshal key record: %w", err)
	}

	return string(data), nil
}

// Resolver looks up the credential a booking should use and decrypts it.
type Resolver struct {
	store  Store
	cipher *secrets.Cipher
	logger *slog.Logger
}

// NewResolver creates a credential resolver backed by the given store.
func NewResolver(store Store, cipher *secrets.Cipher, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{
		store:  store,
		cipher: cipher,
		logger: logger,
	}
}

// Resolve returns the decrypted API key for the caller. A team id takes
// precedence over the user id: a team context implies the team installed
// the integration, so exactly one lookup is performed.
func (r *Resolver) Resolve(ctx context.Context, userID int64, teamID *int64) (string, error) {
	kind, ownerID := models.OwnerUser, userID
	if teamID != nil {
		kind, ownerID = models.OwnerTeam, *teamID
	}

	cred, err := r.store.Find(ctx, kind, ownerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			r.logger.Debug("No credential installed",
				"owner_kind", kind,
				"owner_id", ownerID)
			return "", ErrNotInstalled
		}
		return "", fmt.Errorf("failed to look up credential: %w", err)
	}

	apiKey, err := r.unseal(cred)
	if err != nil {
		r.logger.Warn("Stored credential is unusable",
			"owner_kind", kind,
			"owner_id", ownerID,
			"error", err)
		return "", err
	}

	return apiKey, nil
}

// Unseal decrypts a stored credential. Exposed for the background monitor,
// which sweeps all credentials rather than resolving a single scope.
func (r *Resolver) Unseal(cred *models.Credential) (string, error) {
	return r.unseal(cred)
}

func (r *Resolver) unseal(cred *models.Credential) (string, error) {
	var record keyRecord
	if err := json.Unmarshal([]byte(cred.Key), &record); err != nil {
		return "", fmt.Errorf("%w: key record is not valid JSON: %v", ErrInvalidKey, err)
	}
	if record.APIKey == "" {
		return "", fmt.Errorf("%w: key record has no api_key", ErrInvalidKey)
	}

	apiKey, err := r.cipher.Decrypt(record.APIKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if apiKey == "" {
		return "", fmt.Errorf("%w: decrypted key is empty", ErrInvalidKey)
	}

	return apiKey, nil
}
