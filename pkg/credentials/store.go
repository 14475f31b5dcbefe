// Package credentials stores encrypted provider API keys and resolves the
// key a booking should use.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/venkytv/riverside-connector/internal/models"
)

var (
	// ErrNotFound is returned by a Store when no credential exists for
	// the requested scope.
	ErrNotFound = errors.New("credential not found")
)

// Store persists credentials keyed by (owner kind, owner id). Exactly one
// active credential per scope: Upsert replaces any previous one. All
// methods must be safe for concurrent use; many bookings resolve keys at
// the same time.
type Store interface {
	Upsert(ctx context.Context, cred *models.Credential) error
	Find(ctx context.Context, kind models.OwnerKind, ownerID int64) (*models.Credential, error)
	Delete(ctx context.Context, kind models.OwnerKind, ownerID int64) error
	List(ctx context.Context) ([]*models.Credential, error)
}

func scopeKey(kind models.OwnerKind, ownerID int64) string {
	return fmt.Sprintf("%s/%d", kind, ownerID)
}

// MemoryStore is an in-process Store for tests and single-node deployments
// that can afford to reinstall on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	creds map[string]*models.Credential
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		creds: make(map[string]*models.Credential),
	}
}

func (s *MemoryStore) Upsert(ctx context.Context, cred *models.Credential) error {
	if cred == nil {
		return fmt.Errorf("credential must not be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *cred
	s.creds[scopeKey(cred.OwnerKind, cred.OwnerID)] = &copied
	return nil
}

func (s *MemoryStore) Find(ctx context.Context, kind models.OwnerKind, ownerID int64) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, exists := s.creds[scopeKey(kind, ownerID)]
	if !exists {
		return nil, ErrNotFound
	}

	copied := *cred
	return &copied, nil
}

func (s *MemoryStore) Delete(ctx context.Context, kind models.OwnerKind, ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := scopeKey(kind, ownerID)
	if _, exists := s.creds[key]; !exists {
		return ErrNotFound
	}

	delete(s.creds, key)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	creds := make([]*models.Credential, 0, len(s.creds))
	for _, cred := range s.creds {
		copied := *cred
		creds = append(creds, &copied)
	}
	return creds, nil
}
