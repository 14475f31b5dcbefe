package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/venkytv/riverside-connector/internal/models"
)

// FileStore persists credentials to a single JSON file. The stored API
// keys are already ciphertext, so the file holds no plaintext secrets.
// Suitable for single-node deployments; relational engines plug in behind
// the same Store interface.
type FileStore struct {
	mu    sync.RWMutex
	path  string
	creds map[string]*models.Credential
}

// NewFileStore loads the store file if it exists, or starts empty.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:  path,
		creds: make(map[string]*models.Credential),
	}

	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load credential store: %w", err)
	}

	return s, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var creds []*models.Credential
	if err := json.Unmarshal(data, &creds); err != nil {
		return fmt.Errorf("failed to parse %s: %w", s.path, err)
	}

	for _, cred := range creds {
		s.creds[scopeKey(cred.OwnerKind, cred.OwnerID)] = cred
	}
	return nil
}

// persist writes the full credential set to a temp file and renames it
// into place, so a crash mid-write never truncates the store.
func (s *FileStore) persist() error {
	creds := make([]*models.Credential, 0, len(s.creds))
	for _, cred := range s.creds {
		creds = append(creds, cred)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credentials-*.json")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), s.path)
}

func (s *FileStore) Upsert(ctx context.Context, cred *models.Credential) error {
	if cred == nil {
		return fmt.Errorf("credential must not be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *cred
	s.creds[scopeKey(cred.OwnerKind, cred.OwnerID)] = &copied
	return s.persist()
}

func (s *FileStore) Find(ctx context.Context, kind models.OwnerKind, ownerID int64) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, exists := s.creds[scopeKey(kind, ownerID)]
	if !exists {
		return nil, ErrNotFound
	}

	copied := *cred
	return &copied, nil
}

func (s *FileStore) Delete(ctx context.Context, kind models.OwnerKind, ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := scopeKey(kind, ownerID)
	if _, exists := s.creds[key]; !exists {
		return ErrNotFound
	}

	delete(s.creds, key)
	return s.persist()
}

func (s *FileStore) List(ctx context.Context) ([]*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	creds := make([]*models.Credential, 0, len(s.creds))
	for _, cred := range s.creds {
		copied := *cred
		creds = append(creds, &copied)
	}
	return creds, nil
}
