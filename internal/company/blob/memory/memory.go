package memory

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/gartstein/companydir/internal/company/blob"
)

const base = "memory://"

// Store is an in-memory implementation of blob.Store
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewStore creates a new in-memory blob store
func NewStore() *Store {
	return &Store{
		objects: make(map[string][]byte),
	}
}

func (s *Store) Put(_ context.Context, key, _ string, r io.Reader) (string, error) {
	if err := blob.ValidateKey(key); err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read object: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[key] = data
	return blob.RefFromKey(base, key), nil
}

func (s *Store) Delete(_ context.Context, ref string) error {
	key, err := blob.KeyFromRef(base, ref)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[key]; !ok {
		return blob.ErrNotFound
	}
	delete(s.objects, key)
	return nil
}

// Get returns the content behind ref.
func (s *Store) Get(ref string) ([]byte, bool) {
	key, err := blob.KeyFromRef(base, ref)
	if err != nil {
		return nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[key]
	return data, ok
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
