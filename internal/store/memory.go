package store

import (
	"context"
	"sync"
)

// MemoryStore is a concurrency-safe in-memory DocumentStore.
type MemoryStore struct {
	mu sync.RWMutex

	// key: user id
	docs map[string]Document
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]Document),
	}
}

// Get returns a copy of the user's document.
func (s *MemoryStore) Get(ctx context.Context, userID string) (Document, error) {
	if userID == "" {
		return nil, ErrNoIdentity
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := make(Document, len(s.docs[userID]))
	for k, v := range s.docs[userID] {
		doc[k] = cloneValue(v)
	}
	return doc, nil
}

// Merge overlays fields onto the user's document.
func (s *MemoryStore) Merge(ctx context.Context, userID string, fields Document) error {
	if userID == "" {
		return ErrNoIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[userID]
	if !ok {
		doc = make(Document, len(fields))
		s.docs[userID] = doc
	}
	for k, v := range fields {
		doc[k] = cloneValue(v)
	}
	return nil
}
