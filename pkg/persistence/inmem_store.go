package persistence

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/tendant/simple-oxtrust/pkg/persistence/filter"
)

// InMemoryEntryStore implements EntryStore using in-memory storage.
// Entries are kept in insertion order.
type InMemoryEntryStore struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]Document
}

// NewInMemoryEntryStore creates an empty in-memory entry store
func NewInMemoryEntryStore() *InMemoryEntryStore {
	return &InMemoryEntryStore{
		entries: make(map[string]Document),
	}
}

// Find returns the document stored at dn
func (s *InMemoryEntryStore) Find(ctx context.Context, dn string) (Document, error) {
	key := NormalizeDN(dn)
	if key == "" {
		return Document{}, fmt.Errorf("%w: %q", ErrInvalidDN, dn)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.entries[key]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrEntryNotFound, dn)
	}
	return cloneDocument(doc), nil
}

// Contains reports whether an entry exists at dn
func (s *InMemoryEntryStore) Contains(ctx context.Context, dn string) (bool, error) {
	key := NormalizeDN(dn)
	if key == "" {
		return false, fmt.Errorf("%w: %q", ErrInvalidDN, dn)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.entries[key]
	return ok, nil
}

// Persist adds a new entry
func (s *InMemoryEntryStore) Persist(ctx context.Context, doc Document) error {
	key := NormalizeDN(doc.DN)
	if key == "" {
		return fmt.Errorf("%w: %q", ErrInvalidDN, doc.DN)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; exists {
		return fmt.Errorf("%w: %s", ErrEntryExists, doc.DN)
	}
	s.entries[key] = cloneDocument(doc)
	s.order = append(s.order, key)
	return nil
}

// Merge replaces an existing entry, keeping its position
func (s *InMemoryEntryStore) Merge(ctx context.Context, doc Document) error {
	key := NormalizeDN(doc.DN)
	if key == "" {
		return fmt.Errorf("%w: %q", ErrInvalidDN, doc.DN)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, doc.DN)
	}
	s.entries[key] = cloneDocument(doc)
	return nil
}

// Remove deletes the entry at dn
func (s *InMemoryEntryStore) Remove(ctx context.Context, dn string) error {
	key := NormalizeDN(dn)
	if key == "" {
		return fmt.Errorf("%w: %q", ErrInvalidDN, dn)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, dn)
	}
	delete(s.entries, key)
	s.order = slices.DeleteFunc(s.order, func(k string) bool { return k == key })
	return nil
}

// FindEntries returns matching documents below baseDN
func (s *InMemoryEntryStore) FindEntries(ctx context.Context, baseDN, objectClass string, f filter.Filter, sizeLimit int) ([]Document, error) {
	if NormalizeDN(baseDN) == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDN, baseDN)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []Document{}
	for _, key := range s.order {
		if sizeLimit > 0 && len(result) >= sizeLimit {
			break
		}
		doc := s.entries[key]
		if !IsDescendant(key, baseDN) {
			continue
		}
		if objectClass != "" && doc.ObjectClass != objectClass {
			continue
		}
		if !filter.Matches(f, doc.Data) {
			continue
		}
		result = append(result, cloneDocument(doc))
	}
	return result, nil
}

// PersistenceType returns TypeInMemory
func (s *InMemoryEntryStore) PersistenceType() string {
	return TypeInMemory
}

// Close is a no-op for in-memory storage
func (s *InMemoryEntryStore) Close() error {
	return nil
}

// snapshot returns all documents in insertion order
func (s *InMemoryEntryStore) snapshot() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]Document, 0, len(s.order))
	for _, key := range s.order {
		docs = append(docs, cloneDocument(s.entries[key]))
	}
	return docs
}

func cloneDocument(doc Document) Document {
	doc.Data = slices.Clone(doc.Data)
	return doc
}
