package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tendant/simple-oxtrust/pkg/persistence/filter"
)

const entriesFileName = "entries.json"

// FileEntryStore implements EntryStore using file-based storage. Every
// mutation rewrites the data file atomically.
type FileEntryStore struct {
	dataDir string
	mem     *InMemoryEntryStore
	mutex   sync.Mutex
}

// NewFileEntryStore creates a new file-based entry store rooted at dataDir
func NewFileEntryStore(dataDir string) (*FileEntryStore, error) {
	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store := &FileEntryStore{
		dataDir: dataDir,
		mem:     NewInMemoryEntryStore(),
	}

	if err := store.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	return store, nil
}

func (s *FileEntryStore) Find(ctx context.Context, dn string) (Document, error) {
	return s.mem.Find(ctx, dn)
}

func (s *FileEntryStore) Contains(ctx context.Context, dn string) (bool, error) {
	return s.mem.Contains(ctx, dn)
}

// Persist adds a new entry and saves the file, rolling back on save failure
func (s *FileEntryStore) Persist(ctx context.Context, doc Document) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.mem.Persist(ctx, doc); err != nil {
		return err
	}
	if err := s.save(); err != nil {
		_ = s.mem.Remove(ctx, doc.DN)
		return fmt.Errorf("failed to save: %w", err)
	}
	return nil
}

// Merge replaces an existing entry and saves the file
func (s *FileEntryStore) Merge(ctx context.Context, doc Document) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	previous, err := s.mem.Find(ctx, doc.DN)
	if err != nil {
		return err
	}
	if err := s.mem.Merge(ctx, doc); err != nil {
		return err
	}
	if err := s.save(); err != nil {
		_ = s.mem.Merge(ctx, previous)
		return fmt.Errorf("failed to save: %w", err)
	}
	return nil
}

// Remove deletes an entry and saves the file, restoring it on save failure
func (s *FileEntryStore) Remove(ctx context.Context, dn string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	previous, err := s.mem.Find(ctx, dn)
	if err != nil {
		return err
	}
	if err := s.mem.Remove(ctx, dn); err != nil {
		return err
	}
	if err := s.save(); err != nil {
		_ = s.mem.Persist(ctx, previous)
		return fmt.Errorf("failed to save: %w", err)
	}
	return nil
}

func (s *FileEntryStore) FindEntries(ctx context.Context, baseDN, objectClass string, f filter.Filter, sizeLimit int) ([]Document, error) {
	return s.mem.FindEntries(ctx, baseDN, objectClass, f, sizeLimit)
}

// PersistenceType returns TypeFile
func (s *FileEntryStore) PersistenceType() string {
	return TypeFile
}

func (s *FileEntryStore) Close() error {
	return nil
}

// load reads entries from file
func (s *FileEntryStore) load() error {
	filePath := filepath.Join(s.dataDir, entriesFileName)

	data, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	// If file is empty, start empty
	if len(data) == 0 {
		return nil
	}

	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	for _, doc := range docs {
		if err := s.mem.Persist(context.Background(), doc); err != nil {
			return fmt.Errorf("failed to load entry %s: %w", doc.DN, err)
		}
	}
	return nil
}

// save writes entries to file atomically
func (s *FileEntryStore) save() error {
	data, err := json.MarshalIndent(s.mem.snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	// Write to temp file first
	tempFile := filepath.Join(s.dataDir, entriesFileName+".tmp")
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	// Atomic rename
	finalFile := filepath.Join(s.dataDir, entriesFileName)
	if err := os.Rename(tempFile, finalFile); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}
