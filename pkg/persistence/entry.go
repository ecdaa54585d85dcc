package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tendant/simple-oxtrust/pkg/persistence/filter"
)

var (
	ErrEntryNotFound = errors.New("entry not found")
	ErrEntryExists   = errors.New("entry already exists")
	ErrInvalidDN     = errors.New("invalid dn")
)

// Persistence types reported by EntryStore.PersistenceType.
const (
	TypeInMemory = "inmem"
	TypeFile     = "file"
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
)

// Entry is implemented by every persisted entity.
type Entry interface {
	GetDN() string
	SetDN(dn string)
}

// ObjectClasser is implemented by entities that declare an object class.
// Stores index documents by it so searches can be restricted to one class.
type ObjectClasser interface {
	ObjectClass() string
}

// BaseEntry carries the distinguished name of an entity.
type BaseEntry struct {
	DN string `json:"dn"`
}

func (e *BaseEntry) GetDN() string   { return e.DN }
func (e *BaseEntry) SetDN(dn string) { e.DN = dn }

// Document is the raw form of an entry held by a store.
type Document struct {
	DN          string          `json:"dn"`
	ObjectClass string          `json:"objectClass,omitempty"`
	Data        json.RawMessage `json:"data"`
}

// EntryStore is a keyed, hierarchical entry store addressed by DN.
type EntryStore interface {
	// Find returns the document stored at dn or ErrEntryNotFound.
	Find(ctx context.Context, dn string) (Document, error)

	// Contains reports whether an entry exists at dn.
	Contains(ctx context.Context, dn string) (bool, error)

	// Persist adds a new entry. It fails with ErrEntryExists when dn is taken.
	Persist(ctx context.Context, doc Document) error

	// Merge replaces an existing entry. It fails with ErrEntryNotFound.
	Merge(ctx context.Context, doc Document) error

	// Remove deletes the entry at dn. It fails with ErrEntryNotFound.
	Remove(ctx context.Context, dn string) error

	// FindEntries returns documents below baseDN, in insertion order, that
	// have objectClass (any when empty) and match f (all when nil). At most
	// sizeLimit documents are returned; sizeLimit <= 0 means no limit.
	FindEntries(ctx context.Context, baseDN, objectClass string, f filter.Filter, sizeLimit int) ([]Document, error)

	// PersistenceType names the backing implementation.
	PersistenceType() string

	Close() error
}

// NewDocument marshals e into a Document.
func NewDocument(e Entry) (Document, error) {
	if e.GetDN() == "" {
		return Document{}, ErrInvalidDN
	}
	data, err := json.Marshal(e)
	if err != nil {
		return Document{}, fmt.Errorf("failed to marshal entry %s: %w", e.GetDN(), err)
	}
	return Document{DN: e.GetDN(), ObjectClass: objectClassOf(e), Data: data}, nil
}

// Find loads the entry at dn into a new T.
func Find[T any](ctx context.Context, s EntryStore, dn string) (*T, error) {
	doc, err := s.Find(ctx, dn)
	if err != nil {
		return nil, err
	}
	return decode[T](doc)
}

// FindEntries searches below baseDN and decodes each document into a T. The
// search is restricted to T's object class when T declares one.
func FindEntries[T any](ctx context.Context, s EntryStore, baseDN string, f filter.Filter, sizeLimit int) ([]*T, error) {
	docs, err := s.FindEntries(ctx, baseDN, objectClassOf(new(T)), f, sizeLimit)
	if err != nil {
		return nil, err
	}
	result := make([]*T, 0, len(docs))
	for _, doc := range docs {
		entity, err := decode[T](doc)
		if err != nil {
			return nil, err
		}
		result = append(result, entity)
	}
	return result, nil
}

// Persist adds e to the store.
func Persist(ctx context.Context, s EntryStore, e Entry) error {
	doc, err := NewDocument(e)
	if err != nil {
		return err
	}
	return s.Persist(ctx, doc)
}

// Merge replaces the stored copy of e.
func Merge(ctx context.Context, s EntryStore, e Entry) error {
	doc, err := NewDocument(e)
	if err != nil {
		return err
	}
	return s.Merge(ctx, doc)
}

func decode[T any](doc Document) (*T, error) {
	entity := new(T)
	if err := json.Unmarshal(doc.Data, entity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry %s: %w", doc.DN, err)
	}
	if e, ok := any(entity).(Entry); ok && e.GetDN() == "" {
		e.SetDN(doc.DN)
	}
	return entity, nil
}

func objectClassOf(v any) string {
	if oc, ok := v.(ObjectClasser); ok {
		return oc.ObjectClass()
	}
	return ""
}
