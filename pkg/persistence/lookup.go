package persistence

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tendant/simple-oxtrust/pkg/persistence/filter"
)

// LookupStatus tells a found entry, a missing entry and a failed read apart.
type LookupStatus int

const (
	LookupFound LookupStatus = iota
	LookupNotFound
	LookupStoreError
)

// LookupResult is the outcome of a point lookup. Services keep it until
// their public boundary decides how to report a miss or a failure.
type LookupResult[T any] struct {
	Status LookupStatus
	Value  *T
	Err    error
}

// Lookup reads the entry at dn.
func Lookup[T any](ctx context.Context, s EntryStore, dn string) LookupResult[T] {
	value, err := Find[T](ctx, s, dn)
	switch {
	case err == nil:
		return LookupResult[T]{Status: LookupFound, Value: value}
	case errors.Is(err, ErrEntryNotFound), errors.Is(err, ErrInvalidDN):
		return LookupResult[T]{Status: LookupNotFound}
	default:
		return LookupResult[T]{Status: LookupStoreError, Err: err}
	}
}

// LookupFirst returns the first entry below baseDN matching f.
func LookupFirst[T any](ctx context.Context, s EntryStore, baseDN string, f filter.Filter) LookupResult[T] {
	values, err := FindEntries[T](ctx, s, baseDN, f, 1)
	if err != nil {
		return LookupResult[T]{Status: LookupStoreError, Err: err}
	}
	if len(values) == 0 {
		return LookupResult[T]{Status: LookupNotFound}
	}
	return LookupResult[T]{Status: LookupFound, Value: values[0]}
}

// OrNil returns the value, or nil for a miss or a failure. Failures are
// logged with the given key/value attributes.
func (r LookupResult[T]) OrNil(msg string, args ...any) *T {
	switch r.Status {
	case LookupFound:
		return r.Value
	case LookupStoreError:
		slog.Error(msg, append(args, "err", r.Err)...)
	default:
		slog.Debug(msg, append(args, "reason", "not found")...)
	}
	return nil
}

// Unwrap returns the value, notFound for a miss, or the store error.
func (r LookupResult[T]) Unwrap(notFound error) (*T, error) {
	switch r.Status {
	case LookupFound:
		return r.Value, nil
	case LookupNotFound:
		return nil, notFound
	default:
		return nil, r.Err
	}
}
