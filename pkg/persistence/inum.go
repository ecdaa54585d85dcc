package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// DefaultInumRetries bounds GenerateInum when no limit is configured.
const DefaultInumRetries = 100

var ErrInumGenerationExhausted = errors.New("no unused inum found")

// InumGenerator produces candidate inums.
type InumGenerator func() string

// NewUUIDInum returns a random UUID string.
func NewUUIDInum() string {
	return uuid.NewString()
}

// GenerateInum draws candidates from gen until dnFor(candidate) is absent
// from s. It gives up with ErrInumGenerationExhausted after maxRetries
// draws; maxRetries <= 0 means DefaultInumRetries.
func GenerateInum(ctx context.Context, s EntryStore, gen InumGenerator, dnFor func(inum string) string, maxRetries int) (string, error) {
	if gen == nil {
		gen = NewUUIDInum
	}
	if maxRetries <= 0 {
		maxRetries = DefaultInumRetries
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		inum := gen()
		exists, err := s.Contains(ctx, dnFor(inum))
		if err != nil {
			return "", fmt.Errorf("failed to check inum %s: %w", inum, err)
		}
		if !exists {
			return inum, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrInumGenerationExhausted, maxRetries)
}
