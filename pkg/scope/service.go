package scope

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tendant/simple-oxtrust/pkg/persistence"
	"github.com/tendant/simple-oxtrust/pkg/persistence/filter"
)

var (
	ErrScopeNotFound    = errors.New("scope not found")
	ErrEmptyScopeName   = errors.New("scope display name cannot be empty")
	ErrInvalidScopeType = errors.New("invalid scope type")
)

// OrganizationResolver supplies the organization DN scopes live under.
type OrganizationResolver interface {
	DNForOrganization() string
}

// ScopeService manages scope entries below ou=scopes of the organization.
//
// The Get*, Search and List methods never fail: store errors are logged and
// reported as a missing scope or an empty list. Callers that need to tell a
// store error from a missing entry use the Lookup* methods.
type ScopeService struct {
	store       persistence.EntryStore
	org         OrganizationResolver
	newInum     persistence.InumGenerator
	inumRetries int
}

// Option configures a ScopeService
type Option func(*ScopeService)

// WithInumGenerator replaces the random UUID inum generator
func WithInumGenerator(gen persistence.InumGenerator) Option {
	return func(s *ScopeService) {
		s.newInum = gen
	}
}

// WithInumRetries bounds the attempts to find an unused inum
func WithInumRetries(n int) Option {
	return func(s *ScopeService) {
		s.inumRetries = n
	}
}

func NewScopeService(store persistence.EntryStore, org OrganizationResolver, opts ...Option) *ScopeService {
	s := &ScopeService{
		store:       store,
		org:         org,
		newInum:     persistence.NewUUIDInum,
		inumRetries: persistence.DefaultInumRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DNForScope returns the DN of the scope with inum, or the DN of the scopes
// branch when inum is empty.
func (s *ScopeService) DNForScope(inum string) string {
	branch := persistence.BuildDN("ou", "scopes", s.org.DNForOrganization())
	if inum == "" {
		return branch
	}
	return persistence.BuildDN("inum", inum, branch)
}

// GenerateInumForNewScope returns an inum whose DN is not yet taken.
func (s *ScopeService) GenerateInumForNewScope(ctx context.Context) (string, error) {
	return persistence.GenerateInum(ctx, s.store, s.newInum, s.DNForScope, s.inumRetries)
}

// AddScope stores a new scope. A scope without inum gets a generated one.
func (s *ScopeService) AddScope(ctx context.Context, scope *Scope) error {
	if strings.TrimSpace(scope.DisplayName) == "" {
		return ErrEmptyScopeName
	}
	if scope.Type != "" && !scope.Type.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidScopeType, scope.Type)
	}
	if scope.Inum == "" {
		inum, err := s.GenerateInumForNewScope(ctx)
		if err != nil {
			return err
		}
		scope.Inum = inum
	}
	scope.SetDN(s.DNForScope(scope.Inum))

	if err := persistence.Persist(ctx, s.store, scope); err != nil {
		return fmt.Errorf("failed to add scope: %w", err)
	}
	return nil
}

// UpdateScope replaces the stored scope at scope's DN.
func (s *ScopeService) UpdateScope(ctx context.Context, scope *Scope) error {
	if strings.TrimSpace(scope.DisplayName) == "" {
		return ErrEmptyScopeName
	}
	if scope.Type != "" && !scope.Type.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidScopeType, scope.Type)
	}
	if scope.GetDN() == "" {
		scope.SetDN(s.DNForScope(scope.Inum))
	}
	if err := persistence.Merge(ctx, s.store, scope); err != nil {
		if errors.Is(err, persistence.ErrEntryNotFound) {
			return ErrScopeNotFound
		}
		return fmt.Errorf("failed to update scope: %w", err)
	}
	return nil
}

// RemoveScope deletes the scope at scope's DN. Clients referencing it are
// left untouched.
func (s *ScopeService) RemoveScope(ctx context.Context, scope *Scope) error {
	dn := scope.GetDN()
	if dn == "" {
		dn = s.DNForScope(scope.Inum)
	}
	if err := s.store.Remove(ctx, dn); err != nil {
		if errors.Is(err, persistence.ErrEntryNotFound) {
			return ErrScopeNotFound
		}
		return fmt.Errorf("failed to remove scope: %w", err)
	}
	return nil
}

// GetScopeByInum returns the scope with inum, or nil.
func (s *ScopeService) GetScopeByInum(ctx context.Context, inum string) *Scope {
	return s.lookupByDN(ctx, s.DNForScope(inum)).OrNil("Failed to get scope", "inum", inum)
}

// GetScopeByDN returns the scope stored at dn, or nil.
func (s *ScopeService) GetScopeByDN(ctx context.Context, dn string) *Scope {
	return s.lookupByDN(ctx, dn).OrNil("Failed to get scope", "dn", dn)
}

// GetScopeByDisplayName returns the first scope named displayName, or nil.
func (s *ScopeService) GetScopeByDisplayName(ctx context.Context, displayName string) *Scope {
	return s.lookupByDisplayName(ctx, displayName).OrNil("Failed to get scope", "displayName", displayName)
}

// LookupScopeByInum is GetScopeByInum with errors: ErrScopeNotFound for a
// missing entry, the store error otherwise.
func (s *ScopeService) LookupScopeByInum(ctx context.Context, inum string) (*Scope, error) {
	return s.lookupByDN(ctx, s.DNForScope(inum)).Unwrap(ErrScopeNotFound)
}

// LookupScopeByDN is GetScopeByDN with errors.
func (s *ScopeService) LookupScopeByDN(ctx context.Context, dn string) (*Scope, error) {
	return s.lookupByDN(ctx, dn).Unwrap(ErrScopeNotFound)
}

// LookupScopeByDisplayName is GetScopeByDisplayName with errors.
func (s *ScopeService) LookupScopeByDisplayName(ctx context.Context, displayName string) (*Scope, error) {
	return s.lookupByDisplayName(ctx, displayName).Unwrap(ErrScopeNotFound)
}

// SearchScopes returns up to sizeLimit scopes whose display name or
// description contains pattern. A blank pattern lists all scopes. UMA
// scopes are never returned.
func (s *ScopeService) SearchScopes(ctx context.Context, pattern string, sizeLimit int) []*Scope {
	scopes, err := s.find(ctx, SearchFilter(pattern), sizeLimit)
	if err != nil {
		slog.Error("Failed to search scopes", "pattern", pattern, "err", err)
		return []*Scope{}
	}
	return scopes
}

// GetAllScopes returns up to sizeLimit scopes, excluding UMA scopes.
func (s *ScopeService) GetAllScopes(ctx context.Context, sizeLimit int) []*Scope {
	scopes, err := s.find(ctx, nil, sizeLimit)
	if err != nil {
		slog.Error("Failed to list scopes", "err", err)
		return []*Scope{}
	}
	return scopes
}

// ScopeTypes returns every scope type except UMA.
func (s *ScopeService) ScopeTypes() []ScopeType {
	types := make([]ScopeType, 0, len(AllScopeTypes))
	for _, t := range AllScopeTypes {
		if t != ScopeTypeUMA {
			types = append(types, t)
		}
	}
	return types
}

// SearchFilter builds the scope search filter for pattern, or nil for a
// blank pattern.
func SearchFilter(pattern string) filter.Filter {
	if strings.TrimSpace(pattern) == "" {
		return nil
	}
	return filter.Or(
		filter.Contains("displayName", pattern),
		filter.Contains("description", pattern),
	)
}

func (s *ScopeService) find(ctx context.Context, f filter.Filter, sizeLimit int) ([]*Scope, error) {
	scopes, err := persistence.FindEntries[Scope](ctx, s.store, s.DNForScope(""), f, sizeLimit)
	if err != nil {
		return nil, err
	}
	return withoutUMA(scopes), nil
}

func withoutUMA(scopes []*Scope) []*Scope {
	result := make([]*Scope, 0, len(scopes))
	for _, sc := range scopes {
		if !sc.IsUMA() {
			result = append(result, sc)
		}
	}
	return result
}

func (s *ScopeService) lookupByDN(ctx context.Context, dn string) persistence.LookupResult[Scope] {
	return persistence.Lookup[Scope](ctx, s.store, dn)
}

func (s *ScopeService) lookupByDisplayName(ctx context.Context, displayName string) persistence.LookupResult[Scope] {
	return persistence.LookupFirst[Scope](ctx, s.store, s.DNForScope(""), filter.Equality("displayName", displayName))
}
