package organization

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/simple-oxtrust/pkg/cache"
	"github.com/tendant/simple-oxtrust/pkg/persistence"
	"github.com/tendant/simple-oxtrust/pkg/registration"
)

const cacheKey = "organization"

var ErrOrganizationNotFound = errors.New("organization not found")

// OrganizationService resolves the organization entry and its base DN.
// Reads go through the cache.
type OrganizationService struct {
	store  persistence.EntryStore
	cache  cache.Cache[Organization]
	ttl    time.Duration
	inum   string
	baseDN string
}

// NewOrganizationService creates the service for the organization inum
// stored below baseDN.
func NewOrganizationService(store persistence.EntryStore, c cache.Cache[Organization], ttl time.Duration, inum, baseDN string) *OrganizationService {
	return &OrganizationService{
		store:  store,
		cache:  c,
		ttl:    ttl,
		inum:   inum,
		baseDN: baseDN,
	}
}

// DNForOrganization returns the DN of the organization entry.
func (s *OrganizationService) DNForOrganization() string {
	return persistence.BuildDN("o", s.inum, s.baseDN)
}

// Inum returns the organization inum.
func (s *OrganizationService) Inum() string {
	return s.inum
}

// GetOrganization returns the organization entry.
func (s *OrganizationService) GetOrganization(ctx context.Context) (*Organization, error) {
	org, err := cache.GetWithFetch(ctx, s.cache, cacheKey, s.ttl, func(ctx context.Context, key string) (Organization, error) {
		found, err := persistence.Find[Organization](ctx, s.store, s.DNForOrganization())
		if err != nil {
			if errors.Is(err, persistence.ErrEntryNotFound) {
				return Organization{}, ErrOrganizationNotFound
			}
			return Organization{}, fmt.Errorf("failed to get organization: %w", err)
		}
		return *found, nil
	})
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// UpdateOrganization stores org and drops the cached copy.
func (s *OrganizationService) UpdateOrganization(ctx context.Context, org *Organization) error {
	org.SetDN(s.DNForOrganization())
	org.Inum = s.inum
	if err := persistence.Merge(ctx, s.store, org); err != nil {
		if errors.Is(err, persistence.ErrEntryNotFound) {
			return ErrOrganizationNotFound
		}
		return fmt.Errorf("failed to update organization: %w", err)
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		slog.Warn("Failed to invalidate cached organization", "err", err)
	}
	return nil
}

// EnsureOrganization creates the organization entry when it does not exist.
func (s *OrganizationService) EnsureOrganization(ctx context.Context, displayName string) (*Organization, error) {
	org, err := s.GetOrganization(ctx)
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, ErrOrganizationNotFound) {
		return nil, err
	}

	org = &Organization{
		BaseEntry:   persistence.BaseEntry{DN: s.DNForOrganization()},
		Inum:        s.inum,
		DisplayName: displayName,
	}
	if err := persistence.Persist(ctx, s.store, org); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}
	slog.Info("Created organization", "dn", org.DN)
	return org, nil
}

// RegistrationConfiguration returns the registration configuration of the
// organization.
func (s *OrganizationService) RegistrationConfiguration(ctx context.Context) (*registration.Configuration, error) {
	org, err := s.GetOrganization(ctx)
	if err != nil {
		return nil, err
	}
	return org.RegistrationConfiguration, nil
}

// UpdateRegistrationConfiguration replaces the registration configuration
// of the organization.
func (s *OrganizationService) UpdateRegistrationConfiguration(ctx context.Context, cfg *registration.Configuration) error {
	org, err := s.GetOrganization(ctx)
	if err != nil {
		return err
	}
	org.RegistrationConfiguration = cfg
	return s.UpdateOrganization(ctx, org)
}
