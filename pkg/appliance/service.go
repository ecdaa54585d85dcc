package appliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/simple-oxtrust/pkg/cache"
	"github.com/tendant/simple-oxtrust/pkg/persistence"
)

var ErrApplianceNotFound = errors.New("appliance not found")

// ApplianceService reads and updates the appliance entry
// inum=<inum>,ou=appliances,<baseDN>.
type ApplianceService struct {
	store  persistence.EntryStore
	inum   string
	baseDN string
	now    func() time.Time
}

type Option func(*ApplianceService)

// WithClock replaces time.Now for heartbeats
func WithClock(now func() time.Time) Option {
	return func(s *ApplianceService) {
		s.now = now
	}
}

func NewApplianceService(store persistence.EntryStore, inum, baseDN string, opts ...Option) *ApplianceService {
	s := &ApplianceService{
		store:  store,
		inum:   inum,
		baseDN: baseDN,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ApplianceService) DNForAppliance() string {
	return persistence.BuildDN("inum", s.inum, persistence.BuildDN("ou", "appliances", s.baseDN))
}

// GetAppliance returns the appliance entry.
func (s *ApplianceService) GetAppliance(ctx context.Context) (*Appliance, error) {
	return persistence.Lookup[Appliance](ctx, s.store, s.DNForAppliance()).Unwrap(ErrApplianceNotFound)
}

// UpdateAppliance stores a. DN and inum are taken from the service.
func (s *ApplianceService) UpdateAppliance(ctx context.Context, a *Appliance) error {
	a.SetDN(s.DNForAppliance())
	a.Inum = s.inum
	if err := persistence.Merge(ctx, s.store, a); err != nil {
		if errors.Is(err, persistence.ErrEntryNotFound) {
			return ErrApplianceNotFound
		}
		return fmt.Errorf("failed to update appliance: %w", err)
	}
	return nil
}

// EnsureAppliance creates the appliance entry when missing. The cache
// configuration is only written on creation; an existing entry keeps its own.
func (s *ApplianceService) EnsureAppliance(ctx context.Context, displayName string, cacheCfg *cache.Config) (*Appliance, error) {
	a, err := s.GetAppliance(ctx)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, ErrApplianceNotFound) {
		return nil, err
	}

	now := s.now()
	a = &Appliance{
		BaseEntry:          persistence.BaseEntry{DN: s.DNForAppliance()},
		Inum:               s.inum,
		DisplayName:        displayName,
		LastUpdate:         &now,
		CacheConfiguration: cacheCfg,
		PersistenceType:    persistence.Describe(s.store),
	}
	if err := persistence.Persist(ctx, s.store, a); err != nil {
		return nil, fmt.Errorf("failed to create appliance: %w", err)
	}
	slog.Info("Created appliance", "dn", a.DN)
	return a, nil
}

// Heartbeat sets the appliance last update time to now.
func (s *ApplianceService) Heartbeat(ctx context.Context) error {
	a, err := s.GetAppliance(ctx)
	if err != nil {
		return err
	}
	now := s.now()
	a.LastUpdate = &now
	a.PersistenceType = persistence.Describe(s.store)
	return s.UpdateAppliance(ctx, a)
}

// RunHeartbeat calls Heartbeat every interval until ctx is done.
func (s *ApplianceService) RunHeartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Heartbeat(ctx); err != nil {
				slog.Error("Failed to update appliance heartbeat", "err", err)
			}
		}
	}
}

// ResolveCacheConfiguration returns the cache configuration of the
// appliance. A missing appliance, a missing configuration or one without a
// provider type yields an in-memory configuration.
func (s *ApplianceService) ResolveCacheConfiguration(ctx context.Context) cache.Config {
	a, err := s.GetAppliance(ctx)
	if err == nil && a.CacheConfiguration != nil && a.CacheConfiguration.Provider != "" {
		slog.Info("Cache configuration", "provider", a.CacheConfiguration.Provider, "ttl", a.CacheConfiguration.TTL())
		return *a.CacheConfiguration
	}

	slog.Error("Failed to read cache configuration from appliance oxCacheConfiguration", "dn", s.DNForAppliance(), "err", err)
	slog.Info("Using fallback IN_MEMORY cache configuration")
	return cache.Config{Provider: cache.ProviderInMemory}
}
