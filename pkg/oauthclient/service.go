package oauthclient

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tendant/simple-oxtrust/pkg/persistence"
	"github.com/tendant/simple-oxtrust/pkg/persistence/filter"
)

const DefaultSecretBytes = 32

var (
	ErrClientNotFound      = errors.New("client not found")
	ErrInumImmutable       = errors.New("client inum cannot be changed")
	ErrInvalidCredentials  = errors.New("invalid client credentials")
	ErrClientDisabled      = errors.New("client is disabled")
	ErrClientSecretExpired = errors.New("client secret has expired")
)

// OrganizationResolver supplies the organization DN clients live under.
type OrganizationResolver interface {
	DNForOrganization() string
}

// ClientService manages OAuth client entries below ou=clients of the
// organization. Lookups and searches follow the same contract as the scope
// service: Get* and Search* report store failures as a miss or an empty
// list, Lookup* returns them.
type ClientService struct {
	store       persistence.EntryStore
	org         OrganizationResolver
	codec       SecretCodec
	newInum     persistence.InumGenerator
	inumRetries int
	secretBytes int
	now         func() time.Time
}

// Option configures a ClientService
type Option func(*ClientService)

func WithInumGenerator(gen persistence.InumGenerator) Option {
	return func(s *ClientService) {
		s.newInum = gen
	}
}

func WithInumRetries(n int) Option {
	return func(s *ClientService) {
		s.inumRetries = n
	}
}

// WithSecretBytes sets the entropy of generated secrets
func WithSecretBytes(n int) Option {
	return func(s *ClientService) {
		s.secretBytes = n
	}
}

// WithClock replaces time.Now for expiry checks
func WithClock(now func() time.Time) Option {
	return func(s *ClientService) {
		s.now = now
	}
}

func NewClientService(store persistence.EntryStore, org OrganizationResolver, codec SecretCodec, opts ...Option) *ClientService {
	s := &ClientService{
		store:       store,
		org:         org,
		codec:       codec,
		newInum:     persistence.NewUUIDInum,
		inumRetries: persistence.DefaultInumRetries,
		secretBytes: DefaultSecretBytes,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DNForClient returns the DN of the client with inum, or of the clients
// branch when inum is empty.
func (s *ClientService) DNForClient(inum string) string {
	branch := persistence.BuildDN("ou", "clients", s.org.DNForOrganization())
	if inum == "" {
		return branch
	}
	return persistence.BuildDN("inum", inum, branch)
}

// GenerateInumForNewClient returns an inum whose DN is not yet taken.
func (s *ClientService) GenerateInumForNewClient(ctx context.Context) (string, error) {
	return persistence.GenerateInum(ctx, s.store, s.newInum, s.DNForClient, s.inumRetries)
}

// GenerateClientSecret returns a new random plaintext secret.
func (s *ClientService) GenerateClientSecret() (string, error) {
	return GenerateSecret(s.secretBytes)
}

// AddClient validates and stores a new client. It assigns the inum when
// missing and encodes a plaintext ClientSecret.
func (s *ClientService) AddClient(ctx context.Context, client *OAuthClient) error {
	if err := client.Validate(); err != nil {
		return err
	}
	if client.Inum == "" {
		inum, err := s.GenerateInumForNewClient(ctx)
		if err != nil {
			return err
		}
		client.Inum = inum
	}
	client.SetDN(s.DNForClient(client.Inum))

	if err := s.encodeSecret(client); err != nil {
		return err
	}
	if err := persistence.Persist(ctx, s.store, client); err != nil {
		return fmt.Errorf("failed to add client: %w", err)
	}
	return nil
}

// UpdateClient replaces the stored client. The inum of the stored entry
// must match client.Inum. An empty ClientSecret keeps the stored secret.
func (s *ClientService) UpdateClient(ctx context.Context, client *OAuthClient) error {
	if err := client.Validate(); err != nil {
		return err
	}
	if client.GetDN() == "" {
		client.SetDN(s.DNForClient(client.Inum))
	}

	existing, err := s.lookupByDN(ctx, client.GetDN()).Unwrap(ErrClientNotFound)
	if err != nil {
		return err
	}
	if existing.Inum != client.Inum {
		return fmt.Errorf("%w: stored %s, got %s", ErrInumImmutable, existing.Inum, client.Inum)
	}

	if client.ClientSecret == "" && client.EncodedClientSecret == "" {
		client.EncodedClientSecret = existing.EncodedClientSecret
	}
	if err := s.encodeSecret(client); err != nil {
		return err
	}

	if err := persistence.Merge(ctx, s.store, client); err != nil {
		if errors.Is(err, persistence.ErrEntryNotFound) {
			return ErrClientNotFound
		}
		return fmt.Errorf("failed to update client: %w", err)
	}
	return nil
}

// RemoveClient deletes the client entry.
func (s *ClientService) RemoveClient(ctx context.Context, client *OAuthClient) error {
	dn := client.GetDN()
	if dn == "" {
		dn = s.DNForClient(client.Inum)
	}
	if err := s.store.Remove(ctx, dn); err != nil {
		if errors.Is(err, persistence.ErrEntryNotFound) {
			return ErrClientNotFound
		}
		return fmt.Errorf("failed to remove client: %w", err)
	}
	return nil
}

// GetClientByInum returns the client with inum, or nil.
func (s *ClientService) GetClientByInum(ctx context.Context, inum string) *OAuthClient {
	return s.lookupByDN(ctx, s.DNForClient(inum)).OrNil("Failed to get client", "inum", inum)
}

// GetClientByDN returns the client stored at dn, or nil.
func (s *ClientService) GetClientByDN(ctx context.Context, dn string) *OAuthClient {
	return s.lookupByDN(ctx, dn).OrNil("Failed to get client", "dn", dn)
}

// LookupClientByInum returns ErrClientNotFound for a missing client and
// the store error when the read fails.
func (s *ClientService) LookupClientByInum(ctx context.Context, inum string) (*OAuthClient, error) {
	return s.lookupByDN(ctx, s.DNForClient(inum)).Unwrap(ErrClientNotFound)
}

// SearchClients returns up to sizeLimit clients whose display name,
// description or inum contains pattern. A blank pattern lists all clients.
func (s *ClientService) SearchClients(ctx context.Context, pattern string, sizeLimit int) []*OAuthClient {
	var f filter.Filter
	if strings.TrimSpace(pattern) != "" {
		f = filter.Or(
			filter.Contains("displayName", pattern),
			filter.Contains("description", pattern),
			filter.Contains("inum", pattern),
		)
	}
	return s.find(ctx, f, sizeLimit, "Failed to search clients", "pattern", pattern)
}

// GetAllClients returns up to sizeLimit clients.
func (s *ClientService) GetAllClients(ctx context.Context, sizeLimit int) []*OAuthClient {
	return s.find(ctx, nil, sizeLimit, "Failed to list clients")
}

// FindClientsByScope returns the clients granted the scope at scopeDN.
func (s *ClientService) FindClientsByScope(ctx context.Context, scopeDN string, sizeLimit int) []*OAuthClient {
	return s.find(ctx, filter.Equality("oxAuthScope", scopeDN), sizeLimit, "Failed to find clients by scope", "scope", scopeDN)
}

// DecodeClientSecret returns the plaintext of the stored secret.
func (s *ClientService) DecodeClientSecret(client *OAuthClient) (string, error) {
	if client.EncodedClientSecret == "" {
		return "", ErrEmptySecret
	}
	return s.codec.Decode(client.EncodedClientSecret)
}

// ValidateClientCredentials authenticates a client by inum and plaintext
// secret.
func (s *ClientService) ValidateClientCredentials(ctx context.Context, inum, secret string) (*OAuthClient, error) {
	client, err := s.LookupClientByInum(ctx, inum)
	if err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	stored, err := s.DecodeClientSecret(client)
	if err != nil {
		slog.Warn("Failed to decode stored client secret", "inum", inum, "err", err)
		return nil, ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(secret)) != 1 {
		return nil, ErrInvalidCredentials
	}

	if client.IsDisabled() {
		return nil, ErrClientDisabled
	}
	if !s.now().Before(client.ClientSecretExpiresAt()) {
		return nil, ErrClientSecretExpired
	}
	return client, nil
}

func (s *ClientService) encodeSecret(client *OAuthClient) error {
	if client.ClientSecret == "" {
		return nil
	}
	encoded, err := s.codec.Encode(client.ClientSecret)
	if err != nil {
		return fmt.Errorf("failed to encode client secret: %w", err)
	}
	client.EncodedClientSecret = encoded
	return nil
}

func (s *ClientService) find(ctx context.Context, f filter.Filter, sizeLimit int, msg string, args ...any) []*OAuthClient {
	clients, err := persistence.FindEntries[OAuthClient](ctx, s.store, s.DNForClient(""), f, sizeLimit)
	if err != nil {
		slog.Error(msg, append(args, "err", err)...)
		return []*OAuthClient{}
	}
	return clients
}

func (s *ClientService) lookupByDN(ctx context.Context, dn string) persistence.LookupResult[OAuthClient] {
	return persistence.Lookup[OAuthClient](ctx, s.store, dn)
}
