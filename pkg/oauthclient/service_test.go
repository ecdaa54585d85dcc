package oauthclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-oxtrust/pkg/persistence"
	"github.com/tendant/simple-oxtrust/pkg/persistence/filter"
)

type staticOrg string

func (o staticOrg) DNForOrganization() string { return string(o) }

const testOrgDN = "o=@!1111,o=gluu"

var errStoreDown = errors.New("store down")

type brokenStore struct{}

func (brokenStore) Find(context.Context, string) (persistence.Document, error) {
	return persistence.Document{}, errStoreDown
}
func (brokenStore) Contains(context.Context, string) (bool, error)    { return false, errStoreDown }
func (brokenStore) Persist(context.Context, persistence.Document) error { return errStoreDown }
func (brokenStore) Merge(context.Context, persistence.Document) error   { return errStoreDown }
func (brokenStore) Remove(context.Context, string) error                { return errStoreDown }
func (brokenStore) FindEntries(context.Context, string, string, filter.Filter, int) ([]persistence.Document, error) {
	return nil, errStoreDown
}
func (brokenStore) PersistenceType() string { return "broken" }
func (brokenStore) Close() error            { return nil }

func newTestService(t *testing.T, store persistence.EntryStore, opts ...Option) *ClientService {
	t.Helper()
	codec, err := NewEncryptionService(testEncryptionKey)
	require.NoError(t, err)
	return NewClientService(store, staticOrg(testOrgDN), codec, opts...)
}

func TestAddClient(t *testing.T) {
	svc := newTestService(t, persistence.NewInMemoryEntryStore())
	ctx := context.Background()

	client := validClient()
	client.ClientSecret = "s3cret"
	require.NoError(t, svc.AddClient(ctx, client))

	require.NotEmpty(t, client.Inum)
	assert.Equal(t, "inum="+client.Inum+",ou=clients,o=@!1111,o=gluu", client.DN)
	assert.NotEmpty(t, client.EncodedClientSecret)
	assert.NotEqual(t, "s3cret", client.EncodedClientSecret)

	stored := svc.GetClientByInum(ctx, client.Inum)
	require.NotNil(t, stored)
	assert.Empty(t, stored.ClientSecret)
	assert.Equal(t, client.EncodedClientSecret, stored.EncodedClientSecret)
	assert.Equal(t, persistence.True, stored.PersistClientAuthorizations)

	plain, err := svc.DecodeClientSecret(stored)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", plain)

	byDN := svc.GetClientByDN(ctx, client.DN)
	require.NotNil(t, byDN)
	assert.Equal(t, client.Inum, byDN.Inum)
}

func TestAddClient_Invalid(t *testing.T) {
	svc := newTestService(t, persistence.NewInMemoryEntryStore())

	client := validClient()
	client.RedirectURIs = []string{"http://evil.example.com"}
	err := svc.AddClient(context.Background(), client)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Empty(t, client.Inum)
	assert.Empty(t, svc.GetAllClients(context.Background(), 0))
}

func TestGenerateInumForNewClient(t *testing.T) {
	values := []string{"a", "a", "b"}
	i := 0
	gen := func() string {
		v := values[i%len(values)]
		i++
		return v
	}
	svc := newTestService(t, persistence.NewInMemoryEntryStore(), WithInumGenerator(gen), WithInumRetries(2))
	ctx := context.Background()

	first := validClient()
	require.NoError(t, svc.AddClient(ctx, first))
	assert.Equal(t, "a", first.Inum)

	second := validClient()
	require.NoError(t, svc.AddClient(ctx, second))
	assert.Equal(t, "b", second.Inum)

	// both candidates are taken now
	i = 0
	values = []string{"a", "b"}
	_, err := svc.GenerateInumForNewClient(ctx)
	assert.ErrorIs(t, err, persistence.ErrInumGenerationExhausted)
}

func TestUpdateClient(t *testing.T) {
	svc := newTestService(t, persistence.NewInMemoryEntryStore())
	ctx := context.Background()

	client := validClient()
	client.ClientSecret = "first"
	require.NoError(t, svc.AddClient(ctx, client))

	t.Run("keeps secret when none given", func(t *testing.T) {
		update := *svc.GetClientByInum(ctx, client.Inum)
		update.Description = "updated"
		update.EncodedClientSecret = ""
		require.NoError(t, svc.UpdateClient(ctx, &update))

		stored := svc.GetClientByInum(ctx, client.Inum)
		assert.Equal(t, "updated", stored.Description)
		plain, err := svc.DecodeClientSecret(stored)
		require.NoError(t, err)
		assert.Equal(t, "first", plain)
	})

	t.Run("re-encodes a new secret", func(t *testing.T) {
		update := *svc.GetClientByInum(ctx, client.Inum)
		update.ClientSecret = "second"
		require.NoError(t, svc.UpdateClient(ctx, &update))

		plain, err := svc.DecodeClientSecret(svc.GetClientByInum(ctx, client.Inum))
		require.NoError(t, err)
		assert.Equal(t, "second", plain)
	})

	t.Run("inum is immutable", func(t *testing.T) {
		update := *svc.GetClientByInum(ctx, client.Inum)
		update.Inum = "other"
		err := svc.UpdateClient(ctx, &update)
		assert.ErrorIs(t, err, ErrInumImmutable)
		assert.NotNil(t, svc.GetClientByInum(ctx, client.Inum))
	})

	t.Run("missing client", func(t *testing.T) {
		ghost := validClient()
		ghost.Inum = "ghost"
		assert.ErrorIs(t, svc.UpdateClient(ctx, ghost), ErrClientNotFound)
	})
}

func TestRemoveClient(t *testing.T) {
	svc := newTestService(t, persistence.NewInMemoryEntryStore())
	ctx := context.Background()

	client := validClient()
	require.NoError(t, svc.AddClient(ctx, client))
	require.NoError(t, svc.RemoveClient(ctx, client))
	assert.Nil(t, svc.GetClientByInum(ctx, client.Inum))
	assert.ErrorIs(t, svc.RemoveClient(ctx, client), ErrClientNotFound)
}

func TestSearchClients(t *testing.T) {
	svc := newTestService(t, persistence.NewInMemoryEntryStore())
	ctx := context.Background()

	emailScope := "inum=10B2,ou=scopes,o=@!1111,o=gluu"
	for _, c := range []struct{ inum, name, desc string }{
		{"portal-1", "Portal", "customer portal"},
		{"mobile-2", "Mobile", "iOS app for the portal"},
		{"batch-3", "Batch", "nightly jobs"},
	} {
		client := validClient()
		client.Inum = c.inum
		client.DisplayName = c.name
		client.Description = c.desc
		if c.inum != "batch-3" {
			client.Scopes = []string{emailScope}
		}
		require.NoError(t, svc.AddClient(ctx, client))
	}

	found := svc.SearchClients(ctx, "portal", 100)
	require.Len(t, found, 2)
	assert.Equal(t, "portal-1", found[0].Inum)
	assert.Equal(t, "mobile-2", found[1].Inum)

	byInum := svc.SearchClients(ctx, "batch", 100)
	require.Len(t, byInum, 1)

	assert.Len(t, svc.SearchClients(ctx, "", 100), 3)
	assert.Len(t, svc.GetAllClients(ctx, 2), 2)

	byScope := svc.FindClientsByScope(ctx, "INUM=10B2,ou=scopes,o=@!1111,o=gluu", 0)
	require.Len(t, byScope, 2)
	assert.Equal(t, "portal-1", byScope[0].Inum)
}

func TestValidateClientCredentials(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, persistence.NewInMemoryEntryStore(), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	active := validClient()
	active.Inum = "active"
	active.ClientSecret = "good"
	require.NoError(t, svc.AddClient(ctx, active))

	disabled := validClient()
	disabled.Inum = "disabled"
	disabled.ClientSecret = "good"
	disabled.Disabled = persistence.True
	require.NoError(t, svc.AddClient(ctx, disabled))

	expired := validClient()
	expired.Inum = "expired"
	expired.ClientSecret = "good"
	expired.SetClientSecretExpiresAt(now.Add(-time.Hour))
	require.NoError(t, svc.AddClient(ctx, expired))

	got, err := svc.ValidateClientCredentials(ctx, "active", "good")
	require.NoError(t, err)
	assert.Equal(t, "active", got.Inum)

	_, err = svc.ValidateClientCredentials(ctx, "active", "bad")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.ValidateClientCredentials(ctx, "unknown", "good")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.ValidateClientCredentials(ctx, "disabled", "good")
	assert.ErrorIs(t, err, ErrClientDisabled)

	_, err = svc.ValidateClientCredentials(ctx, "expired", "good")
	assert.ErrorIs(t, err, ErrClientSecretExpired)
}

func TestClientStoreFailuresDegrade(t *testing.T) {
	svc := newTestService(t, brokenStore{})
	ctx := context.Background()

	assert.Nil(t, svc.GetClientByInum(ctx, "x"))
	assert.Nil(t, svc.GetClientByDN(ctx, "inum=x,ou=clients,o=gluu"))
	found := svc.SearchClients(ctx, "x", 10)
	assert.NotNil(t, found)
	assert.Empty(t, found)
	assert.Empty(t, svc.FindClientsByScope(ctx, "inum=s,ou=scopes,o=gluu", 10))

	_, err := svc.LookupClientByInum(ctx, "x")
	assert.ErrorIs(t, err, errStoreDown)
	_, err = svc.ValidateClientCredentials(ctx, "x", "y")
	assert.ErrorIs(t, err, errStoreDown)
}

func TestGenerateClientSecret(t *testing.T) {
	svc := newTestService(t, persistence.NewInMemoryEntryStore(), WithSecretBytes(16))
	secret, err := svc.GenerateClientSecret()
	require.NoError(t, err)
	assert.Len(t, secret, 22)
}
